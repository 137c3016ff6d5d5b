package models

import (
	"fmt"
	"testing"
)

func TestRankSearchCandidatesOrder(t *testing.T) {
	candidates := []Product{
		{ID: 1, Article: "90000001", Name: "Тарілка глибока"},
		{ID: 2, Article: "52250196", Name: "Склянка 250мл"},
		{ID: 3, Article: "90000002", Name: "Велика склянка"},
	}

	ranked := rankSearchCandidates("52250196", candidates)
	if len(ranked) == 0 || ranked[0].ID != 2 {
		t.Fatalf("exact article match must rank first, got %v", ranked)
	}

	ranked = rankSearchCandidates("Склянка", candidates)
	if len(ranked) < 2 {
		t.Fatalf("expected at least 2 hits for name query, got %d", len(ranked))
	}
	// Name prefix outranks mid-name containment.
	if ranked[0].ID != 2 || ranked[1].ID != 3 {
		t.Errorf("ranking = [%d, %d], want [2, 3]", ranked[0].ID, ranked[1].ID)
	}
}

func TestRankSearchCandidatesDropsWeakMatches(t *testing.T) {
	candidates := []Product{
		{ID: 1, Article: "11111111", Name: "Каструля"},
	}
	if ranked := rankSearchCandidates("холодильник", candidates); len(ranked) != 0 {
		t.Errorf("weak match must be dropped, got %v", ranked)
	}
}

func TestRankSearchCandidatesLimit(t *testing.T) {
	candidates := make([]Product, 0, 40)
	for i := 0; i < 40; i++ {
		candidates = append(candidates, Product{
			ID:      i + 1,
			Article: fmt.Sprintf("6000%04d", i),
			Name:    fmt.Sprintf("Склянка %d", i),
		})
	}
	ranked := rankSearchCandidates("Склянка", candidates)
	if len(ranked) != 15 {
		t.Errorf("len = %d, want the search limit of 15", len(ranked))
	}
}

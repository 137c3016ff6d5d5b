package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestExtractArticleAndName(t *testing.T) {
	cases := []struct {
		in          string
		wantArticle string
		wantName    string
	}{
		{"52250196 - Склянка 250мл", "52250196", "Склянка 250мл"},
		{"52250196 Склянка", "52250196", "Склянка"},
		{"52250196.Склянка", "52250196", "Склянка"},
		{"52250196 – Склянка", "52250196", "Склянка"},
		{"52250196", "52250196", ""},
		// Bare identifiers must come back whole, never split digit-by-digit.
		{"99999", "99999", ""},
		{"1234567890123", "1234567890123", ""},
		{"123", "123", ""},
		{"1234 Widget", "", "1234 Widget"}, // needs at least 5 digits before a name
		{"Склянка 250мл", "", "Склянка 250мл"},
		{"  52250196 - Склянка  ", "52250196", "Склянка"},
		{"", "", ""},
	}
	for _, c := range cases {
		article, name := ExtractArticleAndName(c.in)
		if article != c.wantArticle || name != c.wantName {
			t.Errorf("ExtractArticleAndName(%q) = (%q, %q), want (%q, %q)",
				c.in, article, name, c.wantArticle, c.wantName)
		}
	}
}

func TestNormalizeNumeric(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"12,5", "12.5"},
		{"1 234,50", "1234.5"},
		{"1 200.00", "1200"},
		{"45.00 грн", "45"},
		{"-3,25", "-3.25"},
		{"", "0"},
		{"   ", "0"},
		{"abc", "0"},
		{"10", "10"},
	}
	for _, c := range cases {
		got := NormalizeNumeric(c.in)
		want, _ := decimal.NewFromString(c.want)
		if !got.Equal(want) {
			t.Errorf("NormalizeNumeric(%q) = %s, want %s", c.in, got, want)
		}
	}
}

func TestNormalizeInt(t *testing.T) {
	if got := NormalizeInt("відділ 7"); got != 7 {
		t.Errorf("NormalizeInt(\"відділ 7\") = %d, want 7", got)
	}
	if got := NormalizeInt(""); got != 0 {
		t.Errorf("NormalizeInt(\"\") = %d, want 0", got)
	}
	if got := NormalizeInt("12,9"); got != 12 {
		t.Errorf("NormalizeInt(\"12,9\") = %d, want 12", got)
	}
}

func TestParseDecimal(t *testing.T) {
	if _, err := ParseDecimal(""); err == nil {
		t.Error("ParseDecimal(\"\") should fail")
	}
	d, err := ParseDecimal(" 10.25 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if !d.Equal(decimal.NewFromFloat(10.25)) {
		t.Errorf("ParseDecimal(\" 10.25 \") = %s, want 10.25", d)
	}
}

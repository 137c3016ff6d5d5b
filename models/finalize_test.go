package models

import "testing"

func TestSplitLine(t *testing.T) {
	cases := []struct {
		name                       string
		requested, available       string
		wantFulfilled, wantSurplus string
	}{
		{"fully available", "5", "10", "5", "0"},
		{"exactly available", "10", "10", "10", "0"},
		{"partial", "15", "10", "10", "5"},
		{"nothing available", "7", "0", "0", "7"},
		{"negative availability", "7", "-3", "0", "7"},
		{"fractional split", "2.5", "1.25", "1.25", "1.25"},
	}
	for _, c := range cases {
		fulfilled, surplus := splitLine(dec(c.requested), dec(c.available))
		if !fulfilled.Equal(dec(c.wantFulfilled)) || !surplus.Equal(dec(c.wantSurplus)) {
			t.Errorf("%s: splitLine(%s, %s) = (%s, %s), want (%s, %s)",
				c.name, c.requested, c.available, fulfilled, surplus, c.wantFulfilled, c.wantSurplus)
		}
	}
}

func TestSplitLineConservation(t *testing.T) {
	// Fulfilled + surplus must always equal the requested quantity.
	for _, pair := range [][2]string{{"15", "10"}, {"1", "0"}, {"3.75", "2"}, {"8", "100"}} {
		requested, available := dec(pair[0]), dec(pair[1])
		fulfilled, surplus := splitLine(requested, available)
		if !fulfilled.Add(surplus).Equal(requested) {
			t.Errorf("splitLine(%s, %s): %s + %s != requested", requested, available, fulfilled, surplus)
		}
		if fulfilled.IsNegative() || surplus.IsNegative() {
			t.Errorf("splitLine(%s, %s) produced a negative part", requested, available)
		}
	}
}

package theme

import (
	"testing"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

func TestFor_EveryPeriod(t *testing.T) {
	seen := map[string]bool{}
	for _, n := range prayer.Order {
		p := For(n)
		if p.Name != n {
			t.Errorf("For(%s).Name = %s", n, p.Name)
		}
		if p.Label == "" || p.Arabic == "" || p.Icon == "" || p.ANSI == "" {
			t.Errorf("For(%s) incomplete: %+v", n, p)
		}
		if seen[string(p.From)] {
			t.Errorf("For(%s) reuses accent %s", n, p.From)
		}
		seen[string(p.From)] = true
	}
}

func TestFor_UnknownFallsBackToIsha(t *testing.T) {
	if got := For(prayer.Name("")); got.Name != prayer.Isha {
		t.Errorf("For(\"\") = %s, want isha", got.Name)
	}
}

func TestAll_Order(t *testing.T) {
	all := All()
	if len(all) != len(prayer.Order) {
		t.Fatalf("len(All()) = %d", len(all))
	}
	for i, p := range all {
		if p.Name != prayer.Order[i] {
			t.Errorf("All()[%d] = %s, want %s", i, p.Name, prayer.Order[i])
		}
	}
}

package level

import "testing"

func TestForXP(t *testing.T) {
	cases := []struct {
		xp   int
		want int
	}{
		{0, 1},
		{499, 1},
		{500, 2},
		{1499, 2},
		{1500, 3},
		{2999, 3},
		{3000, 4},
		{4999, 4},
		{5000, 5},
		{9999, 5},
		{10000, 6},
		{19999, 6},
		{20000, 7},
		{1000000, 7},
		{-50, 1},
	}

	for _, c := range cases {
		if got := ForXP(c.xp); got != c.want {
			t.Errorf("ForXP(%d) = %d, want %d", c.xp, got, c.want)
		}
	}
}

func TestForXPMonotonic(t *testing.T) {
	prev := ForXP(0)
	for xp := 0; xp <= 25000; xp += 7 {
		cur := ForXP(xp)
		if cur < prev {
			t.Fatalf("level decreased from %d to %d at xp=%d", prev, cur, xp)
		}
		prev = cur
	}
}

func TestNextThreshold(t *testing.T) {
	if next, ok := NextThreshold(450); !ok || next != 500 {
		t.Errorf("NextThreshold(450) = %d, %v, want 500, true", next, ok)
	}
	if next, ok := NextThreshold(500); !ok || next != 1500 {
		t.Errorf("NextThreshold(500) = %d, %v, want 1500, true", next, ok)
	}
	if _, ok := NextThreshold(20000); ok {
		t.Error("NextThreshold at top tier should report false")
	}
}

func TestToNext(t *testing.T) {
	if got := ToNext(450); got != 50 {
		t.Errorf("ToNext(450) = %d, want 50", got)
	}
	if got := ToNext(20000); got != 0 {
		t.Errorf("ToNext(20000) = %d, want 0", got)
	}
}

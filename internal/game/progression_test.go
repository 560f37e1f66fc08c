package game

import (
	"errors"
	"math"
	"testing"
)

func TestUpgradeCost(t *testing.T) {
	cases := []struct {
		id    string
		level int
		want  int64
	}{
		{UpgradeShake, 0, 25},
		{UpgradeShake, 1, 29},
		{UpgradeShake, 3, 38},
		{UpgradeBrewery, 0, 100},
		{UpgradeBrewery, 1, 120},
		{UpgradeBrewery, 2, 144},
	}

	for _, tc := range cases {
		got, err := UpgradeCost(tc.id, tc.level)
		if err != nil {
			t.Fatalf("UpgradeCost(%s,%d) error: %v", tc.id, tc.level, err)
		}
		if got != tc.want {
			t.Fatalf("UpgradeCost(%s,%d) = %d; want %d", tc.id, tc.level, got, tc.want)
		}
	}
}

func TestUpgradeCostUnknown(t *testing.T) {
	if _, err := UpgradeCost("rocket", 0); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}

func TestUpgradeCostFormulaAndMonotonic(t *testing.T) {
	for _, id := range []string{UpgradeShake, UpgradeBrewery} {
		def, _ := Default().Upgrade(id)
		prev := int64(-1)
		for lvl := 0; lvl < 60; lvl++ {
			got, err := UpgradeCost(id, lvl)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := int64(math.Round(def.BaseCost * math.Pow(def.GrowthRate, float64(lvl))))
			if got != want {
				t.Fatalf("%s level %d: got %d want %d", id, lvl, got, want)
			}
			if got <= prev {
				t.Fatalf("%s cost not strictly increasing at level %d: %d <= %d", id, lvl, got, prev)
			}
			prev = got
		}
	}
}

func TestLevelFromTotal(t *testing.T) {
	cases := []struct {
		total int64
		want  int
	}{
		{-50, 1},
		{0, 1},
		{499, 1},
		{500, 2},
		{1999, 2},
		{2000, 3},
		{4500, 4},
		{10000, 5},
	}
	for _, tc := range cases {
		if got := LevelFromTotal(tc.total); got != tc.want {
			t.Fatalf("LevelFromTotal(%d) = %d; want %d", tc.total, got, tc.want)
		}
	}
}

func TestLevelNonDecreasing(t *testing.T) {
	prev := LevelFromTotal(0)
	for total := int64(0); total < 200000; total += 37 {
		l := LevelFromTotal(total)
		if l < 1 {
			t.Fatalf("level below 1 at total %d", total)
		}
		if l < prev {
			t.Fatalf("level decreased at total %d: %d < %d", total, l, prev)
		}
		prev = l
	}
}

func TestThresholdRoundTrip(t *testing.T) {
	for L := 1; L <= 500; L++ {
		if got := LevelFromTotal(ThresholdForLevel(L)); got != L {
			t.Fatalf("LevelFromTotal(ThresholdForLevel(%d)) = %d", L, got)
		}
		if L > 1 && LevelFromTotal(ThresholdForLevel(L)-1) != L-1 {
			t.Fatalf("one below threshold of %d should stay at %d", L, L-1)
		}
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		total int64
		want  float64
	}{
		{0, 0},
		{250, 0.5},
		{500, 0},
		{1250, 0.5},
		{-10, 0},
	}
	for _, tc := range cases {
		if got := Progress(tc.total); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Progress(%d) = %v; want %v", tc.total, got, tc.want)
		}
	}
}

func TestEarnings(t *testing.T) {
	// 100px at 0.09 per pixel
	if got := PointerEarnings(100, 0.09); got != 9 {
		t.Fatalf("PointerEarnings = %d; want 9", got)
	}
	if got := PointerEarnings(150, 0); got != 0 {
		t.Fatalf("zero rate should earn nothing, got %d", got)
	}
	if got := IdleEarnings(3); got != 6 {
		t.Fatalf("IdleEarnings(3) = %d; want 6", got)
	}
	if got := IdleEarnings(0); got != 0 {
		t.Fatalf("IdleEarnings(0) = %d; want 0", got)
	}
	if CanTranscend(9999) || !CanTranscend(10000) {
		t.Fatal("transcend requirement should be 10000")
	}
}

package game

import (
	"errors"
	"math"
	"testing"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestRecompute(t *testing.T) {
	cases := []struct {
		name     string
		upgrades Upgrades
		artifact string
		want     Multipliers
	}{
		{"zero state", Upgrades{}, "", Multipliers{PerClick: 1, PerSecond: 0, PerPixel: 0.01}},
		{"shake 5 with might", Upgrades{Shake: 5}, "artifact_of_might", Multipliers{PerClick: 1, PerSecond: 0, PerPixel: 0.09}},
		{"brewery with flow", Upgrades{Brewery: 3}, "artifact_of_flow", Multipliers{PerClick: 1, PerSecond: 13, PerPixel: 0.01}},
		{"unknown artifact ignored", Upgrades{Shake: 1}, "nope", Multipliers{PerClick: 1, PerSecond: 0, PerPixel: 0.02}},
	}

	for _, tc := range cases {
		got := Recompute(tc.upgrades, tc.artifact)
		if got.PerClick != tc.want.PerClick || !almost(got.PerSecond, tc.want.PerSecond) || !almost(got.PerPixel, tc.want.PerPixel) {
			t.Fatalf("%s: got %+v; want %+v", tc.name, got, tc.want)
		}
	}
}

func TestRecomputeIsPure(t *testing.T) {
	u := Upgrades{Shake: 7, Brewery: 2}
	first := Recompute(u, "artifact_of_might")
	Recompute(Upgrades{Shake: 99}, "artifact_of_flow")
	if again := Recompute(u, "artifact_of_might"); again != first {
		t.Fatalf("recompute not deterministic: %+v vs %+v", first, again)
	}
}

func TestCatalogLookups(t *testing.T) {
	c := Default()
	if _, err := c.Artifact("artifact_of_flow"); err != nil {
		t.Fatalf("artifact lookup: %v", err)
	}
	if _, err := c.Artifact("missing"); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
	if _, err := c.Cosmetic(Category("hat"), "x"); !errors.Is(err, ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier for category, got %v", err)
	}
	d, err := c.Cosmetic(CategoryBottle, "bottle_round")
	if err != nil || d.Cost != 2500 {
		t.Fatalf("bottle_round: %+v %v", d, err)
	}
	for _, cat := range Categories {
		list := c.SortedCosmetics(cat)
		if len(list) == 0 || list[0].ID != cat.DefaultID() {
			t.Fatalf("%s: default should sort first, got %+v", cat, list)
		}
	}
}

func TestParseCatalogRejectsBadConfig(t *testing.T) {
	bad := []byte(`
[upgrades.shake]
base_cost = 25
growth_rate = 1.0
[upgrades.brewery]
base_cost = 100
growth_rate = 1.2
`)
	if _, err := ParseCatalog(bad); err == nil {
		t.Fatal("expected validation error")
	}
}

package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"stickman_shake/internal/game"
)

func TestDefaultUsername(t *testing.T) {
	cases := []struct {
		uid, email, want string
	}{
		{"abcdefghij", "neo@matrix.io", "neo"},
		{"abcdefghij", "", "Player_abcdef"},
		{"abc", "", "Player_abc"},
		{"abcdefghij", "plain", "plain"},
	}
	for _, tc := range cases {
		if got := DefaultUsername(tc.uid, tc.email); got != tc.want {
			t.Fatalf("DefaultUsername(%q,%q) = %q; want %q", tc.uid, tc.email, got, tc.want)
		}
	}
}

func TestNewProfileZeroState(t *testing.T) {
	p := freshProfile(t)
	if p.Level != 1 || p.Essence != 0 || p.EquippedArtifact != nil {
		t.Fatalf("unexpected zero state: %+v", p)
	}
	if p.EssencePerShake != 1 || p.EssencePerSecond != 0 || p.EssencePerPixel != 0.01 {
		t.Fatalf("unexpected multipliers: %+v", p.Multipliers())
	}
}

func TestProfileWireNames(t *testing.T) {
	p := freshProfile(t)
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{
		"userId", "username", "email", "essence", "totalEssenceEarned", "onChainEvolutionLevel",
		"level", "essencePerShake", "essencePerSecond", "essencePerPixel", "upgrades", "artifacts",
		"equippedArtifact", "unlockedBackgrounds", "equippedBackground", "unlockedBottles",
		"equippedBottle", "unlockedSkins", "equippedSkin", "lastActivity",
	} {
		if _, ok := m[key]; !ok {
			t.Fatalf("missing wire field %q in %s", key, b)
		}
	}
	if m["equippedArtifact"] != nil {
		t.Fatalf("equippedArtifact should be null, got %v", m["equippedArtifact"])
	}
	up := m["upgrades"].(map[string]any)
	if _, ok := up["shake"]; !ok {
		t.Fatalf("upgrades.shake missing: %v", up)
	}
}

func TestNormalizeFillsDefaults(t *testing.T) {
	p := PlayerProfile{UserID: "u1", TotalEssenceEarned: 2000, UnlockedSkins: []string{"skin_gold"}}
	p.Normalize()

	if p.Username != "Player_u1" || p.Level != 3 {
		t.Fatalf("normalize: %+v", p)
	}
	if !p.HasCosmetic(game.CategorySkin, game.DefaultSkin) || !p.HasCosmetic(game.CategorySkin, "skin_gold") {
		t.Fatalf("skins: %v", p.UnlockedSkins)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("normalized profile invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(p *PlayerProfile)
	}{
		{"negative essence", func(p *PlayerProfile) { p.Essence = -1 }},
		{"level drift", func(p *PlayerProfile) { p.Level = 4 }},
		{"unowned artifact", func(p *PlayerProfile) { id := "artifact_of_might"; p.EquippedArtifact = &id }},
		{"missing default", func(p *PlayerProfile) { p.UnlockedBottles = []string{"bottle_jar"}; p.EquippedBottle = "bottle_jar" }},
		{"equipped not unlocked", func(p *PlayerProfile) { p.EquippedBackground = "bg_fire" }},
	}
	for _, tc := range cases {
		p := freshProfile(t)
		tc.mutate(&p)
		if err := p.Validate(); !errors.Is(err, ErrInvalidMutation) {
			t.Fatalf("%s: expected ErrInvalidMutation, got %v", tc.name, err)
		}
	}
}

func TestCloneDoesNotShare(t *testing.T) {
	p := freshProfile(t)
	id := "artifact_of_flow"
	p.Artifacts = []string{id}
	p.EquippedArtifact = &id

	c := p.Clone()
	c.Artifacts[0] = "changed"
	*c.EquippedArtifact = "changed"
	if p.Artifacts[0] != id || p.Equipped() != id {
		t.Fatal("clone shares memory with original")
	}
}

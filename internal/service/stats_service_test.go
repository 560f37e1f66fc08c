package service

import (
	"context"
	"testing"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/store"
)

func TestGetStats(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	for i, edit := range []func(p *domain.PlayerProfile){
		func(p *domain.PlayerProfile) { p.Essence = 100; p.TotalEssenceEarned = 600 },
		func(p *domain.PlayerProfile) {
			p.Essence = 5
			p.WalletAddress = testWallet
			p.OnChainEvolutionLevel = 12000
			p.Artifacts = []string{"artifact_of_might", "artifact_of_flow"}
		},
		nil,
	} {
		p := domain.NewProfile(game.Default(), string(rune('a'+i)), "", time.Now())
		if edit != nil {
			edit(&p)
		}
		p.Level = game.LevelFromTotal(p.TotalEssenceEarned)
		if _, err := st.EnsureExists(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := NewStatsService(st).GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalPlayers != 3 || stats.EssenceInHand != 105 || stats.EssenceEarned != 600 {
		t.Fatalf("unexpected totals: %+v", stats)
	}
	if stats.WalletsLinked != 1 || stats.Transcended != 1 || stats.ArtifactsOwned != 2 {
		t.Fatalf("unexpected ledger stats: %+v", stats)
	}
	if stats.HighestLevel != 2 || stats.HighestEvolution != 12000 {
		t.Fatalf("unexpected highs: %+v", stats)
	}
}

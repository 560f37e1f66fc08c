package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/ledger"
	"stickman_shake/internal/store"
)

var testWallet = "0x" + strings.Repeat("ab", 32)

type engineFixture struct {
	engine *Engine
	store  *store.MemoryStore
	signer *ledger.DevSigner
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	st := store.NewMemoryStore()
	signer := ledger.NewDevSigner(0)
	eng := NewEngine(EngineConfig{
		Sync:   NewSynchronizer(st),
		Ledger: signer,
	})
	return &engineFixture{engine: eng, store: st, signer: signer}
}

// seed stores a profile for user-1 after applying edit, and returns the stored copy.
func (f *engineFixture) seed(t *testing.T, edit func(p *domain.PlayerProfile)) domain.PlayerProfile {
	t.Helper()
	p := domain.NewProfile(game.Default(), "user-1", "shaker@example.com", time.Now())
	if edit != nil {
		edit(&p)
	}
	p.Level = game.LevelFromTotal(p.TotalEssenceEarned)
	if _, err := f.store.EnsureExists(context.Background(), p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return f.get(t)
}

func (f *engineFixture) get(t *testing.T) domain.PlayerProfile {
	t.Helper()
	p, err := f.store.Get(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuyUpgradeExactFunds(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Upgrades.Shake = 3
		p.Essence = 38
		p.TotalEssenceEarned = 400
	})

	out, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeShake)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if out.Essence != 0 || out.Upgrades.Shake != 4 {
		t.Fatalf("unexpected result: essence=%d shake=%d", out.Essence, out.Upgrades.Shake)
	}
	if !almostEqual(out.EssencePerPixel, 0.05) {
		t.Fatalf("perPixel not recomputed: %v", out.EssencePerPixel)
	}
	if out.TotalEssenceEarned != 400 {
		t.Fatalf("spending must not touch lifetime essence, got %d", out.TotalEssenceEarned)
	}
}

func TestBuyUpgradeOneShort(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Upgrades.Shake = 3
		p.Essence = 37
	})

	if _, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeShake); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	after := f.get(t)
	if after.Essence != 37 || after.Upgrades.Shake != 3 {
		t.Fatalf("state changed on failed buy: %+v", after)
	}
}

func TestBuyUpgradeStaleSnapshotGuarded(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.Essence = 30 })

	// a concurrent spend lands first; the caller still holds the old snapshot
	if _, err := f.store.Apply(context.Background(), "user-1", domain.Mutation{
		Increment: map[string]int64{domain.FieldEssence: -20},
	}); err != nil {
		t.Fatalf("spend: %v", err)
	}

	if _, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeShake); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected guard to reject, got %v", err)
	}
	if after := f.get(t); after.Essence != 10 || after.Upgrades.Shake != 0 {
		t.Fatalf("guarded write leaked: %+v", after)
	}
}

func TestBuyUpgradeTwiceFromOneSnapshot(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Upgrades.Shake = 3
		p.Essence = 1000
	})

	for i := 0; i < 2; i++ {
		if _, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeShake); err != nil {
			t.Fatalf("buy %d: %v", i, err)
		}
	}

	after := f.get(t)
	// 38 for level 3 -> 4, then 44 for 4 -> 5
	if after.Upgrades.Shake != 5 || after.Essence != 918 {
		t.Fatalf("unexpected profile: shake=%d essence=%d", after.Upgrades.Shake, after.Essence)
	}
	want := game.Recompute(after.Upgrades, after.Equipped())
	if !almostEqual(after.EssencePerPixel, want.PerPixel) || after.EssencePerShake != want.PerClick {
		t.Fatalf("cached rates %d/%v do not match upgrades, want %d/%v",
			after.EssencePerShake, after.EssencePerPixel, want.PerClick, want.PerPixel)
	}
}

func TestToggleArtifactAfterUpgradeKeepsRates(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 100
		p.Artifacts = []string{"artifact_of_flow"}
	})

	if _, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeBrewery); err != nil {
		t.Fatalf("buy: %v", err)
	}
	// p still shows brewery 0
	out, err := f.engine.ToggleArtifact(context.Background(), p, "artifact_of_flow")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if out.Equipped() != "artifact_of_flow" || out.Upgrades.Brewery != 1 {
		t.Fatalf("unexpected profile: %+v", out)
	}
	want := game.Recompute(out.Upgrades, out.Equipped())
	if !almostEqual(out.EssencePerSecond, want.PerSecond) {
		t.Fatalf("perSecond %v, want %v", out.EssencePerSecond, want.PerSecond)
	}
}

func TestBuyUpgradeUnknown(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.Essence = 1000 })
	if _, err := f.engine.BuyUpgrade(context.Background(), p, "turbo"); !errors.Is(err, domain.ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}
}

func TestBuyUpgradeBackendDown(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.Essence = 100 })
	f.store.FailNextWrites(1)

	if _, err := f.engine.BuyUpgrade(context.Background(), p, game.UpgradeBrewery); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestPointerFlushEarns(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Upgrades.Shake = 5
		p.Artifacts = []string{"artifact_of_might"}
		p.EquippedArtifact = domain.NullableString("artifact_of_might")
	})

	var acc Accumulator
	perPixel := f.engine.Multipliers(p).PerPixel
	if _, ok := acc.Move(60, 0, perPixel); ok {
		t.Fatal("flushed below threshold")
	}
	distance, ok := acc.Move(0, 40, perPixel)
	if !ok || distance != 100 {
		t.Fatalf("expected flush of 100px, got %v %v", distance, ok)
	}
	if acc.Pending() != 0 {
		t.Fatalf("accumulator not reset: %v", acc.Pending())
	}

	if earned := f.engine.PointerFlush(context.Background(), p, distance); earned != 9 {
		t.Fatalf("expected 9 essence, got %d", earned)
	}
	waitFor(t, "pointer earn", func() bool {
		got := f.get(t)
		return got.Essence == 9 && got.TotalEssenceEarned == 9
	})
}

func TestIdleTickEarns(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.Upgrades.Brewery = 3 })

	if earned := f.engine.IdleTick(context.Background(), p); earned != 6 {
		t.Fatalf("expected 6, got %d", earned)
	}
	waitFor(t, "idle earn", func() bool { return f.get(t).Essence == 6 })

	zero := f.seed(t, nil)
	zero.Upgrades = game.Upgrades{}
	if earned := f.engine.IdleTick(context.Background(), zero); earned != 0 {
		t.Fatalf("no brewery should earn nothing, got %d", earned)
	}
}

func TestBuyArtifact(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 1500
		p.WalletAddress = testWallet
	})

	out, digest, err := f.engine.BuyArtifact(context.Background(), p, "artifact_of_might")
	if err != nil {
		t.Fatalf("buy artifact: %v", err)
	}
	if digest == "" {
		t.Fatal("expected digest")
	}
	if out.Essence != 500 || !out.Owns("artifact_of_might") {
		t.Fatalf("unexpected profile: %+v", out)
	}

	calls := f.signer.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one ledger call, got %d", len(calls))
	}
	if !strings.HasSuffix(calls[0].Target, "::artifact::mint_artifact") || calls[0].Arguments[2].Value != "50" {
		t.Fatalf("unexpected call: %+v", calls[0])
	}

	if _, _, err := f.engine.BuyArtifact(context.Background(), out, "artifact_of_might"); !errors.Is(err, domain.ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
}

func TestBuyArtifactPreconditions(t *testing.T) {
	cases := []struct {
		name   string
		edit   func(p *domain.PlayerProfile)
		wantEr error
	}{
		{"no wallet", func(p *domain.PlayerProfile) { p.Essence = 5000 }, domain.ErrWalletNotConnected},
		{"poor", func(p *domain.PlayerProfile) { p.Essence = 999; p.WalletAddress = testWallet }, domain.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newEngineFixture(t)
			p := f.seed(t, tc.edit)
			if _, _, err := f.engine.BuyArtifact(context.Background(), p, "artifact_of_flow"); !errors.Is(err, tc.wantEr) {
				t.Fatalf("expected %v, got %v", tc.wantEr, err)
			}
			if len(f.signer.Calls()) != 0 {
				t.Fatal("ledger must not be called when preconditions fail")
			}
		})
	}
}

func TestBuyArtifactLedgerFailureWritesNothing(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 1500
		p.WalletAddress = testWallet
	})
	f.signer.FailWith(errors.New("user rejected"))

	_, _, err := f.engine.BuyArtifact(context.Background(), p, "artifact_of_flow")
	if !errors.Is(err, domain.ErrLedgerTransactionFailed) {
		t.Fatalf("expected ErrLedgerTransactionFailed, got %v", err)
	}
	if after := f.get(t); after.Essence != 1500 || len(after.Artifacts) != 0 {
		t.Fatalf("state changed after ledger failure: %+v", after)
	}
}

func TestToggleArtifact(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Upgrades.Brewery = 3
		p.Artifacts = []string{"artifact_of_flow"}
	})

	on, err := f.engine.ToggleArtifact(context.Background(), p, "artifact_of_flow")
	if err != nil {
		t.Fatalf("equip: %v", err)
	}
	if on.Equipped() != "artifact_of_flow" || !almostEqual(on.EssencePerSecond, 13) {
		t.Fatalf("equip result: %q %v", on.Equipped(), on.EssencePerSecond)
	}

	off, err := f.engine.ToggleArtifact(context.Background(), on, "artifact_of_flow")
	if err != nil {
		t.Fatalf("unequip: %v", err)
	}
	if off.EquippedArtifact != nil || !almostEqual(off.EssencePerSecond, 3) {
		t.Fatalf("unequip result: %v %v", off.EquippedArtifact, off.EssencePerSecond)
	}

	if _, err := f.engine.ToggleArtifact(context.Background(), off, "artifact_of_might"); !errors.Is(err, domain.ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
}

func TestBuyAndEquipCosmetic(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.Essence = 6000 })

	if _, err := f.engine.EquipCosmetic(context.Background(), p, game.CategorySkin, "skin_gold"); !errors.Is(err, domain.ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned before purchase, got %v", err)
	}

	bought, err := f.engine.BuyCosmetic(context.Background(), p, game.CategorySkin, "skin_gold")
	if err != nil {
		t.Fatalf("buy cosmetic: %v", err)
	}
	if bought.Essence != 1000 || !bought.HasCosmetic(game.CategorySkin, "skin_gold") {
		t.Fatalf("unexpected purchase result: %+v", bought)
	}
	if bought.EquippedSkin != game.DefaultSkin {
		t.Fatalf("buying must not equip, got %s", bought.EquippedSkin)
	}

	if _, err := f.engine.BuyCosmetic(context.Background(), bought, game.CategorySkin, "skin_gold"); !errors.Is(err, domain.ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
	if _, err := f.engine.BuyCosmetic(context.Background(), bought, game.CategorySkin, "skin_alien"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := f.engine.BuyCosmetic(context.Background(), bought, game.CategorySkin, "skin_nope"); !errors.Is(err, domain.ErrUnknownIdentifier) {
		t.Fatalf("expected ErrUnknownIdentifier, got %v", err)
	}

	equipped, err := f.engine.EquipCosmetic(context.Background(), bought, game.CategorySkin, "skin_gold")
	if err != nil {
		t.Fatalf("equip: %v", err)
	}
	if equipped.EquippedSkin != "skin_gold" || equipped.Essence != 1000 {
		t.Fatalf("unexpected equip result: %+v", equipped)
	}
}

func TestTranscend(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 700
		p.TotalEssenceEarned = 12000
		p.OnChainEvolutionLevel = 5000
		p.Upgrades = game.Upgrades{Shake: 4, Brewery: 2}
		p.Artifacts = []string{"artifact_of_might"}
		p.EquippedArtifact = domain.NullableString("artifact_of_might")
		p.UnlockedSkins = append(p.UnlockedSkins, "skin_gold")
		p.WalletAddress = testWallet
	})

	out, digest, err := f.engine.Transcend(context.Background(), p)
	if err != nil {
		t.Fatalf("transcend: %v", err)
	}
	if digest == "" {
		t.Fatal("expected digest")
	}
	if out.Essence != 0 || out.TotalEssenceEarned != 0 || out.Level != 1 {
		t.Fatalf("run not reset: %+v", out)
	}
	if out.Upgrades != (game.Upgrades{}) || out.EquippedArtifact != nil {
		t.Fatalf("upgrades/artifact not reset: %+v %v", out.Upgrades, out.EquippedArtifact)
	}
	if out.OnChainEvolutionLevel != 17000 {
		t.Fatalf("expected evolution 17000, got %d", out.OnChainEvolutionLevel)
	}
	if !out.Owns("artifact_of_might") || !out.HasCosmetic(game.CategorySkin, "skin_gold") {
		t.Fatal("owned items must survive transcend")
	}
	if out.EssencePerShake != 1 || !almostEqual(out.EssencePerPixel, 0.01) || out.EssencePerSecond != 0 {
		t.Fatalf("multipliers not reset: %d %v %v", out.EssencePerShake, out.EssencePerPixel, out.EssencePerSecond)
	}

	calls := f.signer.Calls()
	if len(calls) != 1 || calls[0].Arguments[1].Value != "shaker" || calls[0].Arguments[2].Value != "12000" {
		t.Fatalf("unexpected submit_score call: %+v", calls)
	}
}

func TestLedgerActionsOutliveCaller(t *testing.T) {
	f := newEngineFixture(t)
	f.signer.Delay = 100 * time.Millisecond
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 1200
		p.TotalEssenceEarned = 15000
		p.WalletAddress = testWallet
	})

	// the client goes away while the mint is pending
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	out, digest, err := f.engine.BuyArtifact(ctx, p, "artifact_of_flow")
	if err != nil || digest == "" {
		t.Fatalf("mint should settle after the caller left: digest=%q err=%v", digest, err)
	}
	if !out.Owns("artifact_of_flow") || out.Essence != 200 {
		t.Fatalf("mint not recorded: %+v", out)
	}

	ctx, cancel = context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if _, _, err := f.engine.Transcend(ctx, out); err != nil {
		t.Fatalf("transcend: %v", err)
	}
	after := f.get(t)
	if after.TotalEssenceEarned != 0 || after.OnChainEvolutionLevel != 15000 {
		t.Fatalf("reset not recorded: total=%d evolution=%d", after.TotalEssenceEarned, after.OnChainEvolutionLevel)
	}
}

func TestTranscendPreconditions(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) { p.TotalEssenceEarned = 20000 })
	if _, _, err := f.engine.Transcend(context.Background(), p); !errors.Is(err, domain.ErrWalletNotConnected) {
		t.Fatalf("expected ErrWalletNotConnected, got %v", err)
	}

	p = f.seed(t, nil)
	p.WalletAddress = testWallet
	p.TotalEssenceEarned = 9999
	if _, _, err := f.engine.Transcend(context.Background(), p); !errors.Is(err, domain.ErrNotEligible) {
		t.Fatalf("expected ErrNotEligible, got %v", err)
	}
}

func TestTranscendLedgerFailureKeepsProgress(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.Essence = 300
		p.TotalEssenceEarned = 15000
		p.Upgrades.Shake = 2
		p.WalletAddress = testWallet
	})
	f.signer.FailWith(ledger.ErrRejected)

	if _, _, err := f.engine.Transcend(context.Background(), p); !errors.Is(err, domain.ErrLedgerTransactionFailed) {
		t.Fatalf("expected ErrLedgerTransactionFailed, got %v", err)
	}
	after := f.get(t)
	if after.Essence != 300 || after.TotalEssenceEarned != 15000 || after.Upgrades.Shake != 2 || after.OnChainEvolutionLevel != 0 {
		t.Fatalf("progress changed after failed transcend: %+v", after)
	}
}

func TestTranscendWriteFailureIsAtomic(t *testing.T) {
	f := newEngineFixture(t)
	p := f.seed(t, func(p *domain.PlayerProfile) {
		p.TotalEssenceEarned = 10000
		p.WalletAddress = testWallet
	})
	f.store.FailNextWrites(1)

	if _, _, err := f.engine.Transcend(context.Background(), p); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	after := f.get(t)
	if after.TotalEssenceEarned != 10000 || after.OnChainEvolutionLevel != 0 {
		t.Fatalf("partial transcend written: %+v", after)
	}
}

func TestRankOrdersByLevelThenTotal(t *testing.T) {
	in := []domain.PlayerProfile{
		{UserID: "a", Level: 3, TotalEssenceEarned: 900},
		{UserID: "b", Level: 3, TotalEssenceEarned: 500},
		{UserID: "c", Level: 5, TotalEssenceEarned: 100},
	}
	got := Rank(in)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if got[i].UserID != id || got[i].Rank != i+1 {
			t.Fatalf("position %d: got %s rank %d; want %s", i, got[i].UserID, got[i].Rank, id)
		}
	}
	if top := Top(got, TopSize); len(top) != 3 {
		t.Fatalf("top: %d", len(top))
	}
	if top := Top(got[:1], TopSize); len(top) != 1 {
		t.Fatalf("top of one: %d", len(top))
	}
}

func TestRankKeepsInputOrderOnTies(t *testing.T) {
	in := []domain.PlayerProfile{
		{UserID: "z", Level: 2, TotalEssenceEarned: 600},
		{UserID: "m", Level: 2, TotalEssenceEarned: 600},
		{UserID: "a", Level: 2, TotalEssenceEarned: 600},
	}
	got := Rank(in)
	for i, p := range in {
		if got[i].UserID != p.UserID {
			t.Fatalf("tie order changed: %+v", got)
		}
	}
}

func TestAccumulatorIgnoresMovesWithoutRate(t *testing.T) {
	var acc Accumulator
	if _, ok := acc.Move(500, 500, 0); ok {
		t.Fatal("should not flush with zero rate")
	}
	if acc.Pending() != 0 {
		t.Fatalf("accumulated without rate: %v", acc.Pending())
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}

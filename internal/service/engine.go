package service

import (
	"context"
	"errors"
	"fmt"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/game"
	"stickman_shake/internal/ledger"
	"stickman_shake/internal/logger"
)

// Action names, used in metrics, audit and action_result messages.
const (
	ActionBuyUpgrade       = "buy_upgrade"
	ActionBuyArtifact      = "buy_artifact"
	ActionEquipArtifact    = "equip_artifact"
	ActionBuyCosmetic      = "buy_cosmetic"
	ActionEquipCosmetic    = "equip_cosmetic"
	ActionTranscend        = "transcend"
	ActionConnectWallet    = "connect_wallet"
	ActionDisconnectWallet = "disconnect_wallet"
)

// staleRetries bounds how often a write is re-derived from a newer profile.
const staleRetries = 3

// Earn sources
const (
	SourcePointer = "pointer"
	SourceIdle    = "idle"
)

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Catalog       *game.Catalog
	Sync          *Synchronizer
	Ledger        ledger.Ledger
	Audit         *AuditService
	PackageID     string
	LeaderboardID string
}

// Engine turns player intents into guarded profile mutations.
// Every method works from the caller's latest known profile; the guards re-check
// the stored document at write time.
type Engine struct {
	catalog       *game.Catalog
	sync          *Synchronizer
	ledger        ledger.Ledger
	audit         *AuditService
	packageID     string
	leaderboardID string
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = game.Default()
	}
	if cfg.PackageID == "" {
		cfg.PackageID = ledger.DefaultPackageID
	}
	if cfg.LeaderboardID == "" {
		cfg.LeaderboardID = ledger.DefaultLeaderboardID
	}
	return &Engine{
		catalog:       cfg.Catalog,
		sync:          cfg.Sync,
		ledger:        cfg.Ledger,
		audit:         cfg.Audit,
		packageID:     cfg.PackageID,
		leaderboardID: cfg.LeaderboardID,
	}
}

func (e *Engine) Catalog() *game.Catalog {
	return e.catalog
}

// Multipliers re-derives the rates from p; the cached fields on p are not trusted.
func (e *Engine) Multipliers(p domain.PlayerProfile) game.Multipliers {
	return e.catalog.Recompute(p.Upgrades, p.Equipped())
}

// View derives the read model for p.
func (e *Engine) View(p domain.PlayerProfile) *View {
	costs := make(map[string]int64, 2)
	for _, id := range []string{game.UpgradeShake, game.UpgradeBrewery} {
		level, _ := p.Upgrades.Level(id)
		if cost, err := e.catalog.UpgradeCost(id, level); err == nil {
			costs[id] = cost
		}
	}
	return &View{
		Profile:      p,
		Multipliers:  e.Multipliers(p),
		Level:        game.LevelFromTotal(p.TotalEssenceEarned),
		Progress:     game.Progress(p.TotalEssenceEarned),
		CanTranscend: game.CanTranscend(p.TotalEssenceEarned),
		NextCosts:    costs,
	}
}

// PointerFlush pays out accumulated pointer travel. Returns the amount issued (0 if nothing).
func (e *Engine) PointerFlush(ctx context.Context, p domain.PlayerProfile, distance float64) int64 {
	earned := game.PointerEarnings(distance, e.Multipliers(p).PerPixel)
	if earned <= 0 {
		return 0
	}
	e.sync.Earn(ctx, p.UserID, earned)
	EssenceEarned.WithLabelValues(SourcePointer).Add(float64(earned))
	return earned
}

// IdleTick pays out one passive interval.
func (e *Engine) IdleTick(ctx context.Context, p domain.PlayerProfile) int64 {
	earned := game.IdleEarnings(e.Multipliers(p).PerSecond)
	if earned <= 0 {
		return 0
	}
	e.sync.Earn(ctx, p.UserID, earned)
	EssenceEarned.WithLabelValues(SourceIdle).Add(float64(earned))
	return earned
}

// BuyUpgrade raises an upgrade by one level.
func (e *Engine) BuyUpgrade(ctx context.Context, p domain.PlayerProfile, upgradeID string) (domain.PlayerProfile, error) {
	p, err := e.buyUpgrade(ctx, p, upgradeID)
	ActionsTotal.WithLabelValues(ActionBuyUpgrade, resultLabel(err)).Inc()
	return p, err
}

func (e *Engine) buyUpgrade(ctx context.Context, p domain.PlayerProfile, upgradeID string) (domain.PlayerProfile, error) {
	field, err := domain.UpgradeField(upgradeID)
	if err != nil {
		return p, err
	}

	var cost int64
	out, err := e.writeFresh(ctx, p, func(p domain.PlayerProfile) (domain.Mutation, error) {
		level, err := p.Upgrades.Level(upgradeID)
		if err != nil {
			return domain.Mutation{}, err
		}
		cost, err = e.catalog.UpgradeCost(upgradeID, level)
		if err != nil {
			return domain.Mutation{}, err
		}
		if p.Essence < cost {
			return domain.Mutation{}, domain.ErrInsufficientFunds
		}

		next := p.Upgrades
		switch upgradeID {
		case game.UpgradeShake:
			next.Shake++
		case game.UpgradeBrewery:
			next.Brewery++
		}

		m := domain.Mutation{
			Increment: map[string]int64{
				domain.FieldEssence: -cost,
				field:               1,
			},
			Guard: &domain.Guard{AtLeast: map[string]int64{domain.FieldEssence: cost}},
		}.WithMultipliers(e.catalog.Recompute(next, p.Equipped()))
		m.Guard.PinRates(p, true)
		return m, nil
	})
	if err != nil {
		return p, err
	}
	e.audit.LogPurchase(ctx, p.UserID, domain.AuditActionBuyUpgrade, upgradeID, cost)
	return out, nil
}

// BuyArtifact mints the artifact on the ledger, then records ownership and the spend.
// Nothing is written if the ledger call fails.
func (e *Engine) BuyArtifact(ctx context.Context, p domain.PlayerProfile, artifactID string) (domain.PlayerProfile, string, error) {
	p, digest, err := e.buyArtifact(ctx, p, artifactID)
	ActionsTotal.WithLabelValues(ActionBuyArtifact, resultLabel(err)).Inc()
	return p, digest, err
}

func (e *Engine) buyArtifact(ctx context.Context, p domain.PlayerProfile, artifactID string) (domain.PlayerProfile, string, error) {
	def, err := e.catalog.Artifact(artifactID)
	if err != nil {
		return p, "", err
	}
	if !e.ledger.IsConnected(p.WalletAddress) {
		return p, "", domain.ErrWalletNotConnected
	}
	if p.Essence < def.EssenceCost {
		return p, "", domain.ErrInsufficientFunds
	}
	if p.Owns(artifactID) {
		return p, "", domain.ErrAlreadyOwned
	}

	ctx, cancel := settleContext(ctx)
	defer cancel()

	call := ledger.MintArtifact(e.packageID, def.Name, ledger.ArtifactDescription, def.EffectValue)
	receipt, err := e.submit(ctx, p, "mint_artifact", call)
	if err != nil {
		return p, "", err
	}

	out, err := e.writeFresh(ctx, p, func(p domain.PlayerProfile) (domain.Mutation, error) {
		m := domain.Mutation{
			Increment: map[string]int64{domain.FieldEssence: -def.EssenceCost},
			AddToSet:  map[string]string{domain.FieldArtifacts: artifactID},
			Guard: &domain.Guard{
				AtLeast:  map[string]int64{domain.FieldEssence: def.EssenceCost},
				Excludes: map[string]string{domain.FieldArtifacts: artifactID},
			},
		}.WithMultipliers(e.Multipliers(p))
		m.Guard.PinRates(p, true)
		return m, nil
	})
	if err != nil {
		// the mint is already on chain; keep the digest for reconciliation
		logger.Error("artifact minted but not recorded",
			"user_id", p.UserID, "artifact", artifactID, "digest", receipt.Digest, "error", err)
		e.audit.LogLedger(ctx, p.UserID, domain.AuditActionLedgerFailed, receipt.Digest, map[string]interface{}{
			"artifact": artifactID,
			"stage":    "record",
		})
		return p, receipt.Digest, err
	}
	e.audit.LogLedger(ctx, p.UserID, domain.AuditActionMintArtifact, receipt.Digest, map[string]interface{}{
		"artifact": artifactID,
		"cost":     def.EssenceCost,
	})
	return out, receipt.Digest, nil
}

// ToggleArtifact equips an owned artifact, or unequips it if it is already equipped.
func (e *Engine) ToggleArtifact(ctx context.Context, p domain.PlayerProfile, artifactID string) (domain.PlayerProfile, error) {
	p, err := e.toggleArtifact(ctx, p, artifactID)
	ActionsTotal.WithLabelValues(ActionEquipArtifact, resultLabel(err)).Inc()
	return p, err
}

func (e *Engine) toggleArtifact(ctx context.Context, p domain.PlayerProfile, artifactID string) (domain.PlayerProfile, error) {
	if _, err := e.catalog.Artifact(artifactID); err != nil {
		return p, err
	}
	if !p.Owns(artifactID) {
		return p, domain.ErrNotOwned
	}

	next := artifactID
	if p.Equipped() == artifactID {
		next = ""
	}

	// the toggle target is fixed by the caller's view; only the rates follow the stored upgrades
	out, err := e.writeFresh(ctx, p, func(p domain.PlayerProfile) (domain.Mutation, error) {
		m := domain.Mutation{
			Set:   map[string]any{domain.FieldEquippedArtifact: domain.NullableString(next)},
			Guard: &domain.Guard{Contains: map[string]string{domain.FieldArtifacts: artifactID}},
		}.WithMultipliers(e.catalog.Recompute(p.Upgrades, next))
		m.Guard.PinRates(p, false)
		return m, nil
	})
	if err != nil {
		return p, err
	}
	e.audit.Log(ctx, p.UserID, domain.AuditActionEquipArtifact, domain.AuditCategoryShop, map[string]interface{}{
		"artifact": artifactID,
		"equipped": next != "",
	})
	return out, nil
}

// BuyCosmetic unlocks a cosmetic. Owned items are not charged again.
func (e *Engine) BuyCosmetic(ctx context.Context, p domain.PlayerProfile, cat game.Category, itemID string) (domain.PlayerProfile, error) {
	p, err := e.buyCosmetic(ctx, p, cat, itemID)
	ActionsTotal.WithLabelValues(ActionBuyCosmetic, resultLabel(err)).Inc()
	return p, err
}

func (e *Engine) buyCosmetic(ctx context.Context, p domain.PlayerProfile, cat game.Category, itemID string) (domain.PlayerProfile, error) {
	def, err := e.catalog.Cosmetic(cat, itemID)
	if err != nil {
		return p, err
	}
	if p.HasCosmetic(cat, itemID) {
		return p, domain.ErrAlreadyOwned
	}
	if p.Essence < def.Cost {
		return p, domain.ErrInsufficientFunds
	}

	set := domain.UnlockedField(cat)
	m := domain.Mutation{
		AddToSet: map[string]string{set: itemID},
		Guard: &domain.Guard{
			AtLeast:  map[string]int64{domain.FieldEssence: def.Cost},
			Excludes: map[string]string{set: itemID},
		},
	}
	if def.Cost > 0 {
		m.Increment = map[string]int64{domain.FieldEssence: -def.Cost}
	}

	out, err := e.sync.Write(ctx, p.UserID, m)
	if err != nil {
		return p, err
	}
	e.audit.LogPurchase(ctx, p.UserID, domain.AuditActionBuyCosmetic, string(cat)+"/"+itemID, def.Cost)
	return out, nil
}

// EquipCosmetic selects an unlocked cosmetic.
func (e *Engine) EquipCosmetic(ctx context.Context, p domain.PlayerProfile, cat game.Category, itemID string) (domain.PlayerProfile, error) {
	p, err := e.equipCosmetic(ctx, p, cat, itemID)
	ActionsTotal.WithLabelValues(ActionEquipCosmetic, resultLabel(err)).Inc()
	return p, err
}

func (e *Engine) equipCosmetic(ctx context.Context, p domain.PlayerProfile, cat game.Category, itemID string) (domain.PlayerProfile, error) {
	if _, err := e.catalog.Cosmetic(cat, itemID); err != nil {
		return p, err
	}
	if !p.HasCosmetic(cat, itemID) {
		return p, domain.ErrNotOwned
	}
	if p.EquippedCosmetic(cat) == itemID {
		return p, nil
	}

	m := domain.Mutation{
		Set:   map[string]any{domain.EquippedField(cat): itemID},
		Guard: &domain.Guard{Contains: map[string]string{domain.UnlockedField(cat): itemID}},
	}
	out, err := e.sync.Write(ctx, p.UserID, m)
	if err != nil {
		return p, err
	}
	e.audit.Log(ctx, p.UserID, domain.AuditActionEquipCosmetic, domain.AuditCategoryShop, map[string]interface{}{
		"category": string(cat),
		"item":     itemID,
	})
	return out, nil
}

// Transcend submits the lifetime essence as a ledger score, then resets the run and
// credits the score to onChainEvolutionLevel in one atomic write.
func (e *Engine) Transcend(ctx context.Context, p domain.PlayerProfile) (domain.PlayerProfile, string, error) {
	p, digest, err := e.transcend(ctx, p)
	ActionsTotal.WithLabelValues(ActionTranscend, resultLabel(err)).Inc()
	return p, digest, err
}

func (e *Engine) transcend(ctx context.Context, p domain.PlayerProfile) (domain.PlayerProfile, string, error) {
	if !e.ledger.IsConnected(p.WalletAddress) {
		return p, "", domain.ErrWalletNotConnected
	}
	if !game.CanTranscend(p.TotalEssenceEarned) {
		return p, "", domain.ErrNotEligible
	}
	score := p.TotalEssenceEarned

	ctx, cancel := settleContext(ctx)
	defer cancel()

	call := ledger.SubmitScore(e.packageID, e.leaderboardID, ledger.DisplayName(p.Email), score)
	receipt, err := e.submit(ctx, p, "submit_score", call)
	if err != nil {
		return p, "", err
	}

	reset := domain.Mutation{
		Set: map[string]any{
			domain.FieldEssence:            int64(0),
			domain.FieldTotalEssenceEarned: int64(0),
			domain.FieldUpgradeShake:       0,
			domain.FieldUpgradeBrewery:     0,
			domain.FieldEquippedArtifact:   nil,
		},
	}.WithMultipliers(e.catalog.Recompute(game.Upgrades{}, ""))
	credit := domain.Mutation{
		Increment: map[string]int64{domain.FieldOnChainEvolutionLevel: score},
	}

	out, err := e.sync.Write(ctx, p.UserID, reset, credit)
	if err != nil {
		logger.Error("score submitted but reset not recorded",
			"user_id", p.UserID, "score", score, "digest", receipt.Digest, "error", err)
		e.audit.LogLedger(ctx, p.UserID, domain.AuditActionLedgerFailed, receipt.Digest, map[string]interface{}{
			"score": score,
			"stage": "record",
		})
		return p, receipt.Digest, err
	}
	e.audit.LogLedger(ctx, p.UserID, domain.AuditActionTranscend, receipt.Digest, map[string]interface{}{
		"score": score,
	})
	logger.Info("player transcended", "user_id", p.UserID, "score", score, "evolution", out.OnChainEvolutionLevel)
	return out, receipt.Digest, nil
}

// writeFresh commits the mutation derive builds from p. If the write finds the stored
// upgrades or artifact moved past p, it reloads the profile and derives again.
func (e *Engine) writeFresh(ctx context.Context, p domain.PlayerProfile, derive func(domain.PlayerProfile) (domain.Mutation, error)) (domain.PlayerProfile, error) {
	for attempt := 0; ; attempt++ {
		m, err := derive(p)
		if err != nil {
			return p, err
		}
		out, err := e.sync.Write(ctx, p.UserID, m)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, domain.ErrStaleProfile) || attempt == staleRetries {
			return p, err
		}

		StaleWrites.Inc()
		latest, err := e.sync.Latest(ctx, p.UserID)
		if err != nil {
			return p, err
		}
		p = latest
	}
}

// settleContext detaches ledger work from the caller. Once a call is submitted its
// outcome is recorded even if the client disconnects.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), ledger.ConfirmTimeout+earnTimeout)
}

// submit sends call and waits for it to settle.
func (e *Engine) submit(ctx context.Context, p domain.PlayerProfile, name string, call ledger.Call) (*ledger.Receipt, error) {
	receipt, err := awaitLedger(ctx, e.ledger.Submit(ctx, p.WalletAddress, call))
	LedgerCalls.WithLabelValues(name, resultLabel(err)).Inc()
	if err != nil {
		logger.Warn("ledger call failed", "user_id", p.UserID, "call", name, "error", err)
		e.audit.Log(ctx, p.UserID, domain.AuditActionLedgerFailed, domain.AuditCategoryLedger, map[string]interface{}{
			"call":  name,
			"error": err.Error(),
		})
		return nil, err
	}
	return receipt, nil
}

func awaitLedger(ctx context.Context, ch <-chan ledger.Result) (*ledger.Receipt, error) {
	select {
	case res, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: no result", domain.ErrLedgerTransactionFailed)
		}
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrLedgerTransactionFailed, res.Err)
		}
		if res.Receipt == nil {
			return nil, fmt.Errorf("%w: empty receipt", domain.ErrLedgerTransactionFailed)
		}
		return res.Receipt, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerTransactionFailed, ctx.Err())
	}
}

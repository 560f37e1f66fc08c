package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"stickman_shake/internal/game"
)

// PlayerProfile is the persisted per-player document. JSON names are the stored field names.
type PlayerProfile struct {
	UserID        string `json:"userId"`
	Username      string `json:"username"`
	Email         string `json:"email,omitempty"`
	WalletAddress string `json:"walletAddress,omitempty"`

	Essence               int64 `json:"essence"`
	TotalEssenceEarned    int64 `json:"totalEssenceEarned"`
	OnChainEvolutionLevel int64 `json:"onChainEvolutionLevel"`
	Level                 int   `json:"level"`

	// cached, recomputed from Upgrades and EquippedArtifact on every change
	EssencePerShake  int64   `json:"essencePerShake"`
	EssencePerSecond float64 `json:"essencePerSecond"`
	EssencePerPixel  float64 `json:"essencePerPixel"`

	Upgrades         game.Upgrades `json:"upgrades"`
	Artifacts        []string      `json:"artifacts"`
	EquippedArtifact *string       `json:"equippedArtifact"`

	UnlockedBackgrounds []string `json:"unlockedBackgrounds"`
	EquippedBackground  string   `json:"equippedBackground"`
	UnlockedBottles     []string `json:"unlockedBottles"`
	EquippedBottle      string   `json:"equippedBottle"`
	UnlockedSkins       []string `json:"unlockedSkins"`
	EquippedSkin        string   `json:"equippedSkin"`

	LastActivity time.Time `json:"lastActivity"`
}

// DefaultUsername is the email local part, or Player_ plus the first six characters of the uid.
func DefaultUsername(userID, email string) string {
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" && !strings.Contains(email, "@") {
		return email
	}
	id := userID
	if len(id) > 6 {
		id = id[:6]
	}
	return "Player_" + id
}

// NewProfile builds the zero-state profile for a freshly authenticated player.
func NewProfile(c *game.Catalog, userID, email string, now time.Time) PlayerProfile {
	p := PlayerProfile{
		UserID:              userID,
		Username:            DefaultUsername(userID, email),
		Email:               email,
		Level:               1,
		Artifacts:           []string{},
		UnlockedBackgrounds: []string{game.DefaultBackground},
		EquippedBackground:  game.DefaultBackground,
		UnlockedBottles:     []string{game.DefaultBottle},
		EquippedBottle:      game.DefaultBottle,
		UnlockedSkins:       []string{game.DefaultSkin},
		EquippedSkin:        game.DefaultSkin,
		LastActivity:        now.UTC(),
	}
	p.SetMultipliers(c.Recompute(p.Upgrades, ""))
	return p
}

// Equipped returns the equipped artifact id or "".
func (p PlayerProfile) Equipped() string {
	if p.EquippedArtifact == nil {
		return ""
	}
	return *p.EquippedArtifact
}

// Multipliers returns the cached rates as stored.
func (p PlayerProfile) Multipliers() game.Multipliers {
	return game.Multipliers{
		PerClick:  p.EssencePerShake,
		PerSecond: p.EssencePerSecond,
		PerPixel:  p.EssencePerPixel,
	}
}

// SetMultipliers overwrites the cached rates.
func (p *PlayerProfile) SetMultipliers(m game.Multipliers) {
	p.EssencePerShake = m.PerClick
	p.EssencePerSecond = m.PerSecond
	p.EssencePerPixel = m.PerPixel
}

// Owns reports whether the artifact is in the owned set.
func (p PlayerProfile) Owns(artifactID string) bool {
	return slices.Contains(p.Artifacts, artifactID)
}

// Unlocked returns the owned cosmetics of cat.
func (p PlayerProfile) Unlocked(cat game.Category) []string {
	switch cat {
	case game.CategoryBackground:
		return p.UnlockedBackgrounds
	case game.CategoryBottle:
		return p.UnlockedBottles
	case game.CategorySkin:
		return p.UnlockedSkins
	}
	return nil
}

// EquippedCosmetic returns the equipped cosmetic of cat.
func (p PlayerProfile) EquippedCosmetic(cat game.Category) string {
	switch cat {
	case game.CategoryBackground:
		return p.EquippedBackground
	case game.CategoryBottle:
		return p.EquippedBottle
	case game.CategorySkin:
		return p.EquippedSkin
	}
	return ""
}

// HasCosmetic reports whether id is unlocked in cat.
func (p PlayerProfile) HasCosmetic(cat game.Category, id string) bool {
	return slices.Contains(p.Unlocked(cat), id)
}

// Clone returns a deep copy; slices and the artifact pointer are not shared.
func (p PlayerProfile) Clone() PlayerProfile {
	out := p
	out.Artifacts = slices.Clone(p.Artifacts)
	out.UnlockedBackgrounds = slices.Clone(p.UnlockedBackgrounds)
	out.UnlockedBottles = slices.Clone(p.UnlockedBottles)
	out.UnlockedSkins = slices.Clone(p.UnlockedSkins)
	if p.EquippedArtifact != nil {
		id := *p.EquippedArtifact
		out.EquippedArtifact = &id
	}
	return out
}

// Normalize fills fields missing from older documents with their defaults.
func (p *PlayerProfile) Normalize() {
	if p.Username == "" {
		p.Username = DefaultUsername(p.UserID, p.Email)
	}
	if p.Artifacts == nil {
		p.Artifacts = []string{}
	}
	p.UnlockedBackgrounds = withDefault(p.UnlockedBackgrounds, game.DefaultBackground)
	p.UnlockedBottles = withDefault(p.UnlockedBottles, game.DefaultBottle)
	p.UnlockedSkins = withDefault(p.UnlockedSkins, game.DefaultSkin)
	if p.EquippedBackground == "" {
		p.EquippedBackground = game.DefaultBackground
	}
	if p.EquippedBottle == "" {
		p.EquippedBottle = game.DefaultBottle
	}
	if p.EquippedSkin == "" {
		p.EquippedSkin = game.DefaultSkin
	}
	if p.EquippedArtifact != nil && *p.EquippedArtifact == "" {
		p.EquippedArtifact = nil
	}
	p.Level = game.LevelFromTotal(p.TotalEssenceEarned)
}

func withDefault(set []string, def string) []string {
	if slices.Contains(set, def) {
		return set
	}
	return append([]string{def}, set...)
}

// Validate checks the document invariants.
func (p PlayerProfile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: empty userId", ErrInvalidMutation)
	}
	if p.Essence < 0 {
		return fmt.Errorf("%w: negative essence", ErrInvalidMutation)
	}
	if p.TotalEssenceEarned < 0 || p.OnChainEvolutionLevel < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidMutation)
	}
	if p.Upgrades.Shake < 0 || p.Upgrades.Brewery < 0 {
		return fmt.Errorf("%w: negative upgrade level", ErrInvalidMutation)
	}
	if p.Level != game.LevelFromTotal(p.TotalEssenceEarned) {
		return fmt.Errorf("%w: level %d does not match total %d", ErrInvalidMutation, p.Level, p.TotalEssenceEarned)
	}
	if id := p.Equipped(); id != "" && !p.Owns(id) {
		return fmt.Errorf("%w: equipped artifact %q not owned", ErrInvalidMutation, id)
	}
	for _, cat := range game.Categories {
		if !p.HasCosmetic(cat, cat.DefaultID()) {
			return fmt.Errorf("%w: %s set missing default", ErrInvalidMutation, cat)
		}
		if !p.HasCosmetic(cat, p.EquippedCosmetic(cat)) {
			return fmt.Errorf("%w: equipped %s %q not unlocked", ErrInvalidMutation, cat, p.EquippedCosmetic(cat))
		}
	}
	return nil
}

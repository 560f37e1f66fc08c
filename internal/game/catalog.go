package game

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var defaultCatalogTOML []byte

// ErrUnknownIdentifier is returned for upgrade, artifact or cosmetic ids the catalog doesn't know.
var ErrUnknownIdentifier = errors.New("unknown identifier")

// EffectType - тип эффекта артефакта
type EffectType string

const (
	EffectShakeMultiplier EffectType = "shake_multiplier"
	EffectIdleBonus       EffectType = "idle_bonus"
)

// Category - категория косметики
type Category string

const (
	CategoryBackground Category = "background"
	CategoryBottle     Category = "bottle"
	CategorySkin       Category = "skin"
)

// Default cosmetic ids, always unlocked.
const (
	DefaultBackground = "bg_default"
	DefaultBottle     = "bottle_default"
	DefaultSkin       = "skin_default"
)

// Upgrade ids
const (
	UpgradeShake   = "shake"
	UpgradeBrewery = "brewery"
)

// Categories lists every cosmetic category in display order.
var Categories = []Category{CategoryBackground, CategoryBottle, CategorySkin}

// DefaultID returns the always-owned cosmetic of the category.
func (c Category) DefaultID() string {
	switch c {
	case CategoryBackground:
		return DefaultBackground
	case CategoryBottle:
		return DefaultBottle
	case CategorySkin:
		return DefaultSkin
	}
	return ""
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.DefaultID() != ""
}

type UpgradeDefinition struct {
	ID             string  `toml:"-" json:"id"`
	Name           string  `toml:"name" json:"name"`
	BaseCost       float64 `toml:"base_cost" json:"base_cost"`
	GrowthRate     float64 `toml:"growth_rate" json:"growth_rate"`
	EffectPerLevel float64 `toml:"effect_per_level" json:"effect_per_level"`
}

type ArtifactDefinition struct {
	ID          string     `toml:"-" json:"id"`
	Name        string     `toml:"name" json:"name"`
	Description string     `toml:"description" json:"description"`
	EffectType  EffectType `toml:"effect_type" json:"effect_type"`
	EffectValue float64    `toml:"effect_value" json:"effect_value"`
	EssenceCost int64      `toml:"essence_cost" json:"essence_cost"`
}

// CosmeticDefinition has no gameplay effect. Style is whatever the client renders
// (CSS gradient for backgrounds, SVG path for bottles, colour for skins).
type CosmeticDefinition struct {
	ID    string `toml:"-" json:"id"`
	Name  string `toml:"name" json:"name"`
	Cost  int64  `toml:"cost" json:"cost"`
	Style string `toml:"style" json:"style"`
}

// Catalog is the static shop configuration.
type Catalog struct {
	Upgrades    map[string]UpgradeDefinition  `toml:"upgrades" json:"upgrades"`
	Artifacts   map[string]ArtifactDefinition `toml:"artifacts" json:"artifacts"`
	Backgrounds map[string]CosmeticDefinition `toml:"backgrounds" json:"backgrounds"`
	Bottles     map[string]CosmeticDefinition `toml:"bottles" json:"bottles"`
	Skins       map[string]CosmeticDefinition `toml:"skins" json:"skins"`
}

var defaultCatalog *Catalog

func init() {
	c, err := ParseCatalog(defaultCatalogTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	defaultCatalog = c
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	return defaultCatalog
}

// LoadCatalog reads a TOML catalog from path.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(b)
}

// ParseCatalog decodes and validates a TOML catalog.
func ParseCatalog(b []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for id, u := range c.Upgrades {
		u.ID = id
		c.Upgrades[id] = u
	}
	for id, a := range c.Artifacts {
		a.ID = id
		c.Artifacts[id] = a
	}
	for _, set := range []map[string]CosmeticDefinition{c.Backgrounds, c.Bottles, c.Skins} {
		for id, d := range set {
			d.ID = id
			set[id] = d
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	for _, id := range []string{UpgradeShake, UpgradeBrewery} {
		u, ok := c.Upgrades[id]
		if !ok {
			return fmt.Errorf("catalog: missing upgrade %q", id)
		}
		// рост стоимости должен быть строго > 1
		if u.BaseCost <= 0 || u.GrowthRate <= 1 {
			return fmt.Errorf("catalog: upgrade %q needs base_cost > 0 and growth_rate > 1", id)
		}
	}
	for id, a := range c.Artifacts {
		if a.EffectType != EffectShakeMultiplier && a.EffectType != EffectIdleBonus {
			return fmt.Errorf("catalog: artifact %q has unknown effect type %q", id, a.EffectType)
		}
	}
	for _, cat := range Categories {
		if _, ok := c.cosmetics(cat)[cat.DefaultID()]; !ok {
			return fmt.Errorf("catalog: %s set is missing default %q", cat, cat.DefaultID())
		}
	}
	return nil
}

func (c *Catalog) cosmetics(cat Category) map[string]CosmeticDefinition {
	switch cat {
	case CategoryBackground:
		return c.Backgrounds
	case CategoryBottle:
		return c.Bottles
	case CategorySkin:
		return c.Skins
	}
	return nil
}

// Upgrade looks up an upgrade definition.
func (c *Catalog) Upgrade(id string) (UpgradeDefinition, error) {
	u, ok := c.Upgrades[id]
	if !ok {
		return UpgradeDefinition{}, fmt.Errorf("upgrade %q: %w", id, ErrUnknownIdentifier)
	}
	return u, nil
}

// Artifact looks up an artifact definition.
func (c *Catalog) Artifact(id string) (ArtifactDefinition, error) {
	a, ok := c.Artifacts[id]
	if !ok {
		return ArtifactDefinition{}, fmt.Errorf("artifact %q: %w", id, ErrUnknownIdentifier)
	}
	return a, nil
}

// Cosmetic looks up a cosmetic in the given category.
func (c *Catalog) Cosmetic(cat Category, id string) (CosmeticDefinition, error) {
	set := c.cosmetics(cat)
	if set == nil {
		return CosmeticDefinition{}, fmt.Errorf("category %q: %w", cat, ErrUnknownIdentifier)
	}
	d, ok := set[id]
	if !ok {
		return CosmeticDefinition{}, fmt.Errorf("%s %q: %w", cat, id, ErrUnknownIdentifier)
	}
	return d, nil
}

// SortedCosmetics returns the category's cosmetics ordered by cost, then id.
func (c *Catalog) SortedCosmetics(cat Category) []CosmeticDefinition {
	set := c.cosmetics(cat)
	out := make([]CosmeticDefinition, 0, len(set))
	for _, d := range set {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost < out[j].Cost
		}
		return out[i].ID < out[j].ID
	})
	return out
}

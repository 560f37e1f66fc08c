package game

import "math"

// Multipliers are the derived earning rates cached on the profile document.
type Multipliers struct {
	PerClick  int64   `json:"essencePerShake"`
	PerSecond float64 `json:"essencePerSecond"`
	PerPixel  float64 `json:"essencePerPixel"`
}

// Recompute derives earning rates from upgrade levels and the equipped artifact ("" for none).
// Pure: the same inputs always give the same result.
func (c *Catalog) Recompute(u Upgrades, equippedArtifact string) Multipliers {
	perPixelBase := PixelBase + float64(u.Shake)*c.Upgrades[UpgradeShake].EffectPerLevel
	perSecond := float64(u.Brewery) * c.Upgrades[UpgradeBrewery].EffectPerLevel

	mult := 1.0
	if equippedArtifact != "" {
		if a, ok := c.Artifacts[equippedArtifact]; ok {
			switch a.EffectType {
			case EffectShakeMultiplier:
				mult += a.EffectValue
			case EffectIdleBonus:
				perSecond += a.EffectValue
			}
		}
	}

	return Multipliers{
		PerClick:  int64(math.Floor(1 * mult)),
		PerSecond: perSecond,
		PerPixel:  perPixelBase * mult * PixelConversion,
	}
}

// Recompute uses the default catalog.
func Recompute(u Upgrades, equippedArtifact string) Multipliers {
	return Default().Recompute(u, equippedArtifact)
}

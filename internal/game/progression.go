package game

import (
	"math"
	"time"
)

const (
	// LevelScalingFactor: level = 1 + floor(sqrt(total / LevelScalingFactor))
	LevelScalingFactor = 500

	// TranscendRequirement is the lifetime essence needed before a score can be submitted.
	TranscendRequirement = 10000

	// PixelConversion converts per-pixel base power to essence.
	PixelConversion = 0.01

	// PixelBase is per-pixel power with zero shake upgrades.
	PixelBase = 1

	// FlushDistance is how many pixels of pointer travel are batched into one earn write.
	FlushDistance = 100

	// IdleInterval is the passive income period. Each tick pays essencePerSecond * IdleSeconds.
	IdleInterval = 2 * time.Second
	IdleSeconds  = 2
)

// Upgrades holds upgrade levels keyed the same way as the profile document.
type Upgrades struct {
	Shake   int `json:"shake"`
	Brewery int `json:"brewery"`
}

// Level returns the level of upgrade id.
func (u Upgrades) Level(id string) (int, error) {
	switch id {
	case UpgradeShake:
		return u.Shake, nil
	case UpgradeBrewery:
		return u.Brewery, nil
	}
	return 0, ErrUnknownIdentifier
}

// UpgradeCost = round(baseCost * growthRate^level)
func (c *Catalog) UpgradeCost(id string, level int) (int64, error) {
	u, err := c.Upgrade(id)
	if err != nil {
		return 0, err
	}
	if level < 0 {
		level = 0
	}
	return int64(math.Round(u.BaseCost * math.Pow(u.GrowthRate, float64(level)))), nil
}

// UpgradeCost prices an upgrade against the default catalog.
func UpgradeCost(id string, level int) (int64, error) {
	return Default().UpgradeCost(id, level)
}

// LevelFromTotal maps lifetime essence to a player level (>= 1).
func LevelFromTotal(total int64) int {
	if total < 0 {
		total = 0
	}
	return 1 + int(math.Floor(math.Sqrt(float64(total)/LevelScalingFactor)))
}

// ThresholdForLevel is the lifetime essence required to reach level.
func ThresholdForLevel(level int) int64 {
	n := int64(level - 1)
	return LevelScalingFactor * n * n
}

// Progress returns how far total is between its level threshold and the next one, in [0,1].
func Progress(total int64) float64 {
	level := LevelFromTotal(total)
	lo := ThresholdForLevel(level)
	hi := ThresholdForLevel(level + 1)
	if hi <= lo {
		return 0
	}
	f := float64(total-lo) / float64(hi-lo)
	return math.Max(0, math.Min(1, f))
}

// CanTranscend reports whether lifetime essence meets the transcend requirement.
func CanTranscend(total int64) bool {
	return total >= TranscendRequirement
}

// PointerEarnings converts a flushed pixel distance into whole essence.
func PointerEarnings(distance, perPixel float64) int64 {
	if distance <= 0 || perPixel <= 0 {
		return 0
	}
	return int64(math.Floor(distance * perPixel))
}

// IdleEarnings is the essence paid by one idle tick.
func IdleEarnings(perSecond float64) int64 {
	if perSecond <= 0 {
		return 0
	}
	return int64(math.Floor(perSecond * IdleSeconds))
}

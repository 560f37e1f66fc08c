package domain

import "stickman_shake/internal/game"

// Field paths addressable by a Mutation. Names match the stored document.
const (
	FieldUsername              = "username"
	FieldWalletAddress         = "walletAddress"
	FieldEssence               = "essence"
	FieldTotalEssenceEarned    = "totalEssenceEarned"
	FieldOnChainEvolutionLevel = "onChainEvolutionLevel"
	FieldEssencePerShake       = "essencePerShake"
	FieldEssencePerSecond      = "essencePerSecond"
	FieldEssencePerPixel       = "essencePerPixel"
	FieldUpgradeShake          = "upgrades.shake"
	FieldUpgradeBrewery        = "upgrades.brewery"
	FieldArtifacts             = "artifacts"
	FieldEquippedArtifact      = "equippedArtifact"
	FieldUnlockedBackgrounds   = "unlockedBackgrounds"
	FieldEquippedBackground    = "equippedBackground"
	FieldUnlockedBottles       = "unlockedBottles"
	FieldEquippedBottle        = "equippedBottle"
	FieldUnlockedSkins         = "unlockedSkins"
	FieldEquippedSkin          = "equippedSkin"
)

// FieldKind says which mutation verbs a field accepts.
type FieldKind int

const (
	KindString FieldKind = iota + 1
	KindNullableString
	KindInt
	KindFloat
	KindSet
)

var fieldKinds = map[string]FieldKind{
	FieldUsername:              KindString,
	FieldWalletAddress:         KindString,
	FieldEssence:               KindInt,
	FieldTotalEssenceEarned:    KindInt,
	FieldOnChainEvolutionLevel: KindInt,
	FieldEssencePerShake:       KindInt,
	FieldEssencePerSecond:      KindFloat,
	FieldEssencePerPixel:       KindFloat,
	FieldUpgradeShake:          KindInt,
	FieldUpgradeBrewery:        KindInt,
	FieldArtifacts:             KindSet,
	FieldEquippedArtifact:      KindNullableString,
	FieldUnlockedBackgrounds:   KindSet,
	FieldEquippedBackground:    KindString,
	FieldUnlockedBottles:       KindSet,
	FieldEquippedBottle:        KindString,
	FieldUnlockedSkins:         KindSet,
	FieldEquippedSkin:          KindString,
}

// KindOf returns the field's kind, or 0 for paths that are not writable.
func KindOf(field string) FieldKind {
	return fieldKinds[field]
}

// UpgradeField maps an upgrade id to its field path.
func UpgradeField(id string) (string, error) {
	switch id {
	case game.UpgradeShake:
		return FieldUpgradeShake, nil
	case game.UpgradeBrewery:
		return FieldUpgradeBrewery, nil
	}
	return "", ErrUnknownIdentifier
}

// UnlockedField is the set field holding owned cosmetics of cat.
func UnlockedField(cat game.Category) string {
	switch cat {
	case game.CategoryBackground:
		return FieldUnlockedBackgrounds
	case game.CategoryBottle:
		return FieldUnlockedBottles
	case game.CategorySkin:
		return FieldUnlockedSkins
	}
	return ""
}

// EquippedField is the field holding the equipped cosmetic of cat.
func EquippedField(cat game.Category) string {
	switch cat {
	case game.CategoryBackground:
		return FieldEquippedBackground
	case game.CategoryBottle:
		return FieldEquippedBottle
	case game.CategorySkin:
		return FieldEquippedSkin
	}
	return ""
}

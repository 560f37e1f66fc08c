package domain

import (
	"fmt"
	"slices"
	"time"

	"stickman_shake/internal/game"
)

// Mutation is one write against a profile document. Set merges absolute values,
// Increment adds relative deltas, AddToSet appends to a set field if absent.
// Guard is checked against the stored document in the same atomic unit as the write.
type Mutation struct {
	Set       map[string]any
	Increment map[string]int64
	AddToSet  map[string]string
	Guard     *Guard
}

// Guard lists conditions the stored document must satisfy for the mutation to apply.
type Guard struct {
	AtLeast  map[string]int64  // int field >= value
	Contains map[string]string // set field contains value
	Excludes map[string]string // set field does not contain value

	// Equals and Matches pin values the mutation was derived from. A mismatch means the
	// caller's snapshot is stale (ErrStaleProfile).
	Equals  map[string]int64  // int field == value
	Matches map[string]string // string field == value; "" matches null
}

// Earn is the mutation for passive or pointer income.
func Earn(amount int64) Mutation {
	return Mutation{Increment: map[string]int64{
		FieldEssence:            amount,
		FieldTotalEssenceEarned: amount,
	}}
}

// WithMultipliers adds the recomputed rates to the mutation's Set part.
func (m Mutation) WithMultipliers(mu game.Multipliers) Mutation {
	if m.Set == nil {
		m.Set = map[string]any{}
	}
	m.Set[FieldEssencePerShake] = mu.PerClick
	m.Set[FieldEssencePerSecond] = mu.PerSecond
	m.Set[FieldEssencePerPixel] = mu.PerPixel
	return m
}

// Empty reports whether the mutation writes nothing.
func (m Mutation) Empty() bool {
	return len(m.Set) == 0 && len(m.Increment) == 0 && len(m.AddToSet) == 0
}

// Validate checks field paths and value types.
func (m Mutation) Validate() error {
	for f, v := range m.Set {
		switch KindOf(f) {
		case KindString:
			if _, ok := v.(string); !ok {
				return fmt.Errorf("%w: %s expects string", ErrInvalidMutation, f)
			}
		case KindNullableString:
			switch v.(type) {
			case nil, string, *string:
			default:
				return fmt.Errorf("%w: %s expects string or null", ErrInvalidMutation, f)
			}
		case KindInt:
			if _, ok := asInt(v); !ok {
				return fmt.Errorf("%w: %s expects integer", ErrInvalidMutation, f)
			}
		case KindFloat:
			if _, ok := asFloat(v); !ok {
				return fmt.Errorf("%w: %s expects number", ErrInvalidMutation, f)
			}
		default:
			return fmt.Errorf("%w: %s cannot be set", ErrInvalidMutation, f)
		}
	}
	for f := range m.Increment {
		if KindOf(f) != KindInt {
			return fmt.Errorf("%w: %s cannot be incremented", ErrInvalidMutation, f)
		}
		if _, ok := m.Set[f]; ok {
			return fmt.Errorf("%w: %s both set and incremented", ErrInvalidMutation, f)
		}
	}
	for f := range m.AddToSet {
		if KindOf(f) != KindSet {
			return fmt.Errorf("%w: %s is not a set", ErrInvalidMutation, f)
		}
	}
	if g := m.Guard; g != nil {
		for f := range g.AtLeast {
			if KindOf(f) != KindInt {
				return fmt.Errorf("%w: guard on non-integer %s", ErrInvalidMutation, f)
			}
		}
		for f := range g.Contains {
			if KindOf(f) != KindSet {
				return fmt.Errorf("%w: guard on non-set %s", ErrInvalidMutation, f)
			}
		}
		for f := range g.Excludes {
			if KindOf(f) != KindSet {
				return fmt.Errorf("%w: guard on non-set %s", ErrInvalidMutation, f)
			}
		}
		for f := range g.Equals {
			if KindOf(f) != KindInt {
				return fmt.Errorf("%w: guard on non-integer %s", ErrInvalidMutation, f)
			}
		}
		for f := range g.Matches {
			if k := KindOf(f); k != KindString && k != KindNullableString {
				return fmt.Errorf("%w: guard on non-string %s", ErrInvalidMutation, f)
			}
		}
	}
	return nil
}

// Check evaluates the guard against p. Returns *ConditionError on the first failed condition.
func (g *Guard) Check(p PlayerProfile) error {
	if g == nil {
		return nil
	}
	for f, want := range g.AtLeast {
		if intField(p, f) < want {
			return &ConditionError{Field: f, Cond: CondAtLeast}
		}
	}
	for f, v := range g.Contains {
		if !slices.Contains(setField(p, f), v) {
			return &ConditionError{Field: f, Cond: CondContains}
		}
	}
	for f, v := range g.Excludes {
		if slices.Contains(setField(p, f), v) {
			return &ConditionError{Field: f, Cond: CondExcludes}
		}
	}
	for f, want := range g.Equals {
		if intField(p, f) != want {
			return &ConditionError{Field: f, Cond: CondEquals}
		}
	}
	for f, want := range g.Matches {
		if stringField(p, f) != want {
			return &ConditionError{Field: f, Cond: CondEquals}
		}
	}
	return nil
}

// PinRates pins the fields the multipliers are derived from to their values in p.
func (g *Guard) PinRates(p PlayerProfile, withArtifact bool) *Guard {
	if g == nil {
		g = &Guard{}
	}
	if g.Equals == nil {
		g.Equals = map[string]int64{}
	}
	g.Equals[FieldUpgradeShake] = int64(p.Upgrades.Shake)
	g.Equals[FieldUpgradeBrewery] = int64(p.Upgrades.Brewery)
	if withArtifact {
		if g.Matches == nil {
			g.Matches = map[string]string{}
		}
		g.Matches[FieldEquippedArtifact] = p.Equipped()
	}
	return g
}

// ApplyMutation returns p with m applied. p is not modified. Level and lastActivity are
// maintained here the same way the stores maintain them.
func ApplyMutation(p PlayerProfile, m Mutation, now time.Time) (PlayerProfile, error) {
	if err := m.Validate(); err != nil {
		return p, err
	}
	if err := m.Guard.Check(p); err != nil {
		return p, err
	}

	out := p.Clone()
	for f, v := range m.Set {
		setValue(&out, f, v)
	}
	for f, d := range m.Increment {
		setInt(&out, f, intField(out, f)+d)
	}
	for f, v := range m.AddToSet {
		if s := setField(out, f); !slices.Contains(s, v) {
			setSet(&out, f, append(s, v))
		}
	}

	// спенд не может увести баланс в минус
	if out.Essence < 0 {
		return p, &ConditionError{Field: FieldEssence, Cond: CondAtLeast}
	}
	out.Level = game.LevelFromTotal(out.TotalEssenceEarned)
	out.LastActivity = now.UTC()
	return out, nil
}

// ApplyBatch applies muts in order as one unit: any failure leaves p unchanged.
func ApplyBatch(p PlayerProfile, muts []Mutation, now time.Time) (PlayerProfile, error) {
	out := p
	for _, m := range muts {
		next, err := ApplyMutation(out, m, now)
		if err != nil {
			return p, err
		}
		out = next
	}
	return out, nil
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// NullableString unwraps a Set value for a nullable string field.
func NullableString(v any) *string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return &s
	case *string:
		if s == nil || *s == "" {
			return nil
		}
		c := *s
		return &c
	}
	return nil
}

func intField(p PlayerProfile, f string) int64 {
	switch f {
	case FieldEssence:
		return p.Essence
	case FieldTotalEssenceEarned:
		return p.TotalEssenceEarned
	case FieldOnChainEvolutionLevel:
		return p.OnChainEvolutionLevel
	case FieldEssencePerShake:
		return p.EssencePerShake
	case FieldUpgradeShake:
		return int64(p.Upgrades.Shake)
	case FieldUpgradeBrewery:
		return int64(p.Upgrades.Brewery)
	}
	return 0
}

func stringField(p PlayerProfile, f string) string {
	switch f {
	case FieldUsername:
		return p.Username
	case FieldWalletAddress:
		return p.WalletAddress
	case FieldEquippedArtifact:
		return p.Equipped()
	case FieldEquippedBackground:
		return p.EquippedBackground
	case FieldEquippedBottle:
		return p.EquippedBottle
	case FieldEquippedSkin:
		return p.EquippedSkin
	}
	return ""
}

func setInt(p *PlayerProfile, f string, v int64) {
	switch f {
	case FieldEssence:
		p.Essence = v
	case FieldTotalEssenceEarned:
		p.TotalEssenceEarned = v
	case FieldOnChainEvolutionLevel:
		p.OnChainEvolutionLevel = v
	case FieldEssencePerShake:
		p.EssencePerShake = v
	case FieldUpgradeShake:
		p.Upgrades.Shake = int(v)
	case FieldUpgradeBrewery:
		p.Upgrades.Brewery = int(v)
	}
}

func setField(p PlayerProfile, f string) []string {
	switch f {
	case FieldArtifacts:
		return p.Artifacts
	case FieldUnlockedBackgrounds:
		return p.UnlockedBackgrounds
	case FieldUnlockedBottles:
		return p.UnlockedBottles
	case FieldUnlockedSkins:
		return p.UnlockedSkins
	}
	return nil
}

func setSet(p *PlayerProfile, f string, v []string) {
	switch f {
	case FieldArtifacts:
		p.Artifacts = v
	case FieldUnlockedBackgrounds:
		p.UnlockedBackgrounds = v
	case FieldUnlockedBottles:
		p.UnlockedBottles = v
	case FieldUnlockedSkins:
		p.UnlockedSkins = v
	}
}

func setValue(p *PlayerProfile, f string, v any) {
	switch KindOf(f) {
	case KindInt:
		n, _ := asInt(v)
		setInt(p, f, n)
	case KindFloat:
		n, _ := asFloat(v)
		switch f {
		case FieldEssencePerSecond:
			p.EssencePerSecond = n
		case FieldEssencePerPixel:
			p.EssencePerPixel = n
		}
	case KindNullableString:
		p.EquippedArtifact = NullableString(v)
	case KindString:
		s, _ := v.(string)
		switch f {
		case FieldUsername:
			p.Username = s
		case FieldWalletAddress:
			p.WalletAddress = s
		case FieldEquippedBackground:
			p.EquippedBackground = s
		case FieldEquippedBottle:
			p.EquippedBottle = s
		case FieldEquippedSkin:
			p.EquippedSkin = s
		}
	}
}

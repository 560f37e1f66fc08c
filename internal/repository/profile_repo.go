package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"stickman_shake/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// profileColumns maps document field paths onto player_profiles columns.
var profileColumns = map[string]string{
	domain.FieldUsername:              "username",
	domain.FieldWalletAddress:         "wallet_address",
	domain.FieldEssence:               "essence",
	domain.FieldTotalEssenceEarned:    "total_essence_earned",
	domain.FieldOnChainEvolutionLevel: "on_chain_evolution_level",
	domain.FieldEssencePerShake:       "essence_per_shake",
	domain.FieldEssencePerSecond:      "essence_per_second",
	domain.FieldEssencePerPixel:       "essence_per_pixel",
	domain.FieldUpgradeShake:          "upgrade_shake",
	domain.FieldUpgradeBrewery:        "upgrade_brewery",
	domain.FieldArtifacts:             "artifacts",
	domain.FieldEquippedArtifact:      "equipped_artifact",
	domain.FieldUnlockedBackgrounds:   "unlocked_backgrounds",
	domain.FieldEquippedBackground:    "equipped_background",
	domain.FieldUnlockedBottles:       "unlocked_bottles",
	domain.FieldEquippedBottle:        "equipped_bottle",
	domain.FieldUnlockedSkins:         "unlocked_skins",
	domain.FieldEquippedSkin:          "equipped_skin",
}

const profileSelect = `SELECT user_id, username, email, wallet_address,
	essence, total_essence_earned, on_chain_evolution_level, level,
	essence_per_shake, essence_per_second, essence_per_pixel,
	upgrade_shake, upgrade_brewery, artifacts, equipped_artifact,
	unlocked_backgrounds, equipped_background, unlocked_bottles, equipped_bottle,
	unlocked_skins, equipped_skin, last_activity
	FROM player_profiles`

const profileReturning = ` RETURNING user_id, username, email, wallet_address,
	essence, total_essence_earned, on_chain_evolution_level, level,
	essence_per_shake, essence_per_second, essence_per_pixel,
	upgrade_shake, upgrade_brewery, artifacts, equipped_artifact,
	unlocked_backgrounds, equipped_background, unlocked_bottles, equipped_bottle,
	unlocked_skins, equipped_skin, last_activity`

// код ошибки Postgres для нарушения CHECK
const pgCheckViolation = "23514"

type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (domain.PlayerProfile, error) {
	var p domain.PlayerProfile
	err := row.Scan(
		&p.UserID, &p.Username, &p.Email, &p.WalletAddress,
		&p.Essence, &p.TotalEssenceEarned, &p.OnChainEvolutionLevel, &p.Level,
		&p.EssencePerShake, &p.EssencePerSecond, &p.EssencePerPixel,
		&p.Upgrades.Shake, &p.Upgrades.Brewery, &p.Artifacts, &p.EquippedArtifact,
		&p.UnlockedBackgrounds, &p.EquippedBackground, &p.UnlockedBottles, &p.EquippedBottle,
		&p.UnlockedSkins, &p.EquippedSkin, &p.LastActivity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, domain.ErrNotFound
		}
		return p, err
	}
	p.LastActivity = p.LastActivity.UTC()
	p.Normalize()
	return p, nil
}

// Insert creates the profile unless one already exists for the user. Existing rows are never touched.
func (r *ProfileRepository) Insert(ctx context.Context, p domain.PlayerProfile) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO player_profiles (
			user_id, username, email, wallet_address,
			essence, total_essence_earned, on_chain_evolution_level,
			essence_per_shake, essence_per_second, essence_per_pixel,
			upgrade_shake, upgrade_brewery, artifacts, equipped_artifact,
			unlocked_backgrounds, equipped_background, unlocked_bottles, equipped_bottle,
			unlocked_skins, equipped_skin, last_activity
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (user_id) DO NOTHING`,
		p.UserID, p.Username, p.Email, p.WalletAddress,
		p.Essence, p.TotalEssenceEarned, p.OnChainEvolutionLevel,
		p.EssencePerShake, p.EssencePerSecond, p.EssencePerPixel,
		p.Upgrades.Shake, p.Upgrades.Brewery, p.Artifacts, p.EquippedArtifact,
		p.UnlockedBackgrounds, p.EquippedBackground, p.UnlockedBottles, p.EquippedBottle,
		p.UnlockedSkins, p.EquippedSkin, p.LastActivity,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	return scanProfile(r.db.QueryRow(ctx, profileSelect+` WHERE user_id = $1`, userID))
}

// List returns every profile in join order.
func (r *ProfileRepository) List(ctx context.Context) ([]domain.PlayerProfile, error) {
	rows, err := r.db.Query(ctx, profileSelect+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.PlayerProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Apply commits muts in one transaction. The row is locked with FOR UPDATE so guards
// are evaluated against the value the update will modify.
func (r *ProfileRepository) Apply(ctx context.Context, userID string, muts []domain.Mutation) (domain.PlayerProfile, error) {
	for _, m := range muts {
		if err := m.Validate(); err != nil {
			return domain.PlayerProfile{}, err
		}
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.PlayerProfile{}, err
	}
	defer tx.Rollback(ctx)

	cur, err := scanProfile(tx.QueryRow(ctx, profileSelect+` WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil {
		return domain.PlayerProfile{}, err
	}

	for _, m := range muts {
		if err := m.Guard.Check(cur); err != nil {
			return cur, err
		}
		query, args := buildUpdate(userID, m)
		next, err := scanProfile(tx.QueryRow(ctx, query, args...))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
				return cur, &domain.ConditionError{Field: domain.FieldEssence, Cond: domain.CondAtLeast}
			}
			return cur, fmt.Errorf("update profile: %w", err)
		}
		cur = next
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.PlayerProfile{}, err
	}
	return cur, nil
}

// buildUpdate renders one mutation as a single UPDATE. Field names come from the
// whitelist; values are always bound parameters.
func buildUpdate(userID string, m domain.Mutation) (string, []any) {
	args := []any{userID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	var sets []string
	for _, f := range sortedKeys(m.Set) {
		v := m.Set[f]
		if domain.KindOf(f) == domain.KindNullableString {
			v = domain.NullableString(v)
		}
		sets = append(sets, profileColumns[f]+" = "+arg(v))
	}
	for _, f := range sortedKeys(m.Increment) {
		col := profileColumns[f]
		sets = append(sets, col+" = "+col+" + "+arg(m.Increment[f]))
	}
	for _, f := range sortedKeys(m.AddToSet) {
		col := profileColumns[f]
		p := arg(m.AddToSet[f])
		sets = append(sets, fmt.Sprintf(
			"%s = CASE WHEN %s::text = ANY(%s) THEN %s ELSE array_append(%s, %s::text) END",
			col, p, col, col, col, p))
	}
	sets = append(sets, "last_activity = now()")

	return "UPDATE player_profiles SET " + strings.Join(sets, ", ") +
		" WHERE user_id = $1" + profileReturning, args
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

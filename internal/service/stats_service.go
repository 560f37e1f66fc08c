package service

import (
	"context"
	"time"

	"stickman_shake/internal/store"
)

// StatsService provides aggregate game statistics
type StatsService struct {
	store store.Store
	now   func() time.Time
}

// NewStatsService creates a new stats service
func NewStatsService(s store.Store) *StatsService {
	return &StatsService{store: s, now: time.Now}
}

// Stats represents game-wide statistics
type Stats struct {
	TotalPlayers       int64 `json:"total_players"`
	ActivePlayersToday int64 `json:"active_players_today"`
	ActivePlayersWeek  int64 `json:"active_players_week"`
	EssenceInHand      int64 `json:"essence_in_hand"`     // spendable essence across all players
	EssenceEarned      int64 `json:"essence_earned"`      // lifetime earnings of the current runs
	WalletsLinked      int64 `json:"wallets_linked"`
	Transcended        int64 `json:"transcended"`         // players with at least one ledger score
	ArtifactsOwned     int64 `json:"artifacts_owned"`
	HighestLevel       int   `json:"highest_level"`
	HighestEvolution   int64 `json:"highest_evolution"`
}

// GetStats scans the profile collection
func (s *StatsService) GetStats(ctx context.Context) (*Stats, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalPlayers: int64(len(list))}
	today := s.now().Truncate(24 * time.Hour)
	weekAgo := today.Add(-7 * 24 * time.Hour)

	for _, p := range list {
		if !p.LastActivity.Before(today) {
			stats.ActivePlayersToday++
		}
		if !p.LastActivity.Before(weekAgo) {
			stats.ActivePlayersWeek++
		}
		stats.EssenceInHand += p.Essence
		stats.EssenceEarned += p.TotalEssenceEarned
		if p.WalletAddress != "" {
			stats.WalletsLinked++
		}
		if p.OnChainEvolutionLevel > 0 {
			stats.Transcended++
		}
		stats.ArtifactsOwned += int64(len(p.Artifacts))
		stats.HighestLevel = max(stats.HighestLevel, p.Level)
		stats.HighestEvolution = max(stats.HighestEvolution, p.OnChainEvolutionLevel)
	}

	PlayersTotal.Set(float64(stats.TotalPlayers))
	return stats, nil
}

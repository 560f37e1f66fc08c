package service

import (
	"sort"

	"stickman_shake/internal/domain"
)

// TopSize is the size of the compact leaderboard widget.
const TopSize = 3

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank                  int    `json:"rank"`
	UserID                string `json:"userId"`
	Username              string `json:"username"`
	Level                 int    `json:"level"`
	TotalEssenceEarned    int64  `json:"totalEssenceEarned"`
	OnChainEvolutionLevel int64  `json:"onChainEvolutionLevel"`
	EquippedSkin          string `json:"equippedSkin"`
}

// Rank orders profiles by level, then lifetime essence, both descending. The sort is
// stable and never looks at ids, so equal players keep their input order.
// Always recomputed from the full snapshot.
func Rank(profiles []domain.PlayerProfile) []LeaderboardEntry {
	out := make([]LeaderboardEntry, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, LeaderboardEntry{
			UserID:                p.UserID,
			Username:              p.Username,
			Level:                 p.Level,
			TotalEssenceEarned:    p.TotalEssenceEarned,
			OnChainEvolutionLevel: p.OnChainEvolutionLevel,
			EquippedSkin:          p.EquippedSkin,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level > out[j].Level
		}
		return out[i].TotalEssenceEarned > out[j].TotalEssenceEarned
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Top returns the first n entries.
func Top(entries []LeaderboardEntry, n int) []LeaderboardEntry {
	if n > len(entries) {
		n = len(entries)
	}
	return entries[:n:n]
}

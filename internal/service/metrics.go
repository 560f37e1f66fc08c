package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_actions_total",
			Help: "Player actions by kind and result",
		},
		[]string{"action", "result"},
	)
	EssenceEarned = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_essence_earned_total",
			Help: "Essence issued by source (pointer, idle)",
		},
		[]string{"source"},
	)
	EarnWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_earn_write_failures_total",
			Help: "Earn increments dropped because the backend write failed",
		},
	)
	StaleWrites = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "game_stale_writes_total",
			Help: "Writes re-derived because the stored profile moved past the caller's snapshot",
		},
	)
	LedgerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_calls_total",
			Help: "Ledger calls by call and result",
		},
		[]string{"call", "result"},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "game_sessions_active",
			Help: "Sessions currently in the game state",
		},
	)
	PlayersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "game_players_total",
			Help: "Profiles in the leaderboard collection",
		},
	)
)

func init() {
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(EssenceEarned)
	prometheus.MustRegister(EarnWriteFailures)
	prometheus.MustRegister(StaleWrites)
	prometheus.MustRegister(LedgerCalls)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(PlayersTotal)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

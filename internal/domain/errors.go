package domain

import (
	"errors"
	"fmt"

	"stickman_shake/internal/game"
)

// Ошибки действий игрока. Все локальны для одного действия и не фатальны.
var (
	ErrInsufficientFunds       = errors.New("insufficient essence")
	ErrAlreadyOwned            = errors.New("already owned")
	ErrWalletNotConnected      = errors.New("wallet not connected")
	ErrNotEligible             = errors.New("not eligible to transcend")
	ErrLedgerTransactionFailed = errors.New("ledger transaction failed")
	ErrBackendUnavailable      = errors.New("backend unavailable")
	ErrUnknownIdentifier       = game.ErrUnknownIdentifier

	ErrNotFound        = errors.New("profile not found")
	ErrNotOwned        = errors.New("item not owned")
	ErrNotInGame       = errors.New("session is not in game")
	ErrInvalidMutation = errors.New("invalid mutation")
	ErrStaleProfile    = errors.New("profile changed, retry")
)

// Guard condition kinds
const (
	CondAtLeast  = "at_least"
	CondContains = "contains"
	CondExcludes = "excludes"
	CondEquals   = "equals"
)

// ConditionError reports a guard that did not hold at write time. Nothing was written.
type ConditionError struct {
	Field string
	Cond  string
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %s failed on %s", e.Cond, e.Field)
}

// Unwrap maps the failed condition onto the player-facing error.
func (e *ConditionError) Unwrap() error {
	switch e.Cond {
	case CondAtLeast:
		return ErrInsufficientFunds
	case CondExcludes:
		return ErrAlreadyOwned
	case CondContains:
		return ErrNotOwned
	case CondEquals:
		return ErrStaleProfile
	}
	return nil
}

// IsUserError reports whether err is a game rule rejection rather than an infrastructure failure.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrInsufficientFunds, ErrAlreadyOwned, ErrWalletNotConnected, ErrNotEligible,
		ErrUnknownIdentifier, ErrNotOwned, ErrNotInGame, ErrInvalidMutation, ErrNotFound,
		ErrLedgerTransactionFailed, ErrStaleProfile,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

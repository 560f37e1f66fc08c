package ws

import (
	"errors"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/service"
)

// Error codes sent to clients
const (
	CodeInsufficientFunds  = "insufficient_funds"
	CodeAlreadyOwned       = "already_owned"
	CodeWalletNotConnected = "wallet_not_connected"
	CodeNotEligible        = "not_eligible"
	CodeLedgerFailed       = "ledger_transaction_failed"
	CodeBackendUnavailable = "backend_unavailable"
	CodeUnknownIdentifier  = "unknown_identifier"
	CodeNotOwned           = "not_owned"
	CodeNotInGame          = "not_in_game"
	CodeInProgress         = "action_in_progress"
	CodeStaleProfile       = "stale_profile"
	CodeUnauthorized       = "unauthorized"
	CodeBadMessage         = "bad_message"
	CodeInternal           = "internal"
)

var codeTable = []struct {
	err  error
	code string
}{
	{domain.ErrInsufficientFunds, CodeInsufficientFunds},
	{domain.ErrAlreadyOwned, CodeAlreadyOwned},
	{domain.ErrWalletNotConnected, CodeWalletNotConnected},
	{domain.ErrNotEligible, CodeNotEligible},
	{domain.ErrLedgerTransactionFailed, CodeLedgerFailed},
	{domain.ErrBackendUnavailable, CodeBackendUnavailable},
	{domain.ErrUnknownIdentifier, CodeUnknownIdentifier},
	{domain.ErrNotOwned, CodeNotOwned},
	{domain.ErrNotInGame, CodeNotInGame},
	{service.ErrActionInProgress, CodeInProgress},
	{domain.ErrStaleProfile, CodeStaleProfile},
	{service.ErrUnknownAction, CodeBadMessage},
}

func errorCode(err error) string {
	for _, e := range codeTable {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

func errorPayload(err error) *ErrorPayload {
	code := errorCode(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal error"
	}
	return &ErrorPayload{Code: code, Message: msg}
}

package ledger

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	ErrTransactionFailed = errors.New("transaction failed")
	ErrRejected          = errors.New("transaction rejected by signer")
	ErrTimeout           = errors.New("transaction not confirmed within timeout")
)

// ArgKind is the Move type of a call argument.
type ArgKind string

const (
	ArgObject ArgKind = "object"
	ArgString ArgKind = "string"
	ArgU64    ArgKind = "u64"
)

// Arg is one positional call argument. Value is the textual form (object id, string, decimal u64).
type Arg struct {
	Kind  ArgKind `json:"kind"`
	Value string  `json:"value"`
}

// Call is a structured Move call. Argument order is part of the contract ABI.
type Call struct {
	Target    string `json:"target"`
	Arguments []Arg  `json:"arguments"`
	GasBudget uint64 `json:"gasBudget"`
}

// Receipt is what the signer reports for a confirmed transaction.
type Receipt struct {
	Digest string `json:"digest"`
	Status string `json:"status"`
}

// Result resolves a submitted call: exactly one of Receipt and Err is set.
type Result struct {
	Receipt *Receipt
	Err     error
}

// Ledger signs and submits calls on behalf of a connected wallet.
// Submit never blocks; the channel yields one Result and is closed.
type Ledger interface {
	IsConnected(wallet string) bool
	Submit(ctx context.Context, sender string, call Call) <-chan Result
}

// MintArtifact builds <pkg>::artifact::mint_artifact(name, description, effect*100).
func MintArtifact(pkg, name, description string, effectValue float64) Call {
	scaled := uint64(math.Round(effectValue * EffectScale))
	return Call{
		Target: pkg + "::artifact::mint_artifact",
		Arguments: []Arg{
			{Kind: ArgString, Value: name},
			{Kind: ArgString, Value: description},
			{Kind: ArgU64, Value: strconv.FormatUint(scaled, 10)},
		},
		GasBudget: GasBudget,
	}
}

// SubmitScore builds <pkg>::leaderboard::submit_score(leaderboard, displayName, score).
func SubmitScore(pkg, leaderboardID, displayName string, score int64) Call {
	if score < 0 {
		score = 0
	}
	return Call{
		Target: pkg + "::leaderboard::submit_score",
		Arguments: []Arg{
			{Kind: ArgObject, Value: leaderboardID},
			{Kind: ArgString, Value: displayName},
			{Kind: ArgU64, Value: strconv.FormatInt(score, 10)},
		},
		GasBudget: GasBudget,
	}
}

// DisplayName is the email local part, or UnknownDisplayName.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return UnknownDisplayName
	}
	return local
}

// resolved returns an already-settled result channel.
func resolved(r Result) <-chan Result {
	ch := make(chan Result, 1)
	ch <- r
	close(ch)
	return ch
}

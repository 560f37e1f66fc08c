package ws

import (
	"encoding/json"

	"stickman_shake/internal/game"
)

// Envelope wraps every message in both directions.
type Envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// client → server
type SignInPayload struct {
	Token    string `json:"token"`
	Username string `json:"username,omitempty"`
}

type MovePayload struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

type ActionPayload struct {
	ID       string        `json:"id,omitempty"`
	Category game.Category `json:"category,omitempty"`
}

// server → client
type StatePayload struct {
	State string `json:"state"`
}

type EarnedPayload struct {
	Amount int64  `json:"amount"`
	Source string `json:"source"`
}

type ActionResultPayload struct {
	Action string        `json:"action"`
	OK     bool          `json:"ok"`
	Digest string        `json:"digest,omitempty"`
	Error  *ErrorPayload `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

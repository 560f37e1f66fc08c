package ws

import "stickman_shake/internal/service"

const (
	// client - server
	MsgSignIn  = "sign_in"
	MsgSignOut = "sign_out"
	MsgMove    = "move"
	MsgPing    = "ping"

	// server - client
	MsgReady        = "ready"
	MsgState        = "state"
	MsgProfile      = "profile"
	MsgLeaderboard  = "leaderboard"
	MsgEarned       = "earned"
	MsgActionResult = "action_result"
	MsgError        = "error"
	MsgPong         = "pong"
)

// actionTypes are accepted as message types as-is.
var actionTypes = map[string]bool{
	service.ActionBuyUpgrade:    true,
	service.ActionBuyArtifact:   true,
	service.ActionEquipArtifact: true,
	service.ActionBuyCosmetic:   true,
	service.ActionEquipCosmetic: true,
	service.ActionTranscend:     true,
}

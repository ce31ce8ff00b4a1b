package types

import apitypes "github.com/DoyleJ11/cs-match-backend/pkg/types"

// Client message types.
const (
	MsgBanMap  = "BanMap"
	MsgPickMap = "PickMap"
	MsgPing    = "Ping"
)

// Server message types.
const (
	MsgSnapshot   = "MatchSnapshot"
	MsgBanResult  = "BanResult"
	MsgPickResult = "PickResult"
	MsgPong       = "Pong"
	MsgError      = "Error"
)

type ClientMessage struct {
	Type          string `json:"type"`
	DiscordUserID string `json:"discord_user_id,omitempty"`
	MapTag        string `json:"map_tag,omitempty"`
}

type ServerMessage struct {
	Type    string                  `json:"type"`
	Version int                     `json:"version,omitempty"`
	Match   *apitypes.MatchView     `json:"match,omitempty"`
	Ban     *apitypes.BanResult     `json:"ban,omitempty"`
	Pick    *apitypes.PickResult    `json:"pick,omitempty"`
	Error   *apitypes.ErrorResponse `json:"error,omitempty"`
}

package types

import "github.com/DoyleJ11/cs-match-backend/internal/engine"

// MatchView is the match as returned by the API and pushed to websocket clients.
type MatchView struct {
	engine.Match
	Veto             engine.VetoStatus `json:"veto"`
	ConnectCommand   string            `json:"connect_command,omitempty"`
	LoadMatchCommand string            `json:"load_match_command"`
}

type BanResult struct {
	BannedMap         string   `json:"banned_map"`
	NextBanTeamLeader string   `json:"next_ban_team_leader"`
	MapsLeft          []string `json:"maps_left"`
	MapBansCount      int      `json:"map_bans_count"`
}

type PickResult struct {
	PickedMap          string   `json:"picked_map"`
	NextPickTeamLeader string   `json:"next_pick_team_leader"`
	MapsLeft           []string `json:"maps_left"`
	MapPicksCount      int      `json:"map_picks_count"`
}

// Presence is who is watching a match right now.
type Presence struct {
	MatchID     string        `json:"match_id"`
	Version     int           `json:"version"`
	Status      engine.Status `json:"status"`
	Subscribers int           `json:"subscribers"`
}

type StatusResponse struct {
	ActiveMatches int `json:"active_matches"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

package serverconfig

import (
	"fmt"
	"maps"
	"strings"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
)

const (
	RemoteLogURLCVar         = "matchzy_remote_log_url"
	RemoteLogHeaderKeyCVar   = "matchzy_remote_log_header_key"
	RemoteLogHeaderValueCVar = "matchzy_remote_log_header_value"
	LoadMatchCommand         = "matchzy_loadmatch_url"

	authHeader = "Authorization"
)

type TeamConfig struct {
	Name string `json:"name"`
	// Players maps steam id to display name.
	Players map[string]string `json:"players"`
}

// ServerConfig is the match file the game server loads.
type ServerConfig struct {
	MatchID        string            `json:"matchid"`
	Team1          TeamConfig        `json:"team1"`
	Team2          TeamConfig        `json:"team2"`
	NumMaps        int               `json:"num_maps"`
	MapList        []string          `json:"maplist"`
	MapSides       []engine.MapSide  `json:"map_sides"`
	ClinchSeries   bool              `json:"clinch_series"`
	PlayersPerTeam int               `json:"players_per_team"`
	CVars          map[string]string `json:"cvars,omitempty"`
	Wingman        bool              `json:"wingman,omitempty"`
}

// Project builds the game server config for m. It only reads m.
func Project(m engine.Match) ServerConfig {
	total := m.PlayerCount()
	cfg := ServerConfig{
		MatchID:        m.ID,
		Team1:          teamConfig(m.Team1),
		Team2:          teamConfig(m.Team2),
		NumMaps:        m.Config.Format.RequiredMaps(),
		MapList:        append([]string{}, m.MapList...),
		MapSides:       append([]engine.MapSide{}, m.Config.MapSides...),
		ClinchSeries:   m.Config.ClinchSeries,
		PlayersPerTeam: (total + 1) / 2,
		Wingman:        m.Config.GameMode == engine.GameModeWingman,
	}

	cvars := maps.Clone(m.Config.CVars)
	if cvars == nil {
		cvars = map[string]string{}
	}
	// Match-level values win over config defaults.
	maps.Copy(cvars, m.CVars)
	if len(cvars) > 0 {
		cfg.CVars = cvars
	}
	return cfg
}

func teamConfig(t *engine.Team) TeamConfig {
	tc := TeamConfig{Players: map[string]string{}}
	if t == nil {
		return tc
	}
	tc.Name = t.Name
	for _, p := range t.Players {
		if p.SteamID == "" {
			continue
		}
		tc.Players[p.SteamID] = p.Handle()
	}
	return tc
}

// WebhookCVars are the server variables that make the game server report its
// events back to eventsURL with the bearer secret.
func WebhookCVars(eventsURL, secret string) map[string]string {
	return map[string]string{
		RemoteLogURLCVar:         eventsURL,
		RemoteLogHeaderKeyCVar:   authHeader,
		RemoteLogHeaderValueCVar: "Bearer " + secret,
	}
}

// ConfigURL is where the game server downloads the match config.
func ConfigURL(publicBaseURL, matchID string) string {
	return fmt.Sprintf("%s/matches/%s/config", strings.TrimRight(publicBaseURL, "/"), matchID)
}

// EventsURL is where the game server posts its events.
func EventsURL(publicBaseURL, matchID string) string {
	return fmt.Sprintf("%s/matches/%s/events", strings.TrimRight(publicBaseURL, "/"), matchID)
}

// LoadCommand is the console command that makes the server load the match.
func LoadCommand(publicBaseURL, matchID string) string {
	return fmt.Sprintf("%s %q", LoadMatchCommand, ConfigURL(publicBaseURL, matchID))
}

package types

// Requests accepted by the HTTP API. Users are referenced by their discord id.

type CreateMatchRequest struct {
	ConfigID        string            `json:"config_id"`
	AuthorID        string            `json:"author_id"`
	DiscordUsersIDs []string          `json:"discord_users_ids"`
	Team1           []string          `json:"team1,omitempty"`
	Team2           []string          `json:"team2,omitempty"`
	ServerID        string            `json:"server_id,omitempty"`
	GuildID         string            `json:"guild_id,omitempty"`
	MatchType       string            `json:"match_type,omitempty"`
	ClinchSeries    *bool             `json:"clinch_series,omitempty"`
	MapSides        []string          `json:"map_sides,omitempty"`
	CVars           map[string]string `json:"cvars,omitempty"`
}

// VetoRequest bans or picks MapTag on behalf of the user.
type VetoRequest struct {
	InteractionUserID string `json:"interaction_user_id"`
	MapTag            string `json:"map_tag"`
}

type PlayerRequest struct {
	DiscordUserID string `json:"discord_user_id"`
}

type AssignServerRequest struct {
	ServerID string `json:"server_id"`
}

type CVarsRequest struct {
	CVars map[string]string `json:"cvars"`
}

type CreateMapRequest struct {
	Name    string `json:"name"`
	Tag     string `json:"tag"`
	GuildID string `json:"guild_id,omitempty"`
}

type CreatePoolRequest struct {
	Name    string   `json:"name"`
	MapIDs  []string `json:"map_ids"`
	GuildID string   `json:"guild_id,omitempty"`
}

type CreateConfigRequest struct {
	Name         string            `json:"name"`
	GameMode     string            `json:"game_mode"`
	Type         string            `json:"type"`
	MapPoolID    string            `json:"map_pool_id"`
	MapSides     []string          `json:"map_sides,omitempty"`
	ClinchSeries bool              `json:"clinch_series"`
	MaxPlayers   int               `json:"max_players"`
	CVars        map[string]string `json:"cvars,omitempty"`
	ShuffleTeams bool              `json:"shuffle_teams"`
	VetoSequence []string          `json:"veto_sequence,omitempty"`
	GuildID      string            `json:"guild_id,omitempty"`
}

type CreateServerRequest struct {
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Password   string `json:"password,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
	GuildID    string `json:"guild_id,omitempty"`
}

type UpsertPlayerRequest struct {
	DiscordID string `json:"discord_id"`
	Username  string `json:"username"`
	SteamID   string `json:"steam_id"`
	SteamName string `json:"steam_name"`
}

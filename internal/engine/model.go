package engine

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusStarted   Status = "STARTED"
	StatusLoaded    Status = "LOADED"
	StatusLive      Status = "LIVE"
	StatusFinished  Status = "FINISHED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Terminal() bool {
	return s == StatusFinished || s == StatusCancelled
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusCreated, StatusStarted, StatusLoaded, StatusLive, StatusFinished, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown match status %q", ErrValidation, s)
	}
}

type Format string

const (
	FormatBO1 Format = "BO1"
	FormatBO3 Format = "BO3"
	FormatBO5 Format = "BO5"
)

// RequiredMaps is the number of maps a series of this format plays.
func (f Format) RequiredMaps() int {
	switch f {
	case FormatBO3:
		return 3
	case FormatBO5:
		return 5
	default:
		return 1
	}
}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(s)); f {
	case FormatBO1, FormatBO3, FormatBO5:
		return f, nil
	case "":
		return FormatBO1, nil
	default:
		return "", fmt.Errorf("%w: unknown match format %q", ErrValidation, s)
	}
}

type GameMode string

const (
	GameModeCompetitive GameMode = "COMPETITIVE"
	GameModeWingman     GameMode = "WINGMAN"
	GameModeAim         GameMode = "AIM"
)

type MapSide string

const (
	SideTeam1CT MapSide = "team1_ct"
	SideTeam2CT MapSide = "team2_ct"
	SideTeam1T  MapSide = "team1_t"
	SideTeam2T  MapSide = "team2_t"
	SideKnife   MapSide = "knife"
)

func (s MapSide) Valid() bool {
	switch s {
	case SideTeam1CT, SideTeam2CT, SideTeam1T, SideTeam2T, SideKnife:
		return true
	}
	return false
}

// Slot identifies one of the two teams of a match.
type Slot string

const (
	SlotTeam1 Slot = "team1"
	SlotTeam2 Slot = "team2"
)

func (s Slot) Other() Slot {
	if s == SlotTeam1 {
		return SlotTeam2
	}
	return SlotTeam1
}

type Map struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tag     string `json:"tag"`
	GuildID string `json:"guild_id,omitempty"`
}

// MapPool keeps its maps sorted by tag; that order is the pool's canonical ordering.
type MapPool struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Maps    []Map  `json:"maps"`
	GuildID string `json:"guild_id,omitempty"`
}

func NewMapPool(id, name, guildID string, maps []Map) (MapPool, error) {
	if strings.TrimSpace(name) == "" {
		return MapPool{}, fmt.Errorf("%w: map pool name is required", ErrValidation)
	}
	seen := make(map[string]bool, len(maps))
	sorted := make([]Map, 0, len(maps))
	for _, mp := range maps {
		if mp.Tag == "" {
			return MapPool{}, fmt.Errorf("%w: map %q has no tag", ErrValidation, mp.Name)
		}
		if seen[mp.Tag] {
			return MapPool{}, fmt.Errorf("%w: map %q listed twice in pool", ErrValidation, mp.Tag)
		}
		seen[mp.Tag] = true
		sorted = append(sorted, mp)
	}
	slices.SortFunc(sorted, func(a, b Map) int { return strings.Compare(a.Tag, b.Tag) })
	return MapPool{ID: id, Name: name, Maps: sorted, GuildID: guildID}, nil
}

func (p MapPool) Lookup(tag string) (Map, bool) {
	for _, mp := range p.Maps {
		if mp.Tag == tag {
			return mp, true
		}
	}
	return Map{}, false
}

type MatchConfig struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	GameMode     GameMode          `json:"game_mode"`
	Format       Format            `json:"type"`
	MapPool      MapPool           `json:"map_pool"`
	MapSides     []MapSide         `json:"map_sides"`
	ClinchSeries bool              `json:"clinch_series"`
	MaxPlayers   int               `json:"max_players"`
	CVars        map[string]string `json:"cvars,omitempty"`
	ShuffleTeams bool              `json:"shuffle_teams"`
	// VetoSequence overrides the format's default ban/pick order.
	VetoSequence []Action `json:"veto_sequence,omitempty"`
	GuildID      string   `json:"guild_id,omitempty"`
}

// Validate checks that the config can drive a complete veto.
func (c MatchConfig) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: config name is required", ErrValidation)
	}
	switch c.GameMode {
	case GameModeCompetitive, GameModeWingman, GameModeAim:
	default:
		return fmt.Errorf("%w: unknown game mode %q", ErrValidation, c.GameMode)
	}
	for _, side := range c.MapSides {
		if !side.Valid() {
			return fmt.Errorf("%w: unknown map side %q", ErrValidation, side)
		}
	}
	if c.MaxPlayers < 2 {
		return fmt.Errorf("%w: max players must be at least 2", ErrValidation)
	}
	_, err := VetoOrder(c)
	return err
}

type Player struct {
	ID        string `json:"id"`
	DiscordID string `json:"discord_id"`
	Username  string `json:"username"`
	SteamID   string `json:"steam_id"`
	SteamName string `json:"steam_name"`
}

// Handle is the external account name used for derived team names.
func (p Player) Handle() string {
	if p.SteamName != "" {
		return p.SteamName
	}
	if p.Username != "" {
		return p.Username
	}
	return p.ID
}

type Team struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	LeaderID string   `json:"leader_id,omitempty"`
	Players  []Player `json:"players"`
}

func (t *Team) Has(playerID string) bool {
	return t != nil && slices.ContainsFunc(t.Players, func(p Player) bool { return p.ID == playerID })
}

func (t *Team) Leader() (Player, bool) {
	if t == nil {
		return Player{}, false
	}
	for _, p := range t.Players {
		if p.ID == t.LeaderID {
			return p, true
		}
	}
	return Player{}, false
}

func (t *Team) Size() int {
	if t == nil {
		return 0
	}
	return len(t.Players)
}

type MapBan struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	MapID     string    `json:"map_id"`
	MapTag    string    `json:"map_tag"`
	CreatedAt time.Time `json:"created_at"`
}

type MapPick struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	MapID     string    `json:"map_id"`
	MapTag    string    `json:"map_tag"`
	CreatedAt time.Time `json:"created_at"`
}

type TeamScore struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	ScoreCT int    `json:"score_ct"`
	ScoreT  int    `json:"score_t"`
}

type MapResult struct {
	MapNumber  int       `json:"map_number"`
	Team1      TeamScore `json:"team1"`
	Team2      TeamScore `json:"team2"`
	WinnerSlot Slot      `json:"winner"`
	WinnerSide string    `json:"winner_side"`
}

type TimelineEntry struct {
	Kind      string    `json:"kind"`
	MapNumber int       `json:"map_number"`
	Detail    string    `json:"detail"`
	At        time.Time `json:"at"`
}

// Match is the aggregate root every command is applied to.
type Match struct {
	ID            string            `json:"id"`
	Version       int               `json:"version"`
	Status        Status            `json:"status"`
	Config        MatchConfig       `json:"config"`
	Team1         *Team             `json:"team1"`
	Team2         *Team             `json:"team2"`
	WinnerTeamID  string            `json:"winner_team_id,omitempty"`
	MapBans       []MapBan          `json:"map_bans"`
	MapPicks      []MapPick         `json:"map_picks"`
	LastMapBanID  string            `json:"last_map_ban_id,omitempty"`
	LastMapPickID string            `json:"last_map_pick_id,omitempty"`
	MapList       []string          `json:"maplist"`
	CVars         map[string]string `json:"cvars,omitempty"`
	ServerID      string            `json:"server_id,omitempty"`
	GuildID       string            `json:"guild_id,omitempty"`
	AuthorID      string            `json:"author_id"`

	CurrentMap       int             `json:"current_map"`
	CurrentRound     int             `json:"current_round"`
	Team1SeriesScore int             `json:"team1_series_score"`
	Team2SeriesScore int             `json:"team2_series_score"`
	MapResults       []MapResult     `json:"map_results"`
	Timeline         []TimelineEntry `json:"timeline"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *Match) Team(slot Slot) *Team {
	if slot == SlotTeam2 {
		return m.Team2
	}
	return m.Team1
}

// SlotOf reports which team holds the player.
func (m *Match) SlotOf(playerID string) (Slot, bool) {
	switch {
	case m.Team1.Has(playerID):
		return SlotTeam1, true
	case m.Team2.Has(playerID):
		return SlotTeam2, true
	}
	return "", false
}

func (m *Match) PlayerCount() int {
	return m.Team1.Size() + m.Team2.Size()
}

// Check verifies the aggregate invariants.
func (m *Match) Check() error {
	if m.Team1 != nil && m.Team2 != nil && m.Team1.ID == m.Team2.ID {
		return fmt.Errorf("%w: team1 and team2 must be distinct", ErrValidation)
	}
	for _, t := range []*Team{m.Team1, m.Team2} {
		if t == nil {
			continue
		}
		if t.LeaderID != "" && !t.Has(t.LeaderID) {
			return fmt.Errorf("%w: leader of %q is not a member", ErrValidation, t.Name)
		}
		if t.LeaderID == "" && len(t.Players) > 0 {
			return fmt.Errorf("%w: team %q has members but no leader", ErrValidation, t.Name)
		}
	}
	if len(m.MapList) > m.Config.Format.RequiredMaps() {
		return fmt.Errorf("%w: map list longer than format allows", ErrValidation)
	}
	if m.LastMapBanID != "" && !slices.ContainsFunc(m.MapBans, func(b MapBan) bool { return b.ID == m.LastMapBanID }) {
		return fmt.Errorf("%w: last map ban is not part of the match", ErrValidation)
	}
	if m.LastMapPickID != "" && !slices.ContainsFunc(m.MapPicks, func(p MapPick) bool { return p.ID == m.LastMapPickID }) {
		return fmt.Errorf("%w: last map pick is not part of the match", ErrValidation)
	}
	return nil
}

// Server is a game server a match can be assigned to.
type Server struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	Password   string `json:"-"`
	WebhookURL string `json:"webhook_url,omitempty"`
	GuildID    string `json:"guild_id,omitempty"`
}

func (s Server) ConnectCommand() string {
	cmd := fmt.Sprintf("connect %s:%d", s.Host, s.Port)
	if s.Password != "" {
		cmd += "; password " + s.Password
	}
	return cmd
}

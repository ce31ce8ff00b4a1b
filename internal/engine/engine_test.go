package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var activeDuty = []string{"de_ancient", "de_anubis", "de_dust2", "de_inferno", "de_mirage", "de_nuke", "de_vertigo"}

func newPool(t *testing.T, tags ...string) MapPool {
	t.Helper()
	maps := make([]Map, 0, len(tags))
	for _, tag := range tags {
		maps = append(maps, Map{ID: "map_" + tag, Name: tag, Tag: tag})
	}
	pool, err := NewMapPool("pool_1", "Active Duty", "", maps)
	require.NoError(t, err)
	return pool
}

func newConfig(t *testing.T, format Format) MatchConfig {
	t.Helper()
	return MatchConfig{
		ID:         "cfg_1",
		Name:       "pug " + string(format),
		GameMode:   GameModeCompetitive,
		Format:     format,
		MapPool:    newPool(t, activeDuty...),
		MapSides:   []MapSide{SideKnife, SideTeam1CT, SideTeam2CT},
		MaxPlayers: 10,
	}
}

func fakePlayer(f *gofakeit.Faker) Player {
	return Player{
		ID:        f.UUID(),
		DiscordID: f.Numerify("##################"),
		Username:  f.Username(),
		SteamID:   f.Numerify("7656119#########"),
		SteamName: f.Username(),
	}
}

// newTwoTeamMatch returns a CREATED match with the author on team1 and one more player on team2.
func newTwoTeamMatch(t *testing.T, cfg MatchConfig) (Match, Player, Player) {
	t.Helper()
	f := gofakeit.New(42)
	author, second := fakePlayer(f), fakePlayer(f)
	m, err := NewMatch(NewMatchParams{ID: "match_1", Author: author, Config: cfg})
	require.NoError(t, err)
	events, m, err := Apply(m, Command{Type: CmdAddPlayer, Player: second})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtPlayerJoined))
	return m, author, second
}

func actorFor(m Match, slot Slot) string {
	return m.Team(slot).Players[0].ID
}

func TestNewMatch_AutoCreatesTeams(t *testing.T) {
	m, author, second := newTwoTeamMatch(t, newConfig(t, FormatBO1))

	require.NotNil(t, m.Team1)
	require.NotNil(t, m.Team2)
	assert.NotEqual(t, m.Team1.ID, m.Team2.ID)
	assert.Equal(t, StatusCreated, m.Status)
	assert.True(t, m.Team1.Has(author.ID))
	assert.Equal(t, author.ID, m.Team1.LeaderID)
	assert.True(t, m.Team2.Has(second.ID))
	assert.Equal(t, second.ID, m.Team2.LeaderID)
}

func TestNewMatch_ExplicitRosters(t *testing.T) {
	f := gofakeit.New(7)
	a, b, c, d := fakePlayer(f), fakePlayer(f), fakePlayer(f), fakePlayer(f)

	m, err := NewMatch(NewMatchParams{
		Author: a,
		Config: newConfig(t, FormatBO1),
		Team1:  []Player{a, b},
		Team2:  []Player{c},
		// b is already rostered and is skipped; d lands on the smaller team2.
		Players: []Player{b, d},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Team1.Size())
	assert.Equal(t, 2, m.Team2.Size())
	assert.Equal(t, c.ID, m.Team2.LeaderID)
	assert.True(t, m.Team2.Has(d.ID))
}

func TestNewMatch_RejectsInvalidConfig(t *testing.T) {
	cfg := newConfig(t, FormatBO5)
	_, err := NewMatch(NewMatchParams{Author: Player{ID: "p1"}, Config: cfg})
	require.ErrorIs(t, err, ErrValidation)
}

func TestApply_UnsupportedCommand(t *testing.T) {
	m, _, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))
	_, got, err := Apply(m, Command{Type: "Teleport"})
	require.ErrorIs(t, err, ErrUnsupportedCommand)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, m.UpdatedAt, got.UpdatedAt)
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	m, _, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))
	before := len(m.MapBans)

	_, next, err := Apply(m, Command{Type: CmdBanMap, ActorID: actorFor(m, SlotTeam1), MapTag: "de_nuke"})
	require.NoError(t, err)
	assert.Len(t, next.MapBans, before+1)
	assert.Len(t, m.MapBans, before)
	assert.Empty(t, m.LastMapBanID)
}

func TestApply_AssignServerAndCVars(t *testing.T) {
	m, _, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))

	events, m, err := Apply(m, Command{Type: CmdAssignServer, ServerID: "srv_1"})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtServerAssigned))
	assert.Equal(t, "srv_1", m.ServerID)

	events, _, err = Apply(m, Command{Type: CmdAssignServer, ServerID: "srv_1"})
	require.NoError(t, err)
	assert.Empty(t, events, "re-assigning the same server changes nothing")

	events, m, err = Apply(m, Command{Type: CmdMergeCVars, CVars: map[string]string{"mp_overtime_enable": "1"}})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtCVarsUpdated))
	assert.Equal(t, "1", m.CVars["mp_overtime_enable"])
}

func TestMatchCheck(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(m *Match)
	}{
		{
			name:   "same team twice",
			mutate: func(m *Match) { m.Team2.ID = m.Team1.ID },
		},
		{
			name:   "leader not a member",
			mutate: func(m *Match) { m.Team1.LeaderID = "ghost" },
		},
		{
			name:   "map list too long",
			mutate: func(m *Match) { m.MapList = []string{"de_nuke", "de_mirage"} },
		},
		{
			name:   "dangling last ban",
			mutate: func(m *Match) { m.LastMapBanID = "ban_x" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, _, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))
			tc.mutate(&m)
			if err := m.Check(); !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
		})
	}
}

func TestServerConnectCommand(t *testing.T) {
	s := Server{Host: "10.0.0.5", Port: 27015, Password: "hunter2"}
	assert.Equal(t, "connect 10.0.0.5:27015; password hunter2", s.ConnectCommand())
	s.Password = ""
	assert.Equal(t, fmt.Sprintf("connect %s:%d", s.Host, s.Port), s.ConnectCommand())
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" live ")
	require.NoError(t, err)
	assert.Equal(t, StatusLive, st)

	_, err = ParseStatus("paused")
	require.ErrorIs(t, err, ErrValidation)
}

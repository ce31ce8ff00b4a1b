package engine

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertLeadersAreMembers(t *testing.T, m Match) {
	t.Helper()
	for _, team := range []*Team{m.Team1, m.Team2} {
		if len(team.Players) == 0 {
			assert.Empty(t, team.LeaderID, "%s has no members but a leader", team.Name)
			continue
		}
		assert.True(t, team.Has(team.LeaderID), "%s leader %s is not a member", team.Name, team.LeaderID)
	}
}

func TestAddPlayer_FillsSmallerTeamTieToTeam1(t *testing.T) {
	f := gofakeit.New(3)
	m, err := NewMatch(NewMatchParams{Author: fakePlayer(f), Config: newConfig(t, FormatBO1)})
	require.NoError(t, err)

	want := []Slot{SlotTeam2, SlotTeam1, SlotTeam2, SlotTeam1}
	for i, slot := range want {
		before := m.PlayerCount()
		events, next, err := Apply(m, Command{Type: CmdAddPlayer, Player: fakePlayer(f)})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, slot, events[0].Slot, "player %d", i)
		assert.Equal(t, before+1, next.PlayerCount())
		assertLeadersAreMembers(t, next)
		m = next
	}
}

func TestAddPlayer_Rejections(t *testing.T) {
	m, author, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))

	_, _, err := Apply(m, Command{Type: CmdAddPlayer, Player: author})
	require.ErrorIs(t, err, ErrValidation, "already in match")

	_, _, err = Apply(m, Command{Type: CmdAddPlayer, Player: Player{}})
	require.ErrorIs(t, err, ErrValidation, "missing id")

	full := m
	full.Config.MaxPlayers = 2
	_, _, err = Apply(full, Command{Type: CmdAddPlayer, Player: Player{ID: "late"}})
	require.ErrorIs(t, err, ErrValidation, "match full")

	_, started := mustApply(t, m, Command{Type: CmdStartMatch})
	_, _, err = Apply(started, Command{Type: CmdAddPlayer, Player: Player{ID: "late"}})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRemovePlayer(t *testing.T) {
	f := gofakeit.New(11)
	m, author, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))
	third := fakePlayer(f)
	_, m = mustApply(t, m, Command{Type: CmdAddPlayer, Player: third})
	require.True(t, m.Team1.Has(third.ID))

	// Removing the leader promotes the next member.
	events, m := mustApply(t, m, Command{Type: CmdRemovePlayer, Player: author})
	require.True(t, ContainsEvent(events, EvtPlayerLeft))
	assert.False(t, m.Team1.Has(author.ID))
	assert.Equal(t, third.ID, m.Team1.LeaderID)
	assert.Equal(t, 2, m.PlayerCount())
	assertLeadersAreMembers(t, m)

	// Absent player: accepted, nothing changes.
	events, same, err := Apply(m, Command{Type: CmdRemovePlayer, Player: author})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, m.PlayerCount(), same.PlayerCount())

	// Last member out clears the leader.
	_, m = mustApply(t, m, Command{Type: CmdRemovePlayer, Player: third})
	assert.Empty(t, m.Team1.Players)
	assert.Empty(t, m.Team1.LeaderID)
	assertLeadersAreMembers(t, m)
}

func TestShufflePlayers_SplitsEvenly(t *testing.T) {
	f := gofakeit.New(5)
	cases := []struct {
		name      string
		players   int
		wantTeam1 int
		wantTeam2 int
	}{
		{"even", 10, 5, 5},
		{"odd", 7, 3, 4},
		{"pair", 2, 1, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMatch(NewMatchParams{Author: fakePlayer(f), Config: newConfig(t, FormatBO1)})
			require.NoError(t, err)
			for i := 1; i < tc.players; i++ {
				_, m = mustApply(t, m, Command{Type: CmdAddPlayer, Player: fakePlayer(f)})
			}

			_, m = mustApply(t, m, Command{Type: CmdShufflePlayers})
			assert.Equal(t, tc.wantTeam1, m.Team1.Size())
			assert.Equal(t, tc.wantTeam2, m.Team2.Size())
			assert.Equal(t, m.Team1.Players[0].ID, m.Team1.LeaderID)
			assert.Equal(t, m.Team2.Players[0].ID, m.Team2.LeaderID)
			assert.Equal(t, tc.players, m.PlayerCount())
			assertLeadersAreMembers(t, m)
		})
	}
}

func TestShufflePlayers_LockedAfterStart(t *testing.T) {
	m, _, _ := newTwoTeamMatch(t, newConfig(t, FormatBO1))
	_, m = mustApply(t, m, Command{Type: CmdStartMatch})
	_, _, err := Apply(m, Command{Type: CmdShufflePlayers})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

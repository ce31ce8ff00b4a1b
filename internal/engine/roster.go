package engine

import (
	"fmt"
	"slices"
)

func addPlayer(m *Match, p Player) ([]Event, error) {
	// Tie goes to team1.
	slot := SlotTeam1
	if m.Team2.Size() < m.Team1.Size() {
		slot = SlotTeam2
	}
	if err := addToTeam(m, slot, p); err != nil {
		return nil, err
	}
	return []Event{{Type: EvtPlayerJoined, Slot: slot, TeamID: m.Team(slot).ID, PlayerID: p.ID}}, nil
}

func addToTeam(m *Match, slot Slot, p Player) error {
	if m.Status != StatusCreated {
		return fmt.Errorf("%w: roster is locked while %s", ErrInvalidTransition, m.Status)
	}
	if p.ID == "" {
		return fmt.Errorf("%w: player id is required", ErrValidation)
	}
	if _, ok := m.SlotOf(p.ID); ok {
		return fmt.Errorf("%w: player %s already in match", ErrValidation, p.ID)
	}
	if limit := m.Config.MaxPlayers; limit > 0 && m.PlayerCount() >= limit {
		return fmt.Errorf("%w: match is full (%d players)", ErrValidation, limit)
	}
	team := m.Team(slot)
	team.Players = append(team.Players, p)
	if team.LeaderID == "" {
		team.LeaderID = p.ID
	}
	return nil
}

// removePlayer takes the player off whichever team holds them. A player in
// neither team is not an error; no events are returned.
func removePlayer(m *Match, playerID string) ([]Event, error) {
	if m.Status != StatusCreated {
		return nil, fmt.Errorf("%w: roster is locked while %s", ErrInvalidTransition, m.Status)
	}
	slot, ok := m.SlotOf(playerID)
	if !ok {
		return nil, nil
	}
	team := m.Team(slot)
	team.Players = slices.DeleteFunc(team.Players, func(p Player) bool { return p.ID == playerID })
	if team.LeaderID == playerID {
		team.LeaderID = ""
		if len(team.Players) > 0 {
			team.LeaderID = team.Players[0].ID
		}
	}
	return []Event{{Type: EvtPlayerLeft, Slot: slot, TeamID: team.ID, PlayerID: playerID}}, nil
}

// shufflePlayers pools both rosters, shuffles them and splits the result in half;
// team2 takes the extra player on an odd count. Each team's first member leads.
func shufflePlayers(m *Match) []Event {
	players := make([]Player, 0, m.PlayerCount())
	players = append(players, m.Team1.Players...)
	players = append(players, m.Team2.Players...)
	shuffle(players)

	mid := len(players) / 2
	assign := func(t *Team, members []Player) {
		t.Players = slices.Clone(members)
		t.LeaderID = ""
		if len(members) > 0 {
			t.LeaderID = members[0].ID
		}
	}
	assign(m.Team1, players[:mid])
	assign(m.Team2, players[mid:])
	return []Event{{Type: EvtTeamsShuffled}}
}

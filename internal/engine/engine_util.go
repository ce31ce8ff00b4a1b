package engine

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
)

var now = func() time.Time { return time.Now().UTC() }

var newID = func() string { return uuid.NewString() }

// shuffle reorders players in place before they are split into two halves.
// Tests stub it to get a deterministic split.
var shuffle = func(players []Player) {
	rand.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
}

// Clone deep-copies a match so a command can be applied without touching the original.
func Clone(m Match) Match {
	c, err := copystructure.Copy(m)
	if err != nil {
		// Match holds only plain data; a copy failure is a programming error.
		panic(fmt.Sprintf("engine: clone match %s: %v", m.ID, err))
	}
	return c.(Match)
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

type NewMatchParams struct {
	ID       string
	Author   Player
	Config   MatchConfig
	Team1    []Player
	Team2    []Player
	Players  []Player
	CVars    map[string]string
	ServerID string
	GuildID  string
}

// NewMatch builds a match in CREATED state. Without explicit rosters the author
// becomes the first member and leader of team1 and team2 starts empty; extra
// players are then added to whichever team is smaller.
func NewMatch(p NewMatchParams) (Match, error) {
	if err := p.Config.Validate(); err != nil {
		return Match{}, err
	}
	if p.Author.ID == "" {
		return Match{}, fmt.Errorf("%w: match author is required", ErrValidation)
	}

	id := p.ID
	if id == "" {
		id = newID()
	}
	created := now()
	m := Match{
		ID:        id,
		Status:    StatusCreated,
		Config:    p.Config,
		Team1:     &Team{ID: newID(), Name: "Team 1", Players: []Player{}},
		Team2:     &Team{ID: newID(), Name: "Team 2", Players: []Player{}},
		MapBans:   []MapBan{},
		MapPicks:  []MapPick{},
		MapList:   []string{},
		CVars:     map[string]string{},
		ServerID:  p.ServerID,
		GuildID:   p.GuildID,
		AuthorID:  p.Author.ID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for k, v := range p.CVars {
		m.CVars[k] = v
	}

	if len(p.Team1) == 0 && len(p.Team2) == 0 {
		if _, err := addPlayer(&m, p.Author); err != nil {
			return Match{}, err
		}
	} else {
		for _, slot := range []Slot{SlotTeam1, SlotTeam2} {
			roster := p.Team1
			if slot == SlotTeam2 {
				roster = p.Team2
			}
			for _, pl := range roster {
				if err := addToTeam(&m, slot, pl); err != nil {
					return Match{}, err
				}
			}
		}
	}
	for _, pl := range p.Players {
		if _, ok := m.SlotOf(pl.ID); ok {
			continue
		}
		if _, err := addPlayer(&m, pl); err != nil {
			return Match{}, err
		}
	}

	if err := m.Check(); err != nil {
		return Match{}, err
	}
	return m, nil
}

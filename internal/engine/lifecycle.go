package engine

import (
	"fmt"
)

type GameEventKind string

const (
	GameSeriesStart GameEventKind = "series_start"
	GameSeriesEnd   GameEventKind = "series_end"
	GameMapResult   GameEventKind = "map_result"
	GameSidePicked  GameEventKind = "side_picked"
	GameMapPicked   GameEventKind = "map_picked"
	GameMapVetoed   GameEventKind = "map_vetoed"
	GameGoingLive   GameEventKind = "going_live"
	GameRoundEnd    GameEventKind = "round_end"
)

// GameEvent is a validated callback from the game server.
type GameEvent struct {
	Kind        GameEventKind
	MatchID     string
	MapNumber   int
	RoundNumber int

	Team1 TeamScore
	Team2 TeamScore

	Team1SeriesScore int
	Team2SeriesScore int
	WinnerSlot       Slot
	WinnerSide       string
	TimeUntilRestore int

	// side_picked, map_picked, map_vetoed
	Team    string
	Side    string
	MapName string
}

func startMatch(m *Match) ([]Event, error) {
	if m.Status != StatusCreated {
		return nil, fmt.Errorf("%w: cannot start a match that is %s", ErrInvalidTransition, m.Status)
	}
	if m.Team1.Size() == 0 || m.Team2.Size() == 0 {
		return nil, fmt.Errorf("%w: both teams need at least one player to start", ErrInvalidTransition)
	}

	var events []Event
	if m.Config.ShuffleTeams {
		events = append(events, shufflePlayers(m)...)
	}
	for _, slot := range []Slot{SlotTeam1, SlotTeam2} {
		team := m.Team(slot)
		leader, ok := team.Leader()
		if !ok {
			return nil, fmt.Errorf("%w: %s has no leader", ErrValidation, slot)
		}
		team.Name = "team_" + leader.Handle()
	}
	m.Status = StatusStarted
	events = append(events,
		Event{Type: EvtTeamsRenamed},
		Event{Type: EvtMatchStarted, Status: StatusStarted},
	)
	return events, nil
}

func cancelMatch(m *Match) ([]Event, error) {
	if m.Status.Terminal() {
		return nil, fmt.Errorf("%w: match is already %s", ErrInvalidTransition, m.Status)
	}
	m.Status = StatusCancelled
	return []Event{{Type: EvtMatchCancelled, Status: StatusCancelled}}, nil
}

func applyGameEvent(m *Match, ev GameEvent) ([]Event, error) {
	if ev.MatchID != "" && ev.MatchID != m.ID {
		return nil, fmt.Errorf("%w: event for match %s applied to %s", ErrValidation, ev.MatchID, m.ID)
	}

	switch ev.Kind {
	case GameSeriesStart:
		switch m.Status {
		case StatusLoaded:
			return nil, nil
		case StatusStarted:
			m.Status = StatusLoaded
			return []Event{{Type: EvtMatchLoaded, Status: StatusLoaded}}, nil
		}
		return nil, fmt.Errorf("%w: series_start while %s", ErrInvalidTransition, m.Status)

	case GameGoingLive:
		if ev.MapNumber < 0 || ev.MapNumber >= m.Config.Format.RequiredMaps() {
			return nil, fmt.Errorf("%w: map number %d out of range", ErrValidation, ev.MapNumber)
		}
		switch {
		case m.Status == StatusLoaded:
		case m.Status == StatusLive && ev.MapNumber > m.CurrentMap:
		case m.Status == StatusLive && ev.MapNumber == m.CurrentMap:
			return nil, nil
		default:
			return nil, fmt.Errorf("%w: going_live for map %d while %s", ErrInvalidTransition, ev.MapNumber, m.Status)
		}
		m.Status = StatusLive
		m.CurrentMap = ev.MapNumber
		m.CurrentRound = 0
		return []Event{{Type: EvtMatchLive, MapNumber: ev.MapNumber, Status: StatusLive}}, nil

	case GameSeriesEnd:
		switch m.Status {
		case StatusFinished:
			// Duplicate delivery; the recorded winner stands.
			return nil, nil
		case StatusLive:
		default:
			return nil, fmt.Errorf("%w: series_end while %s", ErrInvalidTransition, m.Status)
		}
		if ev.WinnerSlot != SlotTeam1 && ev.WinnerSlot != SlotTeam2 {
			return nil, fmt.Errorf("%w: unknown winner %q", ErrValidation, ev.WinnerSlot)
		}
		winner := m.Team(ev.WinnerSlot)
		if winner == nil {
			return nil, fmt.Errorf("%w: winner %q has no team", ErrValidation, ev.WinnerSlot)
		}
		m.Status = StatusFinished
		m.WinnerTeamID = winner.ID
		m.Team1SeriesScore = ev.Team1SeriesScore
		m.Team2SeriesScore = ev.Team2SeriesScore
		return []Event{{Type: EvtMatchFinished, Slot: ev.WinnerSlot, TeamID: winner.ID, Status: StatusFinished}}, nil

	case GameMapResult:
		if m.Status != StatusLive {
			return nil, fmt.Errorf("%w: map_result while %s", ErrInvalidTransition, m.Status)
		}
		if ev.MapNumber < 0 || ev.MapNumber >= m.Config.Format.RequiredMaps() {
			return nil, fmt.Errorf("%w: map number %d out of range", ErrValidation, ev.MapNumber)
		}
		res := MapResult{
			MapNumber:  ev.MapNumber,
			Team1:      ev.Team1,
			Team2:      ev.Team2,
			WinnerSlot: ev.WinnerSlot,
			WinnerSide: ev.WinnerSide,
		}
		replaced := false
		for i := range m.MapResults {
			if m.MapResults[i].MapNumber == ev.MapNumber {
				m.MapResults[i] = res
				replaced = true
			}
		}
		if !replaced {
			m.MapResults = append(m.MapResults, res)
		}
		m.Team1SeriesScore = ev.Team1SeriesScore
		m.Team2SeriesScore = ev.Team2SeriesScore
		return []Event{{Type: EvtMapFinished, Slot: ev.WinnerSlot, MapNumber: ev.MapNumber, Status: m.Status}}, nil

	case GameRoundEnd:
		if m.Status != StatusLive {
			return nil, fmt.Errorf("%w: round_end while %s", ErrInvalidTransition, m.Status)
		}
		if ev.MapNumber != m.CurrentMap {
			return nil, fmt.Errorf("%w: round_end for map %d while map %d is live", ErrInvalidTransition, ev.MapNumber, m.CurrentMap)
		}
		if ev.RoundNumber <= m.CurrentRound {
			return nil, nil
		}
		m.CurrentRound = ev.RoundNumber
		return []Event{{Type: EvtRoundEnded, MapNumber: ev.MapNumber, Status: m.Status}}, nil

	case GameSidePicked, GameMapPicked, GameMapVetoed:
		if m.Status.Terminal() {
			return nil, fmt.Errorf("%w: %s while %s", ErrInvalidTransition, ev.Kind, m.Status)
		}
		m.Timeline = append(m.Timeline, TimelineEntry{
			Kind:      string(ev.Kind),
			MapNumber: ev.MapNumber,
			Detail:    timelineDetail(ev),
			At:        now(),
		})
		return []Event{{Type: EvtGameInfo, MapNumber: ev.MapNumber, MapTag: ev.MapName, Status: m.Status}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnrecognizedEvent, ev.Kind)
}

func timelineDetail(ev GameEvent) string {
	switch ev.Kind {
	case GameSidePicked:
		return fmt.Sprintf("%s picked %s", ev.Team, ev.Side)
	case GameMapPicked:
		return fmt.Sprintf("%s picked %s", ev.Team, ev.MapName)
	default:
		return fmt.Sprintf("%s vetoed %s", ev.Team, ev.MapName)
	}
}

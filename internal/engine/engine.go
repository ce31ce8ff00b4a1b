package engine

import (
	"fmt"
)

type CommandType string

const (
	CmdBanMap         CommandType = "BanMap"
	CmdPickMap        CommandType = "PickMap"
	CmdAddPlayer      CommandType = "AddPlayer"
	CmdRemovePlayer   CommandType = "RemovePlayer"
	CmdShufflePlayers CommandType = "ShufflePlayers"
	CmdStartMatch     CommandType = "StartMatch"
	CmdCancelMatch    CommandType = "CancelMatch"
	CmdAssignServer   CommandType = "AssignServer"
	CmdMergeCVars     CommandType = "MergeCVars"
	CmdGameEvent      CommandType = "GameEvent"
)

/*
	CmdBanMap         -> EvtMapBanned -> EvtTurnAdvanced (-> EvtMapAutoSelected -> EvtVetoCompleted)
	CmdPickMap        -> EvtMapPicked -> EvtTurnAdvanced (-> EvtVetoCompleted)
	CmdAddPlayer      -> EvtPlayerJoined
	CmdRemovePlayer   -> EvtPlayerLeft, or nothing when the player is not in the match
	CmdShufflePlayers -> EvtTeamsShuffled
	CmdStartMatch     -> (EvtTeamsShuffled) -> EvtTeamsRenamed -> EvtMatchStarted (-> EvtCVarsUpdated)
	CmdCancelMatch    -> EvtMatchCancelled
	CmdAssignServer   -> EvtServerAssigned
	CmdMergeCVars     -> EvtCVarsUpdated
	CmdGameEvent      -> one of EvtMatchLoaded, EvtMatchLive, EvtMapFinished, EvtRoundEnded,
	                     EvtMatchFinished, EvtGameInfo; nothing for a duplicate delivery
*/

type Command struct {
	Type     CommandType
	ActorID  string
	MapTag   string
	Player   Player
	ServerID string
	CVars    map[string]string
	Game     *GameEvent
}

type EventType string

const (
	EvtMapBanned       EventType = "MapBanned"
	EvtMapPicked       EventType = "MapPicked"
	EvtMapAutoSelected EventType = "MapAutoSelected"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtVetoCompleted   EventType = "VetoCompleted"
	EvtPlayerJoined    EventType = "PlayerJoined"
	EvtPlayerLeft      EventType = "PlayerLeft"
	EvtTeamsShuffled   EventType = "TeamsShuffled"
	EvtTeamsRenamed    EventType = "TeamsRenamed"
	EvtMatchStarted    EventType = "MatchStarted"
	EvtServerAssigned  EventType = "ServerAssigned"
	EvtCVarsUpdated    EventType = "CVarsUpdated"
	EvtMatchLoaded     EventType = "MatchLoaded"
	EvtMatchLive       EventType = "MatchLive"
	EvtMapFinished     EventType = "MapFinished"
	EvtRoundEnded      EventType = "RoundEnded"
	EvtMatchFinished   EventType = "MatchFinished"
	EvtMatchCancelled  EventType = "MatchCancelled"
	EvtGameInfo        EventType = "GameInfo"
)

type Event struct {
	Type      EventType `json:"type"`
	MatchID   string    `json:"match_id"`
	Slot      Slot      `json:"slot,omitempty"`
	TeamID    string    `json:"team_id,omitempty"`
	MapTag    string    `json:"map_tag,omitempty"`
	PlayerID  string    `json:"player_id,omitempty"`
	MapNumber int       `json:"map_number,omitempty"`
	Status    Status    `json:"status,omitempty"`
}

// Apply runs cmd against m. On error the returned match is m, untouched. An empty
// event list with a nil error means the command was accepted but changed nothing.
func Apply(m Match, cmd Command) ([]Event, Match, error) {
	next := Clone(m)

	var (
		events []Event
		err    error
	)
	switch cmd.Type {
	case CmdBanMap, CmdPickMap:
		events, err = applyVeto(&next, cmd)
	case CmdAddPlayer:
		events, err = addPlayer(&next, cmd.Player)
	case CmdRemovePlayer:
		events, err = removePlayer(&next, cmd.Player.ID)
	case CmdShufflePlayers:
		if next.Status != StatusCreated {
			return nil, m, fmt.Errorf("%w: cannot shuffle teams while %s", ErrInvalidTransition, next.Status)
		}
		events = shufflePlayers(&next)
	case CmdStartMatch:
		events, err = startMatch(&next)
		if err == nil && len(cmd.CVars) > 0 {
			var merged []Event
			merged, err = mergeCVars(&next, cmd.CVars)
			events = append(events, merged...)
		}
	case CmdCancelMatch:
		events, err = cancelMatch(&next)
	case CmdAssignServer:
		events, err = assignServer(&next, cmd.ServerID)
	case CmdMergeCVars:
		events, err = mergeCVars(&next, cmd.CVars)
	case CmdGameEvent:
		if cmd.Game == nil {
			return nil, m, fmt.Errorf("%w: game event command without payload", ErrValidation)
		}
		events, err = applyGameEvent(&next, *cmd.Game)
	default:
		return nil, m, ErrUnsupportedCommand
	}
	if err != nil {
		return nil, m, err
	}
	if len(events) == 0 {
		return nil, m, nil
	}
	if err := next.Check(); err != nil {
		return nil, m, err
	}

	next.UpdatedAt = now()
	for i := range events {
		events[i].MatchID = next.ID
	}
	return events, next, nil
}

func assignServer(m *Match, serverID string) ([]Event, error) {
	if serverID == "" {
		return nil, fmt.Errorf("%w: server id is required", ErrValidation)
	}
	if m.Status != StatusCreated && m.Status != StatusStarted {
		return nil, fmt.Errorf("%w: cannot assign a server while %s", ErrInvalidTransition, m.Status)
	}
	if m.ServerID == serverID {
		return nil, nil
	}
	m.ServerID = serverID
	return []Event{{Type: EvtServerAssigned, Status: m.Status}}, nil
}

func mergeCVars(m *Match, cvars map[string]string) ([]Event, error) {
	if m.Status.Terminal() {
		return nil, fmt.Errorf("%w: match is %s", ErrInvalidTransition, m.Status)
	}
	changed := false
	for k, v := range cvars {
		if k == "" {
			return nil, fmt.Errorf("%w: empty server variable name", ErrValidation)
		}
		if cur, ok := m.CVars[k]; ok && cur == v {
			continue
		}
		if m.CVars == nil {
			m.CVars = map[string]string{}
		}
		m.CVars[k] = v
		changed = true
	}
	if !changed {
		return nil, nil
	}
	return []Event{{Type: EvtCVarsUpdated}}, nil
}

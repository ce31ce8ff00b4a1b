package engine

import (
	"fmt"
	"slices"
)

// VetoStatus summarizes where a match's veto stands.
type VetoStatus struct {
	Done       bool     `json:"done"`
	NextSlot   Slot     `json:"next_slot,omitempty"`
	NextAction Action   `json:"next_action,omitempty"`
	Remaining  []string `json:"remaining"`
	Bans       int      `json:"bans"`
	Picks      int      `json:"picks"`
}

func Veto(m Match) (VetoStatus, error) {
	step, done, err := currentStep(m)
	if err != nil {
		return VetoStatus{}, err
	}
	vs := VetoStatus{
		Done:      done,
		Remaining: unresolvedMaps(m),
		Bans:      len(m.MapBans),
		Picks:     len(m.MapPicks),
	}
	if !done {
		vs.NextSlot = step.Slot
		vs.NextAction = step.Action
	}
	return vs, nil
}

func applyVeto(m *Match, cmd Command) ([]Event, error) {
	if m.Status != StatusCreated && m.Status != StatusStarted {
		return nil, fmt.Errorf("%w: veto is closed while %s", ErrInvalidTransition, m.Status)
	}
	if m.Team1 == nil || m.Team2 == nil {
		return nil, fmt.Errorf("%w: both teams must exist before the veto", ErrInvalidTransition)
	}
	slot, ok := m.SlotOf(cmd.ActorID)
	if !ok {
		return nil, fmt.Errorf("%w: player %s is not in match %s", ErrNotFound, cmd.ActorID, m.ID)
	}
	if cmd.Type == CmdPickMap {
		return pickMap(m, slot, cmd.MapTag)
	}
	return banMap(m, slot, cmd.MapTag)
}

// checkTurn verifies that slot may take action now and that tag can still be vetoed.
func checkTurn(m *Match, slot Slot, action Action, tag string) (Map, error) {
	step, done, err := currentStep(*m)
	if err != nil {
		return Map{}, err
	}
	if done {
		return Map{}, fmt.Errorf("%w: veto already complete", ErrInvalidTurn)
	}
	if step.Slot != slot || step.Action != action {
		return Map{}, fmt.Errorf("%w: %s cannot %s now, %s must %s", ErrInvalidTurn, slot, action, step.Slot, step.Action)
	}
	if isResolved(*m, tag) {
		return Map{}, fmt.Errorf("%w: %s", ErrMapAlreadyResolved, tag)
	}
	mp, ok := m.Config.MapPool.Lookup(tag)
	if !ok {
		return Map{}, fmt.Errorf("%w: %s is not in pool %s", ErrPoolMismatch, tag, m.Config.MapPool.Name)
	}
	return mp, nil
}

func banMap(m *Match, slot Slot, tag string) ([]Event, error) {
	mp, err := checkTurn(m, slot, ActionBan, tag)
	if err != nil {
		return nil, err
	}
	team := m.Team(slot)

	ban := MapBan{ID: newID(), TeamID: team.ID, MapID: mp.ID, MapTag: mp.Tag, CreatedAt: now()}
	m.MapBans = append(m.MapBans, ban)
	m.LastMapBanID = ban.ID

	events := []Event{
		{Type: EvtMapBanned, Slot: slot, TeamID: team.ID, MapTag: mp.Tag},
		{Type: EvtTurnAdvanced, Slot: slot.Other()},
	}

	required := m.Config.Format.RequiredMaps()
	if len(m.MapBans) == len(m.Config.MapPool.Maps)-required {
		// Tie-break: the first unresolved map in canonical pool order.
		if left := unresolvedMaps(*m); len(left) > 0 {
			m.MapList = append(m.MapList, left[0])
			events = append(events, Event{Type: EvtMapAutoSelected, MapTag: left[0]})
		}
	}
	return appendVetoCompleted(m, events), nil
}

func pickMap(m *Match, slot Slot, tag string) ([]Event, error) {
	mp, err := checkTurn(m, slot, ActionPick, tag)
	if err != nil {
		return nil, err
	}
	team := m.Team(slot)

	pick := MapPick{ID: newID(), TeamID: team.ID, MapID: mp.ID, MapTag: mp.Tag, CreatedAt: now()}
	m.MapPicks = append(m.MapPicks, pick)
	m.MapList = append(m.MapList, mp.Tag)
	m.LastMapPickID = pick.ID

	events := []Event{
		{Type: EvtMapPicked, Slot: slot, TeamID: team.ID, MapTag: mp.Tag},
		{Type: EvtTurnAdvanced, Slot: slot.Other()},
	}
	return appendVetoCompleted(m, events), nil
}

func appendVetoCompleted(m *Match, events []Event) []Event {
	if len(m.MapList) == m.Config.Format.RequiredMaps() {
		events = append(events, Event{Type: EvtVetoCompleted, Status: m.Status})
	}
	return events
}

func isResolved(m Match, tag string) bool {
	return slices.ContainsFunc(m.MapBans, func(b MapBan) bool { return b.MapTag == tag }) ||
		slices.ContainsFunc(m.MapPicks, func(p MapPick) bool { return p.MapTag == tag }) ||
		slices.Contains(m.MapList, tag)
}

// unresolvedMaps lists pool tags that were neither banned nor picked, in canonical order.
func unresolvedMaps(m Match) []string {
	left := []string{}
	for _, mp := range m.Config.MapPool.Maps {
		if !isResolved(m, mp.Tag) {
			left = append(left, mp.Tag)
		}
	}
	return left
}

// VetoComplete reports whether the map list holds every map the format needs.
func VetoComplete(m Match) bool {
	return len(m.MapList) == m.Config.Format.RequiredMaps()
}

// Package gameevents decodes the callbacks a MatchZy game server posts while a
// match is running.
package gameevents

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
)

// MatchID accepts both "42" and 42.
type MatchID string

func (id *MatchID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = MatchID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*id = MatchID(n.String())
		return nil
	}
	return fmt.Errorf("matchid must be a string or a number, got %s", data)
}

type envelope struct {
	Event   string  `json:"event"`
	MatchID MatchID `json:"matchid"`
}

type teamName struct {
	Name *string `json:"name"`
}

type winner struct {
	Side *string `json:"side"`
	Team *string `json:"team"`
}

type playerStats struct {
	SteamID *string        `json:"steamid"`
	Name    *string        `json:"name"`
	Stats   map[string]any `json:"stats"`
}

type teamResult struct {
	Name        *string       `json:"name"`
	SeriesScore *int          `json:"series_score"`
	Score       *int          `json:"score"`
	ScoreCT     *int          `json:"score_ct"`
	ScoreT      *int          `json:"score_t"`
	Players     []playerStats `json:"players"`
}

type seriesStart struct {
	NumMaps *int      `json:"num_maps"`
	Team1   *teamName `json:"team1"`
	Team2   *teamName `json:"team2"`
}

type seriesEnd struct {
	Team1SeriesScore *int    `json:"team1_series_score"`
	Team2SeriesScore *int    `json:"team2_series_score"`
	Winner           *winner `json:"winner"`
	TimeUntilRestore *int    `json:"time_until_restore"`
}

type mapResult struct {
	MapNumber *int        `json:"map_number"`
	Team1     *teamResult `json:"team1"`
	Team2     *teamResult `json:"team2"`
	Winner    *winner     `json:"winner"`
}

type goingLive struct {
	MapNumber *int `json:"map_number"`
}

type roundEnd struct {
	MapNumber   *int `json:"map_number"`
	RoundNumber *int `json:"round_number"`
}

type sidePicked struct {
	MapNumber *int    `json:"map_number"`
	Team      *string `json:"team"`
	Side      *string `json:"side"`
}

type mapChoice struct {
	MapNumber *int    `json:"map_number"`
	Team      *string `json:"team"`
	MapName   *string `json:"map_name"`
}

// Parse decodes and validates one callback body. Unknown kinds fail with
// engine.ErrUnrecognizedEvent, malformed payloads with engine.ErrValidation.
func Parse(body []byte) (engine.GameEvent, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return engine.GameEvent{}, fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	if env.Event == "" {
		return engine.GameEvent{}, fmt.Errorf("%w: event is required", engine.ErrValidation)
	}
	if env.MatchID == "" {
		return engine.GameEvent{}, fmt.Errorf("%w: matchid is required", engine.ErrValidation)
	}

	ev := engine.GameEvent{Kind: engine.GameEventKind(env.Event), MatchID: string(env.MatchID)}
	v := &validator{kind: env.Event}

	switch ev.Kind {
	case engine.GameSeriesStart:
		var p seriesStart
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		v.count("num_maps", p.NumMaps, 1)
		v.present("team1", p.Team1 != nil)
		v.present("team2", p.Team2 != nil)

	case engine.GameSeriesEnd:
		var p seriesEnd
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		ev.Team1SeriesScore = v.count("team1_series_score", p.Team1SeriesScore, 0)
		ev.Team2SeriesScore = v.count("team2_series_score", p.Team2SeriesScore, 0)
		ev.TimeUntilRestore = v.count("time_until_restore", p.TimeUntilRestore, 0)
		ev.WinnerSlot, ev.WinnerSide = v.winner(p.Winner)

	case engine.GameMapResult:
		var p mapResult
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		ev.MapNumber = v.count("map_number", p.MapNumber, 0)
		ev.Team1, ev.Team1SeriesScore = v.teamResult("team1", p.Team1)
		ev.Team2, ev.Team2SeriesScore = v.teamResult("team2", p.Team2)
		ev.WinnerSlot, ev.WinnerSide = v.winner(p.Winner)

	case engine.GameGoingLive:
		var p goingLive
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		ev.MapNumber = v.count("map_number", p.MapNumber, 0)

	case engine.GameRoundEnd:
		var p roundEnd
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		ev.MapNumber = v.count("map_number", p.MapNumber, 0)
		ev.RoundNumber = v.count("round_number", p.RoundNumber, 1)

	case engine.GameSidePicked:
		var p sidePicked
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		ev.MapNumber = v.count("map_number", p.MapNumber, 0)
		ev.Team = v.text("team", p.Team)
		ev.Side = v.text("side", p.Side)

	case engine.GameMapPicked, engine.GameMapVetoed:
		var p mapChoice
		if err := decode(body, &p); err != nil {
			return engine.GameEvent{}, err
		}
		if p.MapNumber != nil {
			ev.MapNumber = v.count("map_number", p.MapNumber, 0)
		}
		ev.Team = v.text("team", p.Team)
		ev.MapName = v.text("map_name", p.MapName)

	default:
		return engine.GameEvent{}, fmt.Errorf("%w: %q", engine.ErrUnrecognizedEvent, env.Event)
	}

	if err := v.err(); err != nil {
		return engine.GameEvent{}, err
	}
	return ev, nil
}

func decode(body []byte, into any) error {
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("%w: %v", engine.ErrValidation, err)
	}
	return nil
}

// validator collects every problem with a payload so one response names them all.
type validator struct {
	kind     string
	problems []string
}

func (v *validator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) present(field string, ok bool) {
	if !ok {
		v.fail("%s is required", field)
	}
}

func (v *validator) count(field string, n *int, floor int) int {
	if n == nil {
		v.fail("%s is required", field)
		return 0
	}
	if *n < floor {
		v.fail("%s must be at least %d", field, floor)
	}
	return *n
}

func (v *validator) text(field string, s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		v.fail("%s is required", field)
		return ""
	}
	return *s
}

func (v *validator) winner(w *winner) (engine.Slot, string) {
	if w == nil {
		v.fail("winner is required")
		return "", ""
	}
	side := v.text("winner.side", w.Side)
	team := engine.Slot(v.text("winner.team", w.Team))
	if team != "" && team != engine.SlotTeam1 && team != engine.SlotTeam2 {
		v.fail("winner.team must be team1 or team2, got %q", team)
	}
	return team, side
}

func (v *validator) teamResult(field string, t *teamResult) (engine.TeamScore, int) {
	if t == nil {
		v.fail("%s is required", field)
		return engine.TeamScore{}, 0
	}
	score := engine.TeamScore{
		Name:    v.text(field+".name", t.Name),
		Score:   v.count(field+".score", t.Score, 0),
		ScoreCT: v.count(field+".score_ct", t.ScoreCT, 0),
		ScoreT:  v.count(field+".score_t", t.ScoreT, 0),
	}
	series := v.count(field+".series_score", t.SeriesScore, 0)
	if t.Players == nil {
		v.fail("%s.players is required", field)
	}
	for i, p := range t.Players {
		prefix := fmt.Sprintf("%s.players[%d]", field, i)
		v.text(prefix+".steamid", p.SteamID)
		v.text(prefix+".name", p.Name)
		if p.Stats == nil {
			v.fail("%s.stats is required", prefix)
		}
	}
	return score, series
}

func (v *validator) err() error {
	if len(v.problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", engine.ErrValidation, v.kind, strings.Join(v.problems, "; "))
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/gameevents"
	"github.com/DoyleJ11/cs-match-backend/internal/serverconfig"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// busyStatuses are the states in which a match occupies its server.
var busyStatuses = []engine.Status{engine.StatusStarted, engine.StatusLoaded, engine.StatusLive}

// CreateMatch builds a match from a stored config plus the request's overrides.
// Teams are created here as part of the match, with the author leading team1
// unless explicit rosters are given.
func (s *Service) CreateMatch(ctx context.Context, req types.CreateMatchRequest) (m engine.Match, err error) {
	ctx, span := s.startSpan(ctx, "CreateMatch", "")
	defer func() {
		s.metrics.CommandApplied("CreateMatch", outcome(err))
		endSpan(span, err)
	}()

	cfg, err := s.store.GetConfig(ctx, req.ConfigID)
	if err != nil {
		return engine.Match{}, err
	}
	if cfg, err = overrideConfig(cfg, req); err != nil {
		return engine.Match{}, err
	}

	author, err := s.player(ctx, req.AuthorID)
	if err != nil {
		return engine.Match{}, err
	}
	players, err := s.resolvePlayers(ctx, req.DiscordUsersIDs)
	if err != nil {
		return engine.Match{}, err
	}
	team1, err := s.resolvePlayers(ctx, req.Team1)
	if err != nil {
		return engine.Match{}, err
	}
	team2, err := s.resolvePlayers(ctx, req.Team2)
	if err != nil {
		return engine.Match{}, err
	}

	if req.ServerID != "" {
		if err := s.checkServerAvailable(ctx, req.ServerID, ""); err != nil {
			return engine.Match{}, err
		}
	}

	m, err = engine.NewMatch(engine.NewMatchParams{
		Author:   author,
		Config:   cfg,
		Team1:    team1,
		Team2:    team2,
		Players:  players,
		CVars:    req.CVars,
		ServerID: req.ServerID,
		GuildID:  req.GuildID,
	})
	if err != nil {
		return engine.Match{}, err
	}
	span.SetAttributes(attribute.String("match.id", m.ID))

	m, err = s.store.CreateMatch(ctx, m)
	if err != nil {
		return engine.Match{}, err
	}
	s.hub.Ensure(ctx, m)
	s.metrics.MatchTransition(string(m.Status))
	s.log.Info("match created",
		zap.String("match_id", m.ID),
		zap.String("config", cfg.Name),
		zap.String("format", string(cfg.Format)),
		zap.Int("players", m.PlayerCount()),
	)
	return m, nil
}

func overrideConfig(cfg engine.MatchConfig, req types.CreateMatchRequest) (engine.MatchConfig, error) {
	if req.MatchType != "" {
		format, err := engine.ParseFormat(req.MatchType)
		if err != nil {
			return engine.MatchConfig{}, err
		}
		if format != cfg.Format {
			// The stored sequence was written for the old map count.
			cfg.VetoSequence = nil
		}
		cfg.Format = format
	}
	if req.ClinchSeries != nil {
		cfg.ClinchSeries = *req.ClinchSeries
	}
	if len(req.MapSides) > 0 {
		sides, err := parseSides(req.MapSides)
		if err != nil {
			return engine.MatchConfig{}, err
		}
		cfg.MapSides = sides
	}
	return cfg, nil
}

func (s *Service) resolvePlayers(ctx context.Context, discordIDs []string) ([]engine.Player, error) {
	players := make([]engine.Player, 0, len(discordIDs))
	for _, id := range discordIDs {
		p, err := s.player(ctx, id)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

// player resolves a discord user who can be put on a team. The game server
// only admits steam ids, so players without one are refused.
func (s *Service) player(ctx context.Context, discordID string) (engine.Player, error) {
	p, err := s.store.PlayerByDiscordID(ctx, discordID)
	if err != nil {
		return engine.Player{}, err
	}
	if p.SteamID == "" {
		return engine.Player{}, fmt.Errorf("%w: player %s has no connected steam account", engine.ErrValidation, discordID)
	}
	return p, nil
}

// Ban bans a map for the team of the interacting user.
func (s *Service) Ban(ctx context.Context, matchID string, req types.VetoRequest) (types.BanResult, error) {
	res, err := s.veto(ctx, matchID, engine.CmdBanMap, req)
	if err != nil {
		return types.BanResult{}, err
	}
	vs, leader := s.nextTurn(res)
	return types.BanResult{
		BannedMap:         req.MapTag,
		NextBanTeamLeader: leader,
		MapsLeft:          vs.Remaining,
		MapBansCount:      vs.Bans,
	}, nil
}

// Pick picks a map for the team of the interacting user.
func (s *Service) Pick(ctx context.Context, matchID string, req types.VetoRequest) (types.PickResult, error) {
	res, err := s.veto(ctx, matchID, engine.CmdPickMap, req)
	if err != nil {
		return types.PickResult{}, err
	}
	vs, leader := s.nextTurn(res)
	return types.PickResult{
		PickedMap:          req.MapTag,
		NextPickTeamLeader: leader,
		MapsLeft:           vs.Remaining,
		MapPicksCount:      vs.Picks,
	}, nil
}

func (s *Service) veto(ctx context.Context, matchID string, cmdType engine.CommandType, req types.VetoRequest) (engine.Match, error) {
	if req.MapTag == "" {
		return engine.Match{}, fmt.Errorf("%w: map_tag is required", engine.ErrValidation)
	}
	actor, err := s.store.PlayerByDiscordID(ctx, req.InteractionUserID)
	if err != nil {
		return engine.Match{}, err
	}
	res, err := s.apply(ctx, matchID, engine.Command{Type: cmdType, ActorID: actor.ID, MapTag: req.MapTag})
	if err != nil {
		return engine.Match{}, err
	}
	return res.Match, nil
}

// nextTurn reports the veto state after a ban or pick and the discord id of
// the leader whose team acts next, empty once the veto is done.
func (s *Service) nextTurn(m engine.Match) (engine.VetoStatus, string) {
	vs, err := engine.Veto(m)
	if err != nil || vs.Done {
		return vs, ""
	}
	leader, ok := m.Team(vs.NextSlot).Leader()
	if !ok {
		return vs, ""
	}
	if leader.DiscordID != "" {
		return vs, leader.DiscordID
	}
	return vs, leader.ID
}

func (s *Service) Join(ctx context.Context, matchID, discordID string) (engine.Match, error) {
	p, err := s.player(ctx, discordID)
	if err != nil {
		return engine.Match{}, err
	}
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdAddPlayer, Player: p})
	return res.Match, err
}

// Leave takes a player off the match. A player who is in neither team gets
// ErrNotFound and the match is left as it was.
func (s *Service) Leave(ctx context.Context, matchID, discordID string) (engine.Match, error) {
	p, err := s.store.PlayerByDiscordID(ctx, discordID)
	if err != nil {
		return engine.Match{}, err
	}
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdRemovePlayer, Player: p})
	if err != nil {
		return res.Match, err
	}
	if len(res.Events) == 0 {
		return res.Match, fmt.Errorf("%w: player %s is not in match %s", engine.ErrNotFound, discordID, matchID)
	}
	return res.Match, nil
}

func (s *Service) Shuffle(ctx context.Context, matchID string) (engine.Match, error) {
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdShufflePlayers})
	return res.Match, err
}

// Start starts the match and points the game server's event log at this API.
func (s *Service) Start(ctx context.Context, matchID string) (engine.Match, error) {
	cvars := serverconfig.WebhookCVars(serverconfig.EventsURL(s.baseURL, matchID), s.secret)
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdStartMatch, CVars: cvars})
	return res.Match, err
}

func (s *Service) Cancel(ctx context.Context, matchID string) (engine.Match, error) {
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdCancelMatch})
	return res.Match, err
}

func (s *Service) MergeCVars(ctx context.Context, matchID string, cvars map[string]string) (engine.Match, error) {
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdMergeCVars, CVars: cvars})
	return res.Match, err
}

// AssignServer puts the match on a server no other running match occupies.
func (s *Service) AssignServer(ctx context.Context, matchID, serverID string) (engine.Match, error) {
	if serverID == "" {
		return engine.Match{}, fmt.Errorf("%w: server_id is required", engine.ErrValidation)
	}
	if err := s.checkServerAvailable(ctx, serverID, matchID); err != nil {
		return engine.Match{}, err
	}
	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdAssignServer, ServerID: serverID})
	return res.Match, err
}

func (s *Service) checkServerAvailable(ctx context.Context, serverID, matchID string) error {
	if _, err := s.store.GetServer(ctx, serverID); err != nil {
		return err
	}
	busy, err := s.store.ListMatches(ctx, store.MatchFilter{ServerID: serverID, Statuses: busyStatuses})
	if err != nil {
		return err
	}
	for _, other := range busy {
		if other.ID != matchID {
			return fmt.Errorf("%w: server %s is in use by match %s", engine.ErrInvalidTransition, serverID, other.ID)
		}
	}
	return nil
}

// IngestEvent applies one game server callback to the match.
func (s *Service) IngestEvent(ctx context.Context, matchID string, body []byte) (engine.Match, error) {
	ev, err := gameevents.Parse(body)
	if err != nil {
		s.metrics.GameEventReceived("invalid", outcome(err))
		s.log.Warn("rejected game event", zap.String("match_id", matchID), zap.Error(err))
		return engine.Match{}, err
	}
	if ev.MatchID != matchID {
		err := fmt.Errorf("%w: event for match %s posted to match %s", engine.ErrValidation, ev.MatchID, matchID)
		s.metrics.GameEventReceived(string(ev.Kind), outcome(err))
		return engine.Match{}, err
	}

	res, err := s.apply(ctx, matchID, engine.Command{Type: engine.CmdGameEvent, Game: &ev})
	s.metrics.GameEventReceived(string(ev.Kind), outcome(err))
	if err != nil {
		return engine.Match{}, err
	}
	if len(res.Events) == 0 {
		s.log.Info("duplicate game event ignored", zap.String("match_id", matchID), zap.String("event", string(ev.Kind)))
	}
	return res.Match, nil
}

// Config projects the match into the file the game server loads.
func (s *Service) Config(ctx context.Context, matchID string) (serverconfig.ServerConfig, error) {
	m, err := s.Get(ctx, matchID)
	if err != nil {
		return serverconfig.ServerConfig{}, err
	}
	return serverconfig.Project(m), nil
}

// PushConfig sends the match config to the match's server.
func (s *Service) PushConfig(ctx context.Context, matchID string) (err error) {
	ctx, span := s.startSpan(ctx, "PushConfig", matchID)
	defer func() { endSpan(span, err) }()

	m, err := s.Get(ctx, matchID)
	if err != nil {
		return err
	}
	if m.ServerID == "" {
		return fmt.Errorf("%w: match %s has no server", engine.ErrInvalidTransition, matchID)
	}
	if !engine.VetoComplete(m) {
		return fmt.Errorf("%w: veto of match %s is not complete", engine.ErrInvalidTransition, matchID)
	}
	if s.pusher == nil {
		return fmt.Errorf("%w: config push is disabled", ErrUnavailable)
	}
	srv, err := s.store.GetServer(ctx, m.ServerID)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("server.id", srv.ID))

	start := time.Now()
	err = s.pusher.Push(ctx, srv, serverconfig.Project(m))
	s.metrics.ConfigPushed(outcome(err), time.Since(start))
	return err
}

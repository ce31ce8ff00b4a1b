// Package service runs match operations against the per-match lobbies and the
// store, and shapes their results for the HTTP and websocket layers.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/hub"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/metrics"
	"github.com/DoyleJ11/cs-match-backend/internal/serverconfig"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/DoyleJ11/cs-match-backend/internal/service"

// ErrUnavailable is returned once the hub has stopped.
var ErrUnavailable = errors.New("match service unavailable")

// ConfigPusher delivers a projected config to a game server.
type ConfigPusher interface {
	Push(ctx context.Context, srv engine.Server, cfg serverconfig.ServerConfig) error
}

type Options struct {
	Store   store.Store
	Hub     *hub.Hub
	Pusher  ConfigPusher
	Metrics metrics.Metrics
	Logger  *zap.Logger
	Tracer  trace.Tracer

	// PublicBaseURL is the address game servers use to reach this API.
	PublicBaseURL string
	WebhookSecret string
}

type Service struct {
	store   store.Store
	hub     *hub.Hub
	pusher  ConfigPusher
	metrics metrics.Metrics
	log     *zap.Logger
	tracer  trace.Tracer

	baseURL string
	secret  string
}

func New(opts Options) *Service {
	s := &Service{
		store:   opts.Store,
		hub:     opts.Hub,
		pusher:  opts.Pusher,
		metrics: opts.Metrics,
		log:     opts.Logger,
		tracer:  opts.Tracer,
		baseURL: opts.PublicBaseURL,
		secret:  opts.WebhookSecret,
	}
	if s.metrics == nil {
		s.metrics = metrics.Noop()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

func (s *Service) startSpan(ctx context.Context, op, matchID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "MatchService."+op, trace.WithAttributes(attribute.String("match.id", matchID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lobbyFor returns the running lobby of a match, loading the match when no
// lobby holds it yet.
func (s *Service) lobbyFor(ctx context.Context, matchID string) (*lobby.Lobby, error) {
	if lb := s.hub.Get(ctx, matchID); lb != nil {
		return lb, nil
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	lb := s.hub.Ensure(ctx, m)
	if lb == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: no lobby for match %s", ErrUnavailable, matchID)
	}
	return lb, nil
}

// Lobby returns the lobby of a running match for snapshot subscribers.
func (s *Service) Lobby(ctx context.Context, matchID string) (*lobby.Lobby, error) {
	lb, err := s.lobbyFor(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if status := lb.Snapshot().Match.Status; status.Terminal() {
		s.hub.Remove(ctx, matchID)
		return nil, fmt.Errorf("%w: match %s is %s", engine.ErrInvalidTransition, matchID, status)
	}
	return lb, nil
}

// apply runs cmd in the match's lobby.
func (s *Service) apply(ctx context.Context, matchID string, cmd engine.Command) (lobby.Result, error) {
	ctx, span := s.startSpan(ctx, string(cmd.Type), matchID)
	span.SetAttributes(attribute.String("command", string(cmd.Type)))

	res, err := s.do(ctx, matchID, cmd)
	s.metrics.CommandApplied(string(cmd.Type), outcome(err))
	endSpan(span, err)
	if err != nil {
		if outcome(err) == "error" {
			s.log.Error("apply command", zap.String("match_id", matchID), zap.String("command", string(cmd.Type)), zap.Error(err))
		}
		return res, err
	}
	if len(res.Events) > 0 {
		s.log.Debug("command applied",
			zap.String("match_id", matchID),
			zap.String("command", string(cmd.Type)),
			zap.Int("version", res.Match.Version),
			zap.Int("events", len(res.Events)),
		)
	}
	return res, nil
}

func (s *Service) do(ctx context.Context, matchID string, cmd engine.Command) (lobby.Result, error) {
	for attempt := 0; ; attempt++ {
		lb, err := s.lobbyFor(ctx, matchID)
		if err != nil {
			return lobby.Result{}, err
		}
		before := lb.Snapshot().Match.Status

		res := lb.Do(ctx, cmd)
		if errors.Is(res.Err, lobby.ErrClosed) && attempt == 0 {
			// Removed between lookup and send; a fresh lobby picks up the stored state.
			continue
		}
		if res.Err == nil && res.Match.Status != before {
			s.metrics.MatchTransition(string(res.Match.Status))
		}
		if res.Match.ID != "" && res.Match.Status.Terminal() {
			s.hub.Remove(ctx, matchID)
		}
		return res, res.Err
	}
}

// Get returns the latest committed state of a match.
func (s *Service) Get(ctx context.Context, matchID string) (engine.Match, error) {
	if lb := s.hub.Get(ctx, matchID); lb != nil {
		return lb.Snapshot().Match, nil
	}
	return s.store.GetMatch(ctx, matchID)
}

// Status reports how many matches hold a running lobby.
func (s *Service) Status(ctx context.Context) types.StatusResponse {
	return types.StatusResponse{ActiveMatches: s.hub.Count(ctx)}
}

// Presence reports the live subscriber count of a match. A match without a
// running lobby has no subscribers.
func (s *Service) Presence(ctx context.Context, matchID string) (types.Presence, error) {
	if lb := s.hub.Get(ctx, matchID); lb != nil {
		v, err := lb.State(ctx)
		if err == nil {
			return types.Presence{MatchID: matchID, Version: v.Version, Status: v.Match.Status, Subscribers: v.NumClients}, nil
		}
		if !errors.Is(err, lobby.ErrClosed) {
			return types.Presence{}, err
		}
	}
	m, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return types.Presence{}, err
	}
	return types.Presence{MatchID: matchID, Version: m.Version, Status: m.Status}, nil
}

func (s *Service) List(ctx context.Context, f store.MatchFilter) ([]engine.Match, error) {
	return s.store.ListMatches(ctx, f)
}

func (s *Service) Events(ctx context.Context, matchID string) ([]store.EventRecord, error) {
	return s.store.MatchEvents(ctx, matchID)
}

// View adds the veto state and the server commands to m.
func (s *Service) View(ctx context.Context, m engine.Match) types.MatchView {
	v := types.MatchView{
		Match:            m,
		LoadMatchCommand: serverconfig.LoadCommand(s.baseURL, m.ID),
	}
	if vs, err := engine.Veto(m); err == nil {
		v.Veto = vs
	}
	if m.ServerID != "" {
		srv, err := s.store.GetServer(ctx, m.ServerID)
		if err != nil {
			s.log.Warn("match references unknown server", zap.String("match_id", m.ID), zap.String("server_id", m.ServerID), zap.Error(err))
		} else {
			v.ConnectCommand = srv.ConnectCommand()
		}
	}
	return v
}

// outcome labels err for metrics: rejected requests are expected, errors are not.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsRejection(err):
		return "rejected"
	default:
		return "error"
	}
}

// IsRejection reports whether err is a domain rejection rather than a failure.
func IsRejection(err error) bool {
	for _, target := range []error{
		engine.ErrValidation,
		engine.ErrNotFound,
		engine.ErrInvalidTurn,
		engine.ErrMapAlreadyResolved,
		engine.ErrPoolMismatch,
		engine.ErrInvalidTransition,
		engine.ErrUnrecognizedEvent,
		store.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

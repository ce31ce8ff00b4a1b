package gameserver

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/cs-match-backend/internal/bus"
	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.uber.org/zap"
)

const pushHandlerName = "gameserver.push_config"

// Pusher sends the current config of a match to its game server.
type Pusher interface {
	PushConfig(ctx context.Context, matchID string) error
}

// ReadyToPush reports whether a change leaves the match ready to be loaded by
// its server for the first time, or moves it to another server.
func ReadyToPush(c bus.MatchChanged) bool {
	if c.Status != engine.StatusStarted || c.ServerID == "" || !c.VetoComplete {
		return false
	}
	return c.Has(engine.EvtMatchStarted) || c.Has(engine.EvtVetoCompleted) || c.Has(engine.EvtServerAssigned)
}

// NewRouter subscribes the config push handler to match changes. The caller runs it.
func NewRouter(sub message.Subscriber, pusher Pusher, logger watermill.LoggerAdapter, log *zap.Logger) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)
	router.AddNoPublisherHandler(pushHandlerName, bus.TopicMatchEvents, sub, PushHandler(pusher, log))
	return router, nil
}

// PushHandler pushes configs for ready matches. Push failures are logged and
// the message is still acked; the manual push endpoint can retry them.
func PushHandler(pusher Pusher, log *zap.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		change, err := bus.Decode(msg)
		if err != nil {
			log.Error("drop undecodable match change", zap.Error(err))
			return nil
		}
		if !ReadyToPush(change) {
			return nil
		}
		if err := pusher.PushConfig(msg.Context(), change.MatchID); err != nil {
			log.Warn("automatic config push failed",
				zap.String("match_id", change.MatchID),
				zap.String("server_id", change.ServerID),
				zap.Error(err),
			)
		}
		return nil
	}
}

package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// TopicMatchEvents carries one MatchChanged per committed match change.
const TopicMatchEvents = "match.events"

// MatchChanged is the payload published after a change has been persisted.
type MatchChanged struct {
	MatchID      string         `json:"match_id"`
	Version      int            `json:"version"`
	Status       engine.Status  `json:"status"`
	ServerID     string         `json:"server_id,omitempty"`
	VetoComplete bool           `json:"veto_complete"`
	Events       []engine.Event `json:"events"`
}

func (c MatchChanged) Has(t engine.EventType) bool {
	return engine.ContainsEvent(c.Events, t)
}

type Bus struct {
	pubsub *gochannel.GoChannel
	log    *zap.Logger
}

func New(log *zap.Logger) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, NewLoggerAdapter(log))
	return &Bus{pubsub: pubsub, log: log}
}

// Publish announces a committed change of m.
func (b *Bus) Publish(ctx context.Context, m engine.Match, events []engine.Event) error {
	payload, err := json.Marshal(MatchChanged{
		MatchID:      m.ID,
		Version:      m.Version,
		Status:       m.Status,
		ServerID:     m.ServerID,
		VetoComplete: engine.VetoComplete(m),
		Events:       events,
	})
	if err != nil {
		return fmt.Errorf("marshal match change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("match_id", m.ID)
	msg.SetContext(ctx)
	return b.pubsub.Publish(TopicMatchEvents, msg)
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

func Decode(msg *message.Message) (MatchChanged, error) {
	var c MatchChanged
	if err := json.Unmarshal(msg.Payload, &c); err != nil {
		return MatchChanged{}, fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
	return c, nil
}

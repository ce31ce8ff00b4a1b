package store

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
)

// ErrConflict means the match changed since it was read.
var ErrConflict = errors.New("version conflict")

type MatchFilter struct {
	ServerID string
	GuildID  string
	Statuses []engine.Status
}

// EventRecord is one entry of a match's event log.
type EventRecord struct {
	Seq       int64        `json:"seq"`
	MatchID   string       `json:"match_id"`
	Version   int          `json:"version"`
	Event     engine.Event `json:"event"`
	CreatedAt time.Time    `json:"created_at"`
}

type Matches interface {
	// CreateMatch stores a new match at version 1 and returns it.
	CreateMatch(ctx context.Context, m engine.Match) (engine.Match, error)
	GetMatch(ctx context.Context, id string) (engine.Match, error)
	// SaveMatch replaces the stored match if its version still equals m.Version,
	// appends events to the log and returns the match at the next version.
	SaveMatch(ctx context.Context, m engine.Match, events []engine.Event) (engine.Match, error)
	ListMatches(ctx context.Context, f MatchFilter) ([]engine.Match, error)
	MatchEvents(ctx context.Context, matchID string) ([]EventRecord, error)
}

type Catalog interface {
	CreateMap(ctx context.Context, mp engine.Map) error
	ListMaps(ctx context.Context) ([]engine.Map, error)
	CreatePool(ctx context.Context, p engine.MapPool) error
	GetPool(ctx context.Context, id string) (engine.MapPool, error)
	ListPools(ctx context.Context) ([]engine.MapPool, error)
	CreateConfig(ctx context.Context, c engine.MatchConfig) error
	GetConfig(ctx context.Context, id string) (engine.MatchConfig, error)
	ListConfigs(ctx context.Context) ([]engine.MatchConfig, error)
}

type Players interface {
	UpsertPlayer(ctx context.Context, p engine.Player) error
	PlayerByDiscordID(ctx context.Context, discordID string) (engine.Player, error)
}

type Servers interface {
	CreateServer(ctx context.Context, s engine.Server) error
	GetServer(ctx context.Context, id string) (engine.Server, error)
	ListServers(ctx context.Context) ([]engine.Server, error)
}

type Store interface {
	Matches
	Catalog
	Players
	Servers
	Close() error
}

// Accepts reports whether m passes the filter.
func (f MatchFilter) Accepts(m engine.Match) bool {
	if f.ServerID != "" && m.ServerID != f.ServerID {
		return false
	}
	if f.GuildID != "" && m.GuildID != f.GuildID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if m.Status == s {
			return true
		}
	}
	return false
}

package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
)

// Memory keeps everything in process. It is used when no database is configured
// and in tests.
type Memory struct {
	mu      sync.RWMutex
	matches map[string]engine.Match
	events  map[string][]EventRecord
	seq     int64
	maps    map[string]engine.Map
	pools   map[string]engine.MapPool
	configs map[string]engine.MatchConfig
	players map[string]engine.Player // by discord id
	servers map[string]engine.Server
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		matches: make(map[string]engine.Match),
		events:  make(map[string][]EventRecord),
		maps:    make(map[string]engine.Map),
		pools:   make(map[string]engine.MapPool),
		configs: make(map[string]engine.MatchConfig),
		players: make(map[string]engine.Player),
		servers: make(map[string]engine.Server),
	}
}

func (s *Memory) CreateMatch(_ context.Context, m engine.Match) (engine.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.matches[m.ID]; ok {
		return engine.Match{}, fmt.Errorf("%w: match %s already exists", engine.ErrValidation, m.ID)
	}
	m.Version = 1
	s.matches[m.ID] = engine.Clone(m)
	return m, nil
}

func (s *Memory) GetMatch(_ context.Context, id string) (engine.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	if !ok {
		return engine.Match{}, fmt.Errorf("%w: match %s", engine.ErrNotFound, id)
	}
	return engine.Clone(m), nil
}

func (s *Memory) SaveMatch(_ context.Context, m engine.Match, events []engine.Event) (engine.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.matches[m.ID]
	if !ok {
		return engine.Match{}, fmt.Errorf("%w: match %s", engine.ErrNotFound, m.ID)
	}
	if cur.Version != m.Version {
		return engine.Match{}, fmt.Errorf("%w: match %s is at version %d, not %d", ErrConflict, m.ID, cur.Version, m.Version)
	}
	m.Version++
	s.matches[m.ID] = engine.Clone(m)
	for _, ev := range events {
		s.seq++
		s.events[m.ID] = append(s.events[m.ID], EventRecord{
			Seq:       s.seq,
			MatchID:   m.ID,
			Version:   m.Version,
			Event:     ev,
			CreatedAt: m.UpdatedAt,
		})
	}
	return m, nil
}

func (s *Memory) ListMatches(_ context.Context, f MatchFilter) ([]engine.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []engine.Match{}
	for _, m := range s.matches {
		if f.Accepts(m) {
			out = append(out, engine.Clone(m))
		}
	}
	slices.SortFunc(out, func(a, b engine.Match) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (s *Memory) MatchEvents(_ context.Context, matchID string) ([]EventRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.matches[matchID]; !ok {
		return nil, fmt.Errorf("%w: match %s", engine.ErrNotFound, matchID)
	}
	return slices.Clone(s.events[matchID]), nil
}

func (s *Memory) CreateMap(_ context.Context, mp engine.Map) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.maps {
		if existing.ID == mp.ID || existing.Tag == mp.Tag || existing.Name == mp.Name {
			return fmt.Errorf("%w: map %s already exists", engine.ErrValidation, mp.Tag)
		}
	}
	s.maps[mp.ID] = mp
	return nil
}

func (s *Memory) ListMaps(_ context.Context) ([]engine.Map, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.maps, func(mp engine.Map) string { return mp.Tag }), nil
}

func (s *Memory) CreatePool(_ context.Context, p engine.MapPool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pools[p.ID]; ok {
		return fmt.Errorf("%w: map pool %s already exists", engine.ErrValidation, p.ID)
	}
	for _, mp := range p.Maps {
		if _, ok := s.maps[mp.ID]; !ok {
			return fmt.Errorf("%w: map %s", engine.ErrNotFound, mp.ID)
		}
	}
	s.pools[p.ID] = p
	return nil
}

func (s *Memory) GetPool(_ context.Context, id string) (engine.MapPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[id]
	if !ok {
		return engine.MapPool{}, fmt.Errorf("%w: map pool %s", engine.ErrNotFound, id)
	}
	return p, nil
}

func (s *Memory) ListPools(_ context.Context) ([]engine.MapPool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.pools, func(p engine.MapPool) string { return p.Name }), nil
}

func (s *Memory) CreateConfig(_ context.Context, c engine.MatchConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configs[c.ID]; ok {
		return fmt.Errorf("%w: match config %s already exists", engine.ErrValidation, c.ID)
	}
	s.configs[c.ID] = c
	return nil
}

func (s *Memory) GetConfig(_ context.Context, id string) (engine.MatchConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configs[id]
	if !ok {
		return engine.MatchConfig{}, fmt.Errorf("%w: match config %s", engine.ErrNotFound, id)
	}
	return c, nil
}

func (s *Memory) ListConfigs(_ context.Context) ([]engine.MatchConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.configs, func(c engine.MatchConfig) string { return c.Name }), nil
}

func (s *Memory) UpsertPlayer(_ context.Context, p engine.Player) error {
	if p.DiscordID == "" {
		return fmt.Errorf("%w: player discord id is required", engine.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.DiscordID] = p
	return nil
}

func (s *Memory) PlayerByDiscordID(_ context.Context, discordID string) (engine.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[discordID]
	if !ok {
		return engine.Player{}, fmt.Errorf("%w: player with discord id %s", engine.ErrNotFound, discordID)
	}
	return p, nil
}

func (s *Memory) CreateServer(_ context.Context, srv engine.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.servers[srv.ID]; ok {
		return fmt.Errorf("%w: server %s already exists", engine.ErrValidation, srv.ID)
	}
	s.servers[srv.ID] = srv
	return nil
}

func (s *Memory) GetServer(_ context.Context, id string) (engine.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	srv, ok := s.servers[id]
	if !ok {
		return engine.Server{}, fmt.Errorf("%w: server %s", engine.ErrNotFound, id)
	}
	return srv, nil
}

func (s *Memory) ListServers(_ context.Context) ([]engine.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedValues(s.servers, func(srv engine.Server) string { return srv.Name }), nil
}

func (s *Memory) Close() error { return nil }

func sortedValues[V any](m map[string]V, key func(V) string) []V {
	out := make([]V, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b V) int { return cmp.Compare(key(a), key(b)) })
	return out
}

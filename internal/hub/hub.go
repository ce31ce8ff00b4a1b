package hub

import (
	"context"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/metrics"
)

type HubMsg interface{ isHubMsg() }

type GetLobby struct {
	MatchID string
	Reply   chan *lobby.Lobby
}

type EnsureLobby struct {
	MatchID string
	Match   engine.Match // only used if creation happens
	Reply   chan *lobby.Lobby
}

type RemoveLobby struct {
	MatchID string
}

type CountLobbies struct {
	Reply chan int
}

type ShutdownHub struct{}

func (GetLobby) isHubMsg()     {}
func (EnsureLobby) isHubMsg()  {}
func (RemoveLobby) isHubMsg()  {}
func (CountLobbies) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

type Config struct {
	// Lobby is passed to every lobby the hub starts.
	Lobby   lobby.Options
	Metrics metrics.Metrics
}

// Hub owns one lobby per match id.
type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case GetLobby:
				msg.Reply <- h.lobbies[msg.MatchID] // May be nil

			case EnsureLobby:
				msg.Reply <- h.ensure(msg.MatchID, msg.Match)

			case RemoveLobby:
				if lb := h.lobbies[msg.MatchID]; lb != nil {
					stop(lb)
					delete(h.lobbies, msg.MatchID)
					h.cfg.Metrics.ActiveMatches(len(h.lobbies))
				}

			case CountLobbies:
				msg.Reply <- len(h.lobbies)

			case ShutdownHub:
				h.shutdown()
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) ensure(id string, m engine.Match) *lobby.Lobby {
	if lb := h.lobbies[id]; lb != nil {
		select {
		case <-lb.Done():
			// Stopped on its own; replace it below.
		default:
			return lb
		}
	}
	lb := lobby.NewLobby(h.ctx, m, h.cfg.Lobby)
	h.lobbies[id] = lb
	h.cfg.Metrics.ActiveMatches(len(h.lobbies))
	return lb
}

func (h *Hub) shutdown() {
	for _, lb := range h.lobbies {
		stop(lb)
	}
	clear(h.lobbies)
	h.cfg.Metrics.ActiveMatches(0)
}

func stop(lb *lobby.Lobby) {
	select {
	case lb.Inbox() <- lobby.Shutdown{}:
	case <-lb.Done():
	}
}

// Get returns the running lobby for a match, or nil.
func (h *Hub) Get(ctx context.Context, matchID string) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	if !h.send(ctx, GetLobby{MatchID: matchID, Reply: reply}) {
		return nil
	}
	return h.wait(ctx, reply)
}

// Ensure returns the lobby for m, starting one from m if none runs yet.
func (h *Hub) Ensure(ctx context.Context, m engine.Match) *lobby.Lobby {
	reply := make(chan *lobby.Lobby, 1)
	if !h.send(ctx, EnsureLobby{MatchID: m.ID, Match: m, Reply: reply}) {
		return nil
	}
	return h.wait(ctx, reply)
}

// Count returns the number of running lobbies, or 0 once the hub has stopped.
func (h *Hub) Count(ctx context.Context) int {
	if h.ctx.Err() != nil {
		return 0
	}
	reply := make(chan int, 1)
	if !h.send(ctx, CountLobbies{Reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	return 0
}

func (h *Hub) Remove(ctx context.Context, matchID string) {
	h.send(ctx, RemoveLobby{MatchID: matchID})
}

func (h *Hub) send(ctx context.Context, msg HubMsg) bool {
	select {
	case h.inbox <- msg:
		return true
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	return false
}

func (h *Hub) wait(ctx context.Context, reply chan *lobby.Lobby) *lobby.Lobby {
	select {
	case lb := <-reply:
		return lb
	case <-ctx.Done():
	case <-h.ctx.Done():
	}
	return nil
}

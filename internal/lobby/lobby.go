package lobby

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"go.uber.org/zap"
)

// ErrClosed is returned to callers of a lobby that has shut down.
var ErrClosed = errors.New("match lobby closed")

type Msg interface{ isLobbyMsg() }

// FromClient applies Cmd to the match. Reply may be nil when nobody waits for the result.
type FromClient struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot // where this client wants to receive snapshots
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

// Result is the outcome of one FromClient. Match is the committed state after
// the command, or the unchanged state when Err is set.
type Result struct {
	Events []engine.Event
	Match  engine.Match
	Err    error
}

type Snapshot struct {
	Version int
	Match   engine.Match
}

type View struct {
	Version    int
	NumClients int
	Match      engine.Match
}

// Repo persists the match. Without one the lobby keeps state in memory only.
type Repo interface {
	GetMatch(ctx context.Context, id string) (engine.Match, error)
	SaveMatch(ctx context.Context, m engine.Match, events []engine.Event) (engine.Match, error)
}

// Publisher is told about every committed change.
type Publisher interface {
	Publish(ctx context.Context, m engine.Match, events []engine.Event) error
}

type Options struct {
	Repo      Repo
	Publisher Publisher
	Logger    *zap.Logger
}

type Lobby struct {
	inbox   chan Msg
	match   engine.Match
	current atomic.Pointer[Snapshot]
	clients map[string]chan Snapshot
	repo    Repo
	pub     Publisher
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewLobby(parent context.Context, initial engine.Match, opts Options) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	l := &Lobby{
		inbox:   make(chan Msg, 64), // Small buffer
		match:   initial,
		clients: make(map[string]chan Snapshot),
		repo:    opts.Repo,
		pub:     opts.Publisher,
		log:     log.With(zap.String("match_id", initial.ID)),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	l.current.Store(&Snapshot{Version: initial.Version, Match: initial})

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				// Register client + send current snapshot immediately
				l.clients[msg.ClientID] = msg.Outbox
				l.send(msg.ClientID, msg.Outbox, *l.current.Load())

			case Leave:
				delete(l.clients, msg.ClientID)

			case FromClient:
				res := l.apply(msg.Cmd)
				if msg.Reply != nil {
					msg.Reply <- res
				}

			case GetState:
				msg.Reply <- View{
					Version:    l.match.Version,
					NumClients: len(l.clients),
					Match:      l.match,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

// apply runs cmd, persists the result and only then makes it visible.
func (l *Lobby) apply(cmd engine.Command) Result {
	events, next, err := engine.Apply(l.match, cmd)
	if err != nil {
		return Result{Match: l.match, Err: err}
	}
	if len(events) == 0 {
		return Result{Match: l.match}
	}

	saved, err := l.persist(next, events)
	if errors.Is(err, store.ErrConflict) {
		// Someone else wrote this match; catch up and try once more.
		l.log.Warn("match changed underneath lobby, reloading", zap.Error(err))
		fresh, gerr := l.repo.GetMatch(l.ctx, l.match.ID)
		if gerr != nil {
			return Result{Match: l.match, Err: gerr}
		}
		l.commit(fresh)
		events, next, err = engine.Apply(fresh, cmd)
		if err != nil || len(events) == 0 {
			return Result{Match: l.match, Err: err}
		}
		saved, err = l.persist(next, events)
	}
	if err != nil {
		l.log.Error("persist match", zap.String("command", string(cmd.Type)), zap.Error(err))
		return Result{Match: l.match, Err: err}
	}

	l.commit(saved)
	if l.pub != nil {
		if err := l.pub.Publish(l.ctx, saved, events); err != nil {
			l.log.Error("publish match change", zap.Error(err))
		}
	}
	return Result{Events: events, Match: saved}
}

func (l *Lobby) persist(next engine.Match, events []engine.Event) (engine.Match, error) {
	if l.repo == nil {
		next.Version++
		return next, nil
	}
	return l.repo.SaveMatch(l.ctx, next, events)
}

func (l *Lobby) commit(m engine.Match) {
	l.match = m
	snap := Snapshot{Version: m.Version, Match: m}
	l.current.Store(&snap)
	l.broadcast(snap)
}

func (l *Lobby) shutdown() {
	for id, ch := range l.clients {
		close(ch) // Tell client no more snapshots
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(snap Snapshot) {
	for id, ch := range l.clients {
		l.send(id, ch, snap)
	}
}

func (l *Lobby) send(id string, ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		//ok
	default:
		// Client is slow/full - drop them.
		close(ch)
		delete(l.clients, id)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Snapshot returns the last committed match without going through the inbox.
// The returned match is shared; callers must not modify it.
func (l *Lobby) Snapshot() Snapshot { return *l.current.Load() }

// Done is closed once the lobby goroutine has exited.
func (l *Lobby) Done() <-chan struct{} { return l.done }

// Do applies cmd and waits for the result.
func (l *Lobby) Do(ctx context.Context, cmd engine.Command) Result {
	reply := make(chan Result, 1)
	select {
	case l.inbox <- FromClient{Cmd: cmd, Reply: reply}:
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-l.done:
		return Result{Err: ErrClosed}
	}

	select {
	case res := <-reply:
		return res
	case <-ctx.Done():
		return Result{Err: ctx.Err()}
	case <-l.done:
		// The reply may have landed just before the loop exited.
		select {
		case res := <-reply:
			return res
		default:
			return Result{Err: ErrClosed}
		}
	}
}

// State returns the lobby's committed match and subscriber count.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		return View{}, ErrClosed
	}

	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.done:
		select {
		case v := <-reply:
			return v, nil
		default:
			return View{}, ErrClosed
		}
	}
}

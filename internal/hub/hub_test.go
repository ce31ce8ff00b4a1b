package hub

import (
	"context"
	"testing"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_Ensure_Get_SamePointer(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, Config{})
	reply := make(chan *lobby.Lobby, 1)

	m := engine.Match{ID: "match_1", Status: engine.StatusCreated}
	h.Inbox() <- EnsureLobby{MatchID: m.ID, Match: m, Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{MatchID: m.ID, Reply: reply}
	lb2 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
}

func TestHub_EnsureKeepsFirstState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})

	first := h.Ensure(ctx, engine.Match{ID: "m1", Version: 1})
	second := h.Ensure(ctx, engine.Match{ID: "m1", Version: 7})
	require.NotNil(t, first)
	assert.Same(t, first, second)
	assert.Equal(t, 1, second.Snapshot().Version)
	assert.Nil(t, h.Get(ctx, "m2"))
}

func TestHub_RemoveStopsLobby(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewHub(ctx, Config{})

	lb := h.Ensure(ctx, engine.Match{ID: "m1"})
	h.Remove(ctx, "m1")

	select {
	case <-lb.Done():
	case <-time.After(time.Second):
		t.Fatal("lobby still running after remove")
	}
	assert.Nil(t, h.Get(ctx, "m1"))
	assert.Equal(t, 0, h.Count(ctx))
}

func TestHub_Count(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(ctx, Config{})
	h.Ensure(ctx, engine.Match{ID: "a"})
	h.Ensure(ctx, engine.Match{ID: "b"})
	h.Ensure(ctx, engine.Match{ID: "a"})
	assert.Equal(t, 2, h.Count(ctx))

	cancel()
	assert.Equal(t, 0, h.Count(context.Background()))
}

func TestHub_ShutdownStopsEveryLobby(t *testing.T) {
	ctx := context.Background()
	h := NewHub(ctx, Config{})
	a := h.Ensure(ctx, engine.Match{ID: "a"})
	b := h.Ensure(ctx, engine.Match{ID: "b"})

	h.Inbox() <- ShutdownHub{}

	for _, lb := range []*lobby.Lobby{a, b} {
		select {
		case <-lb.Done():
		case <-time.After(time.Second):
			t.Fatal("lobby still running after hub shutdown")
		}
	}
	assert.Nil(t, h.Get(ctx, "a"))
}

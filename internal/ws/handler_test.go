package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/hub"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/internal/types"
	apitypes "github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	*httptest.Server
	svc *service.Service
}

func newServer(t *testing.T) (*testServer, engine.Match) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.NewMemory()
	h := hub.NewHub(ctx, hub.Config{Lobby: lobby.Options{Repo: st}})
	svc := service.New(service.Options{Store: st, Hub: h, PublicBaseURL: "http://api.test"})

	var ids []string
	for _, tag := range []string{"de_ancient", "de_inferno", "de_mirage", "de_nuke"} {
		mp, err := svc.CreateMap(ctx, apitypes.CreateMapRequest{Name: tag, Tag: tag})
		require.NoError(t, err)
		ids = append(ids, mp.ID)
	}
	pool, err := svc.CreatePool(ctx, apitypes.CreatePoolRequest{Name: "small", MapIDs: ids})
	require.NoError(t, err)
	cfg, err := svc.CreateConfig(ctx, apitypes.CreateConfigRequest{Name: "pug", Type: "BO1", MapPoolID: pool.ID, MaxPlayers: 4})
	require.NoError(t, err)
	for _, d := range []string{"d1", "d2"} {
		_, err := svc.UpsertPlayer(ctx, apitypes.UpsertPlayerRequest{DiscordID: d, SteamID: "7656119800000000" + d[1:], SteamName: "steam_" + d})
		require.NoError(t, err)
	}
	m, err := svc.CreateMatch(ctx, apitypes.CreateMatchRequest{ConfigID: cfg.ID, AuthorID: "d1", DiscordUsersIDs: []string{"d2"}})
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(svc, zap.NewNop()))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, svc: svc}, m
}

func read(t *testing.T, conn *websocket.Conn) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg types.ServerMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func write(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(context.Background(), websocket.MessageText, payload))
}

func TestHandler_StreamsSnapshotsAndAppliesBans(t *testing.T) {
	srv, m := newServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?match=" + m.ID

	conn, _, err := websocket.Dial(context.Background(), url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	first := read(t, conn)
	require.Equal(t, types.MsgSnapshot, first.Type)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, engine.ActionBan, first.Match.Veto.NextAction)

	write(t, conn, types.ClientMessage{Type: types.MsgBanMap, DiscordUserID: "d1", MapTag: "de_nuke"})

	// The ban result and the new snapshot may arrive in either order.
	got := map[string]types.ServerMessage{}
	for i := 0; i < 2; i++ {
		msg := read(t, conn)
		got[msg.Type] = msg
	}
	require.Contains(t, got, types.MsgBanResult)
	assert.Equal(t, "de_nuke", got[types.MsgBanResult].Ban.BannedMap)
	require.Contains(t, got, types.MsgSnapshot)
	assert.Equal(t, 2, got[types.MsgSnapshot].Version)

	write(t, conn, types.ClientMessage{Type: types.MsgBanMap, DiscordUserID: "d1", MapTag: "de_mirage"})
	rejected := read(t, conn)
	require.Equal(t, types.MsgError, rejected.Type)
	assert.Equal(t, "invalid_turn", rejected.Error.Code)

	write(t, conn, types.ClientMessage{Type: types.MsgBanMap, DiscordUserID: "d2"})
	invalid := read(t, conn)
	require.Equal(t, types.MsgError, invalid.Type)
	assert.Equal(t, "validation_error", invalid.Error.Code, "same code as the REST API")

	write(t, conn, types.ClientMessage{Type: "Dance"})
	unknown := read(t, conn)
	assert.Equal(t, "validation_error", unknown.Error.Code)
}

func TestHandler_RejectsUnknownMatch(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "?match=missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_RefusesFinishedMatch(t *testing.T) {
	srv, m := newServer(t)
	_, err := srv.svc.Cancel(context.Background(), m.ID)
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "?match=" + m.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

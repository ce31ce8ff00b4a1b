package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/hub"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const secret = "hook-secret"

type testAPI struct {
	srv *httptest.Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st := store.NewMemory()
	log := zaptest.NewLogger(t)
	h := hub.NewHub(ctx, hub.Config{Lobby: lobby.Options{Repo: st}})
	svc := service.New(service.Options{
		Store:         st,
		Hub:           h,
		Logger:        log,
		PublicBaseURL: "http://api.test",
		WebhookSecret: secret,
	})
	srv := httptest.NewServer(SetupRoutes(Deps{
		Service:       svc,
		Logger:        log,
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "ok") }),
		WebhookSecret: secret,
	}))
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv}
}

func (a *testAPI) call(t *testing.T, method, path string, body any, header http.Header) (int, []byte) {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func (a *testAPI) ok(t *testing.T, method, path string, body any, want int, into any) {
	t.Helper()
	status, data := a.call(t, method, path, body, nil)
	require.Equal(t, want, status, string(data))
	if into != nil {
		require.NoError(t, json.Unmarshal(data, into))
	}
}

func (a *testAPI) fails(t *testing.T, method, path string, body any, status int, code string) {
	t.Helper()
	got, data := a.call(t, method, path, body, nil)
	require.Equal(t, status, got, string(data))
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &er))
	assert.Equal(t, code, er.Code)
}

// seed creates a four map pool, a BO1 config and three players through the
// API, plus d4 who has not linked a steam account.
func (a *testAPI) seed(t *testing.T) (engine.MatchConfig, engine.Server) {
	t.Helper()
	var ids []string
	for _, tag := range []string{"de_ancient", "de_inferno", "de_mirage", "de_nuke"} {
		var mp engine.Map
		a.ok(t, http.MethodPost, "/maps", types.CreateMapRequest{Name: tag, Tag: tag}, http.StatusCreated, &mp)
		ids = append(ids, mp.ID)
	}
	var pool engine.MapPool
	a.ok(t, http.MethodPost, "/pools", types.CreatePoolRequest{Name: "small", MapIDs: ids}, http.StatusCreated, &pool)

	var cfg engine.MatchConfig
	a.ok(t, http.MethodPost, "/configs", types.CreateConfigRequest{Name: "pug", Type: "bo1", MapPoolID: pool.ID, MaxPlayers: 10}, http.StatusCreated, &cfg)

	var srv engine.Server
	a.ok(t, http.MethodPost, "/servers", types.CreateServerRequest{Name: "eu-1", Host: "10.0.0.9", Port: 27015}, http.StatusCreated, &srv)

	f := gofakeit.New(7)
	for i, d := range []string{"d1", "d2", "d3"} {
		a.ok(t, http.MethodPut, "/players", types.UpsertPlayerRequest{
			DiscordID: d,
			Username:  f.Username(),
			SteamID:   fmt.Sprintf("7656119800000001%d", i),
			SteamName: f.Gamertag(),
		}, http.StatusOK, nil)
	}
	a.ok(t, http.MethodPut, "/players", types.UpsertPlayerRequest{DiscordID: "d4", Username: f.Username()}, http.StatusOK, nil)
	return cfg, srv
}

func (a *testAPI) createMatch(t *testing.T, cfgID string) types.MatchView {
	t.Helper()
	var m types.MatchView
	a.ok(t, http.MethodPost, "/matches", types.CreateMatchRequest{ConfigID: cfgID, AuthorID: "d1", DiscordUsersIDs: []string{"d2"}}, http.StatusCreated, &m)
	return m
}

func TestHealthzAndMetrics(t *testing.T) {
	a := newTestAPI(t)
	status, _ := a.call(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body := a.call(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", string(body))
}

func TestCatalogEndpoints(t *testing.T) {
	a := newTestAPI(t)
	cfg, srv := a.seed(t)

	var maps []engine.Map
	a.ok(t, http.MethodGet, "/maps", nil, http.StatusOK, &maps)
	assert.Len(t, maps, 4)

	var configs []engine.MatchConfig
	a.ok(t, http.MethodGet, "/configs", nil, http.StatusOK, &configs)
	require.Len(t, configs, 1)
	assert.Equal(t, cfg.ID, configs[0].ID)

	var servers []engine.Server
	a.ok(t, http.MethodGet, "/servers", nil, http.StatusOK, &servers)
	require.Len(t, servers, 1)
	assert.Equal(t, srv.ID, servers[0].ID)

	a.fails(t, http.MethodPost, "/maps", types.CreateMapRequest{Name: "de_nuke", Tag: "de_nuke"}, http.StatusBadRequest, "validation_error")
	a.fails(t, http.MethodPost, "/pools", types.CreatePoolRequest{Name: "bad", MapIDs: []string{"missing"}}, http.StatusNotFound, "not_found")
	a.fails(t, http.MethodPost, "/servers", types.CreateServerRequest{Name: "x", Host: "h", Port: 70000}, http.StatusBadRequest, "validation_error")
	a.fails(t, http.MethodPost, "/configs", "{not json", http.StatusBadRequest, "validation_error")
}

func TestMatchVetoFlow(t *testing.T) {
	a := newTestAPI(t)
	cfg, srv := a.seed(t)
	m := a.createMatch(t, cfg.ID)
	base := "/matches/" + m.ID

	assert.Equal(t, engine.StatusCreated, m.Status)
	assert.False(t, m.Veto.Done)
	assert.Equal(t, `matchzy_loadmatch_url "http://api.test/matches/`+m.ID+`/config"`, m.LoadMatchCommand)

	var ban types.BanResult
	a.ok(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d1", MapTag: "de_nuke"}, http.StatusOK, &ban)
	assert.Equal(t, "d2", ban.NextBanTeamLeader)
	assert.Equal(t, 1, ban.MapBansCount)

	a.fails(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d1", MapTag: "de_mirage"}, http.StatusConflict, "invalid_turn")
	a.fails(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d2", MapTag: "de_nuke"}, http.StatusConflict, "map_already_resolved")
	a.fails(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d2", MapTag: "de_cache"}, http.StatusConflict, "pool_mismatch")
	a.fails(t, http.MethodPost, base+"/pick", types.VetoRequest{InteractionUserID: "d2", MapTag: "de_mirage"}, http.StatusConflict, "invalid_turn")

	a.ok(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d2", MapTag: "de_ancient"}, http.StatusOK, &ban)
	a.ok(t, http.MethodPost, base+"/ban", types.VetoRequest{InteractionUserID: "d1", MapTag: "de_inferno"}, http.StatusOK, &ban)
	assert.Empty(t, ban.NextBanTeamLeader)
	assert.Equal(t, []string{"de_mirage"}, ban.MapsLeft)

	a.ok(t, http.MethodPut, base+"/server", types.AssignServerRequest{ServerID: srv.ID}, http.StatusOK, nil)
	a.ok(t, http.MethodPatch, base+"/cvars", types.CVarsRequest{CVars: map[string]string{"mp_overtime_enable": "1"}}, http.StatusOK, nil)

	var got types.MatchView
	a.ok(t, http.MethodGet, base, nil, http.StatusOK, &got)
	assert.True(t, got.Veto.Done)
	assert.Equal(t, []string{"de_mirage"}, got.MapList)
	assert.Equal(t, "connect 10.0.0.9:27015", got.ConnectCommand)

	var cfgOut map[string]any
	a.ok(t, http.MethodGet, base+"/config", nil, http.StatusOK, &cfgOut)
	assert.Equal(t, m.ID, cfgOut["matchid"])

	// No pusher is configured in this service.
	a.fails(t, http.MethodPost, base+"/push", nil, http.StatusServiceUnavailable, "unavailable")
}

func TestMatchRosterAndLifecycle(t *testing.T) {
	a := newTestAPI(t)
	cfg, _ := a.seed(t)
	m := a.createMatch(t, cfg.ID)
	base := "/matches/" + m.ID

	var got types.MatchView
	a.ok(t, http.MethodPost, base+"/join", types.PlayerRequest{DiscordUserID: "d3"}, http.StatusOK, &got)
	assert.Equal(t, 3, got.PlayerCount())
	a.ok(t, http.MethodPost, base+"/leave", types.PlayerRequest{DiscordUserID: "d3"}, http.StatusOK, &got)
	assert.Equal(t, 2, got.PlayerCount())
	a.fails(t, http.MethodPost, base+"/leave", types.PlayerRequest{DiscordUserID: "d3"}, http.StatusNotFound, "not_found")
	a.fails(t, http.MethodPost, base+"/join", types.PlayerRequest{DiscordUserID: "d4"}, http.StatusBadRequest, "validation_error")
	a.ok(t, http.MethodPost, base+"/shuffle", nil, http.StatusOK, &got)
	assert.Equal(t, 2, got.PlayerCount())

	a.ok(t, http.MethodPost, base+"/start", nil, http.StatusOK, &got)
	assert.Equal(t, engine.StatusStarted, got.Status)
	a.fails(t, http.MethodPost, base+"/join", types.PlayerRequest{DiscordUserID: "d3"}, http.StatusConflict, "invalid_transition")

	var list []types.MatchView
	a.ok(t, http.MethodGet, "/matches?status=started,live", nil, http.StatusOK, &list)
	require.Len(t, list, 1)
	assert.Equal(t, m.ID, list[0].ID)
	a.ok(t, http.MethodGet, "/matches?status=created", nil, http.StatusOK, &list)
	assert.Empty(t, list)
	a.fails(t, http.MethodGet, "/matches?status=paused", nil, http.StatusBadRequest, "validation_error")

	a.ok(t, http.MethodPost, base+"/cancel", nil, http.StatusOK, &got)
	assert.Equal(t, engine.StatusCancelled, got.Status)
	a.fails(t, http.MethodPost, base+"/start", nil, http.StatusConflict, "invalid_transition")
	a.fails(t, http.MethodGet, "/matches/missing", nil, http.StatusNotFound, "not_found")
}

func TestCreateMatch_RequiresSteamAccount(t *testing.T) {
	a := newTestAPI(t)
	cfg, _ := a.seed(t)

	a.fails(t, http.MethodPost, "/matches", types.CreateMatchRequest{ConfigID: cfg.ID, AuthorID: "d4"}, http.StatusBadRequest, "validation_error")
	a.fails(t, http.MethodPost, "/matches", types.CreateMatchRequest{ConfigID: cfg.ID, AuthorID: "d1", DiscordUsersIDs: []string{"d4"}}, http.StatusBadRequest, "validation_error")

	var list []types.MatchView
	a.ok(t, http.MethodGet, "/matches", nil, http.StatusOK, &list)
	assert.Empty(t, list)
}

func TestStatusAndPresence(t *testing.T) {
	a := newTestAPI(t)
	cfg, _ := a.seed(t)

	var status types.StatusResponse
	a.ok(t, http.MethodGet, "/status", nil, http.StatusOK, &status)
	assert.Zero(t, status.ActiveMatches)

	m := a.createMatch(t, cfg.ID)
	a.ok(t, http.MethodGet, "/status", nil, http.StatusOK, &status)
	assert.Equal(t, 1, status.ActiveMatches)

	var p types.Presence
	a.ok(t, http.MethodGet, "/matches/"+m.ID+"/presence", nil, http.StatusOK, &p)
	assert.Equal(t, types.Presence{MatchID: m.ID, Version: 1, Status: engine.StatusCreated}, p)

	a.ok(t, http.MethodPost, "/matches/"+m.ID+"/cancel", nil, http.StatusOK, nil)
	a.ok(t, http.MethodGet, "/status", nil, http.StatusOK, &status)
	assert.Zero(t, status.ActiveMatches)
	a.ok(t, http.MethodGet, "/matches/"+m.ID+"/presence", nil, http.StatusOK, &p)
	assert.Equal(t, engine.StatusCancelled, p.Status)

	a.fails(t, http.MethodGet, "/matches/missing/presence", nil, http.StatusNotFound, "not_found")
}

func TestIngestEvent_RequiresBearer(t *testing.T) {
	a := newTestAPI(t)
	cfg, _ := a.seed(t)
	m := a.createMatch(t, cfg.ID)
	path := "/matches/" + m.ID + "/events"
	a.ok(t, http.MethodPost, "/matches/"+m.ID+"/start", nil, http.StatusOK, nil)

	event := fmt.Sprintf(`{"event":"series_start","matchid":%q,"num_maps":1,"team1":{"name":"a"},"team2":{"name":"b"}}`, m.ID)

	status, _ := a.call(t, http.MethodPost, path, event, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = a.call(t, http.MethodPost, path, event, http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, status)

	auth := http.Header{"Authorization": {"Bearer " + secret}}
	status, body := a.call(t, http.MethodPost, path, event, auth)
	require.Equal(t, http.StatusOK, status, string(body))
	var got types.MatchView
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, engine.StatusLoaded, got.Status)

	status, body = a.call(t, http.MethodPost, path, fmt.Sprintf(`{"event":"halftime","matchid":%q}`, m.ID), auth)
	assert.Equal(t, http.StatusBadRequest, status)
	var er types.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er))
	assert.Equal(t, "unrecognized_event", er.Code)

	var records []store.EventRecord
	a.ok(t, http.MethodGet, path, nil, http.StatusOK, &records)
	assert.NotEmpty(t, records)
}

package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/DoyleJ11/cs-match-backend/internal/engine"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/pkg/types"
	"github.com/go-chi/chi/v5"
)

func matchID(r *http.Request) string {
	return chi.URLParam(r, "matchID")
}

// writeMatch answers with the match view at the given status.
func (a *API) writeMatch(w http.ResponseWriter, r *http.Request, status int, m engine.Match, err error) {
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, status, a.svc.View(r.Context(), m))
}

func (a *API) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var req types.CreateMatchRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.svc.CreateMatch(r.Context(), req)
	a.writeMatch(w, r, http.StatusCreated, m, err)
}

// ListMatches supports the server_id, guild_id and status query parameters;
// status takes a comma separated list.
func (a *API) ListMatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.MatchFilter{ServerID: q.Get("server_id"), GuildID: q.Get("guild_id")}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st, err := engine.ParseStatus(part)
			if err != nil {
				a.writeError(w, r, err)
				return
			}
			f.Statuses = append(f.Statuses, st)
		}
	}

	matches, err := a.svc.List(r.Context(), f)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	views := make([]types.MatchView, 0, len(matches))
	for _, m := range matches {
		views = append(views, a.svc.View(r.Context(), m))
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) GetMatch(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.Get(r.Context(), matchID(r))
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) Ban(w http.ResponseWriter, r *http.Request) {
	var req types.VetoRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.svc.Ban(r.Context(), matchID(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) Pick(w http.ResponseWriter, r *http.Request) {
	var req types.VetoRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	res, err := a.svc.Pick(r.Context(), matchID(r), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) Join(w http.ResponseWriter, r *http.Request) {
	var req types.PlayerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.svc.Join(r.Context(), matchID(r), req.DiscordUserID)
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) Leave(w http.ResponseWriter, r *http.Request) {
	var req types.PlayerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.svc.Leave(r.Context(), matchID(r), req.DiscordUserID)
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) Shuffle(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.Shuffle(r.Context(), matchID(r))
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) Start(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.Start(r.Context(), matchID(r))
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) Cancel(w http.ResponseWriter, r *http.Request) {
	m, err := a.svc.Cancel(r.Context(), matchID(r))
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) AssignServer(w http.ResponseWriter, r *http.Request) {
	var req types.AssignServerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.svc.AssignServer(r.Context(), matchID(r), req.ServerID)
	a.writeMatch(w, r, http.StatusOK, m, err)
}

func (a *API) MergeCVars(w http.ResponseWriter, r *http.Request) {
	var req types.CVarsRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	m, err := a.svc.MergeCVars(r.Context(), matchID(r), req.CVars)
	a.writeMatch(w, r, http.StatusOK, m, err)
}

// MatchConfig serves the file loaded by matchzy_loadmatch_url.
func (a *API) MatchConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.svc.Config(r.Context(), matchID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (a *API) PushConfig(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.PushConfig(r.Context(), matchID(r)); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	records, err := a.svc.Events(r.Context(), matchID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) Presence(w http.ResponseWriter, r *http.Request) {
	p, err := a.svc.Presence(r.Context(), matchID(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// IngestEvent receives the game server's remote log callbacks.
func (a *API) IngestEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		a.writeError(w, r, fmt.Errorf("%w: read event body: %v", engine.ErrValidation, err))
		return
	}
	m, err := a.svc.IngestEvent(r.Context(), matchID(r), body)
	a.writeMatch(w, r, http.StatusOK, m, err)
}

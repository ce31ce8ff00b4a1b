package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/cs-match-backend/pkg/types"
)

func (a *API) CreateMap(w http.ResponseWriter, r *http.Request) {
	var req types.CreateMapRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	mp, err := a.svc.CreateMap(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mp)
}

func (a *API) ListMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := a.svc.ListMaps(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maps)
}

func (a *API) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req types.CreatePoolRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	pool, err := a.svc.CreatePool(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pool)
}

func (a *API) ListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := a.svc.ListPools(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pools)
}

func (a *API) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req types.CreateConfigRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	cfg, err := a.svc.CreateConfig(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

func (a *API) ListConfigs(w http.ResponseWriter, r *http.Request) {
	cfgs, err := a.svc.ListConfigs(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfgs)
}

func (a *API) CreateServer(w http.ResponseWriter, r *http.Request) {
	var req types.CreateServerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	srv, err := a.svc.CreateServer(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, srv)
}

func (a *API) ListServers(w http.ResponseWriter, r *http.Request) {
	servers, err := a.svc.ListServers(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (a *API) UpsertPlayer(w http.ResponseWriter, r *http.Request) {
	var req types.UpsertPlayerRequest
	if err := decode(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	p, err := a.svc.UpsertPlayer(r.Context(), req)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

package httpapi

import (
	"net/http"

	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Service *service.Service
	Logger  *zap.Logger
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// WebhookSecret guards the game server event endpoint. Empty disables the check.
	WebhookSecret string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	a := &API{svc: d.Service, log: d.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", Healthz)
	r.Get("/status", a.Status)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	r.Get("/ws", ws.Handler(d.Service, d.Logger))

	r.Route("/matches", func(r chi.Router) {
		r.Post("/", a.CreateMatch)
		r.Get("/", a.ListMatches)

		r.Route("/{matchID}", func(r chi.Router) {
			r.Get("/", a.GetMatch)
			r.Post("/ban", a.Ban)
			r.Post("/pick", a.Pick)
			r.Post("/join", a.Join)
			r.Post("/leave", a.Leave)
			r.Post("/shuffle", a.Shuffle)
			r.Post("/start", a.Start)
			r.Post("/cancel", a.Cancel)
			r.Put("/server", a.AssignServer)
			r.Patch("/cvars", a.MergeCVars)
			r.Get("/config", a.MatchConfig)
			r.Post("/push", a.PushConfig)
			r.Get("/events", a.ListEvents)
			r.Get("/presence", a.Presence)
			r.With(bearerAuth(d.WebhookSecret)).Post("/events", a.IngestEvent)
		})
	})

	r.Route("/maps", func(r chi.Router) {
		r.Post("/", a.CreateMap)
		r.Get("/", a.ListMaps)
	})
	r.Route("/pools", func(r chi.Router) {
		r.Post("/", a.CreatePool)
		r.Get("/", a.ListPools)
	})
	r.Route("/configs", func(r chi.Router) {
		r.Post("/", a.CreateConfig)
		r.Get("/", a.ListConfigs)
	})
	r.Route("/servers", func(r chi.Router) {
		r.Post("/", a.CreateServer)
		r.Get("/", a.ListServers)
	})
	r.Put("/players", a.UpsertPlayer)
	return r
}

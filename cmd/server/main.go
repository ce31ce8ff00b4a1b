package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DoyleJ11/cs-match-backend/internal/bus"
	"github.com/DoyleJ11/cs-match-backend/internal/config"
	"github.com/DoyleJ11/cs-match-backend/internal/gameserver"
	"github.com/DoyleJ11/cs-match-backend/internal/httpapi"
	"github.com/DoyleJ11/cs-match-backend/internal/hub"
	"github.com/DoyleJ11/cs-match-backend/internal/lobby"
	"github.com/DoyleJ11/cs-match-backend/internal/logging"
	"github.com/DoyleJ11/cs-match-backend/internal/metrics"
	"github.com/DoyleJ11/cs-match-backend/internal/seed"
	"github.com/DoyleJ11/cs-match-backend/internal/service"
	"github.com/DoyleJ11/cs-match-backend/internal/store"
	"github.com/DoyleJ11/cs-match-backend/internal/store/pgstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app := &cli.App{
		Name:  "cs-match-backend",
		Usage: "match lifecycle and map veto API for MatchZy servers",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file to load before reading the environment"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP and websocket API",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the postgres tables",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "create maps, pools, configs, servers and players from a YAML catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Required: true, Usage: "path to the catalog file"},
				},
				Action: seedCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// env holds what every command needs.
type env struct {
	cfg config.Config
	log *zap.Logger
}

func setup(c *cli.Context) (env, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return env{}, err
	}
	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, log: logger}, nil
}

func openStore(ctx context.Context, e env) (store.Store, error) {
	if e.cfg.UseMemoryStore() {
		e.log.Warn("DATABASE_URL is empty, using the in-memory store")
		return store.NewMemory(), nil
	}
	pg, err := pgstore.Open(e.cfg.DatabaseURL, e.log)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return pg, nil
}

func serve(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, e)
	if err != nil {
		return err
	}
	defer st.Close()

	b := bus.New(e.log)
	defer b.Close()

	m := metrics.Noop()
	var metricsHandler http.Handler
	if e.cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		m = metrics.NewPrometheus(registry)
		metricsHandler = metrics.Handler(registry)
	}

	// Lobbies outlive the signal so in-flight requests can finish.
	h := hub.NewHub(c.Context, hub.Config{
		Lobby:   lobby.Options{Repo: st, Publisher: b, Logger: e.log},
		Metrics: m,
	})
	svc := service.New(service.Options{
		Store:         st,
		Hub:           h,
		Pusher:        gameserver.NewClient(e.cfg.GameServerTimeout(), e.cfg.WebhookSecret, e.log),
		Metrics:       m,
		Logger:        e.log,
		PublicBaseURL: e.cfg.PublicBaseURL,
		WebhookSecret: e.cfg.WebhookSecret,
	})

	router, err := gameserver.NewRouter(b, svc, bus.NewLoggerAdapter(e.log), e.log)
	if err != nil {
		return err
	}
	go func() {
		if err := router.Run(ctx); err != nil {
			e.log.Error("config push router stopped", zap.Error(err))
		}
	}()
	defer router.Close()

	srv := &http.Server{
		Addr: e.cfg.HTTPAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Service:       svc,
			Logger:        e.log,
			Metrics:       metricsHandler,
			WebhookSecret: e.cfg.WebhookSecret,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("listening", zap.String("addr", srv.Addr), zap.String("public_url", e.cfg.PublicBaseURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	e.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	h.Inbox() <- hub.ShutdownHub{}
	return nil
}

func migrate(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()
	if e.cfg.UseMemoryStore() {
		return errors.New("DATABASE_URL is required to migrate")
	}

	pg, err := pgstore.Open(e.cfg.DatabaseURL, e.log)
	if err != nil {
		return err
	}
	defer pg.Close()
	if err := pg.Migrate(c.Context); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	e.log.Info("migrations applied")
	return nil
}

func seedCatalog(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.log.Sync()

	catalog, err := seed.Load(c.String("file"))
	if err != nil {
		return err
	}
	st, err := openStore(c.Context, e)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	svc := service.New(service.Options{
		Store:  st,
		Hub:    hub.NewHub(ctx, hub.Config{Lobby: lobby.Options{Repo: st, Logger: e.log}}),
		Logger: e.log,
	})
	_, err = seed.Apply(ctx, svc, catalog, e.log)
	return err
}

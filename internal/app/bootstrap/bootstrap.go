package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	hiringservice "gigflow/contexts/marketplace/hiring-service"
	"gigflow/contexts/marketplace/hiring-service/adapters/memory"
	postgresadapter "gigflow/contexts/marketplace/hiring-service/adapters/postgres"
	"gigflow/contexts/marketplace/hiring-service/application/notifications"
	workerapp "gigflow/contexts/marketplace/hiring-service/application/workers"
	"gigflow/contexts/marketplace/hiring-service/ports"
	"gigflow/internal/platform/config"
	"gigflow/internal/platform/db"
	"gigflow/internal/platform/httpserver"
	"gigflow/internal/platform/messaging"
	"gigflow/internal/platform/realtime"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const hiredTopic = "proposal.hired"

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	relay    *workerapp.OutboxRelay
	audit    *workerapp.HiredAuditConsumer
	cfg      config.Config
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres    *db.Postgres
	outboxRelay workerapp.OutboxRelay
	audit       workerapp.HiredAuditConsumer
	cfg         config.Config
	logger      *slog.Logger
}

// BuildAPI wires the API process. Without a POSTGRES_DSN the hiring state
// lives in memory and the outbox relay runs inside this process.
func BuildAPI(cfg config.Config) (*APIApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	registry := realtime.NewRegistry()
	hub := realtime.NewHub(registry, realtime.HubConfig{
		AllowedOrigin:      cfg.AllowedOrigin,
		AllowFrameRegister: cfg.AllowFrameRegister,
		Logger:             logger,
	})
	router := notifications.Router{
		Sessions: registry,
		Pusher:   hub,
		Logger:   logger,
	}

	app := &APIApp{cfg: cfg, logger: logger}
	var module hiringservice.Module

	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		store := memory.NewStore(nil, nil, cfg.HireLockTimeout, logger)
		module = hiringservice.NewModule(hiringservice.Dependencies{
			Store:            store,
			Notifier:         router,
			Clock:            store,
			IDGenerator:      store,
			HireMaxAttempts:  cfg.HireMaxAttempts,
			HireRetryBackoff: cfg.HireRetryBackoff,
			Logger:           logger,
		})
		module.Store = store
		bus := messaging.NewBus(cfg.EventBusBrokers, logger)
		app.relay = newOutboxRelay(store, store, bus, cfg, logger)
		app.audit = &workerapp.HiredAuditConsumer{Subscriber: bus, Topic: hiredTopic, Logger: logger}
		logger.Warn("POSTGRES_DSN not set, hiring state is held in memory",
			"event", "bootstrap_memory_store",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	} else {
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, cfg.HireLockTimeout, logger)
		if err := repo.Migrate(context.Background()); err != nil {
			_ = pg.Close()
			return nil, err
		}
		module = hiringservice.NewModule(hiringservice.Dependencies{
			Store:            repo,
			Notifier:         router,
			Clock:            postgresadapter.SystemClock{},
			IDGenerator:      postgresadapter.UUIDGenerator{},
			HireMaxAttempts:  cfg.HireMaxAttempts,
			HireRetryBackoff: cfg.HireRetryBackoff,
			Logger:           logger,
		})
		app.postgres = pg
	}

	app.server = httpserver.New(module, hub, logger, normalizeAddr(cfg.HTTPPort))
	return app, nil
}

// BuildWorker wires the outbox relay against Postgres.
func BuildWorker(cfg config.Config) (*WorkerApp, error) {
	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, cfg.HireLockTimeout, logger)
	bus := messaging.NewBus(cfg.EventBusBrokers, logger)
	return &WorkerApp{
		postgres:    pg,
		outboxRelay: *newOutboxRelay(repo, postgresadapter.SystemClock{}, bus, cfg, logger),
		audit:       workerapp.HiredAuditConsumer{Subscriber: bus, Topic: hiredTopic, Logger: logger},
		cfg:         cfg,
		logger:      logger,
	}, nil
}

func newOutboxRelay(
	outbox ports.OutboxRepository,
	clock ports.Clock,
	publisher ports.EventPublisher,
	cfg config.Config,
	logger *slog.Logger,
) *workerapp.OutboxRelay {
	return &workerapp.OutboxRelay{
		Outbox:    outbox,
		Publisher: publisher,
		Clock:     clock,
		Topic:     hiredTopic,
		BatchSize: cfg.OutboxBatchSize,
		Logger:    logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_relay", a.relay != nil,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	if a.audit != nil {
		if err := a.audit.Start(groupCtx); err != nil {
			return err
		}
	}
	group.Go(func() error {
		return a.server.Run(groupCtx)
	})
	if a.relay != nil {
		relay := a.relay
		group.Go(func() error {
			return relay.Run(groupCtx, a.cfg.OutboxPollInterval)
		})
	}
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.cfg.OutboxPollInterval.String(),
	)
	if err := w.audit.Start(ctx); err != nil {
		return err
	}
	return w.outboxRelay.Run(ctx, w.cfg.OutboxPollInterval)
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}

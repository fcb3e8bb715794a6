package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital_crm_backend/internal/adapters"
	"hospital_crm_backend/internal/campaigns"
	"hospital_crm_backend/internal/communications"
	"hospital_crm_backend/internal/dashboard"
	"hospital_crm_backend/internal/dispatch"
	"hospital_crm_backend/internal/events"
	apphttp "hospital_crm_backend/internal/http"
	"hospital_crm_backend/internal/http/router"
	"hospital_crm_backend/internal/leads"
	"hospital_crm_backend/internal/scheduler"
	"hospital_crm_backend/internal/surveys"
	"hospital_crm_backend/internal/tags"
	"hospital_crm_backend/internal/tasks"
	"hospital_crm_backend/internal/templates"
	"hospital_crm_backend/migrations"
	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/db"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.Files)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	dispatchClient, closeDispatch := initDispatchClient(cfg, log)
	if closeDispatch != nil {
		defer closeDispatch()
	}

	cacheClient := initCacheClient(cfg, log)
	if cacheClient != nil {
		defer func() {
			_ = cacheClient.Close()
		}()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	patientConverter := adapters.PatientConverter(cfg, log)

	leadsModule := leads.NewModule(pool, patientConverter, eventBus, val, log)
	tagsModule := tags.NewModule(pool, val)
	tasksModule := tasks.NewModule(pool, eventBus, val, log)
	templatesModule := templates.NewModule(pool, val, log)
	communicationsModule := communications.NewModule(pool, eventBus, val, log)
	campaignsModule := campaigns.NewModule(pool, leadsModule.AudienceSelector(), dispatchClient, eventBus, val, log)
	surveysModule := surveys.NewModule(pool, eventBus, val, log)

	dashboardModule := dashboard.NewModule(
		leadsModule.Service(),
		tasksModule.Service(),
		communicationsModule.Service(),
		surveysModule.Service(),
		cacheClient,
		cfg.GetDashboardCacheTTL(),
		eventBus,
		log,
	)

	webhookModule := dispatch.NewWebhookModule(campaignsModule.Service(), val, cfg.GetGatewayAPIKey(), log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			tagsModule,
			tasksModule,
			templatesModule,
			communicationsModule,
			campaignsModule,
			surveysModule,
			dashboardModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDispatchClient sets up the asynq client that hands launched
// campaigns to the background dispatcher.
func initDispatchClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; campaign dispatch disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initCacheClient connects the dashboard cache. A nil client disables
// caching; every dashboard read goes straight to the stores.
func initCacheClient(cfg config.CacheConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; dashboard cache disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital_crm_backend/internal/adapters"
	"hospital_crm_backend/internal/campaigns"
	"hospital_crm_backend/internal/dispatch"
	"hospital_crm_backend/internal/email"
	"hospital_crm_backend/internal/events"
	"hospital_crm_backend/internal/leads"
	"hospital_crm_backend/internal/scheduler"
	"hospital_crm_backend/internal/tasks"
	"hospital_crm_backend/internal/templates"
	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/db"
	"hospital_crm_backend/platform/logger"
	"hospital_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	// Worker-side module wiring (no HTTP handlers required). The leads
	// and tasks modules subscribe to the bus so events published during
	// dispatch still reach the timeline and scoring.
	patientConverter := adapters.PatientConverter(cfg, log)
	leadsModule := leads.NewModule(pool, patientConverter, eventBus, val, log)
	tasksModule := tasks.NewModule(pool, eventBus, val, log)
	templatesModule := templates.NewModule(pool, val, log)
	campaignsModule := campaigns.NewModule(pool, leadsModule.AudienceSelector(), client, eventBus, val, log)

	var emailSender dispatch.EmailSender
	if cfg.IsEmailEnabled() {
		emailSender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; email campaigns will fail to send")
	}
	gateway := dispatch.NewGatewayClient(cfg, log)
	if gateway == nil {
		log.Warn("messaging gateway not configured; SMS/WhatsApp campaigns will fail to send")
	}
	router := dispatch.Channels(emailSender, gateway)

	cron, err := scheduler.NewCron(cfg, log)
	if err != nil {
		log.Error("failed to initialize cron scheduler", "error", err)
		panic("failed to initialize cron scheduler: " + err.Error())
	}
	go cron.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, campaignsModule.Service(), tasksModule.Service(), templatesModule.Service(), router, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

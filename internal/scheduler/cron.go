package scheduler

import (
	"context"
	"fmt"

	"hospital_crm_backend/platform/config"
	"hospital_crm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Cron enqueues the periodic scans. It runs alongside the worker in the
// scheduler binary; asynq deduplicates entries across restarts by
// registration, so only one process should run it.
type Cron struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewCron(cfg config.SchedulerConfig, log *logger.Logger) (*Cron, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	scheduler := asynq.NewScheduler(opt, nil)

	entries := []struct {
		spec     string
		taskType string
	}{
		{"@every 1m", TaskCampaignDueLaunches},
		{"@every 1m", TaskCampaignCompletionScan},
		{"@every 15m", TaskFollowUpScan},
	}
	for _, entry := range entries {
		task := asynq.NewTask(entry.taskType, nil)
		if _, err := scheduler.Register(entry.spec, task, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register %s: %w", entry.taskType, err)
		}
	}

	return &Cron{scheduler: scheduler, log: log}, nil
}

func (c *Cron) Run(ctx context.Context) {
	if c == nil || c.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		c.scheduler.Shutdown()
	}()

	if err := c.scheduler.Run(); err != nil {
		c.log.Error("cron scheduler stopped", "error", err)
	}
}

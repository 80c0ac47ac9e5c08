package scheduler

import (
	"fmt"

	"trafficpool_backend/platform/config"
	"trafficpool_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic registers the recurring engine passes with asynq's cron
// scheduler. Enqueued tasks are drained by the Worker.
type Periodic struct {
	scheduler *asynq.Scheduler
	queue     string
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	p := &Periodic{
		scheduler: asynq.NewScheduler(opt, nil),
		queue:     queue,
		log:       log,
	}

	if err := p.register(cfg.GetRescoreCron(), newRescore, "cron"); err != nil {
		return nil, err
	}
	if err := p.register(cfg.GetDedupCron(), newDedup, "cron"); err != nil {
		return nil, err
	}

	return p, nil
}

func newRescore(reason string) (*asynq.Task, error) {
	return NewRescoreTask(RescorePayload{Reason: reason})
}

func newDedup(reason string) (*asynq.Task, error) {
	return NewDedupTask(DedupPayload{Reason: reason})
}

func (p *Periodic) register(cronSpec string, build func(string) (*asynq.Task, error), reason string) error {
	task, err := build(reason)
	if err != nil {
		return err
	}

	entryID, err := p.scheduler.Register(cronSpec, task, asynq.Queue(p.queue))
	if err != nil {
		return fmt.Errorf("failed to register %s on %q: %w", task.Type(), cronSpec, err)
	}

	p.log.Info("periodic task registered", "task", task.Type(), "cron", cronSpec, "entryId", entryID)
	return nil
}

// Run starts the cron scheduler and blocks until it stops.
func (p *Periodic) Run() error {
	return p.scheduler.Run()
}

// Shutdown stops the cron scheduler.
func (p *Periodic) Shutdown() {
	p.scheduler.Shutdown()
}

package scheduler

import (
	"context"
	"fmt"
	"time"

	"trafficpool_backend/platform/config"
	"trafficpool_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// EnginePassRunner runs one scoring and dedup pass over the working set.
// The pass is idempotent, so overlapping or repeated deliveries are safe.
type EnginePassRunner interface {
	Recompute(ctx context.Context) (int, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine EnginePassRunner
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine EnginePassRunner, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskRescore, w.handleRescore)
	mux.HandleFunc(TaskDedup, w.handleDedup)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleRescore(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseRescorePayload(task)
	if err != nil {
		return err
	}
	return w.runPass(ctx, "rescore", payload.Reason)
}

func (w *Worker) handleDedup(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDedupPayload(task)
	if err != nil {
		return err
	}
	return w.runPass(ctx, "dedup", payload.Reason)
}

func (w *Worker) runPass(ctx context.Context, pass, reason string) error {
	start := time.Now()
	leads, err := w.engine.Recompute(ctx)
	if err != nil {
		w.log.Error("engine pass failed", "pass", pass, "reason", reason, "error", err)
		return err
	}

	w.log.EnginePass(pass, leads, float64(time.Since(start).Milliseconds()))
	return nil
}

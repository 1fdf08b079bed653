// Package worker drains the publish queue: each popped job id is rendered
// through the export pipeline and stored with the configured provider.
package worker

import (
	"context"
	"time"

	"menuforge/internal/pkg/logger"
	"menuforge/internal/worker/processor"
	"menuforge/internal/worker/queue"
)

func Run(ctx context.Context, d Deps) error {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	log = log.WithComponent("worker")

	popTimeout := d.PopTimeout
	if popTimeout <= 0 {
		popTimeout = 5 * time.Second
	}
	retryDelay := d.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	q := queue.NewRedisQueue(d.RDB, d.QueueName)
	p := processor.New(processor.Deps{
		Store:   d.Store,
		Jobs:    q,
		SP:      d.SP,
		Metrics: d.Metrics,
		Log:     log,
	})

	log.Info("worker started", "queue", q.Name())
	for {
		select {
		case <-ctx.Done():
			log.Info("worker context canceled, stopping")
			return ctx.Err()
		default:
		}

		popCtx, cancel := context.WithTimeout(ctx, popTimeout+5*time.Second)
		jobID, err := q.Pop(popCtx, popTimeout)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				log.Info("worker stopping due to context cancellation")
				return ctx.Err()
			}

			log.WithError(err).Warn("queue pop error, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
			continue
		}

		if jobID == "" {
			continue
		}

		jobCtx := logger.ContextWithJobID(ctx, jobID)
		jobLog := log.WithJobID(jobID)

		jobLog.Info("processing job")
		startTime := time.Now()

		if err := p.ProcessJob(jobCtx, jobID); err != nil {
			log.LogError(jobCtx, "job failed", err,
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		} else {
			jobLog.Info("job completed",
				"duration_ms", time.Since(startTime).Milliseconds(),
			)
		}
	}
}

package worker

import (
	"time"

	"menuforge/internal/metrics"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/ports"
	"menuforge/internal/worker/processor"
	"menuforge/internal/worker/queue"
)

type Deps struct {
	Store     processor.Store
	RDB       queue.Client
	QueueName string
	SP        ports.StorageProvider
	Metrics   *metrics.Metrics
	Log       *logger.Logger

	// PopTimeout bounds one BRPOP so cancellation is noticed.
	PopTimeout time.Duration
	// RetryDelay is the pause after a failed pop.
	RetryDelay time.Duration
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/service"
	"github.com/RubachokBoss/hit-review/internal/worker/pool"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
)

type ReviewWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
	ActiveWorkers() int
	QueueLength() int
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	ProcessedToday int `json:"processed_today"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	QueueLength    int `json:"queue_length"`
}

type reviewWorker struct {
	workerPool    *pool.WorkerPool
	queueConsumer queue.ReviewRequestConsumer
	reviewService service.ReviewService
	logger        zerolog.Logger
	stats         WorkerStats
	statsMutex    sync.RWMutex
	startTime     time.Time
}

func NewReviewWorker(
	workerPool *pool.WorkerPool,
	queueConsumer queue.ReviewRequestConsumer,
	reviewService service.ReviewService,
	logger zerolog.Logger,
) ReviewWorker {
	return &reviewWorker{
		workerPool:    workerPool,
		queueConsumer: queueConsumer,
		reviewService: reviewService,
		logger:        logger,
		startTime:     time.Now(),
	}
}

func (w *reviewWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting review worker...")

	if err := w.workerPool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	msgs, err := w.queueConsumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Review worker started successfully")
	return nil
}

func (w *reviewWorker) Stop() error {
	w.logger.Info().Msg("Stopping review worker...")

	if err := w.queueConsumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	if err := w.workerPool.Stop(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to stop worker pool")
	}

	w.statsMutex.RLock()
	w.logger.Info().
		Int("total_processed", w.stats.TotalProcessed).
		Int("failed_jobs", w.stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Review worker stopped")
	w.statsMutex.RUnlock()

	return nil
}

func (w *reviewWorker) processMessages(ctx context.Context, deliveries <-chan queue.ReviewDelivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Stopping message processing")
			return
		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn().Msg("Review request channel closed")
				return
			}

			err := w.workerPool.Submit(ctx, func() {
				w.handle(ctx, d)
			})
			if err != nil {
				w.logger.Warn().Err(err).Msg("Could not schedule review request, requeueing")
				if requeueErr := d.Requeue(); requeueErr != nil {
					w.logger.Error().Err(requeueErr).Msg("Failed to requeue review request")
				}
			}
		}
	}
}

func (w *reviewWorker) handle(ctx context.Context, d queue.ReviewDelivery) {
	err := w.processDelivery(ctx, d)
	if err != nil {
		w.logger.Error().Err(err).Bool("redelivered", d.Redelivered).Msg("Failed to process review request")

		w.statsMutex.Lock()
		w.stats.FailedJobs++
		w.statsMutex.Unlock()

		if isPermanentError(err) {
			if ackErr := d.Ack(); ackErr != nil {
				w.logger.Error().Err(ackErr).Msg("Failed to ack review request")
			}
			return
		}

		if requeueErr := d.Requeue(); requeueErr != nil {
			w.logger.Error().Err(requeueErr).Msg("Failed to requeue review request")
		}
		return
	}

	if err := d.Ack(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to ack review request")
	}

	w.statsMutex.Lock()
	w.stats.TotalProcessed++
	if time.Since(d.RequestedAt).Hours() < 24 {
		w.stats.ProcessedToday++
	}
	w.statsMutex.Unlock()
}

func (w *reviewWorker) processDelivery(ctx context.Context, d queue.ReviewDelivery) error {
	if d.DecodeErr != nil {
		return permanent(d.DecodeErr)
	}

	req := d.Request
	w.logger.Info().
		Bool("dry_run", req.DryRun).
		Bool("apply_marketplace", req.ApplyMarketplace).
		Bool("organize", req.Organize).
		Str("requested_by", req.RequestedBy).
		Time("requested_at", d.RequestedAt).
		Msg("Processing review request")

	outcome, err := w.reviewService.RunReview(ctx, req)
	if err != nil {
		// A run that recorded a terminal state must not be replayed.
		if outcome != nil || errors.Is(err, service.ErrStoreUnavailable) {
			return permanent(err)
		}
		return err
	}

	return nil
}

func (w *reviewWorker) GetStats() WorkerStats {
	queueLength, err := w.queueConsumer.QueueLength()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to get queue length")
	}

	w.statsMutex.Lock()
	defer w.statsMutex.Unlock()

	if err == nil {
		w.stats.QueueLength = queueLength
	}
	w.stats.ActiveWorkers = w.workerPool.GetActiveWorkers()

	return w.stats
}

func (w *reviewWorker) ActiveWorkers() int {
	return w.workerPool.GetActiveWorkers()
}

func (w *reviewWorker) QueueLength() int {
	return w.GetStats().QueueLength
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

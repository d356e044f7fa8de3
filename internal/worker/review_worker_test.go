package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/service"
	"github.com/RubachokBoss/hit-review/internal/worker/pool"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
)

type mockReviewService struct {
	service.ReviewService

	RunReviewFunc func(ctx context.Context, req models.ReviewRequest) (*service.ReviewOutcome, error)
}

func (m *mockReviewService) RunReview(ctx context.Context, req models.ReviewRequest) (*service.ReviewOutcome, error) {
	return m.RunReviewFunc(ctx, req)
}

type ackResult struct {
	acked   bool
	nacked  bool
	requeue bool
}

func newDelivery(body string, res *ackResult) queue.ReviewDelivery {
	d := queue.ReviewDelivery{
		RequestedAt: time.Now(),
		Ack: func() error {
			res.acked = true
			return nil
		},
		Requeue: func() error {
			res.nacked = true
			res.requeue = true
			return nil
		},
	}

	event, err := queue.DecodeReviewRequest([]byte(body))
	if err != nil {
		d.DecodeErr = err
		return d
	}
	d.Request = event.ReviewRequest
	return d
}

func newTestWorker(svc service.ReviewService) *reviewWorker {
	return &reviewWorker{
		workerPool:    pool.NewWorkerPool(1, zerolog.Nop()),
		reviewService: svc,
		logger:        zerolog.Nop(),
		startTime:     time.Now(),
	}
}

func TestHandleRunsRequestedReview(t *testing.T) {
	var got models.ReviewRequest
	w := newTestWorker(&mockReviewService{
		RunReviewFunc: func(ctx context.Context, req models.ReviewRequest) (*service.ReviewOutcome, error) {
			got = req
			return &service.ReviewOutcome{Run: &models.ReviewRun{}}, nil
		},
	})

	var res ackResult
	w.handle(context.Background(), newDelivery(`{"dry_run":true,"organize":true,"timestamp":1700000000}`, &res))

	if !res.acked || res.nacked {
		t.Errorf("ack result = %+v, want acked", res)
	}
	if !got.DryRun || !got.Organize {
		t.Errorf("request = %+v", got)
	}
	if got.RequestedBy != "queue" {
		t.Errorf("RequestedBy = %q, want queue", got.RequestedBy)
	}
	if w.stats.TotalProcessed != 1 || w.stats.ProcessedToday != 1 {
		t.Errorf("stats = %+v", w.stats)
	}
}

func TestHandleFailures(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		outcome     *service.ReviewOutcome
		err         error
		wantRequeue bool
	}{
		{
			name: "undecodable body is dropped",
			body: `not json`,
		},
		{
			name:        "transient failure is requeued",
			body:        `{}`,
			err:         errors.New("database unavailable"),
			wantRequeue: true,
		},
		{
			name: "store unavailable is dropped",
			body: `{}`,
			err:  fmt.Errorf("%w: no such bucket", service.ErrStoreUnavailable),
		},
		{
			name:    "cancelled run with recorded outcome is dropped",
			body:    `{}`,
			outcome: &service.ReviewOutcome{Run: &models.ReviewRun{Status: "cancelled"}},
			err:     context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorker(&mockReviewService{
				RunReviewFunc: func(ctx context.Context, req models.ReviewRequest) (*service.ReviewOutcome, error) {
					return tt.outcome, tt.err
				},
			})

			var res ackResult
			w.handle(context.Background(), newDelivery(tt.body, &res))

			if tt.wantRequeue {
				if !res.nacked || !res.requeue || res.acked {
					t.Errorf("ack result = %+v, want nack with requeue", res)
				}
			} else if !res.acked || res.nacked {
				t.Errorf("ack result = %+v, want acked", res)
			}
			if w.stats.FailedJobs != 1 {
				t.Errorf("FailedJobs = %d, want 1", w.stats.FailedJobs)
			}
		})
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/repository"
	"github.com/RubachokBoss/hit-review/internal/service/analyzer"
	"github.com/RubachokBoss/hit-review/internal/service/integration"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
)

type ReviewService interface {
	RunReview(ctx context.Context, req models.ReviewRequest) (*ReviewOutcome, error)
	RequestReview(ctx context.Context, req models.ReviewRequest) error
	EvaluateRecord(ctx context.Context, record models.AssignmentRecord) (models.Verdict, error)
	GetRun(ctx context.Context, runID string) (*models.ReviewRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.ReviewRun, int, error)
	GetDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error)
	GetBans(ctx context.Context, runID string) ([]models.BanRecord, error)
	GetServiceStatus(ctx context.Context) (*models.HealthCheckResponse, error)
}

// ReviewOutcome is what one review run decided.
type ReviewOutcome struct {
	Run      *models.ReviewRun
	Verdicts []models.Verdict
	Bans     []models.BanDecision
}

// RejectedIDs returns the rejected assignment IDs in sorted order.
func (o *ReviewOutcome) RejectedIDs() []string {
	return lo.FilterMap(o.Verdicts, func(v models.Verdict, _ int) (string, bool) {
		return v.AssignmentID, v.ShouldReject()
	})
}

// BrokerPinger reports message broker connectivity.
type BrokerPinger interface {
	Ping() error
}

type ReviewConfig struct {
	Source               string
	FastThresholdMinutes float64
	BanRepeatThreshold   int
	PersistTimeout       time.Duration
}

type reviewService struct {
	reviewRepo  repository.ReviewRepository
	store       repository.AssignmentStore
	organizer   repository.AssignmentOrganizer
	marketplace integration.MarketplaceClient
	filter      *analyzer.QualityFilter
	events      queue.EventPublisher
	broker      BrokerPinger
	logger      zerolog.Logger
	config      ReviewConfig
	startTime   time.Time
}

func NewReviewService(
	reviewRepo repository.ReviewRepository,
	store repository.AssignmentStore,
	organizer repository.AssignmentOrganizer,
	marketplace integration.MarketplaceClient,
	filter *analyzer.QualityFilter,
	events queue.EventPublisher,
	broker BrokerPinger,
	logger zerolog.Logger,
	config ReviewConfig,
) ReviewService {
	if config.PersistTimeout <= 0 {
		config.PersistTimeout = 30 * time.Second
	}
	return &reviewService{
		reviewRepo:  reviewRepo,
		store:       store,
		organizer:   organizer,
		marketplace: marketplace,
		filter:      filter,
		events:      events,
		broker:      broker,
		logger:      logger,
		config:      config,
		startTime:   time.Now(),
	}
}

// RunReview evaluates every stored assignment and applies the requested side effects.
// Nothing is applied until the whole batch has been evaluated; a cancelled context
// stops further side effects and the run is recorded as cancelled.
func (s *reviewService) RunReview(ctx context.Context, req models.ReviewRequest) (*ReviewOutcome, error) {
	run := &models.ReviewRun{
		ID:          uuid.New().String(),
		Source:      s.config.Source,
		DryRun:      req.DryRun,
		Status:      models.RunStatusRunning.String(),
		RequestedBy: req.RequestedBy,
		StartedAt:   time.Now(),
	}

	if err := s.reviewRepo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create review run: %w", err)
	}

	logger := s.logger.With().Str("run_id", run.ID).Logger()
	logger.Info().
		Bool("dry_run", req.DryRun).
		Bool("apply_marketplace", req.ApplyMarketplace).
		Bool("organize", req.Organize).
		Msg("Review run started")

	stored, loadErrs := s.store.List(ctx)
	if err := ctx.Err(); err != nil {
		s.finishRun(ctx, run, models.RunStatusCancelled, err)
		return nil, err
	}
	if len(stored) == 0 && len(loadErrs) > 0 {
		err := fmt.Errorf("%w: %v", ErrStoreUnavailable, errors.Join(loadErrs...))
		s.finishRun(ctx, run, models.RunStatusFailed, err)
		return nil, err
	}
	for _, loadErr := range loadErrs {
		logger.Warn().Err(loadErr).Msg("Assignment record could not be loaded")
	}

	records := lo.Map(stored, func(sa repository.StoredAssignment, _ int) models.AssignmentRecord {
		return sa.Record
	})

	result, err := s.filter.FilterRecords(ctx, records)
	if err != nil {
		status := models.RunStatusFailed
		if ctx.Err() != nil {
			status = models.RunStatusCancelled
		}
		s.finishRun(ctx, run, status, err)
		return nil, fmt.Errorf("failed to filter assignments: %w", err)
	}

	bans := analyzer.AggregateRecords(records, s.config.FastThresholdMinutes, s.config.BanRepeatThreshold, logger)

	run.Tally(result.Verdicts)
	run.Banned = len(bans)

	if err := ctx.Err(); err != nil {
		logger.Warn().Msg("Review cancelled before applying decisions")
		s.finishRun(ctx, run, models.RunStatusCancelled, err)
		return nil, err
	}

	applyMarketplace := req.ApplyMarketplace && !req.DryRun
	organize := req.Organize && !req.DryRun

	cancelled := false
	decisions := make([]models.DecisionRecord, 0, len(result.Verdicts))
	for _, v := range result.Verdicts {
		record := models.DecisionRecord{
			RunID:        run.ID,
			AssignmentID: v.AssignmentID,
			WorkerID:     v.WorkerID,
			Decision:     v.Decision.String(),
			Reasons:      reasonStrings(v.Reasons),
			Duration:     v.DurationMinutes,
			CreatedAt:    time.Now(),
		}

		if !cancelled && ctx.Err() != nil {
			cancelled = true
			logger.Warn().Str("assignment_id", v.AssignmentID).Msg("Review cancelled, remaining decisions are recorded only")
		}

		if !cancelled && (v.Decision == models.DecisionApprove || v.Decision == models.DecisionReject) {
			approve := v.Decision == models.DecisionApprove
			if applyMarketplace {
				record.Marketplace = s.applyMarketplace(ctx, logger, v.AssignmentID, approve)
			}
			if organize {
				found, err := s.organizer.Organize(ctx, v.AssignmentID, approve)
				if err != nil {
					logger.Error().Err(err).Str("assignment_id", v.AssignmentID).Msg("Failed to organize assignment")
				}
				record.Organized = found && err == nil
			}
		}

		decisions = append(decisions, record)
	}

	banRecords := make([]models.BanRecord, 0, len(bans))
	for _, b := range bans {
		record := models.BanRecord{
			RunID:     run.ID,
			WorkerID:  b.WorkerID,
			FastCount: b.FastCount,
			CreatedAt: time.Now(),
		}

		if !cancelled && ctx.Err() != nil {
			cancelled = true
		}
		if !cancelled && applyMarketplace {
			if err := s.marketplace.BlockWorker(ctx, b.WorkerID); err != nil {
				logger.Error().Err(err).Str("worker_id", b.WorkerID).Msg("Failed to block worker")
			} else {
				record.Blocked = true
			}
		}

		banRecords = append(banRecords, record)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.PersistTimeout)
	defer cancel()

	if err := s.reviewRepo.SaveDecisions(persistCtx, decisions); err != nil {
		s.finishRun(persistCtx, run, models.RunStatusFailed, err)
		return nil, fmt.Errorf("failed to save decisions: %w", err)
	}
	if err := s.reviewRepo.SaveBans(persistCtx, banRecords); err != nil {
		s.finishRun(persistCtx, run, models.RunStatusFailed, err)
		return nil, fmt.Errorf("failed to save bans: %w", err)
	}

	status := models.RunStatusCompleted
	var runErr error
	if cancelled {
		status = models.RunStatusCancelled
		runErr = ctx.Err()
	}
	s.finishRun(persistCtx, run, status, runErr)

	s.publishOutcome(persistCtx, logger, run, decisions, banRecords)

	logger.Info().
		Int("total", run.Total).
		Int("approved", run.Approved).
		Int("rejected", run.Rejected).
		Int("needs_review", run.NeedsReview).
		Int("skipped", run.Skipped).
		Int("banned", run.Banned).
		Str("status", run.Status).
		Dur("elapsed", time.Since(run.StartedAt)).
		Msg("Review run finished")

	outcome := &ReviewOutcome{
		Run:      run,
		Verdicts: result.Verdicts,
		Bans:     bans,
	}
	if cancelled {
		return outcome, ctx.Err()
	}
	return outcome, nil
}

func (s *reviewService) applyMarketplace(ctx context.Context, logger zerolog.Logger, assignmentID string, approve bool) bool {
	var err error
	if approve {
		err = s.marketplace.ApproveAssignment(ctx, assignmentID)
	} else {
		err = s.marketplace.RejectAssignment(ctx, assignmentID)
	}
	if err != nil {
		logger.Error().
			Err(err).
			Str("assignment_id", assignmentID).
			Bool("approve", approve).
			Msg("Marketplace call failed")
		return false
	}
	return true
}

func (s *reviewService) finishRun(ctx context.Context, run *models.ReviewRun, status models.RunStatus, runErr error) {
	now := time.Now()
	run.Status = status.String()
	run.CompletedAt = &now
	if runErr != nil {
		msg := runErr.Error()
		run.Error = &msg
	}

	updateCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		updateCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.config.PersistTimeout)
		defer cancel()
	}

	if err := s.reviewRepo.UpdateRun(updateCtx, run); err != nil {
		s.logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to update review run")
	}
}

// publishOutcome emits run events. Broker failures are logged and do not fail the run.
func (s *reviewService) publishOutcome(ctx context.Context, logger zerolog.Logger, run *models.ReviewRun, decisions []models.DecisionRecord, bans []models.BanRecord) {
	for _, d := range decisions {
		event := models.AssignmentDecidedEvent{
			RunID:        run.ID,
			AssignmentID: d.AssignmentID,
			WorkerID:     d.WorkerID,
			Decision:     d.Decision,
			Reasons:      d.Reasons,
			DecidedAt:    d.CreatedAt,
		}
		if err := s.events.PublishAssignmentDecided(ctx, event); err != nil {
			logger.Error().Err(err).Str("assignment_id", d.AssignmentID).Msg("Failed to publish decision event")
		}
	}

	for _, b := range bans {
		event := models.WorkerBannedEvent{
			RunID:     run.ID,
			WorkerID:  b.WorkerID,
			FastCount: b.FastCount,
			BannedAt:  b.CreatedAt,
		}
		if err := s.events.PublishWorkerBanned(ctx, event); err != nil {
			logger.Error().Err(err).Str("worker_id", b.WorkerID).Msg("Failed to publish ban event")
		}
	}

	completed := models.ReviewCompletedEvent{
		RunID:       run.ID,
		Status:      run.Status,
		Total:       run.Total,
		Approved:    run.Approved,
		Rejected:    run.Rejected,
		NeedsReview: run.NeedsReview,
		Skipped:     run.Skipped,
		Banned:      run.Banned,
		CompletedAt: time.Now(),
	}
	if run.CompletedAt != nil {
		completed.CompletedAt = *run.CompletedAt
	}
	if err := s.events.PublishReviewCompleted(ctx, completed); err != nil {
		logger.Error().Err(err).Msg("Failed to publish review completed event")
	}
}

func (s *reviewService) RequestReview(ctx context.Context, req models.ReviewRequest) error {
	event := models.ReviewRequestedEvent{
		ReviewRequest: req,
		Timestamp:     time.Now().Unix(),
	}
	if err := s.events.PublishReviewRequested(ctx, event); err != nil {
		return fmt.Errorf("%w: %v", ErrQueueUnavailable, err)
	}

	s.logger.Info().
		Bool("dry_run", req.DryRun).
		Str("requested_by", req.RequestedBy).
		Msg("Review requested")
	return nil
}

// EvaluateRecord returns the verdict for a single record without side effects.
func (s *reviewService) EvaluateRecord(ctx context.Context, record models.AssignmentRecord) (models.Verdict, error) {
	assignment, err := record.ToAssignment()
	if err != nil {
		return analyzer.SkippedVerdict(record), err
	}
	return s.filter.Evaluate(ctx, assignment), nil
}

func (s *reviewService) GetRun(ctx context.Context, runID string) (*models.ReviewRun, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrInvalidRunID
	}

	run, err := s.reviewRepo.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get review run: %w", err)
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return run, nil
}

func (s *reviewService) ListRuns(ctx context.Context, limit, offset int) ([]models.ReviewRun, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.reviewRepo.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list review runs: %w", err)
	}
	return runs, total, nil
}

func (s *reviewService) GetDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	decisions, err := s.reviewRepo.GetDecisions(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decisions: %w", err)
	}
	return decisions, nil
}

func (s *reviewService) GetBans(ctx context.Context, runID string) ([]models.BanRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	bans, err := s.reviewRepo.GetBans(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bans: %w", err)
	}
	return bans, nil
}

func (s *reviewService) GetServiceStatus(ctx context.Context) (*models.HealthCheckResponse, error) {
	dbOK := true
	if err := s.reviewRepo.Ping(ctx); err != nil {
		dbOK = false
		s.logger.Error().Err(err).Msg("Database health check failed")
	}

	brokerOK := s.broker != nil
	if s.broker != nil {
		if err := s.broker.Ping(); err != nil {
			brokerOK = false
			s.logger.Error().Err(err).Msg("RabbitMQ health check failed")
		}
	}

	storeStatus := "ok"
	if err := s.store.Ping(ctx); err != nil {
		storeStatus = err.Error()
		s.logger.Error().Err(err).Msg("Assignment store health check failed")
	}

	response := &models.HealthCheckResponse{
		Status:    "healthy",
		Database:  dbOK,
		RabbitMQ:  brokerOK,
		Store:     storeStatus,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}

	if !dbOK || !brokerOK || storeStatus != "ok" {
		response.Status = "degraded"
	}

	return response, nil
}

func reasonStrings(reasons []models.Reason) []string {
	return lo.Map(reasons, func(r models.Reason, _ int) string {
		return string(r)
	})
}

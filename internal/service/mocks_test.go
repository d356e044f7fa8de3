package service

import (
	"context"
	"sync"

	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/repository"
)

type MockReviewRepository struct {
	mu        sync.Mutex
	runs      map[string]models.ReviewRun
	decisions []models.DecisionRecord
	bans      []models.BanRecord

	SaveDecisionsFunc func(ctx context.Context, decisions []models.DecisionRecord) error
	GetRunFunc        func(ctx context.Context, id string) (*models.ReviewRun, error)
	PingFunc          func(ctx context.Context) error
}

func newMockReviewRepository() *MockReviewRepository {
	return &MockReviewRepository{runs: make(map[string]models.ReviewRun)}
}

func (m *MockReviewRepository) CreateRun(ctx context.Context, run *models.ReviewRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *MockReviewRepository) UpdateRun(ctx context.Context, run *models.ReviewRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = *run
	return nil
}

func (m *MockReviewRepository) GetRun(ctx context.Context, id string) (*models.ReviewRun, error) {
	if m.GetRunFunc != nil {
		return m.GetRunFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (m *MockReviewRepository) ListRuns(ctx context.Context, limit, offset int) ([]models.ReviewRun, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make([]models.ReviewRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	return runs, len(runs), nil
}

func (m *MockReviewRepository) SaveDecisions(ctx context.Context, decisions []models.DecisionRecord) error {
	if m.SaveDecisionsFunc != nil {
		return m.SaveDecisionsFunc(ctx, decisions)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, decisions...)
	return nil
}

func (m *MockReviewRepository) GetDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decisions, nil
}

func (m *MockReviewRepository) SaveBans(ctx context.Context, bans []models.BanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bans = append(m.bans, bans...)
	return nil
}

func (m *MockReviewRepository) GetBans(ctx context.Context, runID string) ([]models.BanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bans, nil
}

func (m *MockReviewRepository) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockReviewRepository) onlyRun() models.ReviewRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		return run
	}
	return models.ReviewRun{}
}

type MockAssignmentStore struct {
	Records  []models.AssignmentRecord
	ListErrs []error
	PingFunc func(ctx context.Context) error
}

func (m *MockAssignmentStore) List(ctx context.Context) ([]repository.StoredAssignment, []error) {
	stored := make([]repository.StoredAssignment, 0, len(m.Records))
	for _, r := range m.Records {
		stored = append(stored, repository.StoredAssignment{Record: r, Name: r.AssignmentID, Key: r.AssignmentID + ".json"})
	}
	return stored, m.ListErrs
}

func (m *MockAssignmentStore) Locate(ctx context.Context, assignmentID string) (*repository.StoredAssignment, error) {
	for _, r := range m.Records {
		if r.AssignmentID == assignmentID {
			return &repository.StoredAssignment{Record: r}, nil
		}
	}
	return nil, nil
}

func (m *MockAssignmentStore) CopyToProfile(ctx context.Context, stored repository.StoredAssignment, folder string) error {
	return nil
}

func (m *MockAssignmentStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

type MockOrganizer struct {
	mu    sync.Mutex
	calls map[string]bool
}

func (m *MockOrganizer) Organize(ctx context.Context, assignmentID string, approve bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]bool)
	}
	m.calls[assignmentID] = approve
	return true, nil
}

type MockMarketplace struct {
	mu       sync.Mutex
	approved []string
	rejected []string
	blocked  []string

	ApproveFunc func(ctx context.Context, assignmentID string) error
	BlockFunc   func(ctx context.Context, workerID string) error
}

func (m *MockMarketplace) ApproveAssignment(ctx context.Context, assignmentID string) error {
	m.mu.Lock()
	m.approved = append(m.approved, assignmentID)
	m.mu.Unlock()
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, assignmentID)
	}
	return nil
}

func (m *MockMarketplace) RejectAssignment(ctx context.Context, assignmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected = append(m.rejected, assignmentID)
	return nil
}

func (m *MockMarketplace) BlockWorker(ctx context.Context, workerID string) error {
	m.mu.Lock()
	m.blocked = append(m.blocked, workerID)
	m.mu.Unlock()
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, workerID)
	}
	return nil
}

func (m *MockMarketplace) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.approved) + len(m.rejected) + len(m.blocked)
}

type MockEventPublisher struct {
	mu        sync.Mutex
	requested []models.ReviewRequestedEvent
	decided   []models.AssignmentDecidedEvent
	banned    []models.WorkerBannedEvent
	completed []models.ReviewCompletedEvent

	Err error
}

func (m *MockEventPublisher) PublishReviewRequested(ctx context.Context, event models.ReviewRequestedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requested = append(m.requested, event)
	return m.Err
}

func (m *MockEventPublisher) PublishAssignmentDecided(ctx context.Context, event models.AssignmentDecidedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decided = append(m.decided, event)
	return m.Err
}

func (m *MockEventPublisher) PublishWorkerBanned(ctx context.Context, event models.WorkerBannedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned = append(m.banned, event)
	return m.Err
}

func (m *MockEventPublisher) PublishReviewCompleted(ctx context.Context, event models.ReviewCompletedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, event)
	return m.Err
}

type MockDetector struct{}

func (MockDetector) Detect(ctx context.Context, text string) (string, error) {
	return "nb", nil
}

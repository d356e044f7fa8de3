package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

type ReviewRepository interface {
	CreateRun(ctx context.Context, run *models.ReviewRun) error
	UpdateRun(ctx context.Context, run *models.ReviewRun) error
	GetRun(ctx context.Context, id string) (*models.ReviewRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.ReviewRun, int, error)
	SaveDecisions(ctx context.Context, decisions []models.DecisionRecord) error
	GetDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error)
	SaveBans(ctx context.Context, bans []models.BanRecord) error
	GetBans(ctx context.Context, runID string) ([]models.BanRecord, error)
	Ping(ctx context.Context) error
}

type reviewRepository struct {
	*PostgresRepository
}

func NewReviewRepository(db *sql.DB, logger zerolog.Logger) ReviewRepository {
	return &reviewRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

const runColumns = `
	id, source, dry_run, status, total, approved, rejected, needs_review,
	skipped, banned, error, requested_by, started_at, completed_at`

func (r *reviewRepository) CreateRun(ctx context.Context, run *models.ReviewRun) error {
	query := `
		INSERT INTO review_runs (` + runColumns + `
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Source,
		run.DryRun,
		run.Status,
		run.Total,
		run.Approved,
		run.Rejected,
		run.NeedsReview,
		run.Skipped,
		run.Banned,
		run.Error,
		run.RequestedBy,
		run.StartedAt,
		run.CompletedAt,
	)

	return err
}

func (r *reviewRepository) UpdateRun(ctx context.Context, run *models.ReviewRun) error {
	query := `
		UPDATE review_runs
		SET
			status = $1,
			total = $2,
			approved = $3,
			rejected = $4,
			needs_review = $5,
			skipped = $6,
			banned = $7,
			error = $8,
			completed_at = $9
		WHERE id = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Status,
		run.Total,
		run.Approved,
		run.Rejected,
		run.NeedsReview,
		run.Skipped,
		run.Banned,
		run.Error,
		run.CompletedAt,
		run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *reviewRepository) GetRun(ctx context.Context, id string) (*models.ReviewRun, error) {
	query := `SELECT ` + runColumns + ` FROM review_runs WHERE id = $1`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *reviewRepository) ListRuns(ctx context.Context, limit, offset int) ([]models.ReviewRun, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_runs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + runColumns + `
		FROM review_runs
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var runs []models.ReviewRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}

	return runs, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *reviewRepository) scanRun(row rowScanner) (*models.ReviewRun, error) {
	run := &models.ReviewRun{}
	var (
		runError    sql.NullString
		requestedBy sql.NullString
		completedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID,
		&run.Source,
		&run.DryRun,
		&run.Status,
		&run.Total,
		&run.Approved,
		&run.Rejected,
		&run.NeedsReview,
		&run.Skipped,
		&run.Banned,
		&runError,
		&requestedBy,
		&run.StartedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if runError.Valid {
		run.Error = &runError.String
	}
	run.RequestedBy = requestedBy.String
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}

	return run, nil
}

// SaveDecisions stores all decisions of a run in one transaction.
func (r *reviewRepository) SaveDecisions(ctx context.Context, decisions []models.DecisionRecord) error {
	if len(decisions) == 0 {
		return nil
	}

	return r.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO assignment_decisions (
				run_id, assignment_id, worker_id, decision, reasons,
				duration_minutes, marketplace_applied, organized, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, d := range decisions {
			createdAt := d.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			if _, err := stmt.ExecContext(ctx,
				d.RunID,
				d.AssignmentID,
				d.WorkerID,
				d.Decision,
				pq.Array(d.Reasons),
				d.Duration,
				d.Marketplace,
				d.Organized,
				createdAt,
			); err != nil {
				return fmt.Errorf("failed to insert decision for %s: %w", d.AssignmentID, err)
			}
		}
		return nil
	})
}

func (r *reviewRepository) GetDecisions(ctx context.Context, runID string) ([]models.DecisionRecord, error) {
	query := `
		SELECT
			run_id, assignment_id, worker_id, decision, reasons,
			duration_minutes, marketplace_applied, organized, created_at
		FROM assignment_decisions
		WHERE run_id = $1
		ORDER BY assignment_id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []models.DecisionRecord
	for rows.Next() {
		var d models.DecisionRecord
		if err := rows.Scan(
			&d.RunID,
			&d.AssignmentID,
			&d.WorkerID,
			&d.Decision,
			pq.Array(&d.Reasons),
			&d.Duration,
			&d.Marketplace,
			&d.Organized,
			&d.CreatedAt,
		); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

func (r *reviewRepository) SaveBans(ctx context.Context, bans []models.BanRecord) error {
	if len(bans) == 0 {
		return nil
	}

	query := `
		INSERT INTO worker_bans (run_id, worker_id, fast_count, blocked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	return r.WithTx(ctx, func(tx *sql.Tx) error {
		for _, b := range bans {
			createdAt := b.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now()
			}
			if _, err := tx.ExecContext(ctx, query, b.RunID, b.WorkerID, b.FastCount, b.Blocked, createdAt); err != nil {
				return fmt.Errorf("failed to insert ban for %s: %w", b.WorkerID, err)
			}
		}
		return nil
	})
}

func (r *reviewRepository) GetBans(ctx context.Context, runID string) ([]models.BanRecord, error) {
	query := `
		SELECT run_id, worker_id, fast_count, blocked, created_at
		FROM worker_bans
		WHERE run_id = $1
		ORDER BY worker_id
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bans []models.BanRecord
	for rows.Next() {
		var b models.BanRecord
		if err := rows.Scan(&b.RunID, &b.WorkerID, &b.FastCount, &b.Blocked, &b.CreatedAt); err != nil {
			return nil, err
		}
		bans = append(bans, b)
	}

	return bans, rows.Err()
}

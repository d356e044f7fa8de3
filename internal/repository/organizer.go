package repository

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// AssignmentOrganizer files a decided assignment under its worker's profile.
type AssignmentOrganizer interface {
	// Organize copies the assignment artifacts into the approved or rejected
	// folder of the worker. It reports false when no stored record matches.
	Organize(ctx context.Context, assignmentID string, approve bool) (bool, error)
}

type storeOrganizer struct {
	store  AssignmentStore
	logger zerolog.Logger
}

func NewAssignmentOrganizer(store AssignmentStore, logger zerolog.Logger) AssignmentOrganizer {
	return &storeOrganizer{
		store:  store,
		logger: logger,
	}
}

func (o *storeOrganizer) Organize(ctx context.Context, assignmentID string, approve bool) (bool, error) {
	stored, err := o.store.Locate(ctx, assignmentID)
	if err != nil {
		return false, fmt.Errorf("failed to locate assignment %s: %w", assignmentID, err)
	}
	if stored == nil || stored.Record.WorkerID == "" {
		o.logger.Warn().Str("assignment_id", assignmentID).Msg("No matching record found for assignment")
		return false, nil
	}

	folder := profileFolder(approve)
	if err := o.store.CopyToProfile(ctx, *stored, folder); err != nil {
		return false, fmt.Errorf("failed to organize assignment %s: %w", assignmentID, err)
	}

	o.logger.Info().
		Str("assignment_id", assignmentID).
		Str("worker_id", stored.Record.WorkerID).
		Str("folder", folder).
		Msg("Assignment organized")

	return true, nil
}

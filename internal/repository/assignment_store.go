package repository

import (
	"context"
	"strings"

	"github.com/RubachokBoss/hit-review/internal/models"
)

const (
	recordExt = ".json"
	textExt   = ".txt"

	approvedFolder = "approved"
	rejectedFolder = "rejected"
)

// StoredAssignment is a decoded assignment record and the location of its artifacts.
type StoredAssignment struct {
	Record models.AssignmentRecord
	// Name is the artifact base name without extension.
	Name string
	// Key is the path or object key of the JSON record.
	Key string
	// TextKey is the path or object key of the plain text rendition, empty if absent.
	TextKey string
}

// AssignmentStore reads raw assignment records and relocates their artifacts
// into per-worker profile folders.
type AssignmentStore interface {
	// List decodes every record. Records that fail to load are reported in the
	// error slice and do not stop the listing.
	List(ctx context.Context) ([]StoredAssignment, []error)
	// Locate returns the stored assignment with the given ID, or nil when none matches.
	Locate(ctx context.Context, assignmentID string) (*StoredAssignment, error)
	// CopyToProfile copies the artifacts into <profiles>/<workerId>/<folder>/.
	CopyToProfile(ctx context.Context, stored StoredAssignment, folder string) error
	Ping(ctx context.Context) error
}

func profileFolder(approve bool) string {
	if approve {
		return approvedFolder
	}
	return rejectedFolder
}

func textKeyFor(key string) string {
	return strings.TrimSuffix(key, recordExt) + textExt
}

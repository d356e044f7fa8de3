package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

// FileAssignmentStore keeps parsed HIT records as <name>.json files in a directory,
// optionally next to a <name>.txt rendition.
type FileAssignmentStore struct {
	dir         string
	profilesDir string
	logger      zerolog.Logger

	mu    sync.RWMutex
	index map[string]StoredAssignment
}

func NewFileAssignmentStore(dir, profilesDir string, logger zerolog.Logger) *FileAssignmentStore {
	return &FileAssignmentStore{
		dir:         dir,
		profilesDir: profilesDir,
		logger:      logger,
	}
}

func (s *FileAssignmentStore) List(ctx context.Context) ([]StoredAssignment, []error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read assignment directory %s: %w", s.dir, err)}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), recordExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var (
		stored []StoredAssignment
		errs   []error
	)
	index := make(map[string]StoredAssignment, len(names))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, append(errs, err)
		}

		sa, err := s.load(name)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to load assignment record")
			errs = append(errs, err)
			continue
		}

		stored = append(stored, sa)
		if sa.Record.AssignmentID != "" {
			index[sa.Record.AssignmentID] = sa
		}
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	s.logger.Debug().
		Str("dir", s.dir).
		Int("records", len(stored)).
		Int("errors", len(errs)).
		Msg("Listed assignment records")

	return stored, errs
}

func (s *FileAssignmentStore) load(name string) (StoredAssignment, error) {
	path := filepath.Join(s.dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return StoredAssignment{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var record models.AssignmentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return StoredAssignment{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	sa := StoredAssignment{
		Record: record,
		Name:   strings.TrimSuffix(name, recordExt),
		Key:    path,
	}
	if textPath := textKeyFor(path); fileExists(textPath) {
		sa.TextKey = textPath
	}

	return sa, nil
}

func (s *FileAssignmentStore) Locate(ctx context.Context, assignmentID string) (*StoredAssignment, error) {
	s.mu.RLock()
	sa, ok := s.index[assignmentID]
	indexed := s.index != nil
	s.mu.RUnlock()

	if ok {
		return &sa, nil
	}
	if indexed {
		return nil, nil
	}

	stored, errs := s.List(ctx)
	if len(stored) == 0 && len(errs) > 0 {
		return nil, errs[0]
	}
	for i := range stored {
		if stored[i].Record.AssignmentID == assignmentID {
			return &stored[i], nil
		}
	}
	return nil, nil
}

func (s *FileAssignmentStore) CopyToProfile(ctx context.Context, stored StoredAssignment, folder string) error {
	if stored.Record.WorkerID == "" {
		return errors.New("stored assignment has no worker id")
	}

	target := filepath.Join(s.profilesDir, stored.Record.WorkerID, folder)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	if err := copyFile(stored.Key, filepath.Join(target, filepath.Base(stored.Key))); err != nil {
		return err
	}
	s.logger.Debug().
		Str("file", filepath.Base(stored.Key)).
		Str("target", target).
		Msg("Copied assignment record")

	if stored.TextKey != "" {
		if err := copyFile(stored.TextKey, filepath.Join(target, filepath.Base(stored.TextKey))); err != nil {
			return err
		}
	}

	return nil
}

func (s *FileAssignmentStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return out.Close()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/models"
)

type MinIOConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
	ConnectTimeout time.Duration
	// Prefix holds the parsed records, ProfilesPrefix the per-worker folders.
	Prefix         string
	ProfilesPrefix string
}

// MinIOAssignmentStore keeps parsed HIT records as objects under a bucket prefix.
type MinIOAssignmentStore struct {
	client *minio.Client
	config MinIOConfig
	logger zerolog.Logger

	ensureMu      sync.Mutex
	bucketEnsured bool

	mu    sync.RWMutex
	index map[string]StoredAssignment
}

func NewMinIOAssignmentStore(cfg MinIOConfig, logger zerolog.Logger) (*MinIOAssignmentStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOAssignmentStore{
		client: client,
		config: cfg,
		logger: logger,
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Not fatal: the bucket is checked again on every call.
	if err := store.ensureBucket(ctx); err != nil {
		logger.Error().Err(err).
			Str("endpoint", cfg.Endpoint).
			Str("bucket", cfg.Bucket).
			Msg("MinIO not ready during startup, will retry on demand")
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Str("prefix", cfg.Prefix).
		Bool("ssl", cfg.UseSSL).
		Msg("Connected to MinIO")

	return store, nil
}

func (s *MinIOAssignmentStore) ensureBucket(ctx context.Context) error {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	if s.bucketEnsured {
		return nil
	}

	backoff := 500 * time.Millisecond
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("minio not ready: %w", err)
		}

		exists, err := s.client.BucketExists(ctx, s.config.Bucket)
		if err != nil {
			s.sleep(ctx, backoff)
			continue
		}

		if !exists {
			if err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{Region: s.config.Region}); err != nil {
				s.sleep(ctx, backoff)
				continue
			}
			s.logger.Info().Str("bucket", s.config.Bucket).Msg("Created new bucket")
		}

		s.bucketEnsured = true
		return nil
	}
}

func (s *MinIOAssignmentStore) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

func (s *MinIOAssignmentStore) List(ctx context.Context) ([]StoredAssignment, []error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, []error{err}
	}

	keys := make(map[string]struct{})
	var recordKeys []string

	objectCh := s.client.ListObjects(ctx, s.config.Bucket, minio.ListObjectsOptions{
		Prefix:    s.recordPrefix(),
		Recursive: false,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, []error{fmt.Errorf("failed to list objects: %w", object.Err)}
		}
		keys[object.Key] = struct{}{}
		if strings.HasSuffix(object.Key, recordExt) {
			recordKeys = append(recordKeys, object.Key)
		}
	}
	sort.Strings(recordKeys)

	var (
		stored []StoredAssignment
		errs   []error
	)
	index := make(map[string]StoredAssignment, len(recordKeys))

	for _, key := range recordKeys {
		record, err := s.load(ctx, key)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Failed to load assignment record")
			errs = append(errs, err)
			continue
		}

		sa := StoredAssignment{
			Record: record,
			Name:   strings.TrimSuffix(path.Base(key), recordExt),
			Key:    key,
		}
		if _, ok := keys[textKeyFor(key)]; ok {
			sa.TextKey = textKeyFor(key)
		}

		stored = append(stored, sa)
		if record.AssignmentID != "" {
			index[record.AssignmentID] = sa
		}
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	return stored, errs
}

func (s *MinIOAssignmentStore) load(ctx context.Context, key string) (models.AssignmentRecord, error) {
	object, err := s.client.GetObject(ctx, s.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer object.Close()

	var record models.AssignmentRecord
	if err := json.NewDecoder(object).Decode(&record); err != nil {
		return models.AssignmentRecord{}, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return record, nil
}

func (s *MinIOAssignmentStore) Locate(ctx context.Context, assignmentID string) (*StoredAssignment, error) {
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

func (s *MinIOAssignmentStore) CopyToProfile(ctx context.Context, stored StoredAssignment, folder string) error {
	if stored.Record.WorkerID == "" {
		return errors.New("stored assignment has no worker id")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	target := path.Join(s.config.ProfilesPrefix, stored.Record.WorkerID, folder)

	for _, key := range []string{stored.Key, stored.TextKey} {
		if key == "" {
			continue
		}
		dst := path.Join(target, path.Base(key))
		_, err := s.client.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: s.config.Bucket, Object: dst},
			minio.CopySrcOptions{Bucket: s.config.Bucket, Object: key},
		)
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", key, err)
		}

		s.logger.Debug().
			Str("bucket", s.config.Bucket).
			Str("source", key).
			Str("target", dst).
			Msg("Copied assignment object")
	}

	return nil
}

func (s *MinIOAssignmentStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.config.Bucket)
	}
	return nil
}

func (s *MinIOAssignmentStore) recordPrefix() string {
	prefix := strings.Trim(s.config.Prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

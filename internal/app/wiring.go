package app

import (
	"database/sql"
	"fmt"
	"path"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/config"
	"github.com/RubachokBoss/hit-review/internal/repository"
	"github.com/RubachokBoss/hit-review/internal/service"
	"github.com/RubachokBoss/hit-review/internal/service/analyzer"
	"github.com/RubachokBoss/hit-review/internal/service/integration"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
)

// NewAssignmentStore builds the configured assignment store backend.
func NewAssignmentStore(cfg *config.Config, log zerolog.Logger) (repository.AssignmentStore, string, error) {
	switch cfg.Storage.Provider {
	case "fs":
		store := repository.NewFileAssignmentStore(cfg.Storage.ParsedHitsDir, cfg.Storage.UserProfilesDir, log)
		return store, "fs:" + cfg.Storage.ParsedHitsDir, nil
	case "minio":
		store, err := repository.NewMinIOAssignmentStore(repository.MinIOConfig{
			Endpoint:       cfg.MinIO.Endpoint,
			AccessKey:      cfg.MinIO.AccessKey,
			SecretKey:      cfg.MinIO.SecretKey,
			Bucket:         cfg.Storage.Bucket,
			Region:         cfg.MinIO.Region,
			UseSSL:         cfg.MinIO.UseSSL,
			ConnectTimeout: cfg.MinIO.ConnectTimeout,
			Prefix:         cfg.Storage.Prefix,
			ProfilesPrefix: cfg.Storage.ProfilesPrefix,
		}, log)
		if err != nil {
			return nil, "", err
		}
		return store, "minio:" + path.Join(cfg.Storage.Bucket, cfg.Storage.Prefix), nil
	default:
		return nil, "", fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// NewMarketplaceClient returns the MTurk client when enabled and a logging no-op otherwise.
func NewMarketplaceClient(cfg config.MarketplaceConfig, log zerolog.Logger) (integration.MarketplaceClient, error) {
	if !cfg.Enabled {
		return integration.NoopMarketplaceClient{Logger: log}, nil
	}

	return integration.NewMTurkClient(integration.MarketplaceConfig{
		Region:     cfg.Region,
		Endpoint:   cfg.Endpoint,
		AccessKey:  cfg.AccessKey,
		SecretKey:  cfg.SecretKey,
		Timeout:    cfg.Timeout,
		RetryCount: cfg.RetryCount,
		RetryDelay: cfg.RetryDelay,
	}, log)
}

func NewQualityFilter(cfg *config.Config, log zerolog.Logger) *analyzer.QualityFilter {
	detector := analyzer.NewLinguaDetector(cfg.Language.MinRelativeDistance)
	checker := analyzer.NewLanguageChecker(detector, cfg.Language.Expected, cfg.Language.Timeout, log)

	return analyzer.NewQualityFilter(checker, analyzer.FilterConfig{
		MinDurationMinutes:   cfg.Review.MinDurationMinutes,
		UndeterminedLanguage: cfg.Review.UndeterminedLanguage,
		MaxWorkers:           cfg.Review.MaxWorkers,
	}, log)
}

// NewReviewService wires the review pipeline over the given database and event sink.
// broker may be nil when no message broker is connected.
func NewReviewService(
	cfg *config.Config,
	log zerolog.Logger,
	db *sql.DB,
	events queue.EventPublisher,
	broker service.BrokerPinger,
) (service.ReviewService, error) {
	store, source, err := NewAssignmentStore(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment store: %w", err)
	}

	marketplace, err := NewMarketplaceClient(cfg.Marketplace, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create marketplace client: %w", err)
	}

	return service.NewReviewService(
		repository.NewReviewRepository(db, log),
		store,
		repository.NewAssignmentOrganizer(store, log),
		marketplace,
		NewQualityFilter(cfg, log),
		events,
		broker,
		log,
		service.ReviewConfig{
			Source:               source,
			FastThresholdMinutes: cfg.Review.FastThresholdMinutes,
			BanRepeatThreshold:   cfg.Review.BanRepeatThreshold,
			PersistTimeout:       cfg.Review.PersistTimeout,
		},
	), nil
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/config"
	"github.com/RubachokBoss/hit-review/internal/delivery/httpd"
	"github.com/RubachokBoss/hit-review/internal/repository"
	"github.com/RubachokBoss/hit-review/internal/worker"
	"github.com/RubachokBoss/hit-review/internal/worker/pool"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
)

type App struct {
	server       *http.Server
	logger       zerolog.Logger
	config       *config.Config
	db           *sql.DB
	reviewWorker worker.ReviewWorker
	rabbitMQRepo repository.RabbitMQRepository
	ctx          context.Context
	cancel       context.CancelFunc
}

func New(cfg *config.Config, log zerolog.Logger, db *sql.DB) (*App, error) {
	rabbitMQRepo, err := repository.NewRabbitMQRepository(cfg.RabbitMQ.URL, log)
	if err != nil {
		return nil, err
	}

	if err := rabbitMQRepo.SetupQueue(
		cfg.RabbitMQ.Exchange,
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.RoutingKey,
	); err != nil {
		rabbitMQRepo.Close()
		return nil, err
	}

	rabbitMQPublisher := queue.NewRabbitMQPublisher(rabbitMQRepo.Channel(), log)
	reviewConsumer := queue.NewReviewRequestConsumer(
		rabbitMQRepo.Channel(),
		cfg.RabbitMQ.QueueName,
		cfg.RabbitMQ.ConsumerTag,
		cfg.RabbitMQ.PrefetchCount,
		log,
	)
	events := queue.NewEventPublisher(rabbitMQPublisher, cfg.RabbitMQ.Exchange, log)

	reviewService, err := NewReviewService(cfg, log, db, events, rabbitMQRepo)
	if err != nil {
		rabbitMQRepo.Close()
		return nil, err
	}

	// Review runs are heavy; the queue worker runs them one or two at a time.
	workerPool := pool.NewWorkerPool(cfg.RabbitMQ.PrefetchCount, log)

	reviewWorker := worker.NewReviewWorker(
		workerPool,
		reviewConsumer,
		reviewService,
		log,
	)

	handler := httpd.NewHandler(
		reviewService,
		reviewWorker,
		log,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(httpd.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.Server.WriteTimeout))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	handler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		ctx:          ctx,
		cancel:       cancel,
		server:       server,
		logger:       log,
		config:       cfg,
		db:           db,
		reviewWorker: reviewWorker,
		rabbitMQRepo: rabbitMQRepo,
	}, nil
}

func (a *App) Run() error {
	if err := a.reviewWorker.Start(a.ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to start review worker")
		return err
	}

	a.logger.Info().Msgf("Starting review service on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down review service...")

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown HTTP server")
	}

	a.cancel()

	if err := a.reviewWorker.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop review worker")
	}

	if a.rabbitMQRepo != nil {
		if err := a.rabbitMQRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}

	a.logger.Info().Msg("Review service stopped")
	return nil
}

// ShutdownTimeout is the grace period for Shutdown, defaulting to 30s.
func (a *App) ShutdownTimeout() time.Duration {
	if a.config.Server.ShutdownTimeout > 0 {
		return a.config.Server.ShutdownTimeout
	}
	return 30 * time.Second
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/hit-review/internal/app"
	"github.com/RubachokBoss/hit-review/internal/config"
	"github.com/RubachokBoss/hit-review/internal/database"
	"github.com/RubachokBoss/hit-review/internal/models"
	"github.com/RubachokBoss/hit-review/internal/worker/queue"
	"github.com/RubachokBoss/hit-review/pkg/logger"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			direction := "up"
			if len(os.Args) > 2 {
				direction = os.Args[2]
			}
			runMigrations(direction)
			return
		case "review":
			runReview(os.Args[2:])
			return
		}
	}

	runServer()
}

func loadConfig() (*config.Config, zerolog.Logger) {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	return cfg, logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

func runServer() {
	cfg, log := loadConfig()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}

	log.Info().Msg("Database connection established")

	application, err := app.New(cfg, log, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	go func() {
		if err := application.Run(); err != nil {
			log.Fatal().Err(err).Msg("Failed to run application")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down HIT review service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), application.ShutdownTimeout())
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown gracefully")
	}
}

func runMigrations(direction string) {
	cfg, log := loadConfig()

	migrator, err := database.NewMigrator(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create migrator")
	}

	switch direction {
	case "up":
		if err := migrator.Up(); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
		log.Info().Msg("Migrations applied successfully")
	case "down":
		if err := migrator.Down(); err != nil {
			log.Fatal().Err(err).Msg("Failed to rollback migrations")
		}
		log.Info().Msg("Migrations rolled back successfully")
	default:
		log.Fatal().Msg("Invalid migration direction. Use 'up' or 'down'")
	}
}

// runReview runs a single review batch and prints the rejected assignments and banned workers.
func runReview(args []string) {
	fs := flag.NewFlagSet("review", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "evaluate only, apply no side effects")
	marketplace := fs.Bool("marketplace", false, "approve, reject and block on the marketplace")
	organize := fs.Bool("organize", false, "copy decided assignments into worker profiles")
	requestedBy := fs.String("requested-by", "cli", "who started the review")
	_ = fs.Parse(args)

	cfg, log := loadConfig()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	reviewService, err := app.NewReviewService(cfg, log, db, queue.NopEventPublisher{}, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create review service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome, err := reviewService.RunReview(ctx, models.ReviewRequest{
		DryRun:           *dryRun,
		ApplyMarketplace: *marketplace,
		Organize:         *organize,
		RequestedBy:      *requestedBy,
	})
	if err != nil && (outcome == nil || !errors.Is(err, context.Canceled)) {
		log.Fatal().Err(err).Msg("Review failed")
	}

	fmt.Printf("run %s: %s\n", outcome.Run.ID, outcome.Run.Status)
	fmt.Println("rejected assignments:")
	for _, id := range outcome.RejectedIDs() {
		fmt.Println(" ", id)
	}
	fmt.Println("banned workers:")
	for _, ban := range outcome.Bans {
		fmt.Printf("  %s (%d fast assignments)\n", ban.WorkerID, ban.FastCount)
	}
}

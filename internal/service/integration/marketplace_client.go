package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/mturk"
	"github.com/aws/aws-sdk-go/service/mturk/mturkiface"
	"github.com/rs/zerolog"
)

const (
	ApproveFeedback = "Good work, thank you!"
	RejectFeedback  = "Your work did not meet the required standards, as you had too few correct multiple choice answers or wrong sourcing. We encourage you to try again!"
	BlockReason     = "Repeatedly submitting low-quality work"

	SandboxEndpoint    = "https://mturk-requester-sandbox.us-east-1.amazonaws.com"
	ProductionEndpoint = "https://mturk-requester.us-east-1.amazonaws.com"
)

// MarketplaceClient applies review decisions on the crowdsourcing marketplace.
type MarketplaceClient interface {
	ApproveAssignment(ctx context.Context, assignmentID string) error
	RejectAssignment(ctx context.Context, assignmentID string) error
	BlockWorker(ctx context.Context, workerID string) error
}

type MarketplaceConfig struct {
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Timeout    time.Duration
	RetryCount int
	RetryDelay time.Duration
}

type mturkClient struct {
	api        mturkiface.MTurkAPI
	timeout    time.Duration
	retryCount int
	retryDelay time.Duration
	logger     zerolog.Logger
}

func NewMTurkClient(cfg MarketplaceConfig, logger zerolog.Logger) (MarketplaceClient, error) {
	awsCfg := &aws.Config{
		Region: aws.String(cfg.Region),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	logger.Info().
		Str("region", cfg.Region).
		Str("endpoint", cfg.Endpoint).
		Msg("Marketplace client initialized")

	return NewMTurkClientWithAPI(mturk.New(sess), cfg, logger), nil
}

func NewMTurkClientWithAPI(api mturkiface.MTurkAPI, cfg MarketplaceConfig, logger zerolog.Logger) MarketplaceClient {
	return &mturkClient{
		api:        api,
		timeout:    cfg.Timeout,
		retryCount: cfg.RetryCount,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

func (c *mturkClient) ApproveAssignment(ctx context.Context, assignmentID string) error {
	err := c.withRetry(ctx, "approve", func(ctx context.Context) error {
		_, err := c.api.ApproveAssignmentWithContext(ctx, &mturk.ApproveAssignmentInput{
			AssignmentId:      aws.String(assignmentID),
			RequesterFeedback: aws.String(ApproveFeedback),
			OverrideRejection: aws.Bool(false),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to approve assignment %s: %w", assignmentID, err)
	}

	c.logger.Info().Str("assignment_id", assignmentID).Msg("Approved assignment")
	return nil
}

func (c *mturkClient) RejectAssignment(ctx context.Context, assignmentID string) error {
	err := c.withRetry(ctx, "reject", func(ctx context.Context) error {
		_, err := c.api.RejectAssignmentWithContext(ctx, &mturk.RejectAssignmentInput{
			AssignmentId:      aws.String(assignmentID),
			RequesterFeedback: aws.String(RejectFeedback),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to reject assignment %s: %w", assignmentID, err)
	}

	c.logger.Info().Str("assignment_id", assignmentID).Msg("Rejected assignment")
	return nil
}

func (c *mturkClient) BlockWorker(ctx context.Context, workerID string) error {
	err := c.withRetry(ctx, "block", func(ctx context.Context) error {
		_, err := c.api.CreateWorkerBlockWithContext(ctx, &mturk.CreateWorkerBlockInput{
			WorkerId: aws.String(workerID),
			Reason:   aws.String(BlockReason),
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to block worker %s: %w", workerID, err)
	}

	c.logger.Info().Str("worker_id", workerID).Msg("Blocked worker")
	return nil
}

// withRetry runs call up to retryCount+1 times with a linearly growing delay.
// Request errors reported by the marketplace are not retried.
func (c *mturkClient) withRetry(ctx context.Context, op string, call func(ctx context.Context) error) error {
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("operation", op).Msg("Retrying marketplace call")
			select {
			case <-time.After(c.retryDelay * time.Duration(i)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		callCtx := ctx
		cancel := func() {}
		if c.timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		}
		err := call(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
	}

	return fmt.Errorf("giving up after %d attempts: %w", c.retryCount+1, lastErr)
}

// IsPermanent reports whether the marketplace rejected the request itself,
// e.g. for an assignment that was already decided.
func IsPermanent(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == mturk.ErrCodeRequestError
	}
	return false
}

// NoopMarketplaceClient logs decisions without calling the marketplace.
type NoopMarketplaceClient struct {
	Logger zerolog.Logger
}

func (c NoopMarketplaceClient) ApproveAssignment(ctx context.Context, assignmentID string) error {
	c.Logger.Debug().Str("assignment_id", assignmentID).Msg("Marketplace disabled, approve skipped")
	return nil
}

func (c NoopMarketplaceClient) RejectAssignment(ctx context.Context, assignmentID string) error {
	c.Logger.Debug().Str("assignment_id", assignmentID).Msg("Marketplace disabled, reject skipped")
	return nil
}

func (c NoopMarketplaceClient) BlockWorker(ctx context.Context, workerID string) error {
	c.Logger.Debug().Str("worker_id", workerID).Msg("Marketplace disabled, block skipped")
	return nil
}

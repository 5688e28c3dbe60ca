package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igfeed/pkg/config"
	errs "igfeed/pkg/errors"
	"igfeed/pkg/logger"
)

// Operation is one attempt at a request
type Operation func(ctx context.Context) error

// OperationWithResult is one attempt at a request that yields a value
type OperationWithResult[T any] func(ctx context.Context) (T, error)

// Config describes a retry policy. MaxAttempts 0 retries until RetryIf
// rejects an error or the context ends.
type Config struct {
	MaxAttempts int
	Backoff     BackoffStrategy
	RetryIf     func(error) bool
	// OnRetry runs after a failure that will be retried, before the pause
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig makes three attempts with exponential backoff
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// FromConfig turns the retry section of the application config into a
// policy. A disabled section yields a single attempt.
func FromConfig(rc config.RetryConfig, log logger.Logger) *Config {
	attempts := rc.MaxAttempts
	if !rc.Enabled || attempts < 1 {
		attempts = 1
	}
	return &Config{
		MaxAttempts: attempts,
		Backoff: &ExponentialBackoff{
			BaseDelay:    rc.BaseDelay,
			MaxDelay:     rc.MaxDelay,
			Multiplier:   rc.Multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: DefaultRetryIf,
		Logger:  log,
	}
}

// DefaultRetryIf accepts only errors classified as transient. A cancelled
// or expired context is never retried, even when wrapped as transient.
func DefaultRetryIf(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	default:
		return errs.IsRetryable(errs.TypeOf(err))
	}
}

// Do runs op until it succeeds, fails with an error RetryIf rejects, runs out
// of attempts, or ctx ends during a pause. A nil cfg means DefaultConfig.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	p := policy{cfg}
	log := p.logger()

	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		if !p.retryable(err) {
			return err
		}
		if p.exhausted(attempt) {
			log.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
				"attempts":   attempt,
				"last_error": err.Error(),
			})
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		delay := p.delay(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"error":        err.Error(),
			"delay_ms":     delay.Milliseconds(),
			"max_attempts": cfg.MaxAttempts,
		})

		if werr := Wait(ctx, delay); werr != nil {
			log.WarnWithFields("retry cancelled", map[string]interface{}{"attempt": attempt})
			return fmt.Errorf("retry cancelled: %w", werr)
		}
	}
}

// DoWithResult is Do for operations that return a value. The value of the
// last attempt is returned alongside its error.
func DoWithResult[T any](ctx context.Context, op OperationWithResult[T], cfg *Config) (T, error) {
	var v T
	err := Do(ctx, func(ctx context.Context) error {
		var err error
		v, err = op(ctx)
		return err
	}, cfg)
	return v, err
}

type policy struct{ *Config }

func (p policy) logger() logger.Logger {
	if p.Logger == nil {
		return logger.Nop()
	}
	return p.Logger
}

func (p policy) retryable(err error) bool {
	if p.RetryIf == nil {
		return DefaultRetryIf(err)
	}
	return p.RetryIf(err)
}

func (p policy) exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

func (p policy) delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff.NextDelay(attempt)
}

package errors

import (
	"context"
	"math"
	"time"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	Multiplier      float64
	RetryableErrors []ErrorCode
}

// DefaultRetryConfig returns default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: []ErrorCode{
			ErrCodeNetwork,
			ErrCodeTimeout,
		},
	}
}

// RetryFunc is a function that can be retried
type RetryFunc func() error

// RetryWithConfig retries a function with custom configuration
func RetryWithConfig(ctx context.Context, fn RetryFunc, config *RetryConfig) error {
	op := RetryOperation{Name: "retry", Fn: fn, Config: config}
	return op.Execute(ctx)
}

// Retry retries a function with default configuration
func Retry(ctx context.Context, fn RetryFunc) error {
	return RetryWithConfig(ctx, fn, DefaultRetryConfig())
}

// isRetryableError checks if an error is retryable based on configuration
func isRetryableError(err error, retryableCodes []ErrorCode) bool {
	var gwErr *GatewayError
	if As(err, &gwErr) {
		for _, code := range retryableCodes {
			if gwErr.Code == code {
				return true
			}
		}
		return gwErr.IsRetryable()
	}

	// Fallback to generic retryable check
	return IsRetryable(err)
}

// ExponentialBackoff calculates exponential backoff delay
func ExponentialBackoff(attempt int, baseDelay time.Duration, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return baseDelay
	}

	delay := baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// RetryOperation represents an operation that can be retried
type RetryOperation struct {
	Name      string
	Fn        RetryFunc
	Config    *RetryConfig
	OnRetry   func(attempt int, err error)
	OnSuccess func()
	OnFailure func(err error)
}

// Execute runs the retry operation. Non-retryable errors are returned as is.
func (op *RetryOperation) Execute(ctx context.Context) error {
	if op.Config == nil {
		op.Config = DefaultRetryConfig()
	}

	var lastErr error
	delay := op.Config.InitialDelay
	maxAttempts := max(op.Config.MaxAttempts, 1)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			op.fail(ctx.Err())
			return ctx.Err()
		default:
		}

		err := op.Fn()
		if err == nil {
			if op.OnSuccess != nil {
				op.OnSuccess()
			}
			return nil
		}
		lastErr = err

		if !isRetryableError(err, op.Config.RetryableErrors) {
			op.fail(err)
			return err
		}

		// Don't retry on last attempt
		if attempt == maxAttempts {
			break
		}
		if op.OnRetry != nil {
			op.OnRetry(attempt, err)
		}

		select {
		case <-ctx.Done():
			op.fail(ctx.Err())
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * op.Config.Multiplier)
		if delay > op.Config.MaxDelay {
			delay = op.Config.MaxDelay
		}
	}

	op.fail(lastErr)

	// Wrap the last error with retry information
	return WrapGatewayError(
		lastErr,
		ErrCodeInternal,
		"",
		"operation '"+op.Name+"' failed after retries",
	).WithContext("attempts", maxAttempts)
}

func (op *RetryOperation) fail(err error) {
	if op.OnFailure != nil {
		op.OnFailure(err)
	}
}

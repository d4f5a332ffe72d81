package http

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// ErrorType classifies a storage error for the retry loop.
type ErrorType int

const (
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential covers expired tokens, 401/403 and bad SAS signatures.
	ErrorTypeCredential
	// ErrorTypeNetwork covers resets, refused connections and timeouts.
	ErrorTypeNetwork
	// ErrorTypeRetryable covers throttling and 5xx responses.
	ErrorTypeRetryable
	// ErrorTypeFatal is everything else. Never retried.
	ErrorTypeFatal
)

// RetryConfig holds parameters for ExecuteWithRetry.
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// CredentialPause is how long to wait before retrying a credential error.
	CredentialPause time.Duration
	// OnRetry is invoked before every retry sleep.
	OnRetry func(attempt int, err error, errorType ErrorType)
}

// DefaultRetryConfig is used by the object-store uploaders.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		CredentialPause: time.Second,
	}
}

var (
	credentialMarkers = []string{
		"expired", "invalid token", "403", "401", "unauthorized",
		"authenticationfailed", "authentication failed", "invalid sas",
		"signature not valid", "authorization failure", "accessdenied",
	}
	networkMarkers = []string{
		"tls handshake timeout", "connection reset", "i/o timeout", "eof",
		"connection refused", "broken pipe", "timeout",
	}
	retryableMarkers = []string{
		"requesttimeout", "internalerror", "serviceunavailable", "service unavailable",
		"slowdown", "throttl", "429", "500", "502", "503", "504",
		"serverbusy", "server busy", "operationtimeout",
	}
)

// ClassifyError maps an error to its retry strategy by inspecting its text.
// S3 and Azure both surface service codes in the message, so string matching
// covers both SDKs.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, credentialMarkers):
		return ErrorTypeCredential
	case containsAny(msg, networkMarkers):
		return ErrorTypeNetwork
	case containsAny(msg, retryableMarkers):
		return ErrorTypeRetryable
	default:
		return ErrorTypeFatal
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// CalculateBackoff returns an exponential backoff with full jitter:
// random(0, min(maxDelay, initialDelay * 2^attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 || initialDelay <= 0 {
		return 0
	}
	base := time.Duration(1<<uint(min(attempt, 30))) * initialDelay
	if base > maxDelay || base <= 0 {
		base = maxDelay
	}
	return time.Duration(rand.Int63n(int64(base)))
}

// ExecuteWithRetry runs op until it succeeds, returns a fatal error, or the
// attempt budget is spent. Sleeps between attempts end early when ctx is done.
func ExecuteWithRetry(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		if errType == ErrorTypeFatal {
			return err
		}
		if attempt == cfg.MaxRetries-1 {
			break
		}

		wait := CalculateBackoff(attempt, cfg.InitialDelay, cfg.MaxDelay)
		if errType == ErrorTypeCredential {
			wait = cfg.CredentialPause
		}
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < wait {
			return fmt.Errorf("deadline too close to retry: %w", err)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, errType)
		}
		if err := sleepCtx(ctx, wait); err != nil {
			return fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrorTypeName returns a short label for log fields.
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

package ai

import (
	"context"
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"resumaker/internal/errors"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

var (
	retryBaseDelay = time.Second
	retryMaxDelay  = 30 * time.Second
)

// executeWithRetry runs fn up to maxRetries+1 times with exponential
// backoff and jitter, stopping early on errors that cannot succeed later.
func executeWithRetry[T any](ctx context.Context, logger *errors.Logger, operation string, maxRetries int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("Retrying generation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoff(attempt)):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info("Generation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			return zero, err
		}
	}

	logger.LogError(lastErr, "Generation failed after all retry attempts",
		"operation", operation,
		"total_attempts", maxRetries+1)

	return zero, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

func backoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(min(attempt-1, 10)))) * retryBaseDelay
	var jitter time.Duration
	if maxJitter := int64(float64(base) * 0.1); maxJitter > 0 {
		n, _ := rand.Int(rand.Reader, big.NewInt(maxJitter))
		jitter = time.Duration(n.Int64())
	}
	return min(base+jitter, retryMaxDelay)
}

// isRetryableError reports transient failures: network errors and
// throttling or server-side HTTP statuses from either provider SDK.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var genaiErr genai.APIError
	if stderrors.As(err, &genaiErr) {
		return retryableStatus(genaiErr.Code)
	}

	var openaiErr *openai.APIError
	if stderrors.As(err, &openaiErr) {
		return retryableStatus(openaiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if stderrors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	return false
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

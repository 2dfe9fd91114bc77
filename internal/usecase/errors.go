package usecase

import (
	"context"
	"errors"
	"net/http"

	"github.com/riskibarqy/ladder-cache/internal/domain/leaderboard"
	"github.com/riskibarqy/ladder-cache/internal/platform/resilience"
)

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrConfiguration         = errors.New("configuration error")
)

// StatusHint infers the HTTP-style status recorded on a failed partition.
func StatusHint(err error) int {
	if err == nil {
		return 0
	}

	var perr *leaderboard.ProviderError
	if errors.As(err, &perr) && perr != nil {
		if perr.StatusCode > 0 {
			return perr.StatusCode
		}
		switch perr.Kind {
		case leaderboard.ErrorKindNotFound:
			return http.StatusNotFound
		case leaderboard.ErrorKindRateLimited:
			return http.StatusTooManyRequests
		case leaderboard.ErrorKindTransient:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrDependencyUnavailable),
		errors.Is(err, resilience.ErrCircuitOpen),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// classifyProviderError maps provider error kinds onto retry classes.
// Errors without a kind are treated as transient.
func classifyProviderError(err error) resilience.RetryDecision {
	var perr *leaderboard.ProviderError
	if !errors.As(err, &perr) || perr == nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return resilience.RetryDecision{Class: resilience.RetryClassPermanent}
		}
		return resilience.RetryDecision{Class: resilience.RetryClassRetryable}
	}

	switch perr.Kind {
	case leaderboard.ErrorKindNotFound:
		return resilience.RetryDecision{Class: resilience.RetryClassAbsent}
	case leaderboard.ErrorKindRateLimited:
		return resilience.RetryDecision{Class: resilience.RetryClassRateLimited, RetryAfter: perr.RetryAfter}
	case leaderboard.ErrorKindFatal:
		return resilience.RetryDecision{Class: resilience.RetryClassPermanent}
	default:
		return resilience.RetryDecision{Class: resilience.RetryClassRetryable}
	}
}

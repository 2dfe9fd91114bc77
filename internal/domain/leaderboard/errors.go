package leaderboard

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies failures produced at the provider boundary.
type ErrorKind string

const (
	// ErrorKindNotFound covers "no ranked data" and "forbidden" responses.
	ErrorKindNotFound    ErrorKind = "not_found"
	ErrorKindRateLimited ErrorKind = "rate_limited"
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindFatal       ErrorKind = "fatal"
)

// ProviderError is the tagged error every RankProvider implementation returns
// for failed calls. Retry policy dispatches on Kind.
type ProviderError struct {
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := string(e.Kind)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status=%d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewProviderError(kind ErrorKind, statusCode int, err error) *ProviderError {
	return &ProviderError{Kind: kind, StatusCode: statusCode, Err: err}
}

// KindOf returns the provider error kind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		return perr.Kind, true
	}
	return "", false
}

func IsNotFound(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == ErrorKindNotFound
}

func IsRateLimited(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == ErrorKindRateLimited
}

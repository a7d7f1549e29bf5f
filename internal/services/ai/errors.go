package ai

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrRateLimited means the provider asked us to slow down; retrying later works.
	ErrRateLimited = errors.New("points suggester rate limited")
	// ErrQuotaExceeded means the account is out of credit; retrying does not help.
	ErrQuotaExceeded = errors.New("points suggester quota exceeded")
	// ErrUnavailable covers provider-side 5xx answers.
	ErrUnavailable = errors.New("points suggester unavailable")
	// ErrEmptyResponse is returned when the completion carries no choices.
	ErrEmptyResponse = errors.New("no choices in completion response")
)

// ProviderError is a failed call to the model API.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status onto ErrQuotaExceeded, ErrRateLimited or ErrUnavailable.
// OpenAI reports an exhausted quota as a 429 with code insufficient_quota.
func (e *ProviderError) Unwrap() error {
	switch {
	case e.Code == "insufficient_quota":
		return ErrQuotaExceeded
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode >= http.StatusInternalServerError:
		return ErrUnavailable
	}
	return nil
}

// classifyError turns an SDK API error into a *ProviderError. Transport
// errors pass through unchanged.
func classifyError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	pe := &ProviderError{
		StatusCode: apiErr.StatusCode,
		Code:       apiErr.Code,
		Message:    apiErr.Message,
	}
	if apiErr.Response != nil {
		pe.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"), time.Now())
	}
	return pe
}

// parseRetryAfter reads either form of the Retry-After header.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// IsRateLimitError reports whether err is a temporary rate limit.
func IsRateLimitError(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsQuotaError reports whether err is an exhausted quota.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded)
}

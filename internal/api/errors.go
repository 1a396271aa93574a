package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
)

var (
	// ErrServerError marks a 5xx response from GitHub. Callers may skip the
	// affected record; the client does not retry.
	ErrServerError = errors.New("github server error")

	// ErrDiffUnavailable marks GitHub failing to produce a pull request diff,
	// e.g. "Sorry, there was a problem generating this diff".
	ErrDiffUnavailable = errors.New("pull request diff unavailable")
)

// RateLimitError is returned when the API budget is exhausted
type RateLimitError struct {
	ResetTime time.Time
	Err       error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, resets at %s: %v", e.ResetTime.Format(time.RFC3339), e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// classifyError maps go-github errors onto the kinds callers handle
// individually. Anything unrecognised is returned unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		return &RateLimitError{ResetTime: rle.Rate.Reset.Time, Err: err}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := time.Now()
		if abuse.RetryAfter != nil {
			reset = reset.Add(*abuse.RetryAfter)
		}
		return &RateLimitError{ResetTime: reset, Err: err}
	}

	var resp *github.ErrorResponse
	if !errors.As(err, &resp) || resp.Response == nil {
		return err
	}

	status := resp.Response.StatusCode
	if isDiffFailure(status, resp.Message) {
		return fmt.Errorf("%w: %w", ErrDiffUnavailable, err)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: %w", ErrServerError, err)
	}
	return err
}

func isDiffFailure(status int, message string) bool {
	if status < http.StatusInternalServerError && status != http.StatusNotAcceptable && status != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(message), "diff")
}

package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/logger"

	"github.com/sirupsen/logrus"
)

// Sleeper waits for d or until ctx is done, whichever comes first
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy parameterises a retry loop. Delays double from BaseDelay:
// with BaseDelay=1s and MaxRetries=3 the waits are 1s, 2s, 4s.
type Policy struct {
	Name       string
	MaxRetries int
	BaseDelay  time.Duration
	Retryable  func(error) bool
	Sleep      Sleeper
}

// CloudPolicy is used for cloud reasoning calls: 4 attempts total
func CloudPolicy() Policy {
	return Policy{Name: "cloud", MaxRetries: 3, BaseDelay: time.Second, Retryable: IsTransient}
}

// RegistryPolicy is used for facility registry lookups: 3 attempts total
func RegistryPolicy() Policy {
	return Policy{Name: "registry", MaxRetries: 2, BaseDelay: time.Second, Retryable: IsTransient}
}

// FetchPolicy is used for remote image downloads
func FetchPolicy() Policy {
	return Policy{Name: "fetch", MaxRetries: 2, BaseDelay: time.Second, Retryable: IsTransient}
}

// Delay returns the wait before retry number n (0-based)
func (p Policy) Delay(n int) time.Duration {
	return p.BaseDelay << uint(n)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// retry budget is spent. The last error is returned unchanged.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for functions returning a value
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = TimerSleep
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt >= p.MaxRetries {
			return zero, fmt.Errorf("%s: giving up after %d attempts: %w", p.Name, attempt+1, err)
		}

		delay := p.Delay(attempt)
		logger.WithError(err).WithFields(logrus.Fields{
			"policy":  p.Name,
			"attempt": attempt + 1,
			"delay":   delay.String(),
		}).Warn("Retrying after transient failure")

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}

// TimerSleep is a cooperative wait that returns early on cancellation
func TimerSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusError carries an HTTP-like status code from a remote service
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// NewStatusError wraps err with a status code
func NewStatusError(code int, err error) *StatusError {
	return &StatusError{StatusCode: code, Err: err}
}

// IsTransient reports whether err is a server error (5xx) or a
// transport-level failure. Client errors (4xx), malformed requests and
// cancellation are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

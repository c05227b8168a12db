// Copyright 2025 Papyrus Search
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package retry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrInvalidMaxAttempts is returned when a policy is configured with a
// non-positive attempt count.
var ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

// FatalError marks an error that must not be retried. Do stops on the first
// fatal error regardless of remaining attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so that Do gives up immediately.
func Fatal(err error) error {
	return &FatalError{Err: err}
}

// IsFatal reports whether err carries the non-retryable marker.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// Policy describes an exponential backoff schedule.
type Policy struct {
	// MaxAttempts is the maximum number of attempts (must be > 0).
	MaxAttempts int

	// BaseDelay is the delay after the first failure; it doubles on each
	// subsequent failure.
	BaseDelay time.Duration

	// Sleep waits for the given duration or until the context is done.
	// Nil means a real timer; tests inject a recording stub.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Delay returns the backoff delay that follows the given attempt (1-based).
// It is a pure function of the policy so schedules can be asserted without
// sleeping.
func (p Policy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Do runs operation until it succeeds, returns a fatal error, exhausts
// MaxAttempts, or the context is cancelled. It returns the number of attempts
// actually made alongside the terminal error, if any.
//
// Cancellation is only observed between attempts, so an attempt that is
// already running finishes before Do gives up.
func (p Policy) Do(ctx context.Context, operation func() error) (int, error) {
	if p.MaxAttempts <= 0 {
		return 0, ErrInvalidMaxAttempts
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = timerSleep
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return attempt - 1, ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return attempt, nil
		}

		if IsFatal(lastErr) {
			slog.Debug("operation failed with non-retryable error", "attempt", attempt, "error", lastErr)
			return attempt, lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", p.MaxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return attempt, err
		}
	}

	return p.MaxAttempts, lastErr
}

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

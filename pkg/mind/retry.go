// Copyright 2025 Tom Barlow
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

package mind

import (
	"context"
	"time"
)

// Retry policy constants. The backoff grows as baseBackoff * 2^attempt,
// capped at maxBackoff.
const (
	baseBackoff = 250 * time.Millisecond
	maxBackoff  = 2 * time.Second
)

// retryPolicy bounds the sequential attempt loop for one call.
type retryPolicy struct {
	// maxAttempts is retries + 1 (the initial try counts).
	maxAttempts int
}

// backoffDelay returns the delay after the given zero-based failed attempt:
// min(2s, 250ms * 2^attempt).
func backoffDelay(attempt int) time.Duration {
	d := baseBackoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// Sleeper suspends execution between retry attempts. The production sleeper
// waits on the wall clock; tests inject one that records the delays.
// It must return the context's error if the context ends first.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepContext is the default Sleeper.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// attemptFunc performs one request attempt.
type attemptFunc func(ctx context.Context) (Response, error)

// attemptState is the retry loop's explicit state.
type attemptState int

const (
	stateIdle attemptState = iota
	stateAttempting
	stateBackoff
	stateSucceeded
	stateFailed
)

// retryableError reports whether a failed attempt may be re-tried.
// API errors carry their own classification; transport errors are
// retryable unless the caller's context ended.
func retryableError(err error) bool {
	switch e := err.(type) {
	case *APIError:
		return e.Retryable
	case *TransportError:
		return e.Retryable
	default:
		return false
	}
}

// execute drives the attempt state machine until a terminal state.
// Attempts are strictly sequential; only the final outcome escapes.
func execute(ctx context.Context, policy retryPolicy, sleep Sleeper, fn attemptFunc) (Response, int, error) {
	var (
		state   = stateIdle
		attempt int
		resp    Response
		lastErr error
	)

	for {
		switch state {
		case stateIdle:
			state = stateAttempting

		case stateAttempting:
			resp, lastErr = fn(ctx)
			switch {
			case lastErr == nil:
				state = stateSucceeded
			case !retryableError(lastErr) || attempt+1 >= policy.maxAttempts:
				state = stateFailed
			default:
				state = stateBackoff
			}

		case stateBackoff:
			if err := sleep(ctx, backoffDelay(attempt)); err != nil {
				lastErr = &TransportError{Cause: err, Retryable: false}
				state = stateFailed
				break
			}
			attempt++
			state = stateAttempting

		case stateSucceeded:
			return resp, attempt + 1, nil

		case stateFailed:
			return nil, attempt + 1, lastErr
		}
	}
}

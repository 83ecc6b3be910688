/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package pollutil implements the one retry/poll helper every long-running
// wait in the core is built from, replacing the "polling loops with a flat
// counter" pattern the design notes call out: a helper that takes
// {period, cap, errorBudget} and returns either the polled value or a
// typed timeout error.
package pollutil

import (
	"context"
	"fmt"
	"time"

	"go.smartdc.io/fleetadm/internal/errs"
)

// Budget bounds one poll loop.
type Budget struct {
	Period           time.Duration
	MaxIterations    int
	MaxTransportErrs int
}

// Default5s720 is the standard job/health poll budget: a 5-second period,
// a 720-iteration cap (~1h), and a 5-consecutive-error transport budget.
var Default5s720 = Budget{Period: 5 * time.Second, MaxIterations: 720, MaxTransportErrs: 5}

// Func is polled once per iteration. It returns (value, done, err): done
// means stop polling successfully with value; err means this iteration
// failed (counted against the transport-error budget) and should be
// retried; a nil err with done=false means "keep polling, nothing to
// report yet".
type Func[T any] func(ctx context.Context) (value T, done bool, err error)

// Poll runs fn under b's budget. It returns the value fn reported done
// with, or a typed timeout/error-budget-exceeded error.
func Poll[T any](ctx context.Context, op string, b Budget, fn Func[T]) (T, error) {
	var zero T
	consecutiveErrs := 0

	for i := 0; i < b.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return zero, errs.Internal(op, ctx.Err())
		default:
		}

		val, done, err := fn(ctx)
		if err != nil {
			consecutiveErrs++
			if consecutiveErrs >= b.MaxTransportErrs {
				return zero, errs.Internal(op, fmt.Errorf("%d consecutive transport errors: %w", consecutiveErrs, err))
			}
		} else {
			consecutiveErrs = 0
			if done {
				return val, nil
			}
		}

		select {
		case <-ctx.Done():
			return zero, errs.Internal(op, ctx.Err())
		case <-time.After(b.Period):
		}
	}
	return zero, errs.Internal(op, fmt.Errorf("timed out after %d iterations", b.MaxIterations))
}

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

// Package lock implements the process-wide file-backed mutex: a
// single advisory lock at a fixed path guaranteeing only one
// planner/executor runs per host. Built on github.com/gofrs/flock, whose
// OS-level advisory locks are reclaimed automatically on abnormal process
// exit, satisfying the crash-safety requirement without a hand-rolled
// stale-sentinel-file scheme.
package lock

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"go.smartdc.io/fleetadm/internal/errs"
	"go.smartdc.io/fleetadm/internal/observability"
)

// progressAfter is how long Acquire waits silently before emitting a
// progress line.
const progressAfter = 1 * time.Second

const retryInterval = 100 * time.Millisecond

// Lock is a held or unheld process-wide mutex. The zero value is not
// usable; construct with New.
type Lock struct {
	fl  *flock.Flock
	log *zap.SugaredLogger
}

// New returns a Lock bound to path, not yet acquired.
func New(path string, log *zap.SugaredLogger) *Lock {
	return &Lock{fl: flock.New(path), log: log}
}

// Token is the held lock, passed explicitly to operations that require
// mutual exclusion rather than acquired implicitly. Release is idempotent.
type Token struct {
	fl *flock.Flock
}

// Acquire blocks indefinitely until the lock is obtained or ctx is
// canceled. A progress line is logged after 1s of waiting.
func (l *Lock) Acquire(ctx context.Context) (*Token, error) {
	start := time.Now()

	progress := time.AfterFunc(progressAfter, func() {
		if l.log != nil {
			l.log.Infow("waiting for lock", "path", l.fl.Path())
		}
	})
	defer progress.Stop()

	ok, err := l.fl.TryLockContext(ctx, retryInterval)
	if err != nil {
		return nil, errs.Internal("lock.Acquire", err)
	}
	if !ok {
		return nil, errs.Internal("lock.Acquire", ctx.Err())
	}
	observability.RecordLockWait(time.Since(start))
	return &Token{fl: l.fl}, nil
}

// Release unlocks the token. Safe to call more than once.
func (t *Token) Release() error {
	if t == nil || t.fl == nil {
		return nil
	}
	if !t.fl.Locked() {
		return nil
	}
	if err := t.fl.Unlock(); err != nil {
		return errs.Internal("lock.Release", err)
	}
	return nil
}

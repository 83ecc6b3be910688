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

// Package errs implements the error taxonomy shared by every core component:
// a small set of kinds rather than a zoo of types, so callers can dispatch on
// Kind() instead of type-asserting concrete structs.
package errs

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Kind classifies a failure for retry and reporting policy. The core never
// retries on any kind by itself; only explicit pollers (pollutil.Poll)
// retry a failed iteration, against their own error budget.
type Kind int

const (
	// KindUsage marks a bad CLI invocation.
	KindUsage Kind = iota
	// KindValidation marks a failed change-set rule.
	KindValidation
	// KindUpdate marks a semantic failure: unknown service, no candidate
	// image, denylisted service.
	KindUpdate
	// KindUpstream marks an error response from a remote API.
	KindUpstream
	// KindInternal marks transport failures, I/O errors, and unexpected
	// payloads.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindValidation:
		return "validation"
	case KindUpdate:
		return "update"
	case KindUpstream:
		return "upstream"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the single concrete error type behind every Kind. Construct it
// through the Kind-specific functions below, never with a struct literal.
type Error struct {
	Kind     Kind
	Op       string            // the failing operation, e.g. "sapi.UpdateService"
	Upstream string            // upstream tag (sapi, vmapi, cnapi, imgapi, wfapi, updates); empty unless Kind == KindUpstream
	Context  map[string]string // plan id, reboot id, node id... anything that locates server-side state
	cause    error
	stack    []byte // captured only for Internal/Upstream; nil otherwise
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Op)
	if e.Upstream != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Upstream)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.cause }

// Stack returns the captured stack trace, if any. Only Internal and Upstream
// errors capture one, to keep the common validation/usage path allocation-free.
func (e *Error) Stack() string { return string(e.stack) }

// WithContext attaches a key for locating server-side state and returns the
// same error for chaining.
func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func newError(kind Kind, op string, cause error, captureStack bool) *Error {
	e := &Error{Kind: kind, Op: op, cause: cause}
	if captureStack {
		e.stack = debug.Stack()
	}
	return e
}

// Usage builds a KindUsage error for a bad CLI invocation or malformed change.
func Usage(op string, cause error) *Error {
	return newError(KindUsage, op, cause, false)
}

// Validation builds a KindValidation error for a failed change-set rule.
func Validation(op string, cause error) *Error {
	return newError(KindValidation, op, cause, false)
}

// Update builds a KindUpdate error for a semantic planning failure.
func Update(op string, cause error) *Error {
	return newError(KindUpdate, op, cause, false)
}

// Upstream builds a KindUpstream error tagging the remote service that
// returned it.
func Upstream(upstream, op string, cause error) *Error {
	e := newError(KindUpstream, op, cause, true)
	e.Upstream = upstream
	return e
}

// Internal builds a KindInternal error for transport/I/O/parse failures.
func Internal(op string, cause error) *Error {
	return newError(KindInternal, op, cause, true)
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// MultiError aggregates several errors from a step that collects all
// violations instead of stopping at the first (the change validator, the
// change resolver).
type MultiError struct {
	errs []error
}

// NewMultiError returns nil if errs is empty, so callers can always write
// `if err := NewMultiError(violations); err != nil`.
func NewMultiError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return &MultiError{errs: errs}
}

func (m *MultiError) Error() string {
	if len(m.errs) == 1 {
		return m.errs[0].Error()
	}
	msg := fmt.Sprintf("%d errors:", len(m.errs))
	for _, e := range m.errs {
		msg += "\n  - " + e.Error()
	}
	return msg
}

// Errors returns the aggregated errors for callers that need to inspect them
// individually (tests, verbose reporting).
func (m *MultiError) Errors() []error { return m.errs }

// Append adds err to a slice of collected violations unless err is nil, and
// returns the updated slice. Convenience for the pass/pass style validators.
func Append(errs []error, err error) []error {
	if err == nil {
		return errs
	}
	return append(errs, err)
}

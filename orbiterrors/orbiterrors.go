// Package orbiterrors implements Orbit's typed error taxonomy:
// IO, Corruption, NotFound, AccessDenied, Conflict, PolicyViolation,
// Exhausted, Timeout, IntegrityFailure, and Cancelled. Core packages build
// their classified errors with New or Wrap so callers can classify failures
// with Is/KindOf instead of string-matching (the low-level cid, codec, and
// merkle packages return plain sentinel errors instead), and compose multi-error
// results with Compose in the style of build.ComposeErrors and the
// vendored github.com/NebulousLabs/errors package.
package orbiterrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the category of failure an Error represents.
type Kind int

const (
	// Unknown is the zero value; never returned by New.
	Unknown Kind = iota
	// IO is a transient storage or network failure.
	IO
	// Corruption is a permanent data-integrity violation.
	Corruption
	// NotFound means a referenced file/chunk/CID is absent.
	NotFound
	// AccessDenied means a sandbox or token check rejected the operation.
	AccessDenied
	// Conflict is a rejected ledger state transition.
	Conflict
	// PolicyViolation is an invalid configuration, caught at construction.
	PolicyViolation
	// Exhausted means a concurrency budget or rate limit was hit.
	Exhausted
	// Timeout means an operation missed its deadline.
	Timeout
	// IntegrityFailure means audit chain validation detected a break.
	IntegrityFailure
	// Cancelled means the caller aborted the operation.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "IO"
	case Corruption:
		return "Corruption"
	case NotFound:
		return "NotFound"
	case AccessDenied:
		return "AccessDenied"
	case Conflict:
		return "Conflict"
	case PolicyViolation:
		return "PolicyViolation"
	case Exhausted:
		return "Exhausted"
	case Timeout:
		return "Timeout"
	case IntegrityFailure:
		return "IntegrityFailure"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Retryable reports whether the resilience layer should retry an error
// of this Kind with exponential backoff.
func (k Kind) Retryable() bool {
	switch k {
	case IO, Timeout, Exhausted:
		return true
	default:
		return false
	}
}

// Error is a classified, optionally-wrapped error.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error with no cause.
func New(k Kind, message string) *Error {
	return &Error{Kind: k, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error, preserving it as the cause.
func Wrap(k Kind, message string, cause error) *Error {
	return &Error{Kind: k, Message: message, Cause: cause}
}

// KindOf returns the Kind of err if it (or something it wraps) is an
// *Error, and Unknown otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// multiError composes several non-nil errors into one, in the style of
// build.ComposeErrors / github.com/NebulousLabs/errors.Error.
type multiError struct {
	errs []error
}

func (m *multiError) Error() string {
	parts := make([]string, len(m.errs))
	for i, e := range m.errs {
		parts[i] = e.Error()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

// Errors returns the composed errors in order.
func (m *multiError) Errors() []error {
	return m.errs
}

// Compose combines multiple errors into one, dropping any nils. Returns nil
// if every input was nil, and returns the single error unwrapped if exactly
// one was non-nil (matching github.com/NebulousLabs/errors.Compose).
func Compose(errs ...error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &multiError{errs: nonNil}
	}
}

// Contains reports whether target appears anywhere inside a composed error
// tree rooted at err (including err itself).
func Contains(err, target error) bool {
	if err == nil || target == nil {
		return false
	}
	if errors.Is(err, target) || err == target {
		return true
	}
	var m *multiError
	if errors.As(err, &m) {
		for _, e := range m.errs {
			if Contains(e, target) {
				return true
			}
		}
	}
	return false
}

// Extend prefixes err's message with s, preserving its Kind if it is an
// *Error (mirrors build.ExtendErr, generalized to keep classification
// through the wrap).
func Extend(s string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return Wrap(e.Kind, s, err)
	}
	return fmt.Errorf("%s: %w", s, err)
}

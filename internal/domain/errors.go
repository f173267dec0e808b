package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind is a coarse-grained categorization for conversion failures.
type Kind string

const (
	KindInvalidFormat        Kind = "invalid_format"
	KindInvalidRequest       Kind = "invalid_request"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindUnsupportedContent   Kind = "unsupported_content"
	KindInternal             Kind = "internal"
)

// Sentinel errors for broad classification. A *ConversionError matches the
// sentinel of its kind with errors.Is.
var (
	ErrInvalidFormat        = errors.New("invalid format")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUnsupportedContent   = errors.New("unsupported content")
)

var kindSentinels = map[Kind]error{
	KindInvalidFormat:        ErrInvalidFormat,
	KindInvalidRequest:       ErrInvalidRequest,
	KindAuthenticationFailed: ErrAuthenticationFailed,
	KindUnsupportedContent:   ErrUnsupportedContent,
}

// ConversionError wraps an underlying error with operation context and a kind.
type ConversionError struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *ConversionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *ConversionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the sentinel that corresponds to the error kind.
func (e *ConversionError) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// Errorf builds a *ConversionError. The format supports %w.
func Errorf(op string, kind Kind, format string, args ...any) error {
	return &ConversionError{Op: op, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches op and kind to err. A nil err stays nil; an error that already
// carries a kind keeps it.
func Wrap(op string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConversionError{Op: op, Kind: kind, Err: err}
}

// KindOf classifies err. Errors without a kind are internal.
func KindOf(err error) Kind {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindInternal
}

// IsKind helps callers classify errors without depending on library packages.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsCanceled reports whether err came from a cancelled or expired context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

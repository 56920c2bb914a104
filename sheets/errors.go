package sheets

import (
	"errors"
	"fmt"
)

// Kind is the closed set of persistence failures the flow reacts to
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindDuplicate
	KindTransient
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindTransient:
		return "transient"
	}
	return "unknown"
}

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrTransient           = errors.New("remote failure")
)

// Error is returned by every sink. Op names the step that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrDuplicateSubmission:
		return e.Kind == KindDuplicate
	case ErrTransient:
		return e.Kind == KindTransient
	}
	return false
}

// KindOf reports the taxonomy kind of err. Errors that did not come from a
// sink are treated as transient.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindTransient
}

// classify wraps a backend error into the taxonomy
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, ErrNotFound) {
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	}
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

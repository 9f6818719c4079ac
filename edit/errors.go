package edit

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by EditText is an *Error whose Kind is
// one of these.
var (
	ErrNotFound              = errors.New("target not found")
	ErrVerificationFailed    = errors.New("verification failed")
	ErrOverflowUnresolvable  = errors.New("replacement does not fit")
	ErrSnapshotRestoreFailed = errors.New("snapshot restore failed")
	// ErrAborted covers invalid requests and unexpected failures of the
	// layers below. Any change to the page was rolled back.
	ErrAborted = errors.New("edit aborted")
)

// Error is a failed operation on one page. It matches its Kind and its
// cause with errors.Is.
type Error struct {
	Kind error
	// Page is the zero-based page index, -1 when not page specific.
	Page int
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s page %d: %v", e.Op, e.Page, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func fail(kind error, page int, op string, err error) *Error {
	return &Error{Kind: kind, Page: page, Op: op, Err: err}
}

// classify keeps typed errors and files everything else under ErrAborted.
func classify(err error, page int, op string) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return fail(ErrAborted, page, op, err)
}

package ddbsdk

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrorKind classifies every error returned by a generated data layer call.
type ErrorKind int

const (
	KindUnexpectedFault ErrorKind = iota
	KindAlreadyExists
	KindNotFound
	KindOptimisticLockConflict
	KindDataIntegrity
	KindUnexpectedBackendFault
)

func (k ErrorKind) String() string {
	switch k {
	case KindAlreadyExists:
		return "already exists"
	case KindNotFound:
		return "not found"
	case KindOptimisticLockConflict:
		return "optimistic lock conflict"
	case KindDataIntegrity:
		return "data integrity"
	case KindUnexpectedBackendFault:
		return "unexpected backend fault"
	}
	return "unexpected fault"
}

// Error is the typed error of every data layer operation. Callers branch on
// Kind, or use errors.Is against the sentinel values below.
type Error struct {
	Kind  ErrorKind
	Op    string
	Model string
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Model, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of operation and model.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrAlreadyExists          = &Error{Kind: KindAlreadyExists}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrOptimisticLockConflict = &Error{Kind: KindOptimisticLockConflict}
	ErrDataIntegrity          = &Error{Kind: KindDataIntegrity}
	ErrUnexpectedBackendFault = &Error{Kind: KindUnexpectedBackendFault}
	ErrUnexpectedFault        = &Error{Kind: KindUnexpectedFault}
)

// AssertionFault reports a broken invariant of the backend contract, such as
// a response without consumed capacity. It is never reclassified.
type AssertionFault struct {
	Op      string
	Model   string
	Message string
}

func (e *AssertionFault) Error() string {
	return fmt.Sprintf("assertion failed in %s %s: %s", e.Op, e.Model, e.Message)
}

func newError(kind ErrorKind, op, model string, err error) *Error {
	return &Error{Kind: kind, Op: op, Model: model, Err: err}
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classify maps an error from the backend onto the taxonomy. Typed errors
// and assertion faults pass through unchanged.
func classify(op, model string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	var fault *AssertionFault
	if errors.As(err, &fault) {
		return err
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return newError(KindUnexpectedBackendFault, op, model, err)
	}
	return newError(KindUnexpectedFault, op, model, err)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

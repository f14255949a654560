// Package errs classifies failures so that callers at the edge of the system
// (HTTP mappers, workers, log pipelines) can decide how to report them without
// knowing concrete error types.
package errs

import (
	"errors"
	"fmt"
)

// Kind separates faults by who is responsible for them.
type Kind string

const (
	// KindUnknown is returned for errors that carry no classification.
	KindUnknown Kind = ""

	// KindBusiness marks a rule violation caused by caller input. These map
	// to 4xx responses and are safe to show to end users.
	KindBusiness Kind = "BUSINESS"

	// KindInternal marks a programming-logic fault. It is never caused by
	// end-user input and must be reported as a server-side failure.
	KindInternal Kind = "INTERNAL"

	// KindTransport marks a failure talking to infrastructure (brokers,
	// databases) after the domain work itself succeeded or was not attempted.
	KindTransport Kind = "TRANSPORT"
)

func (k Kind) String() string {
	if k == KindUnknown {
		return "UNKNOWN"
	}
	return string(k)
}

// Code is a stable, machine-readable identifier for a specific failure.
type Code string

const (
	CodeRequiredField           Code = "REQUIRED_FIELD"
	CodeInvalidFormat           Code = "INVALID_FORMAT"
	CodeNotFound                Code = "NOT_FOUND"
	CodeConcurrentModification  Code = "CONCURRENT_MODIFICATION"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeEventPublishFailed      Code = "EVENT_PUBLISH_FAILED"
	CodeInternal                Code = "INTERNAL_ERROR"
)

// Classified is implemented by every error that knows its own Kind and Code.
type Classified interface {
	error
	Kind() Kind
	Code() Code
}

// Error is the general purpose classified error.
type Error struct {
	kind    Kind
	code    Code
	Message string
	// Field names the offending input for business errors, if any.
	Field string
	Err   error
}

var _ Classified = (*Error)(nil)

// NewBusiness creates a business rule violation tied to an input field.
func NewBusiness(code Code, field, message string) *Error {
	return &Error{kind: KindBusiness, code: code, Message: message, Field: field}
}

// NewInternal creates a programming-logic fault.
func NewInternal(code Code, message string, err error) *Error {
	return &Error{kind: KindInternal, code: code, Message: message, Err: err}
}

// NewTransport creates an infrastructure fault wrapping the cause.
func NewTransport(code Code, message string, err error) *Error {
	return &Error{kind: KindTransport, code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }
func (e *Error) Kind() Kind    { return e.kind }
func (e *Error) Code() Code    { return e.code }

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.Kind()
	}
	return KindUnknown
}

// CodeOf returns the Code of the first classified error in err's chain, or
// CodeInternal when nothing in the chain is classified.
func CodeOf(err error) Code {
	var c Classified
	if errors.As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// IsBusiness reports whether err is a caller-facing rule violation.
func IsBusiness(err error) bool { return KindOf(err) == KindBusiness }

// IsInternal reports whether err is a programming-logic fault.
func IsInternal(err error) bool { return KindOf(err) == KindInternal }

// IsTransport reports whether err is an infrastructure fault.
func IsTransport(err error) bool { return KindOf(err) == KindTransport }

// IsRetryable reports whether repeating the failed operation may succeed:
// infrastructure faults, unclassified errors and lost compare-and-set races.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindUnknown:
		return true
	}
	return CodeOf(err) == CodeConcurrentModification
}

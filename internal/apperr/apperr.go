// Package apperr implements a uniform caller-facing error shape: every
// synchronous rejection carries a {code, message, details} triple instead
// of an ad hoc error string.
package apperr

import (
	"errors"
	"fmt"
)

// Code enumerates the error taxonomy. These are kinds, not Go types: a
// single Error value carries one of these codes.
type Code string

const (
	Validation           Code = "VALIDATION"
	Unauthorized         Code = "UNAUTHORIZED"
	NotFound             Code = "NOT_FOUND"
	ReferentialIntegrity Code = "REFERENTIAL_INTEGRITY"
	CyclicReference      Code = "CYCLIC_REFERENCE"
	EvaluationFailure    Code = "EVALUATION_FAILURE"
	ExecutionFailure     Code = "EXECUTION_FAILURE"
	DeadlineExceeded     Code = "DEADLINE_EXCEEDED"
	RecoveryInProgress   Code = "DISASTER_RECOVERY_IN_PROGRESS"
)

// Error is the uniform Result<T, {code, message, details}> error shape. It
// implements the standard error interface so call sites can still use
// errors.As/errors.Is.
type Error struct {
	Code    Code
	Message string
	Details map[string]string
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Details)
}

func new_(code Code, msg string, kv ...string) *Error {
	e := &Error{Code: code, Message: msg}
	if len(kv) > 0 {
		e.Details = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			e.Details[kv[i]] = kv[i+1]
		}
	}
	return e
}

func NewValidation(msg string, kv ...string) *Error {
	return new_(Validation, msg, kv...)
}

func NewUnauthorized(msg string, kv ...string) *Error {
	return new_(Unauthorized, msg, kv...)
}

// NewNotFound reports a missing entity. Per §7, NotFound is "safe to
// expose id" — unlike Unauthorized, callers may include the id in details.
func NewNotFound(entity string, id string) *Error {
	return new_(NotFound, entity+" not found", "id", id)
}

func NewReferentialIntegrity(msg string, danglingID string) *Error {
	return new_(ReferentialIntegrity, msg, "dangling_id", danglingID)
}

func NewCyclicReference(msg string) *Error {
	return new_(CyclicReference, msg)
}

func NewExecutionFailure(reason string) *Error {
	return new_(ExecutionFailure, reason)
}

func NewDeadlineExceeded(reason string) *Error {
	return new_(DeadlineExceeded, reason)
}

func NewRecoveryInProgress() *Error {
	return new_(RecoveryInProgress, "a disaster recovery operation is already in progress")
}

// Is allows errors.Is(err, apperr.NotFound) style checks against a bare
// code by comparing codes rather than identity.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Sentinel errors raised by the rewriting engine
var (
	ErrMalformedClause    = errors.New("malformed clause")
	ErrProcedureNotFound  = errors.New("procedure not found")
	ErrUnificationFailure = errors.New("unification failure")
	ErrBindingConflict    = errors.New("binding conflict")
	ErrOccursCheck        = errors.New("occurs check violation")
	ErrStepBudgetExceeded = errors.New("step budget exceeded")
	ErrNoExtraction       = errors.New("no extraction")
)

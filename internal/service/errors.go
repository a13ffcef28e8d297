package service

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is the authorization failure. Callers render it exactly like a
	// NotFoundError so that existence is not leaked.
	ErrForbidden      = errors.New("not authorized")
	ErrNotInGroup     = errors.New("not in a group")
	ErrAlreadyInGroup = errors.New("already in a group")
	ErrAdminAction    = errors.New("action is for regular users")
	// ErrStore wraps unexpected storage failures. Details go to the log, not the user.
	ErrStore        = errors.New("store failure")
	ErrMissingIndex = errors.New("sort index missing")
)

type ExtractionKind string

const (
	ExtractionNetwork       ExtractionKind = "network"
	ExtractionBlocked       ExtractionKind = "blocked"
	ExtractionEmpty         ExtractionKind = "empty"
	ExtractionTruncated     ExtractionKind = "truncated"
	ExtractionMalformedJSON ExtractionKind = "malformed_json"
)

type ExtractionError struct {
	Kind   ExtractionKind
	Detail string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extraction failed (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ValidationError carries the specific complaint about user-supplied input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConsistencyError reports a dangling reference that has already been cleaned up.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string {
	return e.Msg
}

type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured", e.Setting)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, ErrStore, err)
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTemporary            = errors.New("temporary failure")
	ErrRetrieval            = errors.New("retrieval failed")
	ErrBackendUnavailable   = errors.New("generation backend unavailable")
	ErrConfigurationMissing = errors.New("configuration missing")
)

// RetrievalError reports which retrieval stage failed.
type RetrievalError struct {
	Stage string
	Err   error
}

func (e *RetrievalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("retrieval %s failed", e.Stage)
	}
	return fmt.Sprintf("retrieval %s failed: %v", e.Stage, e.Err)
}

func (e *RetrievalError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRetrieval}
	}
	return []error{ErrRetrieval, e.Err}
}

func NewRetrievalError(stage string, err error) *RetrievalError {
	return &RetrievalError{Stage: stage, Err: err}
}

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

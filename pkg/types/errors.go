package types

import (
	"errors"
	"fmt"
)

// ValidationError reports bad user input. It is raised before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ConfigError reports a missing or invalid connection setting
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}

// MissingCredential builds the ConfigError for an empty connection field.
func MissingCredential(field string) *ConfigError {
	return &ConfigError{Field: field, Message: "missing credential: " + field}
}

// EmbeddingError wraps a failed call to the embedding provider
type EmbeddingError struct {
	Provider  string
	Message   string
	Err       error
	Retryable bool
}

func (e *EmbeddingError) Error() string {
	return joinCause(fmt.Sprintf("%s embedding failed: %s", e.Provider, e.Message), e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the call may succeed
func (e *EmbeddingError) Transient() bool {
	return e.Retryable
}

// StoreError wraps a failed vector store operation, or a request rejected locally
type StoreError struct {
	Op        string
	Message   string
	Err       error
	Retryable bool
}

func (e *StoreError) Error() string {
	return joinCause(e.Message, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Transient reports whether retrying the call may succeed
func (e *StoreError) Transient() bool {
	return e.Retryable
}

// TimeoutError reports an external call that exceeded its deadline
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return joinCause(e.Op+" timed out", e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// Transient is always true: a timed out call may succeed when retried
func (e *TimeoutError) Transient() bool {
	return true
}

// IsTransient reports whether err (or anything it wraps) was marked as worth retrying.
func IsTransient(err error) bool {
	var t interface{ Transient() bool }
	if errors.As(err, &t) {
		return t.Transient()
	}
	return false
}

func joinCause(msg string, cause error) string {
	if cause == nil {
		return msg
	}
	return msg + ": " + cause.Error()
}

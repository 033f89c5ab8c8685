// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"fmt"

	a2a "github.com/go-a2a/a2a-bridge"
)

// ErrUnsupportedOperation is returned by Cancel. It matches
// a2a.ErrUnsupportedOperation under errors.Is.
var ErrUnsupportedOperation = a2a.ErrUnsupportedOperation.WithData("task cancellation is not supported")

// ConfigurationError reports a required setting missing at initialization.
type ConfigurationError struct {
	Key    string
	Reason string
}

// Error returns the error message.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// CredentialError reports a failed token fetch. It is logged, never returned
// from Execute.
type CredentialError struct {
	Audience string
	Err      error
}

// Error returns the error message.
func (e *CredentialError) Error() string {
	return fmt.Sprintf("fetch credential for %s: %v", e.Audience, e.Err)
}

// Unwrap returns the underlying error.
func (e *CredentialError) Unwrap() error { return e.Err }

// SessionCreationError reports that the backend could not create a session.
type SessionCreationError struct {
	ContextID string
	UserID    string
	Err       error
}

// Error returns the error message.
func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("create session for context %s (user %s): %v", e.ContextID, e.UserID, e.Err)
}

// Unwrap returns the underlying error.
func (e *SessionCreationError) Unwrap() error { return e.Err }

// RuntimeExecutionError reports a failure while running the agent.
type RuntimeExecutionError struct {
	TaskID string
	Err    error
}

// Error returns the error message.
func (e *RuntimeExecutionError) Error() string {
	return fmt.Sprintf("execute task %s: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeExecutionError) Unwrap() error { return e.Err }

// RemoteAgentError reports a failed call to a remote A2A agent.
type RemoteAgentError struct {
	Address string
	Err     error
}

// Error returns the error message.
func (e *RemoteAgentError) Error() string {
	return fmt.Sprintf("remote agent %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying error.
func (e *RemoteAgentError) Unwrap() error { return e.Err }

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC and A2A specific error codes.
const (
	CodeParseError              = -32700
	CodeInvalidRequest          = -32600
	CodeMethodNotFound          = -32601
	CodeInvalidParams           = -32602
	CodeInternalError           = -32603
	CodeTaskNotFound            = -32001
	CodeTaskNotCancelable       = -32002
	CodePushNotSupported        = -32003
	CodeUnsupportedOperation    = -32004
	CodeContentTypeNotSupported = -32005
)

// Error is a protocol level error carrying a JSON-RPC error code.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("a2a error %d: %s", e.Code, e.Message)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data any) *Error {
	c := *e
	c.Data = data
	return &c
}

// JSON-RPC errors.
var (
	// ErrParse is returned when the request body is not valid JSON.
	ErrParse = &Error{Code: CodeParseError, Message: "Invalid JSON payload"}

	// ErrInvalidRequest is returned when the payload is not a valid JSON-RPC request.
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "Request payload validation error"}

	// ErrMethodNotFound is returned for unknown methods.
	ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
)

// A2A specific errors.
var (
	// ErrTaskNotFound is returned when a task ID is unknown.
	ErrTaskNotFound = &Error{Code: CodeTaskNotFound, Message: "Task not found"}

	// ErrTaskNotCancelable is returned when a task cannot be canceled in its current state.
	ErrTaskNotCancelable = &Error{Code: CodeTaskNotCancelable, Message: "Task cannot be canceled"}

	// ErrPushNotificationNotSupported is returned when push notifications are requested.
	ErrPushNotificationNotSupported = &Error{Code: CodePushNotSupported, Message: "Push Notification is not supported"}

	// ErrUnsupportedOperation is returned for operations the agent does not implement.
	ErrUnsupportedOperation = &Error{Code: CodeUnsupportedOperation, Message: "This operation is not supported"}

	// ErrContentTypeNotSupported is returned for incompatible content types.
	ErrContentTypeNotSupported = &Error{Code: CodeContentTypeNotSupported, Message: "Content type not supported"}

	// ErrInvalidParams is returned for malformed method parameters.
	ErrInvalidParams = &Error{Code: CodeInvalidParams, Message: "Invalid parameters"}

	// ErrInternal is returned for unexpected server side failures.
	ErrInternal = &Error{Code: CodeInternalError, Message: "Internal error"}
)

// AsError converts err into a protocol error, defaulting to an internal error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.WithData(err.Error())
}

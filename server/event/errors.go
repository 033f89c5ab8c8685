// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "errors"

var (
	// ErrQueueClosed is returned when attempting to use a closed queue.
	ErrQueueClosed = errors.New("event queue is closed")

	// ErrInvalidQueueSize is returned when a queue is created with a negative size.
	ErrInvalidQueueSize = errors.New("max queue size must not be negative")
)

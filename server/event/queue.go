// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"context"
	"iter"
	"sync"
)

// DefaultMaxQueueSize is the default maximum queue size.
const DefaultMaxQueueSize = 1024

// Queue is the write side of an event queue as seen by an agent executor.
type Queue interface {
	// Enqueue publishes ev, blocking while the queue is full.
	Enqueue(ctx context.Context, ev Event) error
}

// EventQueue is a bounded FIFO of events shared by one producer (the executor)
// and one consumer (the protocol layer).
type EventQueue struct {
	events chan Event
	done   chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ Queue = (*EventQueue)(nil)

// NewEventQueue creates a new event queue with the specified maximum size.
// If maxSize is 0, DefaultMaxQueueSize is used.
func NewEventQueue(maxSize int) (*EventQueue, error) {
	if maxSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	if maxSize == 0 {
		maxSize = DefaultMaxQueueSize
	}

	return &EventQueue{
		events: make(chan Event, maxSize),
		done:   make(chan struct{}),
	}, nil
}

// Enqueue adds an event to the queue.
// Returns ErrQueueClosed if the queue is closed.
func (q *EventQueue) Enqueue(ctx context.Context, ev Event) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.events <- ev:
		return nil
	}
}

// Dequeue retrieves the next event, blocking until one is available.
// Once the queue is closed and drained it returns ErrQueueClosed.
func (q *EventQueue) Dequeue(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case ev, ok := <-q.events:
		if !ok {
			return nil, ErrQueueClosed
		}
		return ev, nil
	}
}

// All yields events until the queue is closed and drained, or ctx is done.
// The final yielded error, if any, is the context error.
func (q *EventQueue) All(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := q.Dequeue(ctx)
			if err == ErrQueueClosed {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the queue. Buffered events remain readable.
func (q *EventQueue) Close() error {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		q.closed = true
		close(q.done)
		close(q.events)
	})
	return nil
}

// Done returns a channel that's closed when the queue is closed.
func (q *EventQueue) Done() <-chan struct{} {
	return q.done
}

// IsClosed returns true if the queue is closed.
func (q *EventQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Len returns the current number of buffered events.
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"slices"
	"sync"
)

// TaskQueueExistsError is returned when a queue is already registered for a task.
type TaskQueueExistsError struct {
	TaskID string
}

// Error implements error.
func (e *TaskQueueExistsError) Error() string {
	return fmt.Sprintf("task %s already has an active event queue", e.TaskID)
}

// NoTaskQueueError is returned when no queue is registered for a task.
type NoTaskQueueError struct {
	TaskID string
}

// Error implements error.
func (e *NoTaskQueueError) Error() string {
	return fmt.Sprintf("task %s has no active event queue", e.TaskID)
}

// QueueManager tracks the event queues of tasks that are currently executing.
// At most one queue exists per task, so a task runs at most once at a time.
type QueueManager struct {
	maxQueueSize int

	mu     sync.Mutex
	queues map[string]*EventQueue
}

// NewQueueManager returns an empty QueueManager creating queues of maxQueueSize.
// If maxQueueSize is 0, DefaultMaxQueueSize is used.
func NewQueueManager(maxQueueSize int) (*QueueManager, error) {
	if maxQueueSize < 0 {
		return nil, ErrInvalidQueueSize
	}
	return &QueueManager{
		maxQueueSize: maxQueueSize,
		queues:       make(map[string]*EventQueue),
	}, nil
}

// Create registers a fresh queue for taskID.
// Returns *TaskQueueExistsError if the task already has one.
func (m *QueueManager) Create(taskID string) (*EventQueue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.queues[taskID]; ok {
		return nil, &TaskQueueExistsError{TaskID: taskID}
	}
	q, err := NewEventQueue(m.maxQueueSize)
	if err != nil {
		return nil, err
	}
	m.queues[taskID] = q
	return q, nil
}

// Get returns the queue of taskID, or nil.
func (m *QueueManager) Get(taskID string) *EventQueue {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queues[taskID]
}

// Close closes and forgets the queue of taskID.
// Returns *NoTaskQueueError if there is none.
func (m *QueueManager) Close(taskID string) error {
	m.mu.Lock()
	q, ok := m.queues[taskID]
	delete(m.queues, taskID)
	m.mu.Unlock()

	if !ok {
		return &NoTaskQueueError{TaskID: taskID}
	}
	return q.Close()
}

// List returns the IDs of tasks with an active queue, sorted.
func (m *QueueManager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.queues))
	for id := range m.queues {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Count returns the number of active queues.
func (m *QueueManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues)
}

// CloseAll closes every active queue.
func (m *QueueManager) CloseAll() {
	m.mu.Lock()
	queues := m.queues
	m.queues = make(map[string]*EventQueue)
	m.mu.Unlock()

	for _, q := range queues {
		q.Close()
	}
}

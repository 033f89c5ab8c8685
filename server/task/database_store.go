// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-bridge"
)

// TaskModel is the database row of a task. The task itself is stored as JSON;
// the context and state columns exist for querying.
type TaskModel struct {
	ID        string `gorm:"primaryKey;size:255"`
	ContextID string `gorm:"size:255;index"`
	State     string `gorm:"size:32;index"`
	Data      []byte `gorm:"not null"`
	UpdatedAt time.Time
}

func newTaskModel(task *a2a.Task) (*TaskModel, error) {
	data, err := json.Marshal(task)
	if err != nil {
		return nil, err
	}
	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Data:      data,
	}, nil
}

func (m *TaskModel) toTask() (*a2a.Task, error) {
	var task a2a.Task
	if err := json.Unmarshal(m.Data, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DatabaseTaskStore is a TaskStore persisted with GORM.
type DatabaseTaskStore struct {
	db        *gorm.DB
	tableName string
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// DatabaseTaskStoreConfig holds configuration for DatabaseTaskStore.
type DatabaseTaskStoreConfig struct {
	DB          *gorm.DB
	TableName   string // Optional, defaults to "tasks"
	CreateTable bool   // Whether to create the table if it doesn't exist
}

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
func NewDatabaseTaskStore(ctx context.Context, config DatabaseTaskStoreConfig) (*DatabaseTaskStore, error) {
	if config.DB == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	s := &DatabaseTaskStore{db: config.DB, tableName: config.TableName}
	if s.tableName == "" {
		s.tableName = "tasks"
	}
	if config.CreateTable {
		if err := s.table(ctx).AutoMigrate(&TaskModel{}); err != nil {
			return nil, NewTaskStoreError(OpInitialize, "", err)
		}
	}
	return s, nil
}

func (s *DatabaseTaskStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

// Save persists a task to the database.
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil {
		return errors.New("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return NewTaskValidationError(task.ID, err)
	}

	model, err := newTaskModel(task)
	if err != nil {
		return NewTaskStoreError(OpSave, task.ID, fmt.Errorf("failed to convert task to model: %w", err))
	}
	// Save handles both create and update.
	if err := s.table(ctx).Save(model).Error; err != nil {
		return NewTaskStoreError(OpSave, task.ID, err)
	}
	return nil
}

// Get retrieves a task by its ID from the database.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	if taskID == "" {
		return nil, errors.New("task ID cannot be empty")
	}

	var model TaskModel
	if err := s.table(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.ErrTaskNotFound.WithData(taskID)
		}
		return nil, NewTaskStoreError(OpGet, taskID, err)
	}

	task, err := model.toTask()
	if err != nil {
		return nil, NewTaskStoreError(OpGet, taskID, fmt.Errorf("failed to convert model to task: %w", err))
	}
	return task, nil
}

// Delete removes a task from the database.
func (s *DatabaseTaskStore) Delete(ctx context.Context, taskID string) error {
	result := s.table(ctx).Where("id = ?", taskID).Delete(&TaskModel{})
	if result.Error != nil {
		return NewTaskStoreError(OpDelete, taskID, result.Error)
	}
	if result.RowsAffected == 0 {
		return a2a.ErrTaskNotFound.WithData(taskID)
	}
	return nil
}

// GetByContextID retrieves all tasks of a conversation, oldest first.
func (s *DatabaseTaskStore) GetByContextID(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	if contextID == "" {
		return nil, errors.New("context ID cannot be empty")
	}

	var models []TaskModel
	if err := s.table(ctx).Where("context_id = ?", contextID).Order("updated_at").Find(&models).Error; err != nil {
		return nil, NewTaskStoreError(OpGetByContext, contextID, err)
	}

	tasks := make([]*a2a.Task, len(models))
	for i := range models {
		task, err := models[i].toTask()
		if err != nil {
			return nil, NewTaskStoreError(OpGetByContext, models[i].ID, fmt.Errorf("failed to convert model to task: %w", err))
		}
		tasks[i] = task
	}
	return tasks, nil
}

// CountByState returns how many tasks are in state.
func (s *DatabaseTaskStore) CountByState(ctx context.Context, state a2a.TaskState) (int64, error) {
	var n int64
	if err := s.table(ctx).Model(&TaskModel{}).Where("state = ?", string(state)).Count(&n).Error; err != nil {
		return 0, NewTaskStoreError(OpCount, "", err)
	}
	return n, nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/go-a2a/a2a-bridge/bridge"
	"github.com/go-a2a/a2a-bridge/runtime"
)

// DefaultTableName is the table GormStore uses unless configured otherwise.
const DefaultTableName = "context_sessions"

// SessionModel is the persisted mapping of a context to its backend session.
type SessionModel struct {
	ContextID string `gorm:"primaryKey;size:255"`
	SessionID string `gorm:"size:255;not null"`
	AppName   string `gorm:"size:255"`
	UserID    string `gorm:"size:255;index"`
	CreatedAt time.Time
}

// GormStore is a durable SessionStore backed by a gorm database. Mappings
// survive restarts, so a conversation keeps its backend session.
type GormStore struct {
	db        *gorm.DB
	tableName string
}

var _ bridge.SessionStore = (*GormStore)(nil)

// GormStoreConfig configures a GormStore.
type GormStoreConfig struct {
	DB          *gorm.DB
	TableName   string // defaults to DefaultTableName
	CreateTable bool   // migrate the table on construction
}

// NewGormStore returns a GormStore.
func NewGormStore(ctx context.Context, config GormStoreConfig) (*GormStore, error) {
	if config.DB == nil {
		return nil, errors.New("database connection cannot be nil")
	}
	s := &GormStore{db: config.DB, tableName: config.TableName}
	if s.tableName == "" {
		s.tableName = DefaultTableName
	}
	if config.CreateTable {
		if err := s.table(ctx).AutoMigrate(&SessionModel{}); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", s.tableName, err)
		}
	}
	return s, nil
}

func (s *GormStore) table(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tableName)
}

func toSession(m *SessionModel) *runtime.Session {
	return runtime.NewSession(m.AppName, m.UserID, m.SessionID)
}

func toModel(contextID string, sess *runtime.Session) *SessionModel {
	return &SessionModel{
		ContextID: contextID,
		SessionID: sess.ID,
		AppName:   sess.AppName,
		UserID:    sess.UserID,
		CreatedAt: time.Now().UTC(),
	}
}

// Get implements bridge.SessionStore. The returned session carries identity
// only; its history lives in the session backend.
func (s *GormStore) Get(ctx context.Context, contextID string) (*runtime.Session, bool, error) {
	var m SessionModel
	err := s.table(ctx).Where("context_id = ?", contextID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get session of context %s: %w", contextID, err)
	}
	return toSession(&m), true, nil
}

// Put implements bridge.SessionStore.
func (s *GormStore) Put(ctx context.Context, contextID string, sess *runtime.Session) error {
	if err := s.table(ctx).Save(toModel(contextID, sess)).Error; err != nil {
		return fmt.Errorf("put session of context %s: %w", contextID, err)
	}
	return nil
}

// PutIfAbsent implements bridge.SessionStore using an insert that ignores
// primary key conflicts, so concurrent writers agree on one row.
func (s *GormStore) PutIfAbsent(ctx context.Context, contextID string, sess *runtime.Session) (*runtime.Session, bool, error) {
	res := s.table(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(toModel(contextID, sess))
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert session of context %s: %w", contextID, res.Error)
	}
	if res.RowsAffected == 1 {
		return sess, true, nil
	}
	existing, ok, err := s.Get(ctx, contextID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, fmt.Errorf("session of context %s vanished after conflict", contextID)
	}
	return existing, false, nil
}

// Delete removes the mapping of contextID.
func (s *GormStore) Delete(ctx context.Context, contextID string) error {
	if err := s.table(ctx).Where("context_id = ?", contextID).Delete(&SessionModel{}).Error; err != nil {
		return fmt.Errorf("delete session of context %s: %w", contextID, err)
	}
	return nil
}

// Count returns the number of stored mappings.
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.table(ctx).Model(&SessionModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}

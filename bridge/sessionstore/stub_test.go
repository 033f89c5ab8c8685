// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package sessionstore

import (
	"context"
	"fmt"

	"github.com/go-a2a/a2a-bridge/runtime"
)

type stubSessions struct {
	created int
}

func (s *stubSessions) CreateSession(_ context.Context, appName, userID, _ string) (*runtime.Session, error) {
	s.created++
	return runtime.NewSession(appName, userID, fmt.Sprintf("s-%d", s.created)), nil
}

func (s *stubSessions) GetSession(_ context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	return runtime.NewSession(appName, userID, sessionID), nil
}

func (s *stubSessions) AppendEvent(_ context.Context, sess *runtime.Session, ev *runtime.Event) error {
	sess.Append(ev)
	return nil
}

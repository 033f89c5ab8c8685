// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package vertex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-a2a/a2a-bridge/runtime"
)

// SessionService stores sessions in Agent Engine.
type SessionService struct {
	client *Client
}

var _ runtime.SessionService = (*SessionService)(nil)

// NewSessionService returns a SessionService using client.
func NewSessionService(client *Client) *SessionService {
	return &SessionService{client: client}
}

type createSessionRequest struct {
	UserID string `json:"userId"`
}

// CreateSession implements runtime.SessionService. The backend assigns the
// id unless sessionID is set.
func (s *SessionService) CreateSession(ctx context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	path := s.client.EngineName() + "/sessions"
	if sessionID != "" {
		path += "?sessionId=" + url.QueryEscape(sessionID)
	}

	var op operation
	if err := s.client.do(ctx, http.MethodPost, path, &createSessionRequest{UserID: userID}, &op); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	id, err := sessionIDFromOperation(op.Name)
	if err != nil {
		return nil, err
	}
	s.client.logger.InfoContext(ctx, "created agent engine session", "session_id", id, "user_id", userID)
	return runtime.NewSession(appName, userID, id), nil
}

// sessionIDFromOperation extracts the session id from an operation name of
// the form ".../sessions/{id}/operations/{op}".
func sessionIDFromOperation(name string) (string, error) {
	_, rest, ok := strings.Cut(name, "/sessions/")
	if !ok {
		return "", fmt.Errorf("unexpected create session operation name %q", name)
	}
	id, _, _ := strings.Cut(rest, "/")
	if id == "" {
		return "", fmt.Errorf("unexpected create session operation name %q", name)
	}
	return id, nil
}

type sessionResource struct {
	Name   string `json:"name"`
	UserID string `json:"userId"`
}

type sessionEvent struct {
	Author       string           `json:"author"`
	InvocationID string           `json:"invocationId,omitzero"`
	Timestamp    time.Time        `json:"timestamp"`
	Content      *runtime.Content `json:"content,omitzero"`
}

type listEventsResponse struct {
	SessionEvents []sessionEvent `json:"sessionEvents"`
	NextPageToken string         `json:"nextPageToken,omitzero"`
}

// GetSession implements runtime.SessionService. It loads the full event
// history, following pagination.
func (s *SessionService) GetSession(ctx context.Context, appName, userID, sessionID string) (*runtime.Session, error) {
	name := s.client.SessionName(sessionID)

	var res sessionResource
	if err := s.client.do(ctx, http.MethodGet, name, nil, &res); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", runtime.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if res.UserID != "" && res.UserID != userID {
		return nil, fmt.Errorf("%w: %s belongs to another user", runtime.ErrSessionNotFound, sessionID)
	}

	sess := runtime.NewSession(appName, userID, sessionID)
	pageToken := ""
	for {
		path := name + "/events"
		if pageToken != "" {
			path += "?pageToken=" + url.QueryEscape(pageToken)
		}
		var page listEventsResponse
		if err := s.client.do(ctx, http.MethodGet, path, nil, &page); err != nil {
			return nil, fmt.Errorf("list session events: %w", err)
		}
		for _, se := range page.SessionEvents {
			sess.Append(&runtime.Event{
				Author:       se.Author,
				InvocationID: se.InvocationID,
				Content:      se.Content,
				Timestamp:    se.Timestamp,
			})
		}
		if page.NextPageToken == "" {
			return sess, nil
		}
		pageToken = page.NextPageToken
	}
}

// AppendEvent implements runtime.SessionService.
func (s *SessionService) AppendEvent(ctx context.Context, sess *runtime.Session, ev *runtime.Event) error {
	req := &sessionEvent{
		Author:       ev.Author,
		InvocationID: ev.InvocationID,
		Timestamp:    ev.Timestamp,
		Content:      ev.Content,
	}
	if err := s.client.do(ctx, http.MethodPost, s.client.SessionName(sess.ID)+":appendEvent", req, nil); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	sess.Append(ev)
	return nil
}

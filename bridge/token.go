// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/go-a2a/a2a-bridge/credential"
)

const (
	// TokenLifetime is the lifetime assumed for every fetched token. The
	// token format does not expose a verifiable expiry at this layer.
	TokenLifetime = 3600 * time.Second

	// DefaultRefreshBuffer is how long before expiry a cached token is
	// considered stale.
	DefaultRefreshBuffer = 300 * time.Second
)

// TokenManager caches a single bearer token for one audience and refreshes
// it only when stale.
type TokenManager struct {
	audience      string
	source        credential.Source
	refreshBuffer time.Duration
	now           func() time.Time
	logger        *slog.Logger
	onRefresh     func(ctx context.Context, err error)

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithRefreshBuffer sets how long before expiry the token is refreshed.
func WithRefreshBuffer(d time.Duration) TokenManagerOption {
	return func(m *TokenManager) { m.refreshBuffer = d }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) { m.now = now }
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) { m.logger = l }
}

// NewTokenManager returns a TokenManager fetching tokens for audience from source.
func NewTokenManager(audience string, source credential.Source, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		audience:      audience,
		source:        source,
		refreshBuffer: DefaultRefreshBuffer,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Audience returns the audience tokens are fetched for.
func (m *TokenManager) Audience() string { return m.audience }

// Headers returns {"Authorization": "Bearer <token>"}, or an empty map when
// no token can be obtained. It never fails: missing credentials degrade to
// unauthenticated requests.
func (m *TokenManager) Headers(ctx context.Context) map[string]string {
	now := m.now()

	m.mu.Lock()
	token, expiry := m.token, m.expiry
	m.mu.Unlock()
	if token != "" && now.Before(expiry) {
		return authHeaders(token)
	}

	// Concurrent refreshes may race; every fetched token is valid and the
	// last writer wins.
	token, err := m.source.Token(ctx, m.audience)
	if m.onRefresh != nil {
		m.onRefresh(ctx, err)
	}
	if err != nil || token == "" {
		m.mu.Lock()
		m.token, m.expiry = "", time.Time{}
		m.mu.Unlock()
		m.logFailure(ctx, err)
		return map[string]string{}
	}

	expiry = now.Add(TokenLifetime - m.refreshBuffer)
	m.mu.Lock()
	m.token, m.expiry = token, expiry
	m.mu.Unlock()
	m.logger.InfoContext(ctx, "token refreshed", slog.String("audience", m.audience), slog.Time("next_refresh", expiry))
	return authHeaders(token)
}

func (m *TokenManager) logFailure(ctx context.Context, err error) {
	if err == nil {
		err = errors.New("empty token")
	}
	cerr := &CredentialError{Audience: m.audience, Err: err}
	if errors.Is(err, credential.ErrNoCredentials) {
		m.logger.WarnContext(ctx, "no credentials found, sending unauthenticated requests", slog.String("audience", m.audience), slog.Any("error", cerr))
		return
	}
	m.logger.ErrorContext(ctx, "token fetch failed, sending unauthenticated requests", slog.String("audience", m.audience), slog.Any("error", cerr))
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

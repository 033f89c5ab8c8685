// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential produces bearer tokens scoped to an audience.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials/idtoken"
)

// ErrNoCredentials reports that no credentials are configured in the
// environment. Callers usually treat it as "send the request unauthenticated".
var ErrNoCredentials = errors.New("credential: no credentials available")

// Source fetches a bearer token for an audience.
type Source interface {
	Token(ctx context.Context, audience string) (string, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, audience string) (string, error)

// Token implements Source.
func (f SourceFunc) Token(ctx context.Context, audience string) (string, error) {
	return f(ctx, audience)
}

// StaticSource always returns the same token.
type StaticSource string

// Token implements Source.
func (s StaticSource) Token(context.Context, string) (string, error) {
	if s == "" {
		return "", ErrNoCredentials
	}
	return string(s), nil
}

// NoneSource never has credentials.
type NoneSource struct{}

// Token implements Source.
func (NoneSource) Token(context.Context, string) (string, error) { return "", ErrNoCredentials }

// IDTokenSource mints Google-signed OIDC ID tokens from application default
// credentials, or from CredentialsFile when set.
type IDTokenSource struct {
	CredentialsFile string

	mu    sync.Mutex
	creds map[string]*auth.Credentials
}

var _ Source = (*IDTokenSource)(nil)

// Token implements Source.
func (s *IDTokenSource) Token(ctx context.Context, audience string) (string, error) {
	creds, err := s.credentials(audience)
	if err != nil {
		return "", err
	}
	tok, err := creds.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("mint id token for %q: %w", audience, err)
	}
	return tok.Value, nil
}

func (s *IDTokenSource) credentials(audience string) (*auth.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.creds[audience]; ok {
		return c, nil
	}
	c, err := idtoken.NewCredentials(&idtoken.Options{
		Audience:        audience,
		CredentialsFile: s.CredentialsFile,
	})
	if err != nil {
		if strings.Contains(err.Error(), "could not find default credentials") {
			return nil, fmt.Errorf("%w: %v", ErrNoCredentials, err)
		}
		return nil, fmt.Errorf("detect id token credentials: %w", err)
	}
	if s.creds == nil {
		s.creds = make(map[string]*auth.Credentials)
	}
	s.creds[audience] = c
	return c, nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// DefaultJWTLifetime matches the lifetime assumed for Google ID tokens.
const DefaultJWTLifetime = time.Hour

// JWTSource signs its own short-lived JWTs. It serves MCP servers that
// verify tokens against a shared key instead of Google's issuer.
type JWTSource struct {
	issuer   string
	subject  string
	alg      jwa.SignatureAlgorithm
	key      any
	lifetime time.Duration
	now      func() time.Time
}

var _ Source = (*JWTSource)(nil)

// NewHMACSource returns a JWTSource signing with HS256 and secret.
func NewHMACSource(issuer string, secret []byte) (*JWTSource, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("credential: empty hmac secret")
	}
	return &JWTSource{
		issuer:   issuer,
		subject:  issuer,
		alg:      jwa.HS256(),
		key:      secret,
		lifetime: DefaultJWTLifetime,
		now:      time.Now,
	}, nil
}

// LoadKeyFile returns a JWTSource signing with the PEM encoded private key in
// path. EC keys sign with ES256 and RSA keys with RS256.
func LoadKeyFile(issuer, path string) (*JWTSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}
	key, err := jwk.ParseKey(data, jwk.WithPEM(true))
	if err != nil {
		return nil, fmt.Errorf("parse signing key %q: %w", path, err)
	}

	var alg jwa.SignatureAlgorithm
	switch kty := key.KeyType().String(); kty {
	case "EC":
		alg = jwa.ES256()
	case "RSA":
		alg = jwa.RS256()
	default:
		return nil, fmt.Errorf("unsupported signing key type %q", kty)
	}
	return &JWTSource{
		issuer:   issuer,
		subject:  issuer,
		alg:      alg,
		key:      key,
		lifetime: DefaultJWTLifetime,
		now:      time.Now,
	}, nil
}

// Token implements Source.
func (s *JWTSource) Token(_ context.Context, audience string) (string, error) {
	now := s.now()
	tok, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Issuer(s.issuer).
		Subject(s.subject).
		Audience([]string{audience}).
		IssuedAt(now).
		Expiration(now.Add(s.lifetime)).
		Build()
	if err != nil {
		return "", fmt.Errorf("build jwt: %w", err)
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(s.alg, s.key))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return string(signed), nil
}

// Copyright 2025 The AWP Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package identity resolves bearer credentials into authenticated users. It
// validates JWTs against a shared secret or a provider's JWKS endpoint and
// plugs into the request pipeline as a call interceptor.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv"
)

// Config configures a [TokenAuthenticator]. Exactly one of Secret and JWKSURL
// must be set.
type Config struct {
	// Secret enables HS256 validation against a shared secret.
	Secret []byte

	// JWKSURL enables signature validation against the provider's published
	// key set, fetched and cached with automatic refresh.
	JWKSURL string

	// Issuer, when set, must match the token's "iss" claim.
	Issuer string

	// Audience, when set, must appear in the token's "aud" claim.
	Audience string
}

// TokenAuthenticator is a JWT-based [awpsrv.Authenticator].
type TokenAuthenticator struct {
	secret   []byte
	jwksURL  string
	keys     *jwk.Cache
	issuer   string
	audience string
}

var _ awpsrv.Authenticator = (*TokenAuthenticator)(nil)

// jwksFetchTimeout bounds the startup probe of the JWKS endpoint.
const jwksFetchTimeout = 30 * time.Second

// NewTokenAuthenticator creates a [TokenAuthenticator]. With a JWKS URL
// configured the key set is fetched eagerly so that misconfiguration surfaces
// at startup; ctx bounds the background refreshes.
func NewTokenAuthenticator(ctx context.Context, config Config) (*TokenAuthenticator, error) {
	if (len(config.Secret) == 0) == (config.JWKSURL == "") {
		return nil, fmt.Errorf("exactly one of Secret and JWKSURL must be configured")
	}

	a := &TokenAuthenticator{
		secret:   config.Secret,
		jwksURL:  config.JWKSURL,
		issuer:   config.Issuer,
		audience: config.Audience,
	}

	if config.JWKSURL != "" {
		// The cache retries failed fetches in the background, so a dead
		// endpoint is probed with a direct bounded fetch first.
		fetchCtx, cancel := context.WithTimeout(ctx, jwksFetchTimeout)
		defer cancel()
		if _, err := jwk.Fetch(fetchCtx, config.JWKSURL); err != nil {
			return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", config.JWKSURL, err)
		}

		cache, err := jwk.NewCache(ctx, httprc.NewClient())
		if err != nil {
			return nil, fmt.Errorf("failed to create JWKS cache: %w", err)
		}
		if err := cache.Register(fetchCtx, config.JWKSURL); err != nil {
			return nil, fmt.Errorf("failed to register JWKS endpoint %s: %w", config.JWKSURL, err)
		}
		a.keys = cache
	}
	return a, nil
}

// Authenticate implements [awpsrv.Authenticator]. The credentials are the raw
// token, with an optional "Bearer " prefix.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, credentials string) (*awpsrv.User, error) {
	raw := strings.TrimPrefix(credentials, "Bearer ")
	if raw == "" {
		return nil, fmt.Errorf("%w: missing bearer token", awp.ErrUnauthenticated)
	}

	options := []jwt.ParseOption{jwt.WithValidate(true)}
	if a.keys != nil {
		keyset, err := a.keys.Lookup(ctx, a.jwksURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve JWKS: %w", err)
		}
		options = append(options, jwt.WithKeySet(keyset))
	} else {
		key, err := jwk.Import(a.secret)
		if err != nil {
			return nil, fmt.Errorf("failed to load signing secret: %w", err)
		}
		options = append(options, jwt.WithKey(jwa.HS256(), key))
	}
	if a.issuer != "" {
		options = append(options, jwt.WithIssuer(a.issuer))
	}
	if a.audience != "" {
		options = append(options, jwt.WithAudience(a.audience))
	}

	token, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token: %v", awp.ErrUnauthenticated, err)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("%w: token carries no subject", awp.ErrUnauthenticated)
	}

	attrs := make(map[string]any)
	for _, name := range token.Keys() {
		var value any
		if err := token.Get(name, &value); err == nil {
			attrs[name] = value
		}
	}
	return awpsrv.NewAuthenticatedUser(subject, attrs), nil
}

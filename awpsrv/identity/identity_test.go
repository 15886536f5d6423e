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

package identity

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/awprotocol/awp-go/awp"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type tokenParams struct {
	subject  string
	issuer   string
	audience string
	expires  time.Time
	claims   map[string]any
}

func defaultTokenParams() tokenParams {
	return tokenParams{
		subject:  "alice",
		issuer:   "https://issuer.example.com",
		audience: "awp-agent",
		expires:  time.Now().Add(time.Hour),
		claims:   map[string]any{"scope": "tasks:read"},
	}
}

func buildToken(t *testing.T, params tokenParams) jwt.Token {
	t.Helper()
	builder := jwt.NewBuilder().Expiration(params.expires)
	if params.subject != "" {
		builder = builder.Subject(params.subject)
	}
	if params.issuer != "" {
		builder = builder.Issuer(params.issuer)
	}
	if params.audience != "" {
		builder = builder.Audience([]string{params.audience})
	}
	for name, value := range params.claims {
		builder = builder.Claim(name, value)
	}
	token, err := builder.Build()
	if err != nil {
		t.Fatalf("jwt.Build() error = %v", err)
	}
	return token
}

func signHS256(t *testing.T, secret []byte, params tokenParams) string {
	t.Helper()
	key, err := jwk.Import(secret)
	if err != nil {
		t.Fatalf("jwk.Import() error = %v", err)
	}
	signed, err := jwt.Sign(buildToken(t, params), jwt.WithKey(jwa.HS256(), key))
	if err != nil {
		t.Fatalf("jwt.Sign() error = %v", err)
	}
	return string(signed)
}

func TestNewTokenAuthenticator_Config(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "secret only",
			config: Config{Secret: testSecret},
		},
		{
			name:    "neither configured",
			config:  Config{},
			wantErr: true,
		},
		{
			name:    "both configured",
			config:  Config{Secret: testSecret, JWKSURL: "https://issuer.example.com/jwks.json"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTokenAuthenticator(t.Context(), tc.config)
			if (err != nil) != tc.wantErr {
				t.Fatalf("NewTokenAuthenticator() error = %v, wantErr = %v", err, tc.wantErr)
			}
		})
	}
}

func TestTokenAuthenticator_HS256(t *testing.T) {
	authenticator, err := NewTokenAuthenticator(t.Context(), Config{
		Secret:   testSecret,
		Issuer:   "https://issuer.example.com",
		Audience: "awp-agent",
	})
	if err != nil {
		t.Fatalf("NewTokenAuthenticator() error = %v", err)
	}

	tests := []struct {
		name        string
		credentials func(t *testing.T) string
		wantSubject string
		wantErr     bool
	}{
		{
			name: "valid token with bearer prefix",
			credentials: func(t *testing.T) string {
				return "Bearer " + signHS256(t, testSecret, defaultTokenParams())
			},
			wantSubject: "alice",
		},
		{
			name: "valid token without prefix",
			credentials: func(t *testing.T) string {
				return signHS256(t, testSecret, defaultTokenParams())
			},
			wantSubject: "alice",
		},
		{
			name:        "empty credentials",
			credentials: func(t *testing.T) string { return "" },
			wantErr:     true,
		},
		{
			name:        "garbage token",
			credentials: func(t *testing.T) string { return "Bearer not.a.token" },
			wantErr:     true,
		},
		{
			name: "wrong secret",
			credentials: func(t *testing.T) string {
				return signHS256(t, []byte("another-secret-another-secret-00"), defaultTokenParams())
			},
			wantErr: true,
		},
		{
			name: "expired token",
			credentials: func(t *testing.T) string {
				params := defaultTokenParams()
				params.expires = time.Now().Add(-time.Minute)
				return signHS256(t, testSecret, params)
			},
			wantErr: true,
		},
		{
			name: "missing subject",
			credentials: func(t *testing.T) string {
				params := defaultTokenParams()
				params.subject = ""
				return signHS256(t, testSecret, params)
			},
			wantErr: true,
		},
		{
			name: "issuer mismatch",
			credentials: func(t *testing.T) string {
				params := defaultTokenParams()
				params.issuer = "https://rogue.example.com"
				return signHS256(t, testSecret, params)
			},
			wantErr: true,
		},
		{
			name: "audience mismatch",
			credentials: func(t *testing.T) string {
				params := defaultTokenParams()
				params.audience = "someone-else"
				return signHS256(t, testSecret, params)
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			user, err := authenticator.Authenticate(t.Context(), tc.credentials(t))
			if tc.wantErr {
				if !errors.Is(err, awp.ErrUnauthenticated) {
					t.Fatalf("Authenticate() error = %v, want %v", err, awp.ErrUnauthenticated)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if !user.Authenticated || user.Name != tc.wantSubject {
				t.Fatalf("Authenticate() user = %+v, want authenticated %q", user, tc.wantSubject)
			}
			if got := user.Attributes["scope"]; got != "tasks:read" {
				t.Fatalf("scope attribute = %v, want %q", got, "tasks:read")
			}
		})
	}
}

func TestTokenAuthenticator_JWKS(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	signingKey, err := jwk.Import(privateKey)
	if err != nil {
		t.Fatalf("jwk.Import() error = %v", err)
	}
	if err := signingKey.Set(jwk.KeyIDKey, "test-key"); err != nil {
		t.Fatalf("Set(kid) error = %v", err)
	}
	if err := signingKey.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		t.Fatalf("Set(alg) error = %v", err)
	}
	publicKey, err := jwk.PublicKeyOf(signingKey)
	if err != nil {
		t.Fatalf("jwk.PublicKeyOf() error = %v", err)
	}
	keyset := jwk.NewSet()
	if err := keyset.AddKey(publicKey); err != nil {
		t.Fatalf("AddKey() error = %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(keyset); err != nil {
			t.Errorf("failed to encode JWKS: %v", err)
		}
	}))
	defer server.Close()

	authenticator, err := NewTokenAuthenticator(t.Context(), Config{
		JWKSURL: server.URL + "/.well-known/jwks.json",
	})
	if err != nil {
		t.Fatalf("NewTokenAuthenticator() error = %v", err)
	}

	t.Run("valid signature", func(t *testing.T) {
		signed, err := jwt.Sign(buildToken(t, defaultTokenParams()), jwt.WithKey(jwa.RS256(), signingKey))
		if err != nil {
			t.Fatalf("jwt.Sign() error = %v", err)
		}
		user, err := authenticator.Authenticate(t.Context(), "Bearer "+string(signed))
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if !user.Authenticated || user.Name != "alice" {
			t.Fatalf("Authenticate() user = %+v, want authenticated alice", user)
		}
	})

	t.Run("unknown signing key", func(t *testing.T) {
		rogueKey, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("rsa.GenerateKey() error = %v", err)
		}
		rogueJWK, err := jwk.Import(rogueKey)
		if err != nil {
			t.Fatalf("jwk.Import() error = %v", err)
		}
		signed, err := jwt.Sign(buildToken(t, defaultTokenParams()), jwt.WithKey(jwa.RS256(), rogueJWK))
		if err != nil {
			t.Fatalf("jwt.Sign() error = %v", err)
		}
		if _, err := authenticator.Authenticate(t.Context(), "Bearer "+string(signed)); !errors.Is(err, awp.ErrUnauthenticated) {
			t.Fatalf("Authenticate() error = %v, want %v", err, awp.ErrUnauthenticated)
		}
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		if _, err := NewTokenAuthenticator(t.Context(), Config{JWKSURL: server.URL + "/missing"}); err == nil {
			t.Fatal("NewTokenAuthenticator() expected an error for an unreachable JWKS endpoint")
		}
	})
}

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
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv"
)

type fakeAuthenticator struct {
	user *awpsrv.User
	err  error
}

func (a *fakeAuthenticator) Authenticate(ctx context.Context, credentials string) (*awpsrv.User, error) {
	return a.user, a.err
}

func newAuthCallContext(t *testing.T, headers http.Header) (context.Context, *awpsrv.CallContext) {
	t.Helper()
	return awpsrv.NewCallContext(t.Context(), awpsrv.NewServiceParams(headers))
}

func TestInterceptor(t *testing.T) {
	alice := awpsrv.NewAuthenticatedUser("alice", nil)

	tests := []struct {
		name        string
		interceptor *Interceptor
		headers     http.Header
		wantErr     error
		wantUser    *awpsrv.User
	}{
		{
			name:        "credentials resolved into user",
			interceptor: &Interceptor{Authenticator: &fakeAuthenticator{user: alice}},
			headers:     http.Header{"Authorization": {"Bearer token"}},
			wantUser:    alice,
		},
		{
			name:        "no credentials passes through anonymous",
			interceptor: &Interceptor{Authenticator: &fakeAuthenticator{user: alice}},
			headers:     http.Header{},
		},
		{
			name:        "no credentials rejected when required",
			interceptor: &Interceptor{Authenticator: &fakeAuthenticator{user: alice}, Required: true},
			headers:     http.Header{},
			wantErr:     awp.ErrUnauthenticated,
		},
		{
			name: "authenticator failure propagates",
			interceptor: &Interceptor{Authenticator: &fakeAuthenticator{
				err: fmt.Errorf("%w: invalid token", awp.ErrUnauthenticated),
			}},
			headers: http.Header{"Authorization": {"Bearer bad"}},
			wantErr: awp.ErrUnauthenticated,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, callCtx := newAuthCallContext(t, tc.headers)
			req := &awpsrv.Request{Method: "GetTask"}

			_, err := tc.interceptor.Before(ctx, callCtx, req)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Before() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Before() error = %v", err)
			}
			if callCtx.User != tc.wantUser {
				t.Fatalf("callCtx.User = %+v, want %+v", callCtx.User, tc.wantUser)
			}

			if err := tc.interceptor.After(ctx, callCtx, &awpsrv.Response{}); err != nil {
				t.Fatalf("After() error = %v", err)
			}
		})
	}
}

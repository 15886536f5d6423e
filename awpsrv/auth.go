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

package awpsrv

import "context"

// User can be attached to [CallContext] by authentication middleware.
type User struct {
	// Name is a username.
	Name string
	// Authenticated is true if the request was authenticated.
	Authenticated bool
	// Attributes is a map of attributes associated with the user.
	Attributes map[string]any
}

// NewAuthenticatedUser returns a new [User] with the given username and attributes.
func NewAuthenticatedUser(username string, attrs map[string]any) *User {
	return &User{
		Name:          username,
		Attributes:    attrs,
		Authenticated: true,
	}
}

// Authenticator resolves request credentials into a [User]. Implementations
// live outside the runtime core; [github.com/awprotocol/awp-go/awpsrv/identity]
// provides a JWT-based one.
type Authenticator interface {
	// Authenticate verifies the given credentials. It returns
	// [github.com/awprotocol/awp-go/awp.ErrUnauthenticated] wrapped errors for
	// missing or invalid credentials.
	Authenticate(ctx context.Context, credentials string) (*User, error)
}

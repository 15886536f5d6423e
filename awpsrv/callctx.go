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

import (
	"context"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/awprotocol/awp-go/awp"
)

type callCtxKey struct{}

// CallContext carries per-request information across the transport boundary:
// the invoked method, the tenant, transport metadata and the authenticated
// user, when any middleware established one.
type CallContext struct {
	// User is the identity established for this call, nil when the request
	// was not authenticated.
	User *User

	method        string
	tenant        string
	serviceParams *ServiceParams
}

// NewCallContext attaches a new [CallContext] to ctx. Transport
// implementations call it once per request before invoking the handler.
func NewCallContext(ctx context.Context, params *ServiceParams) (context.Context, *CallContext) {
	callCtx := &CallContext{serviceParams: params}
	return context.WithValue(ctx, callCtxKey{}, callCtx), callCtx
}

// CallContextFrom returns the [CallContext] attached to ctx, if any.
func CallContextFrom(ctx context.Context) (*CallContext, bool) {
	callCtx, ok := ctx.Value(callCtxKey{}).(*CallContext)
	return callCtx, ok
}

// Method returns the name of the protocol method being invoked.
func (c *CallContext) Method() string { return c.method }

// Tenant returns the tenant of the call, empty for single-tenant deployments.
func (c *CallContext) Tenant() string { return c.tenant }

// ServiceParams returns the transport metadata of the call.
func (c *CallContext) ServiceParams() *ServiceParams { return c.serviceParams }

// checkProtocolVersion rejects requests which declare a protocol version this
// runtime cannot serve. Requests without a version param are accepted.
func checkProtocolVersion(callCtx *CallContext) error {
	requested, ok := callCtx.ServiceParams().GetFirst(VersionParam)
	if !ok || requested == "" {
		return nil
	}

	want := "v" + requested
	if !semver.IsValid(want) {
		return fmt.Errorf("malformed protocol version %q: %w", requested, awp.ErrVersionNotSupported)
	}
	if semver.Major(want) != semver.Major("v"+string(awp.Version)) {
		return fmt.Errorf("protocol version %q is not supported by runtime version %q: %w",
			requested, awp.Version, awp.ErrVersionNotSupported)
	}
	return nil
}

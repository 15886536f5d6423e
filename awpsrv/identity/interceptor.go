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
	"fmt"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpsrv"
	"github.com/awprotocol/awp-go/log"
)

// Interceptor is a [awpsrv.CallInterceptor] that resolves the Authorization
// service param into [awpsrv.CallContext.User] before each call. It works
// across transports: HTTP bindings and the gRPC binding both surface request
// headers as service params.
//
// Requests without credentials pass through anonymous; operations that need
// an identity reject them individually. Set Required to reject such requests
// up front instead.
type Interceptor struct {
	// Authenticator verifies the presented credentials.
	Authenticator awpsrv.Authenticator

	// Required rejects unauthenticated requests for every method.
	Required bool
}

var _ awpsrv.CallInterceptor = (*Interceptor)(nil)

// Before implements [awpsrv.CallInterceptor].
func (i *Interceptor) Before(ctx context.Context, callCtx *awpsrv.CallContext, req *awpsrv.Request) (context.Context, error) {
	credentials, ok := callCtx.ServiceParams().GetFirst("Authorization")
	if !ok || credentials == "" {
		if i.Required {
			return ctx, fmt.Errorf("%w: missing credentials", awp.ErrUnauthenticated)
		}
		return ctx, nil
	}

	user, err := i.Authenticator.Authenticate(ctx, credentials)
	if err != nil {
		log.Warn(ctx, "authentication failed", "method", req.Method, "error", err)
		return ctx, err
	}
	callCtx.User = user
	return ctx, nil
}

// After implements [awpsrv.CallInterceptor].
func (i *Interceptor) After(ctx context.Context, callCtx *awpsrv.CallContext, resp *awpsrv.Response) error {
	return nil
}

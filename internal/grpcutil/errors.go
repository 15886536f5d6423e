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

// Package grpcutil maps the protocol error taxonomy onto gRPC status codes.
package grpcutil

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/awprotocol/awp-go/awp"
)

var errorMappings = []struct {
	code codes.Code
	err  error
}{
	// Primary mappings (used for FromGRPCError as the first match is chosen)
	{codes.NotFound, awp.ErrTaskNotFound},
	{codes.FailedPrecondition, awp.ErrTaskNotCancelable},
	{codes.Unimplemented, awp.ErrUnsupportedOperation},
	{codes.InvalidArgument, awp.ErrInvalidParams},
	{codes.Internal, awp.ErrInternal},
	{codes.Unauthenticated, awp.ErrUnauthenticated},
	{codes.PermissionDenied, awp.ErrUnauthorized},
	{codes.Unavailable, awp.ErrTransient},
	{codes.Canceled, context.Canceled},
	{codes.DeadlineExceeded, context.DeadlineExceeded},

	// Secondary mappings (only used for ToGRPCError)
	{codes.FailedPrecondition, awp.ErrTaskAlreadyTerminal},
	{codes.FailedPrecondition, awp.ErrVersionNotSupported},
	{codes.InvalidArgument, awp.ErrInvalidReference},
	{codes.Unimplemented, awp.ErrPushNotificationNotSupported},
	{codes.Unimplemented, awp.ErrMethodNotFound},
	{codes.InvalidArgument, awp.ErrUnsupportedContentType},
	{codes.InvalidArgument, awp.ErrInvalidRequest},
	{codes.Internal, awp.ErrInvalidAgentResponse},
}

// ToGRPCError translates protocol errors into gRPC status errors.
func ToGRPCError(err error) error {
	if err == nil {
		return nil
	}

	// If it's already a gRPC status error, return it.
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	for _, mapping := range errorMappings {
		if errors.Is(err, mapping.err) {
			code = mapping.code
			break
		}
	}

	st := status.New(code, err.Error())

	var protoErr *awp.Error
	if errors.As(err, &protoErr) && len(protoErr.Details) > 0 {
		s, err := structpb.NewStruct(protoErr.Details)
		if err != nil {
			return st.Err()
		}

		withDetails, err := st.WithDetails(s)
		if err != nil {
			return st.Err()
		}
		st = withDetails
	}

	return st.Err()
}

// FromGRPCError translates gRPC errors into protocol errors.
func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}
	s, ok := status.FromError(err)
	if !ok {
		return err
	}

	baseErr := awp.ErrInternal
	for _, mapping := range errorMappings {
		if s.Code() == mapping.code {
			baseErr = mapping.err
			break
		}
	}

	details := make(map[string]any)
	for _, d := range s.Details() {
		if pbStruct, ok := d.(*structpb.Struct); ok {
			for k, v := range pbStruct.AsMap() {
				details[k] = v
			}
		}
	}

	errOut := awp.NewError(baseErr, s.Message())
	if len(details) > 0 {
		errOut = errOut.WithDetails(details)
	}
	return errOut
}

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

// Package awpgrpc serves the protocol over gRPC using the A2A v0 service
// definition. Requests are translated to the runtime types and delegated to a
// [awpsrv.RequestHandler]; incoming metadata becomes the call's service
// parameters, so authentication and protocol version checks work the same as
// on the HTTP bindings.
package awpgrpc

import (
	"context"

	"github.com/a2aproject/a2a-go/a2apb"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/awprotocol/awp-go/awp"
	"github.com/awprotocol/awp-go/awpgrpc/pbconv"
	"github.com/awprotocol/awp-go/awpsrv"
	"github.com/awprotocol/awp-go/internal/grpcutil"
)

// Handler implements the protobuf translation layer and delegates the actual
// method handling to a [awpsrv.RequestHandler].
type Handler struct {
	a2apb.UnimplementedA2AServiceServer
	handler awpsrv.RequestHandler
}

// NewHandler is a [Handler] constructor function.
func NewHandler(handler awpsrv.RequestHandler) *Handler {
	return &Handler{handler: handler}
}

// RegisterWith registers as an A2AService implementation with the provided [grpc.Server].
func (h *Handler) RegisterWith(s *grpc.Server) {
	a2apb.RegisterA2AServiceServer(s, h)
}

// SendMessage implements a2apb.A2AServiceServer.
func (h *Handler) SendMessage(ctx context.Context, pbReq *a2apb.SendMessageRequest) (*a2apb.SendMessageResponse, error) {
	req, err := pbconv.FromProtoSendMessageRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	res, err := h.handler.SendMessage(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbRes, err := pbconv.ToProtoSendMessageResponse(res)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert response: %v", err)
	}

	return pbRes, nil
}

// SendStreamingMessage implements a2apb.A2AServiceServer.
func (h *Handler) SendStreamingMessage(pbReq *a2apb.SendMessageRequest, stream grpc.ServerStreamingServer[a2apb.StreamResponse]) error {
	req, err := pbconv.FromProtoSendMessageRequest(pbReq)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	ctx := withCallContext(stream.Context())
	for event, err := range h.handler.SendStreamingMessage(ctx, req) {
		if err != nil {
			return grpcutil.ToGRPCError(err)
		}
		pbResp, err := pbconv.ToProtoStreamResponse(event)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to convert response: %v", err)
		}
		if err := stream.Send(pbResp); err != nil {
			return status.Errorf(codes.Aborted, "failed to send response: %v", err)
		}
	}

	return nil
}

// GetTask implements a2apb.A2AServiceServer.
func (h *Handler) GetTask(ctx context.Context, pbReq *a2apb.GetTaskRequest) (*a2apb.Task, error) {
	req, err := pbconv.FromProtoGetTaskRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	task, err := h.handler.GetTask(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbTask, err := pbconv.ToProtoTask(task)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert task: %v", err)
	}
	return pbTask, nil
}

// ListTasks implements a2apb.A2AServiceServer.
func (h *Handler) ListTasks(ctx context.Context, pbReq *a2apb.ListTasksRequest) (*a2apb.ListTasksResponse, error) {
	req, err := pbconv.FromProtoListTasksRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	resp, err := h.handler.ListTasks(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbResp, err := pbconv.ToProtoListTasksResponse(resp)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert response: %v", err)
	}
	return pbResp, nil
}

// CancelTask implements a2apb.A2AServiceServer.
func (h *Handler) CancelTask(ctx context.Context, pbReq *a2apb.CancelTaskRequest) (*a2apb.Task, error) {
	taskID, err := pbconv.ExtractTaskID(pbReq.GetName())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to extract task id: %v", err)
	}

	task, err := h.handler.CancelTask(withCallContext(ctx), &awp.CancelTaskRequest{ID: taskID})
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbTask, err := pbconv.ToProtoTask(task)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert task: %v", err)
	}
	return pbTask, nil
}

// TaskSubscription implements a2apb.A2AServiceServer.
func (h *Handler) TaskSubscription(pbReq *a2apb.TaskSubscriptionRequest, stream grpc.ServerStreamingServer[a2apb.StreamResponse]) error {
	taskID, err := pbconv.ExtractTaskID(pbReq.GetName())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "failed to extract task id: %v", err)
	}

	ctx := withCallContext(stream.Context())
	for event, err := range h.handler.SubscribeToTask(ctx, &awp.SubscribeToTaskRequest{ID: taskID}) {
		if err != nil {
			return grpcutil.ToGRPCError(err)
		}
		pbResp, err := pbconv.ToProtoStreamResponse(event)
		if err != nil {
			return status.Errorf(codes.Internal, "failed to convert response: %v", err)
		}
		if err := stream.Send(pbResp); err != nil {
			return status.Errorf(codes.Aborted, "failed to send response: %v", err)
		}
	}

	return nil
}

// CreateTaskPushNotificationConfig implements a2apb.A2AServiceServer.
func (h *Handler) CreateTaskPushNotificationConfig(ctx context.Context, pbReq *a2apb.CreateTaskPushNotificationConfigRequest) (*a2apb.TaskPushNotificationConfig, error) {
	req, err := pbconv.FromProtoCreateTaskPushConfigRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	config, err := h.handler.CreateTaskPushConfig(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbConfig, err := pbconv.ToProtoTaskPushConfig(config)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert push config: %v", err)
	}
	return pbConfig, nil
}

// GetTaskPushNotificationConfig implements a2apb.A2AServiceServer.
func (h *Handler) GetTaskPushNotificationConfig(ctx context.Context, pbReq *a2apb.GetTaskPushNotificationConfigRequest) (*a2apb.TaskPushNotificationConfig, error) {
	req, err := pbconv.FromProtoGetTaskPushConfigRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	config, err := h.handler.GetTaskPushConfig(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbConfig, err := pbconv.ToProtoTaskPushConfig(config)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert push config: %v", err)
	}
	return pbConfig, nil
}

// ListTaskPushNotificationConfig implements a2apb.A2AServiceServer.
func (h *Handler) ListTaskPushNotificationConfig(ctx context.Context, pbReq *a2apb.ListTaskPushNotificationConfigRequest) (*a2apb.ListTaskPushNotificationConfigResponse, error) {
	req, err := pbconv.FromProtoListTaskPushConfigRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	configs, err := h.handler.ListTaskPushConfigs(withCallContext(ctx), req)
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbResp, err := pbconv.ToProtoListTaskPushConfigResponse(&awp.ListTaskPushConfigResponse{Configs: configs})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert list of push configs: %v", err)
	}
	return pbResp, nil
}

// DeleteTaskPushNotificationConfig implements a2apb.A2AServiceServer.
func (h *Handler) DeleteTaskPushNotificationConfig(ctx context.Context, pbReq *a2apb.DeleteTaskPushNotificationConfigRequest) (*emptypb.Empty, error) {
	req, err := pbconv.FromProtoDeleteTaskPushConfigRequest(pbReq)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "failed to convert request: %v", err)
	}

	if err := h.handler.DeleteTaskPushConfig(withCallContext(ctx), req); err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	return &emptypb.Empty{}, nil
}

// GetAgentCard implements a2apb.A2AServiceServer. It serves the authenticated
// extended card; the public card is a discovery document served over HTTP.
func (h *Handler) GetAgentCard(ctx context.Context, pbReq *a2apb.GetAgentCardRequest) (*a2apb.AgentCard, error) {
	card, err := h.handler.GetExtendedAgentCard(withCallContext(ctx), &awp.GetExtendedAgentCardRequest{})
	if err != nil {
		return nil, grpcutil.ToGRPCError(err)
	}

	pbCard, err := pbconv.ToProtoAgentCard(card)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to convert agent card: %v", err)
	}
	return pbCard, nil
}

func withCallContext(ctx context.Context) context.Context {
	var svcParams *awpsrv.ServiceParams
	if meta, ok := metadata.FromIncomingContext(ctx); ok {
		svcParams = awpsrv.NewServiceParams(meta)
	}
	ctx, _ = awpsrv.NewCallContext(ctx, svcParams)
	return ctx
}

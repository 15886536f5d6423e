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

// Package pbconv converts between the runtime types and their protobuf wire
// form. The gRPC binding reuses the A2A v0 service definition, so tasks and
// push configurations travel as resource names ("tasks/{id}",
// "tasks/{id}/pushNotificationConfigs/{id}").
package pbconv

import (
	"fmt"
	"slices"

	"github.com/a2aproject/a2a-go/a2apb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/awprotocol/awp-go/awp"
)

// wrappedDataKey marks a data part whose non-map value was wrapped in a
// {"value": ...} object to fit the proto Struct representation.
const wrappedDataKey = "dataValueWrapped"

func toProtoMap(meta map[string]any) (*structpb.Struct, error) {
	if meta == nil {
		return nil, nil
	}
	s, err := structpb.NewStruct(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to proto struct: %w", err)
	}
	return s, nil
}

// ToProtoSendMessageRequest renders a [awp.SendMessageRequest] in its wire
// form.
func ToProtoSendMessageRequest(req *awp.SendMessageRequest) (*a2apb.SendMessageRequest, error) {
	if req == nil {
		return nil, nil
	}

	pMsg, err := toProtoMessage(req.Message)
	if err != nil {
		return nil, err
	}

	pConf, err := toProtoSendMessageConfig(req.Config)
	if err != nil {
		return nil, err
	}

	pMeta, err := toProtoMap(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to proto struct: %w", err)
	}

	return &a2apb.SendMessageRequest{
		Request:       pMsg,
		Configuration: pConf,
		Metadata:      pMeta,
	}, nil
}

// The proto config has no field for the HMAC secret; webhook signing stays a
// concern of the HTTP bindings.
func toProtoPushConfig(config *awp.PushConfig) (*a2apb.PushNotificationConfig, error) {
	if config == nil {
		return nil, nil
	}

	pConf := &a2apb.PushNotificationConfig{
		Id:    config.ID,
		Url:   config.URL,
		Token: config.Token,
	}
	if config.Auth != nil {
		pConf.Authentication = &a2apb.AuthenticationInfo{
			Schemes:     []string{config.Auth.Scheme},
			Credentials: config.Auth.Credentials,
		}
	}
	return pConf, nil
}

func toProtoSendMessageConfig(config *awp.SendMessageConfig) (*a2apb.SendMessageConfiguration, error) {
	if config == nil {
		return nil, nil
	}

	pushConf, err := toProtoPushConfig(config.PushConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to convert push config: %w", err)
	}

	pConf := &a2apb.SendMessageConfiguration{
		AcceptedOutputModes: config.AcceptedOutputModes,
		PushNotification:    pushConf,
	}
	if config.Blocking != nil {
		pConf.Blocking = *config.Blocking
	}
	if config.HistoryLength != nil {
		pConf.HistoryLength = int32(*config.HistoryLength)
	}
	return pConf, nil
}

// ToProtoGetTaskRequest renders the request with the task as a resource name.
func ToProtoGetTaskRequest(req *awp.GetTaskRequest) (*a2apb.GetTaskRequest, error) {
	if req == nil {
		return nil, nil
	}

	pReq := &a2apb.GetTaskRequest{Name: MakeTaskName(req.ID)}
	if req.HistoryLength != nil {
		pReq.HistoryLength = int32(*req.HistoryLength)
	}
	return pReq, nil
}

// ToProtoCancelTaskRequest renders the request with the task as a resource
// name.
func ToProtoCancelTaskRequest(req *awp.CancelTaskRequest) (*a2apb.CancelTaskRequest, error) {
	if req == nil {
		return nil, nil
	}
	return &a2apb.CancelTaskRequest{Name: MakeTaskName(req.ID)}, nil
}

// ToProtoTaskSubscriptionRequest renders the request with the task as a
// resource name.
func ToProtoTaskSubscriptionRequest(req *awp.SubscribeToTaskRequest) (*a2apb.TaskSubscriptionRequest, error) {
	if req == nil {
		return nil, nil
	}
	return &a2apb.TaskSubscriptionRequest{Name: MakeTaskName(req.ID)}, nil
}

// ToProtoCreateTaskPushConfigRequest renders a push config creation request
// in its wire form, with the task as the parent resource.
func ToProtoCreateTaskPushConfigRequest(req *awp.CreateTaskPushConfigRequest) (*a2apb.CreateTaskPushNotificationConfigRequest, error) {
	if req == nil {
		return nil, nil
	}

	pnc, err := toProtoPushConfig(&req.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to convert push config: %w", err)
	}

	return &a2apb.CreateTaskPushNotificationConfigRequest{
		Parent:   MakeTaskName(req.TaskID),
		ConfigId: req.Config.ID,
		Config:   &a2apb.TaskPushNotificationConfig{PushNotificationConfig: pnc},
	}, nil
}

// ToProtoGetTaskPushConfigRequest renders the task and config IDs as a config
// resource name.
func ToProtoGetTaskPushConfigRequest(req *awp.GetTaskPushConfigRequest) (*a2apb.GetTaskPushNotificationConfigRequest, error) {
	if req == nil {
		return nil, nil
	}
	return &a2apb.GetTaskPushNotificationConfigRequest{
		Name: MakeConfigName(req.TaskID, req.ID),
	}, nil
}

// ToProtoDeleteTaskPushConfigRequest renders the task and config IDs as a
// config resource name.
func ToProtoDeleteTaskPushConfigRequest(req *awp.DeleteTaskPushConfigRequest) (*a2apb.DeleteTaskPushNotificationConfigRequest, error) {
	if req == nil {
		return nil, nil
	}
	return &a2apb.DeleteTaskPushNotificationConfigRequest{
		Name: MakeConfigName(req.TaskID, req.ID),
	}, nil
}

// ToProtoSendMessageResponse wraps the result in the wire response envelope.
func ToProtoSendMessageResponse(result awp.SendMessageResult) (*a2apb.SendMessageResponse, error) {
	resp := &a2apb.SendMessageResponse{}
	switch r := result.(type) {
	case *awp.Message:
		pMsg, err := toProtoMessage(r)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.SendMessageResponse_Msg{Msg: pMsg}
	case *awp.Task:
		pTask, err := ToProtoTask(r)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.SendMessageResponse_Task{Task: pTask}
	default:
		return nil, fmt.Errorf("unsupported SendMessageResult type: %T", result)
	}
	return resp, nil
}

// ToProtoStreamResponse wraps the event in the stream envelope. The wire
// status update has no final marker, subscribers derive it from the state.
func ToProtoStreamResponse(event awp.Event) (*a2apb.StreamResponse, error) {
	resp := &a2apb.StreamResponse{}
	switch e := event.(type) {
	case *awp.Message:
		pMsg, err := toProtoMessage(e)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.StreamResponse_Msg{Msg: pMsg}
	case *awp.Task:
		pTask, err := ToProtoTask(e)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.StreamResponse_Task{Task: pTask}
	case *awp.TaskStatusUpdateEvent:
		pStatus, err := toProtoTaskStatus(e.Status)
		if err != nil {
			return nil, err
		}
		metadata, err := toProtoMap(e.Metadata)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.StreamResponse_StatusUpdate{StatusUpdate: &a2apb.TaskStatusUpdateEvent{
			ContextId: e.ContextID,
			Status:    pStatus,
			TaskId:    string(e.TaskID),
			Metadata:  metadata,
		}}
	case *awp.TaskArtifactUpdateEvent:
		pArtifact, err := toProtoArtifact(e.Artifact)
		if err != nil {
			return nil, err
		}
		metadata, err := toProtoMap(e.Metadata)
		if err != nil {
			return nil, err
		}
		resp.Payload = &a2apb.StreamResponse_ArtifactUpdate{
			ArtifactUpdate: &a2apb.TaskArtifactUpdateEvent{
				Append:    e.Append,
				Artifact:  pArtifact,
				ContextId: e.ContextID,
				LastChunk: e.LastChunk,
				TaskId:    string(e.TaskID),
				Metadata:  metadata,
			}}
	default:
		return nil, fmt.Errorf("unsupported Event type: %T", event)
	}
	return resp, nil
}

func toProtoMessage(msg *awp.Message) (*a2apb.Message, error) {
	if msg == nil {
		return nil, nil
	}

	parts, err := toProtoParts(msg.Parts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert parts: %w", err)
	}

	pMetadata, err := toProtoMap(msg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to proto struct: %w", err)
	}
	var taskIDs []string
	if msg.ReferenceTasks != nil {
		taskIDs = make([]string, len(msg.ReferenceTasks))
		for i, tid := range msg.ReferenceTasks {
			taskIDs[i] = string(tid)
		}
	}

	return &a2apb.Message{
		MessageId:        msg.ID,
		ContextId:        msg.ContextID,
		Extensions:       msg.Extensions,
		Parts:            parts,
		Role:             toProtoRole(msg.Role),
		TaskId:           string(msg.TaskID),
		Metadata:         pMetadata,
		ReferenceTaskIds: taskIDs,
	}, nil
}

func toProtoMessages(msgs []*awp.Message) ([]*a2apb.Message, error) {
	return convertSlice(msgs, "message", toProtoMessage)
}

func toProtoFilePart(part *awp.Part) (*a2apb.Part, error) {
	meta, err := toProtoMap(part.Metadata)
	if err != nil {
		return nil, err
	}
	switch fc := part.Content.(type) {
	case awp.Raw:
		return &a2apb.Part{
			Part: &a2apb.Part_File{File: &a2apb.FilePart{
				MimeType: part.MediaType,
				Name:     part.Filename,
				File:     &a2apb.FilePart_FileWithBytes{FileWithBytes: fc},
			}},
			Metadata: meta,
		}, nil
	case awp.URL:
		return &a2apb.Part{
			Part: &a2apb.Part_File{File: &a2apb.FilePart{
				MimeType: part.MediaType,
				Name:     part.Filename,
				File:     &a2apb.FilePart_FileWithUri{FileWithUri: string(fc)},
			}},
			Metadata: meta,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported file part content type: %T", fc)
	}
}

func toProtoDataPart(part *awp.Part) (*a2apb.Part, error) {
	dataContent, ok := part.Content.(awp.Data)
	if !ok {
		return nil, fmt.Errorf("part content is not Data")
	}
	var s *structpb.Struct
	var err error

	if m, ok := dataContent.Value.(map[string]any); ok {
		s, err = toProtoMap(m)
	} else {
		// The proto representation is always a map, so scalar and list values
		// are wrapped and marked for unwrapping on the way back.
		m := map[string]any{"value": dataContent.Value}
		if part.Metadata == nil {
			part.Metadata = make(map[string]any)
		}
		part.Metadata[wrappedDataKey] = true
		s, err = toProtoMap(m)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to convert data to proto struct: %w", err)
	}
	meta, err := toProtoMap(part.Metadata)
	if err != nil {
		return nil, err
	}
	return &a2apb.Part{
		Part:     &a2apb.Part_Data{Data: &a2apb.DataPart{Data: s}},
		Metadata: meta,
	}, nil
}

func toProtoPart(part awp.Part) (*a2apb.Part, error) {
	switch content := part.Content.(type) {
	case awp.Text:
		meta, err := toProtoMap(part.Metadata)
		if err != nil {
			return nil, err
		}
		return &a2apb.Part{Part: &a2apb.Part_Text{Text: string(content)}, Metadata: meta}, nil
	case awp.Data:
		return toProtoDataPart(&part)
	case awp.Raw, awp.URL:
		return toProtoFilePart(&part)
	default:
		return nil, fmt.Errorf("unsupported part type: %T", content)
	}
}

func toProtoParts(parts awp.ContentParts) ([]*a2apb.Part, error) {
	return convertSlice(parts, "part", func(part *awp.Part) (*a2apb.Part, error) {
		return toProtoPart(*part)
	})
}

func toProtoTaskStatus(status awp.TaskStatus) (*a2apb.TaskStatus, error) {
	message, err := toProtoMessage(status.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to convert message for task status: %w", err)
	}

	pStatus := &a2apb.TaskStatus{
		State:  toProtoTaskState(status.State),
		Update: message,
	}
	if status.Timestamp != nil {
		pStatus.Timestamp = timestamppb.New(*status.Timestamp)
	}

	return pStatus, nil
}

func toProtoArtifact(artifact *awp.Artifact) (*a2apb.Artifact, error) {
	if artifact == nil {
		return nil, nil
	}

	metadata, err := toProtoMap(artifact.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to proto struct: %w", err)
	}

	parts, err := toProtoParts(artifact.Parts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to proto parts: %w", err)
	}

	return &a2apb.Artifact{
		ArtifactId:  string(artifact.ID),
		Name:        artifact.Name,
		Description: artifact.Description,
		Parts:       parts,
		Metadata:    metadata,
		Extensions:  artifact.Extensions,
	}, nil
}

func toProtoArtifacts(artifacts []*awp.Artifact) ([]*a2apb.Artifact, error) {
	return convertSlice(artifacts, "artifact", toProtoArtifact)
}

// ToProtoTask renders a [awp.Task] in its wire form. The wire task has no
// field for the status transition record, so it is not carried over.
func ToProtoTask(task *awp.Task) (*a2apb.Task, error) {
	if task == nil {
		return nil, nil
	}

	status, err := toProtoTaskStatus(task.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to convert status: %w", err)
	}

	artifacts, err := toProtoArtifacts(task.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert artifacts: %w", err)
	}

	history, err := toProtoMessages(task.History)
	if err != nil {
		return nil, fmt.Errorf("failed to convert history: %w", err)
	}

	metadata, err := toProtoMap(task.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to convert metadata to proto struct: %w", err)
	}

	result := &a2apb.Task{
		Id:        string(task.ID),
		ContextId: task.ContextID,
		Status:    status,
		Artifacts: artifacts,
		History:   history,
		Metadata:  metadata,
	}
	return result, nil
}

// ToProtoListTasksRequest renders the task listing filters in their wire
// form.
func ToProtoListTasksRequest(request *awp.ListTasksRequest) (*a2apb.ListTasksRequest, error) {
	if request == nil {
		return nil, nil
	}

	var lastUpdatedAfter *timestamppb.Timestamp
	if request.StatusTimestampAfter != nil {
		lastUpdatedAfter = timestamppb.New(*request.StatusTimestampAfter)
	}
	pbReq := &a2apb.ListTasksRequest{
		ContextId:        request.ContextID,
		Status:           toProtoTaskState(request.Status),
		PageSize:         int32(request.PageSize),
		PageToken:        request.PageToken,
		LastUpdatedTime:  lastUpdatedAfter,
		IncludeArtifacts: request.IncludeArtifacts,
	}
	if request.HistoryLength != nil {
		pbReq.HistoryLength = int32(*request.HistoryLength)
	}
	return pbReq, nil
}

// ToProtoListTasksResponse renders a page of tasks in its wire form.
func ToProtoListTasksResponse(response *awp.ListTasksResponse) (*a2apb.ListTasksResponse, error) {
	if response == nil {
		return nil, nil
	}

	tasks, err := convertSlice(response.Tasks, "task", ToProtoTask)
	if err != nil {
		return nil, err
	}
	return &a2apb.ListTasksResponse{
		Tasks:         tasks,
		TotalSize:     int32(response.TotalSize),
		NextPageToken: response.NextPageToken,
	}, nil
}

// ToProtoTaskPushConfig renders a push config as a wire resource. The task ID
// must be set, it anchors the resource name.
func ToProtoTaskPushConfig(config *awp.TaskPushConfig) (*a2apb.TaskPushNotificationConfig, error) {
	if config == nil {
		return nil, nil
	}

	if config.TaskID == "" {
		return nil, fmt.Errorf("taskID is required on TaskPushConfig")
	}

	pConfig, err := toProtoPushConfig(&config.Config)
	if err != nil {
		return nil, err
	}

	return &a2apb.TaskPushNotificationConfig{
		Name:                   MakeConfigName(config.TaskID, pConfig.GetId()),
		PushNotificationConfig: pConfig,
	}, nil
}

// ToProtoListTaskPushConfigResponse renders a page of push configs in its
// wire form.
func ToProtoListTaskPushConfigResponse(resp *awp.ListTaskPushConfigResponse) (*a2apb.ListTaskPushNotificationConfigResponse, error) {
	if resp == nil {
		return nil, nil
	}

	pConfigs, err := convertSlice(resp.Configs, "config", ToProtoTaskPushConfig)
	if err != nil {
		return nil, err
	}
	return &a2apb.ListTaskPushNotificationConfigResponse{
		Configs:       pConfigs,
		NextPageToken: resp.NextPageToken,
	}, nil
}

// ToProtoListTaskPushConfigRequest renders the request with the task as the
// parent resource.
func ToProtoListTaskPushConfigRequest(req *awp.ListTaskPushConfigRequest) (*a2apb.ListTaskPushNotificationConfigRequest, error) {
	if req == nil {
		return nil, nil
	}
	return &a2apb.ListTaskPushNotificationConfigRequest{
		Parent:    MakeTaskName(req.TaskID),
		PageSize:  int32(req.PageSize),
		PageToken: req.PageToken,
	}, nil
}

func toProtoAdditionalInterfaces(interfaces []*awp.AgentInterface) []*a2apb.AgentInterface {
	pInterfaces := make([]*a2apb.AgentInterface, len(interfaces))
	for i, iface := range interfaces {
		pInterfaces[i] = &a2apb.AgentInterface{
			Transport: string(iface.ProtocolBinding),
			Url:       iface.URL,
		}
	}
	return pInterfaces
}

func toProtoAgentProvider(provider *awp.AgentProvider) *a2apb.AgentProvider {
	if provider == nil {
		return nil
	}
	return &a2apb.AgentProvider{Organization: provider.Org, Url: provider.URL}
}

func toProtoAgentExtensions(extensions []awp.AgentExtension) ([]*a2apb.AgentExtension, error) {
	pExtensions := make([]*a2apb.AgentExtension, len(extensions))
	for i, ext := range extensions {
		params, err := toProtoMap(ext.Params)
		if err != nil {
			return nil, fmt.Errorf("failed to convert extension params: %w", err)
		}
		pExtensions[i] = &a2apb.AgentExtension{
			Uri:         ext.URI,
			Description: ext.Description,
			Required:    ext.Required,
			Params:      params,
		}
	}
	return pExtensions, nil
}

func toProtoCapabilities(capabilities awp.AgentCapabilities) (*a2apb.AgentCapabilities, error) {
	extensions, err := toProtoAgentExtensions(capabilities.Extensions)
	if err != nil {
		return nil, fmt.Errorf("failed to convert extensions: %w", err)
	}

	result := &a2apb.AgentCapabilities{
		PushNotifications: capabilities.PushNotifications,
		Streaming:         capabilities.Streaming,
		Extensions:        extensions,
	}
	return result, nil
}

func toProtoSecurityScheme(scheme awp.SecurityScheme) (*a2apb.SecurityScheme, error) {
	switch scheme.Type {
	case "apiKey":
		return &a2apb.SecurityScheme{
			Scheme: &a2apb.SecurityScheme_ApiKeySecurityScheme{
				ApiKeySecurityScheme: &a2apb.APIKeySecurityScheme{
					Name:        scheme.Name,
					Location:    scheme.Location,
					Description: scheme.Description,
				},
			},
		}, nil
	case "http":
		return &a2apb.SecurityScheme{
			Scheme: &a2apb.SecurityScheme_HttpAuthSecurityScheme{
				HttpAuthSecurityScheme: &a2apb.HTTPAuthSecurityScheme{
					Scheme:       scheme.Scheme,
					Description:  scheme.Description,
					BearerFormat: scheme.BearerFormat,
				},
			},
		}, nil
	case "openIdConnect":
		return &a2apb.SecurityScheme{
			Scheme: &a2apb.SecurityScheme_OpenIdConnectSecurityScheme{
				OpenIdConnectSecurityScheme: &a2apb.OpenIdConnectSecurityScheme{
					OpenIdConnectUrl: scheme.OpenIDConnectURL,
					Description:      scheme.Description,
				},
			},
		}, nil
	case "mutualTLS":
		return &a2apb.SecurityScheme{
			Scheme: &a2apb.SecurityScheme_MtlsSecurityScheme{
				MtlsSecurityScheme: &a2apb.MutualTlsSecurityScheme{
					Description: scheme.Description,
				},
			},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported security scheme type: %q", scheme.Type)
	}
}

func toProtoSecuritySchemes(schemes map[string]awp.SecurityScheme) (map[string]*a2apb.SecurityScheme, error) {
	pSchemes := make(map[string]*a2apb.SecurityScheme, len(schemes))
	for name, scheme := range schemes {
		pScheme, err := toProtoSecurityScheme(scheme)
		if err != nil {
			return nil, fmt.Errorf("failed to convert security scheme: %w", err)
		}
		if pScheme != nil {
			pSchemes[name] = pScheme
		}
	}
	return pSchemes, nil
}

func toProtoSecurity(requirements awp.SecurityRequirements) []*a2apb.Security {
	pSecurity := make([]*a2apb.Security, len(requirements))
	for i, sec := range requirements {
		pSchemes := make(map[string]*a2apb.StringList)
		for name, scopes := range sec {
			pSchemes[name] = &a2apb.StringList{List: scopes}
		}
		pSecurity[i] = &a2apb.Security{Schemes: pSchemes}
	}
	return pSecurity
}

func toProtoSkills(skills []awp.AgentSkill) []*a2apb.AgentSkill {
	pSkills := make([]*a2apb.AgentSkill, len(skills))
	for i, skill := range skills {
		pSkills[i] = &a2apb.AgentSkill{
			Id:          skill.ID,
			Name:        skill.Name,
			Description: skill.Description,
			Tags:        skill.Tags,
			Examples:    skill.Examples,
			InputModes:  skill.InputModes,
			OutputModes: skill.OutputModes,
			Security:    toProtoSecurity(skill.SecurityRequirements),
		}
	}
	return pSkills
}

// ToProtoAgentCard renders a [awp.AgentCard] in its wire form. The first
// supported interface matching the current protocol version becomes the wire
// card's primary URL and transport.
func ToProtoAgentCard(card *awp.AgentCard) (*a2apb.AgentCard, error) {
	if card == nil {
		return nil, nil
	}
	capabilities, err := toProtoCapabilities(card.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("failed to convert agent capabilities: %w", err)
	}

	schemes, err := toProtoSecuritySchemes(card.SecuritySchemes)
	if err != nil {
		return nil, fmt.Errorf("failed to convert security schemes: %w", err)
	}

	result := &a2apb.AgentCard{
		Name:                              card.Name,
		Description:                       card.Description,
		Version:                           card.Version,
		DocumentationUrl:                  card.DocumentationURL,
		Capabilities:                      capabilities,
		DefaultInputModes:                 card.DefaultInputModes,
		DefaultOutputModes:                card.DefaultOutputModes,
		SupportsAuthenticatedExtendedCard: card.Capabilities.ExtendedCard,
		SecuritySchemes:                   schemes,
		Provider:                          toProtoAgentProvider(card.Provider),
		Security:                          toProtoSecurity(card.SecurityRequirements),
		Skills:                            toProtoSkills(card.Skills),
		IconUrl:                           card.IconURL,
	}

	// The proto card names one primary interface; the rest become additional
	// interfaces.
	agentInterfaceIdx := slices.IndexFunc(card.SupportedInterfaces, func(i *awp.AgentInterface) bool {
		return i.ProtocolVersion == awp.Version
	})
	if agentInterfaceIdx == -1 {
		return nil, fmt.Errorf("at least 1 interface supporting version %s must be listed", awp.Version)
	}
	result.ProtocolVersion = string(card.SupportedInterfaces[agentInterfaceIdx].ProtocolVersion)
	result.Url = card.SupportedInterfaces[agentInterfaceIdx].URL
	result.PreferredTransport = string(card.SupportedInterfaces[agentInterfaceIdx].ProtocolBinding)
	var additionalInterfaces []*awp.AgentInterface
	for i, iface := range card.SupportedInterfaces {
		if i == agentInterfaceIdx || iface.ProtocolVersion != awp.Version {
			continue
		}
		additionalInterfaces = append(additionalInterfaces, iface)
	}
	result.AdditionalInterfaces = toProtoAdditionalInterfaces(additionalInterfaces)

	return result, nil
}

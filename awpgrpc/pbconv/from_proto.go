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

package pbconv

import (
	"fmt"
	"time"

	"github.com/a2aproject/a2a-go/a2apb"
	"google.golang.org/protobuf/proto"
	structpb "google.golang.org/protobuf/types/known/structpb"

	"github.com/awprotocol/awp-go/awp"
)

func fromProtoMap(meta *structpb.Struct) map[string]any {
	if meta == nil {
		return nil
	}
	return meta.AsMap()
}

// FromProtoSendMessageRequest rebuilds a [awp.SendMessageRequest] from its
// wire form. A request carrying no message is rejected.
func FromProtoSendMessageRequest(req *a2apb.SendMessageRequest) (*awp.SendMessageRequest, error) {
	if req == nil {
		return nil, nil
	}

	if req.GetRequest() == nil {
		return nil, fmt.Errorf("send request carries no message")
	}
	msg, err := FromProtoMessage(req.GetRequest())
	if err != nil {
		return nil, err
	}

	config, err := fromProtoSendMessageConfig(req.GetConfiguration())
	if err != nil {
		return nil, err
	}

	return &awp.SendMessageRequest{
		Message:  msg,
		Config:   config,
		Metadata: fromProtoMap(req.GetMetadata()),
	}, nil
}

// FromProtoMessage rebuilds a [awp.Message] from its wire form.
func FromProtoMessage(pMsg *a2apb.Message) (*awp.Message, error) {
	if pMsg == nil {
		return nil, nil
	}

	parts, err := fromProtoParts(pMsg.GetParts())
	if err != nil {
		return nil, err
	}

	msg := &awp.Message{
		ID:         pMsg.GetMessageId(),
		ContextID:  pMsg.GetContextId(),
		Extensions: pMsg.GetExtensions(),
		Parts:      parts,
		TaskID:     awp.TaskID(pMsg.GetTaskId()),
		Role:       fromProtoRole(pMsg.GetRole()),
		Metadata:   fromProtoMap(pMsg.GetMetadata()),
	}

	taskIDs := pMsg.GetReferenceTaskIds()
	if taskIDs != nil {
		msg.ReferenceTasks = make([]awp.TaskID, len(taskIDs))
		for i, tid := range taskIDs {
			msg.ReferenceTasks[i] = awp.TaskID(tid)
		}
	}

	return msg, nil
}

func fromProtoFilePart(pPart *a2apb.FilePart, meta map[string]any) (awp.Part, error) {
	switch f := pPart.GetFile().(type) {
	case *a2apb.FilePart_FileWithBytes:
		return awp.Part{
			Content:   awp.Raw(f.FileWithBytes),
			MediaType: pPart.GetMimeType(),
			Filename:  pPart.GetName(),
			Metadata:  meta,
		}, nil
	case *a2apb.FilePart_FileWithUri:
		return awp.Part{
			Content:   awp.URL(f.FileWithUri),
			MediaType: pPart.GetMimeType(),
			Filename:  pPart.GetName(),
			Metadata:  meta,
		}, nil
	default:
		return awp.Part{}, fmt.Errorf("unsupported FilePart type: %T", f)
	}
}

func fromProtoPart(p *a2apb.Part) (awp.Part, error) {
	meta := fromProtoMap(p.Metadata)
	switch part := p.GetPart().(type) {
	case *a2apb.Part_Text:
		return awp.Part{Content: awp.Text(part.Text), Metadata: meta}, nil
	case *a2apb.Part_Data:
		var val any = part.Data.GetData().AsMap()
		if wrapped, ok := meta[wrappedDataKey].(bool); ok && wrapped {
			if m, ok := val.(map[string]any); ok {
				val = m["value"]
				delete(meta, wrappedDataKey)
			}
		}
		return awp.Part{Content: awp.Data{Value: val}, Metadata: meta}, nil
	case *a2apb.Part_File:
		return fromProtoFilePart(part.File, meta)
	default:
		return awp.Part{}, fmt.Errorf("unsupported part type: %T", part)
	}
}

func fromProtoPushConfig(pConf *a2apb.PushNotificationConfig) (*awp.PushConfig, error) {
	if pConf == nil {
		return nil, nil
	}

	result := &awp.PushConfig{
		ID:    pConf.GetId(),
		URL:   pConf.GetUrl(),
		Token: pConf.GetToken(),
	}
	if auth := pConf.GetAuthentication(); auth != nil && len(auth.GetSchemes()) > 0 {
		result.Auth = &awp.PushAuthInfo{
			Scheme:      auth.GetSchemes()[0],
			Credentials: auth.GetCredentials(),
		}
	}
	return result, nil
}

func fromProtoSendMessageConfig(conf *a2apb.SendMessageConfiguration) (*awp.SendMessageConfig, error) {
	if conf == nil {
		return nil, nil
	}

	pConf, err := fromProtoPushConfig(conf.GetPushNotification())
	if err != nil {
		return nil, fmt.Errorf("failed to convert push config: %w", err)
	}

	result := &awp.SendMessageConfig{
		AcceptedOutputModes: conf.GetAcceptedOutputModes(),
		Blocking:            proto.Bool(conf.GetBlocking()),
		PushConfig:          pConf,
	}

	if conf.HistoryLength > 0 {
		hl := int(conf.HistoryLength)
		result.HistoryLength = &hl
	}
	return result, nil
}

// FromProtoGetTaskRequest resolves the task resource name of the wire request
// into a [awp.GetTaskRequest].
func FromProtoGetTaskRequest(req *a2apb.GetTaskRequest) (*awp.GetTaskRequest, error) {
	if req == nil {
		return nil, nil
	}

	taskID, err := ExtractTaskID(req.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	request := &awp.GetTaskRequest{ID: taskID}
	if req.GetHistoryLength() > 0 {
		historyLength := int(req.GetHistoryLength())
		request.HistoryLength = &historyLength
	}
	return request, nil
}

// FromProtoListTasksRequest rebuilds the list filters from their wire form.
// Zero-valued wire fields stay unset on the result.
func FromProtoListTasksRequest(req *a2apb.ListTasksRequest) (*awp.ListTasksRequest, error) {
	if req == nil {
		return nil, nil
	}

	var lastUpdatedAfter *time.Time
	if req.GetLastUpdatedTime() != nil {
		t := req.GetLastUpdatedTime().AsTime()
		lastUpdatedAfter = &t
	}

	var status awp.TaskState
	if req.GetStatus() != 0 {
		status = fromProtoTaskState(req.GetStatus())
	}

	request := &awp.ListTasksRequest{
		ContextID:            req.GetContextId(),
		Status:               status,
		PageSize:             int(req.GetPageSize()),
		PageToken:            req.GetPageToken(),
		StatusTimestampAfter: lastUpdatedAfter,
		IncludeArtifacts:     req.GetIncludeArtifacts(),
	}

	if req.HistoryLength > 0 {
		hl := int(req.HistoryLength)
		request.HistoryLength = &hl
	}

	return request, nil
}

// FromProtoListTasksResponse rebuilds a task listing from its wire form. The
// page size is recomputed from the page itself, the wire response does not
// carry it.
func FromProtoListTasksResponse(resp *a2apb.ListTasksResponse) (*awp.ListTasksResponse, error) {
	if resp == nil {
		return nil, nil
	}

	tasks, err := convertSlice(resp.GetTasks(), "task", FromProtoTask)
	if err != nil {
		return nil, err
	}

	return &awp.ListTasksResponse{
		Tasks:         tasks,
		TotalSize:     int(resp.GetTotalSize()),
		PageSize:      len(tasks),
		NextPageToken: resp.GetNextPageToken(),
	}, nil
}

// FromProtoCreateTaskPushConfigRequest rebuilds a push config creation
// request from its wire form, resolving the parent task resource name.
func FromProtoCreateTaskPushConfigRequest(req *a2apb.CreateTaskPushNotificationConfigRequest) (*awp.CreateTaskPushConfigRequest, error) {
	if req == nil {
		return nil, nil
	}

	config := req.GetConfig()
	if config.GetPushNotificationConfig() == nil {
		return nil, fmt.Errorf("invalid config")
	}

	pConf, err := fromProtoPushConfig(config.GetPushNotificationConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to convert push config: %w", err)
	}

	taskID, err := ExtractTaskID(req.GetParent())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	return &awp.CreateTaskPushConfigRequest{TaskID: taskID, Config: *pConf}, nil
}

// FromProtoGetTaskPushConfigRequest splits the config resource name of the
// wire request into its task and config IDs.
func FromProtoGetTaskPushConfigRequest(req *a2apb.GetTaskPushNotificationConfigRequest) (*awp.GetTaskPushConfigRequest, error) {
	if req == nil {
		return nil, nil
	}

	taskID, err := ExtractTaskID(req.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	configID, err := ExtractConfigID(req.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract config id: %w", err)
	}

	return &awp.GetTaskPushConfigRequest{TaskID: taskID, ID: configID}, nil
}

// FromProtoDeleteTaskPushConfigRequest splits the config resource name of the
// wire request into its task and config IDs.
func FromProtoDeleteTaskPushConfigRequest(req *a2apb.DeleteTaskPushNotificationConfigRequest) (*awp.DeleteTaskPushConfigRequest, error) {
	if req == nil {
		return nil, nil
	}

	taskID, err := ExtractTaskID(req.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	configID, err := ExtractConfigID(req.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract config id: %w", err)
	}

	return &awp.DeleteTaskPushConfigRequest{TaskID: taskID, ID: configID}, nil
}

// FromProtoSendMessageResponse unwraps the wire response payload into the
// message or task it carries.
func FromProtoSendMessageResponse(resp *a2apb.SendMessageResponse) (awp.SendMessageResult, error) {
	if resp == nil {
		return nil, nil
	}

	switch p := resp.Payload.(type) {
	case *a2apb.SendMessageResponse_Msg:
		return FromProtoMessage(p.Msg)
	case *a2apb.SendMessageResponse_Task:
		return FromProtoTask(p.Task)
	default:
		return nil, fmt.Errorf("unsupported SendMessageResponse payload type: %T", resp.Payload)
	}
}

// FromProtoStreamResponse unwraps a stream envelope into the event it
// carries. The wire status update has no final marker, so it is restored from
// the terminality of the state.
func FromProtoStreamResponse(resp *a2apb.StreamResponse) (awp.Event, error) {
	if resp == nil {
		return nil, nil
	}

	switch p := resp.Payload.(type) {
	case *a2apb.StreamResponse_Msg:
		return FromProtoMessage(p.Msg)
	case *a2apb.StreamResponse_Task:
		return FromProtoTask(p.Task)
	case *a2apb.StreamResponse_StatusUpdate:
		status, err := fromProtoTaskStatus(p.StatusUpdate.GetStatus())
		if err != nil {
			return nil, err
		}
		return &awp.TaskStatusUpdateEvent{
			ContextID: p.StatusUpdate.GetContextId(),
			Status:    status,
			Final:     status.State.Terminal(),
			TaskID:    awp.TaskID(p.StatusUpdate.GetTaskId()),
			Metadata:  fromProtoMap(p.StatusUpdate.GetMetadata()),
		}, nil
	case *a2apb.StreamResponse_ArtifactUpdate:
		artifact, err := fromProtoArtifact(p.ArtifactUpdate.GetArtifact())
		if err != nil {
			return nil, err
		}
		return &awp.TaskArtifactUpdateEvent{
			Append:    p.ArtifactUpdate.GetAppend(),
			Artifact:  artifact,
			ContextID: p.ArtifactUpdate.GetContextId(),
			LastChunk: p.ArtifactUpdate.GetLastChunk(),
			TaskID:    awp.TaskID(p.ArtifactUpdate.GetTaskId()),
			Metadata:  fromProtoMap(p.ArtifactUpdate.GetMetadata()),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported StreamResponse payload type: %T", resp.Payload)
	}
}

func fromProtoMessages(pMsgs []*a2apb.Message) ([]*awp.Message, error) {
	return convertSlice(pMsgs, "message", FromProtoMessage)
}

func fromProtoParts(pParts []*a2apb.Part) (awp.ContentParts, error) {
	parts, err := convertSlice(pParts, "part", func(pPart *a2apb.Part) (*awp.Part, error) {
		part, err := fromProtoPart(pPart)
		if err != nil {
			return nil, err
		}
		return &part, nil
	})
	return awp.ContentParts(parts), err
}

func fromProtoTaskStatus(pStatus *a2apb.TaskStatus) (awp.TaskStatus, error) {
	if pStatus == nil {
		return awp.TaskStatus{}, fmt.Errorf("invalid status")
	}

	message, err := FromProtoMessage(pStatus.GetUpdate())
	if err != nil {
		return awp.TaskStatus{}, fmt.Errorf("failed to convert message for task status: %w", err)
	}

	status := awp.TaskStatus{
		State:   fromProtoTaskState(pStatus.GetState()),
		Message: message,
	}

	if pStatus.Timestamp != nil {
		t := pStatus.Timestamp.AsTime()
		status.Timestamp = &t
	}

	return status, nil
}

func fromProtoArtifact(pArtifact *a2apb.Artifact) (*awp.Artifact, error) {
	if pArtifact == nil {
		return nil, nil
	}

	parts, err := fromProtoParts(pArtifact.GetParts())
	if err != nil {
		return nil, fmt.Errorf("failed to convert from proto parts: %w", err)
	}

	return &awp.Artifact{
		ID:          awp.ArtifactID(pArtifact.GetArtifactId()),
		Name:        pArtifact.GetName(),
		Description: pArtifact.GetDescription(),
		Parts:       parts,
		Extensions:  pArtifact.GetExtensions(),
		Metadata:    fromProtoMap(pArtifact.GetMetadata()),
	}, nil
}

func fromProtoArtifacts(pArtifacts []*a2apb.Artifact) ([]*awp.Artifact, error) {
	return convertSlice(pArtifacts, "artifact", fromProtoArtifact)
}

// FromProtoTask rebuilds a [awp.Task] from its wire form.
func FromProtoTask(pTask *a2apb.Task) (*awp.Task, error) {
	if pTask == nil {
		return nil, nil
	}

	status, err := fromProtoTaskStatus(pTask.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to convert status: %w", err)
	}

	artifacts, err := fromProtoArtifacts(pTask.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("failed to convert artifacts: %w", err)
	}

	history, err := fromProtoMessages(pTask.History)
	if err != nil {
		return nil, fmt.Errorf("failed to convert history: %w", err)
	}

	result := &awp.Task{
		ID:        awp.TaskID(pTask.GetId()),
		ContextID: pTask.GetContextId(),
		Status:    status,
		Artifacts: artifacts,
		History:   history,
		Metadata:  fromProtoMap(pTask.GetMetadata()),
	}

	return result, nil
}

// FromProtoTaskPushConfig rebuilds a [awp.TaskPushConfig] from its wire form.
// The config ID embedded in the resource name must agree with the ID the
// inner config carries.
func FromProtoTaskPushConfig(pTaskConfig *a2apb.TaskPushNotificationConfig) (*awp.TaskPushConfig, error) {
	if pTaskConfig == nil {
		return nil, nil
	}

	taskID, err := ExtractTaskID(pTaskConfig.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	configID, err := ExtractConfigID(pTaskConfig.GetName())
	if err != nil {
		return nil, fmt.Errorf("failed to extract config id: %w", err)
	}

	pConf := pTaskConfig.GetPushNotificationConfig()
	if pConf == nil {
		return nil, fmt.Errorf("push notification config is nil")
	}

	if pConf.GetId() != configID {
		return nil, fmt.Errorf("config id mismatch: %q != %q", pConf.GetId(), configID)
	}

	config, err := fromProtoPushConfig(pConf)
	if err != nil {
		return nil, fmt.Errorf("failed to convert push config: %w", err)
	}

	return &awp.TaskPushConfig{TaskID: taskID, Config: *config}, nil
}

// FromProtoListTaskPushConfigRequest rebuilds a push config listing request
// from its wire form, resolving the parent task resource name.
func FromProtoListTaskPushConfigRequest(req *a2apb.ListTaskPushNotificationConfigRequest) (*awp.ListTaskPushConfigRequest, error) {
	if req == nil {
		return nil, fmt.Errorf("request is nil")
	}

	taskID, err := ExtractTaskID(req.GetParent())
	if err != nil {
		return nil, fmt.Errorf("failed to extract task id: %w", err)
	}

	return &awp.ListTaskPushConfigRequest{
		TaskID:    taskID,
		PageToken: req.GetPageToken(),
		PageSize:  int(req.GetPageSize()),
	}, nil
}

// FromProtoListTaskPushConfigResponse rebuilds a push config listing from its
// wire form.
func FromProtoListTaskPushConfigResponse(resp *a2apb.ListTaskPushNotificationConfigResponse) (*awp.ListTaskPushConfigResponse, error) {
	if resp == nil {
		return nil, fmt.Errorf("response is nil")
	}

	configs, err := convertSlice(resp.GetConfigs(), "config", FromProtoTaskPushConfig)
	if err != nil {
		return nil, err
	}
	return &awp.ListTaskPushConfigResponse{
		Configs:       configs,
		NextPageToken: resp.GetNextPageToken(),
	}, nil
}

func fromProtoSupportedInterfaces(pCard *a2apb.AgentCard) []*awp.AgentInterface {
	pInterfaces := pCard.GetAdditionalInterfaces()
	interfaces := make([]*awp.AgentInterface, len(pInterfaces)+1)
	interfaces[0] = &awp.AgentInterface{
		ProtocolBinding: awp.TransportProtocol(pCard.GetPreferredTransport()),
		URL:             pCard.GetUrl(),
		ProtocolVersion: awp.ProtocolVersion(pCard.GetProtocolVersion()),
	}
	for i, pIface := range pInterfaces {
		interfaces[i+1] = &awp.AgentInterface{
			ProtocolBinding: awp.TransportProtocol(pIface.GetTransport()),
			URL:             pIface.GetUrl(),
			ProtocolVersion: awp.Version,
		}
	}
	return interfaces
}

func fromProtoAgentProvider(pProvider *a2apb.AgentProvider) *awp.AgentProvider {
	if pProvider == nil {
		return nil
	}
	return &awp.AgentProvider{Org: pProvider.GetOrganization(), URL: pProvider.GetUrl()}
}

func fromProtoAgentExtensions(pExtensions []*a2apb.AgentExtension) []awp.AgentExtension {
	extensions := make([]awp.AgentExtension, len(pExtensions))
	for i, pExt := range pExtensions {
		extensions[i] = awp.AgentExtension{
			URI:         pExt.GetUri(),
			Description: pExt.GetDescription(),
			Required:    pExt.GetRequired(),
			Params:      pExt.GetParams().AsMap(),
		}
	}
	return extensions
}

func fromProtoCapabilities(pCard *a2apb.AgentCard) awp.AgentCapabilities {
	pCapabilities := pCard.GetCapabilities()
	return awp.AgentCapabilities{
		PushNotifications: pCapabilities.GetPushNotifications(),
		Streaming:         pCapabilities.GetStreaming(),
		Extensions:        fromProtoAgentExtensions(pCapabilities.GetExtensions()),
		ExtendedCard:      pCard.GetSupportsAuthenticatedExtendedCard(),
	}
}

func fromProtoSecurityScheme(pScheme *a2apb.SecurityScheme) (awp.SecurityScheme, error) {
	if pScheme == nil {
		return awp.SecurityScheme{}, fmt.Errorf("security scheme is nil")
	}

	switch s := pScheme.Scheme.(type) {
	case *a2apb.SecurityScheme_ApiKeySecurityScheme:
		return awp.SecurityScheme{
			Type:        "apiKey",
			Name:        s.ApiKeySecurityScheme.GetName(),
			Location:    s.ApiKeySecurityScheme.GetLocation(),
			Description: s.ApiKeySecurityScheme.GetDescription(),
		}, nil
	case *a2apb.SecurityScheme_HttpAuthSecurityScheme:
		return awp.SecurityScheme{
			Type:         "http",
			Scheme:       s.HttpAuthSecurityScheme.GetScheme(),
			Description:  s.HttpAuthSecurityScheme.GetDescription(),
			BearerFormat: s.HttpAuthSecurityScheme.GetBearerFormat(),
		}, nil
	case *a2apb.SecurityScheme_OpenIdConnectSecurityScheme:
		return awp.SecurityScheme{
			Type:             "openIdConnect",
			OpenIDConnectURL: s.OpenIdConnectSecurityScheme.GetOpenIdConnectUrl(),
			Description:      s.OpenIdConnectSecurityScheme.GetDescription(),
		}, nil
	case *a2apb.SecurityScheme_MtlsSecurityScheme:
		return awp.SecurityScheme{
			Type:        "mutualTLS",
			Description: s.MtlsSecurityScheme.GetDescription(),
		}, nil
	default:
		return awp.SecurityScheme{}, fmt.Errorf("unsupported security scheme type: %T", s)
	}
}

func fromProtoSecuritySchemes(pSchemes map[string]*a2apb.SecurityScheme) (map[string]awp.SecurityScheme, error) {
	if len(pSchemes) == 0 {
		return nil, nil
	}
	schemes := make(map[string]awp.SecurityScheme, len(pSchemes))
	for name, pScheme := range pSchemes {
		scheme, err := fromProtoSecurityScheme(pScheme)
		if err != nil {
			return nil, fmt.Errorf("failed to convert security scheme: %w", err)
		}
		schemes[name] = scheme
	}
	return schemes, nil
}

func fromProtoSecurity(pSecurity []*a2apb.Security) awp.SecurityRequirements {
	if len(pSecurity) == 0 {
		return nil
	}
	security := make(awp.SecurityRequirements, len(pSecurity))
	for i, pSec := range pSecurity {
		schemes := make(map[string][]string)
		for name, scopes := range pSec.Schemes {
			schemes[name] = scopes.GetList()
		}
		security[i] = schemes
	}
	return security
}

func fromProtoSkills(pSkills []*a2apb.AgentSkill) []awp.AgentSkill {
	skills := make([]awp.AgentSkill, len(pSkills))
	for i, pSkill := range pSkills {
		skills[i] = awp.AgentSkill{
			ID:                   pSkill.GetId(),
			Name:                 pSkill.GetName(),
			Description:          pSkill.GetDescription(),
			Tags:                 pSkill.GetTags(),
			Examples:             pSkill.GetExamples(),
			InputModes:           pSkill.GetInputModes(),
			OutputModes:          pSkill.GetOutputModes(),
			SecurityRequirements: fromProtoSecurity(pSkill.GetSecurity()),
		}
	}
	return skills
}

// FromProtoAgentCard rebuilds a [awp.AgentCard] from its wire form. The wire
// card's primary URL and transport become the first supported interface.
func FromProtoAgentCard(pCard *a2apb.AgentCard) (*awp.AgentCard, error) {
	if pCard == nil {
		return nil, nil
	}

	schemes, err := fromProtoSecuritySchemes(pCard.GetSecuritySchemes())
	if err != nil {
		return nil, fmt.Errorf("failed to convert security schemes: %w", err)
	}

	result := &awp.AgentCard{
		Name:                 pCard.GetName(),
		Description:          pCard.GetDescription(),
		Version:              pCard.GetVersion(),
		DocumentationURL:     pCard.GetDocumentationUrl(),
		Capabilities:         fromProtoCapabilities(pCard),
		DefaultInputModes:    pCard.GetDefaultInputModes(),
		DefaultOutputModes:   pCard.GetDefaultOutputModes(),
		SecuritySchemes:      schemes,
		Provider:             fromProtoAgentProvider(pCard.GetProvider()),
		SupportedInterfaces:  fromProtoSupportedInterfaces(pCard),
		SecurityRequirements: fromProtoSecurity(pCard.GetSecurity()),
		Skills:               fromProtoSkills(pCard.GetSkills()),
		IconURL:              pCard.GetIconUrl(),
	}

	return result, nil
}

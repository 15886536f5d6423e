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

// Package awp defines the data model of the Agent Wire Protocol: tasks,
// messages, artifacts, lifecycle events, discovery documents and the
// request/response shapes shared by every transport binding.
package awp

import (
	"encoding/base64"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion identifies a version of the wire protocol.
type ProtocolVersion string

// Version is the protocol version this runtime implements.
const Version ProtocolVersion = "1.0"

// TaskID is a unique identifier for a task, generated by the server when the
// task is created and immutable afterwards.
type TaskID string

// ArtifactID is a unique identifier for an artifact within the scope of its task.
type ArtifactID string

// Time-ordered UUIDs keep indexed ID columns append-friendly in persistent stores.
func newUUIDString() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewTaskID generates a new random task identifier.
func NewTaskID() TaskID {
	return TaskID(newUUIDString())
}

// NewContextID generates a new random context identifier.
func NewContextID() string {
	return newUUIDString()
}

// NewMessageID generates a new random message identifier.
func NewMessageID() string {
	return newUUIDString()
}

// NewArtifactID generates a new random artifact identifier.
func NewArtifactID() ArtifactID {
	return ArtifactID(newUUIDString())
}

// TaskRef identifies the task and conversation an event or message belongs to.
// Both fields may be empty, e.g. on the first message of a new conversation.
type TaskRef struct {
	TaskID    TaskID
	ContextID string
}

// Ref implements RefCarrier so a bare TaskRef can be passed to constructors.
func (r TaskRef) Ref() TaskRef { return r }

// RefCarrier is implemented by every type that can name the task it belongs to.
type RefCarrier interface {
	Ref() TaskRef
}

// Event is the sealed set of types that travel over a task's event stream.
type Event interface {
	RefCarrier

	isEvent()
}

func (*Message) isEvent()                 {}
func (*Task) isEvent()                    {}
func (*TaskStatusUpdateEvent) isEvent()   {}
func (*TaskArtifactUpdateEvent) isEvent() {}

// SendMessageResult is the sealed set of types a non-streaming send can return.
type SendMessageResult interface {
	Event

	isSendMessageResult()
}

func (*Task) isSendMessageResult()    {}
func (*Message) isSendMessageResult() {}

// TaskState enumerates the lifecycle states of a task.
type TaskState string

const (
	// TaskStateUnspecified represents a missing TaskState value.
	TaskStateUnspecified TaskState = ""
	// TaskStateSubmitted means the task was accepted and is awaiting execution.
	TaskStateSubmitted TaskState = "submitted"
	// TaskStateWorking means the agent is actively working on the task.
	TaskStateWorking TaskState = "working"
	// TaskStateInputRequired means the task is paused waiting for caller input.
	TaskStateInputRequired TaskState = "input-required"
	// TaskStateAuthRequired means the task is paused waiting for credentials.
	TaskStateAuthRequired TaskState = "auth-required"
	// TaskStateCompleted means the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed means the task failed during execution.
	TaskStateFailed TaskState = "failed"
	// TaskStateCanceled means the task was canceled before finishing.
	TaskStateCanceled TaskState = "canceled"
	// TaskStateRejected means the agent declined to start the task.
	TaskStateRejected TaskState = "rejected"
	// TaskStateUnknown means the task is in an indeterminate state.
	TaskStateUnknown TaskState = "unknown"
)

// Terminal reports whether the state ends the task's lifecycle. A task in a
// terminal state is immutable.
func (ts TaskState) Terminal() bool {
	return ts == TaskStateCompleted ||
		ts == TaskStateFailed ||
		ts == TaskStateCanceled ||
		ts == TaskStateRejected
}

// Suspended reports whether the task is paused waiting on the caller.
func (ts TaskState) Suspended() bool {
	return ts == TaskStateInputRequired || ts == TaskStateAuthRequired
}

// CanTransitionTo reports whether the lifecycle graph permits moving from ts
// to next. Every terminal state is reachable from every non-terminal state;
// nothing is reachable from a terminal state.
func (ts TaskState) CanTransitionTo(next TaskState) bool {
	if ts.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	switch ts {
	case TaskStateSubmitted:
		return next == TaskStateWorking || next == TaskStateAuthRequired
	case TaskStateWorking:
		return next == TaskStateWorking || next == TaskStateInputRequired || next == TaskStateAuthRequired
	case TaskStateInputRequired, TaskStateAuthRequired:
		return next == TaskStateWorking
	default:
		return false
	}
}

// MessageRole identifies the sender of a message.
type MessageRole string

const (
	// MessageRoleUnspecified is a missing message role.
	MessageRoleUnspecified MessageRole = ""
	// MessageRoleUser marks a message sent by the calling party.
	MessageRoleUser MessageRole = "user"
	// MessageRoleAgent marks a message produced by the agent.
	MessageRoleAgent MessageRole = "agent"
)

var _ Event = (*Message)(nil)

// Message is a single conversational turn between a caller and an agent.
// Messages are ephemeral: only what a task retains in its history or status
// survives the request.
type Message struct {
	// ID is a unique identifier generated by the sender, used for idempotent
	// delivery and correlation.
	ID string `json:"messageId"`

	// Role identifies the sender.
	Role MessageRole `json:"role"`

	// Parts is the typed content of the message.
	Parts ContentParts `json:"parts"`

	// TaskID optionally links the message to an existing task.
	TaskID TaskID `json:"taskId,omitempty"`

	// ContextID optionally links the message to an existing conversation.
	ContextID string `json:"contextId,omitempty"`

	// ReferenceTasks lists other tasks this message explicitly builds upon.
	// Every referenced task must exist.
	ReferenceTasks []TaskID `json:"referenceTaskIds,omitempty"`

	// Extensions are URIs of protocol extensions relevant to this message.
	Extensions []string `json:"extensions,omitempty"`

	// Metadata is optional extension metadata keyed by extension identifier.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewMessage creates a message with a random identifier.
func NewMessage(role MessageRole, parts ...*Part) *Message {
	return &Message{ID: NewMessageID(), Role: role, Parts: parts}
}

// NewMessageForTask creates a message with a random identifier linked to the
// task named by the provided carrier.
func NewMessageForTask(role MessageRole, carrier RefCarrier, parts ...*Part) *Message {
	ref := carrier.Ref()
	return &Message{
		ID:        NewMessageID(),
		Role:      role,
		TaskID:    ref.TaskID,
		ContextID: ref.ContextID,
		Parts:     parts,
	}
}

// Ref implements RefCarrier.
func (m *Message) Ref() TaskRef {
	return TaskRef{TaskID: m.TaskID, ContextID: m.ContextID}
}

// TaskStatus is a snapshot of a task's state at a point in time.
type TaskStatus struct {
	// State is the lifecycle state.
	State TaskState `json:"state"`

	// Message optionally carries a human or agent readable explanation of the
	// state, e.g. a failure diagnostic or an input prompt.
	Message *Message `json:"message,omitempty"`

	// Timestamp records when the status was produced.
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

var _ Event = (*Task)(nil)

// Task is the unit of agent work: a stateful operation progressing through
// the lifecycle graph while accumulating artifacts and conversation history.
type Task struct {
	// ID uniquely identifies the task. Immutable after creation.
	ID TaskID `json:"id"`

	// ContextID groups the multi-turn conversation this task belongs to.
	// Immutable after creation, required to be non-empty.
	ContextID string `json:"contextId"`

	// Status is the current lifecycle status.
	Status TaskStatus `json:"status"`

	// History is the ordered list of messages exchanged over the task's life.
	History []*Message `json:"history,omitempty"`

	// Transitions is the ordered record of prior status values, oldest first.
	// Populated only when the agent advertises state transition history.
	Transitions []TaskStatus `json:"statusHistory,omitempty"`

	// Artifacts is the append-only collection of outputs produced so far.
	Artifacts []*Artifact `json:"artifacts,omitempty"`

	// Metadata is optional extension metadata. The runtime records webhook
	// delivery failures here.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewSubmittedTask creates a task in the submitted state seeded with the
// initial message. Missing task and context identifiers are generated.
func NewSubmittedTask(carrier RefCarrier, initial *Message) *Task {
	ref := carrier.Ref()
	if ref.TaskID == "" {
		ref.TaskID = NewTaskID()
	}
	if ref.ContextID == "" {
		ref.ContextID = NewContextID()
	}
	now := time.Now()
	return &Task{
		ID:        ref.TaskID,
		ContextID: ref.ContextID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: &now},
		History:   []*Message{initial},
	}
}

// Ref implements RefCarrier.
func (t *Task) Ref() TaskRef {
	return TaskRef{TaskID: t.ID, ContextID: t.ContextID}
}

// SetMeta records a metadata value on the task, allocating the map if needed.
func (t *Task) SetMeta(k string, v any) {
	if t.Metadata == nil {
		t.Metadata = make(map[string]any)
	}
	t.Metadata[k] = v
}

// Artifact is a discrete output produced by a task: a document, a data
// structure or a reference to binary content, possibly delivered in chunks.
type Artifact struct {
	// ID uniquely identifies the artifact within its task.
	ID ArtifactID `json:"artifactId"`

	// Name is an optional caller-facing label. Not required to be unique.
	Name string `json:"name,omitempty"`

	// Description optionally explains what the artifact contains.
	Description string `json:"description,omitempty"`

	// Parts is the typed content of the artifact.
	Parts ContentParts `json:"parts"`

	// Extensions are URIs of protocol extensions relevant to this artifact.
	Extensions []string `json:"extensions,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`

	// LastChunk records that the final chunk was delivered. A closed artifact
	// accepts no further updates.
	LastChunk bool `json:"lastChunk,omitempty"`
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// TaskStatusUpdateEvent notifies subscribers of a change in a task's status.
type TaskStatusUpdateEvent struct {
	// TaskID is the task that was updated.
	TaskID TaskID `json:"taskId"`

	// ContextID is the conversation the task belongs to.
	ContextID string `json:"contextId"`

	// Status is the new status.
	Status TaskStatus `json:"status"`

	// Final marks the last event of the task's stream. Set exactly once, when
	// the status is terminal.
	Final bool `json:"final,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStatusUpdateEvent creates a status update for the task named by the
// carrier, stamped with the current time. Terminal states mark the event final.
func NewStatusUpdateEvent(carrier RefCarrier, state TaskState, msg *Message) *TaskStatusUpdateEvent {
	ref := carrier.Ref()
	now := time.Now()
	return &TaskStatusUpdateEvent{
		TaskID:    ref.TaskID,
		ContextID: ref.ContextID,
		Final:     state.Terminal(),
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: &now,
		},
	}
}

// Ref implements RefCarrier.
func (e *TaskStatusUpdateEvent) Ref() TaskRef {
	return TaskRef{TaskID: e.TaskID, ContextID: e.ContextID}
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// TaskArtifactUpdateEvent notifies subscribers that an artifact was produced
// or extended with another chunk.
type TaskArtifactUpdateEvent struct {
	// TaskID is the task the artifact belongs to.
	TaskID TaskID `json:"taskId"`

	// ContextID is the conversation the task belongs to.
	ContextID string `json:"contextId"`

	// Artifact is the new artifact or chunk.
	Artifact *Artifact `json:"artifact"`

	// Append indicates the parts extend a previously sent artifact with the
	// same ID instead of replacing it.
	Append bool `json:"append,omitempty"`

	// LastChunk closes the artifact's content stream.
	LastChunk bool `json:"lastChunk,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewArtifactEvent creates an artifact update carrying a fresh artifact with
// a random ID.
func NewArtifactEvent(carrier RefCarrier, parts ...*Part) *TaskArtifactUpdateEvent {
	ref := carrier.Ref()
	return &TaskArtifactUpdateEvent{
		TaskID:    ref.TaskID,
		ContextID: ref.ContextID,
		Artifact:  &Artifact{ID: NewArtifactID(), Parts: parts},
	}
}

// NewArtifactChunkEvent creates an artifact update appending parts to the
// artifact with the provided ID.
func NewArtifactChunkEvent(carrier RefCarrier, id ArtifactID, parts ...*Part) *TaskArtifactUpdateEvent {
	ref := carrier.Ref()
	return &TaskArtifactUpdateEvent{
		TaskID:    ref.TaskID,
		ContextID: ref.ContextID,
		Append:    true,
		Artifact:  &Artifact{ID: id, Parts: parts},
	}
}

// Ref implements RefCarrier.
func (e *TaskArtifactUpdateEvent) Ref() TaskRef {
	return TaskRef{TaskID: e.TaskID, ContextID: e.ContextID}
}

// StreamResponse wraps an Event for streaming transports, keyed by a single
// field that names the event type.
type StreamResponse struct {
	Event
}

// MarshalJSON implements json.Marshaler.
func (sr StreamResponse) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 1)
	switch v := sr.Event.(type) {
	case *Message:
		m["message"] = v
	case *Task:
		m["task"] = v
	case *TaskStatusUpdateEvent:
		m["statusUpdate"] = v
	case *TaskArtifactUpdateEvent:
		m["artifactUpdate"] = v
	default:
		return nil, fmt.Errorf("unknown event type: %T", v)
	}
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (sr *StreamResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to unmarshal stream response: %w", err)
	}
	switch {
	case raw["message"] != nil:
		var msg Message
		if err := json.Unmarshal(raw["message"], &msg); err != nil {
			return fmt.Errorf("failed to unmarshal Message event: %w", err)
		}
		sr.Event = &msg
	case raw["task"] != nil:
		var task Task
		if err := json.Unmarshal(raw["task"], &task); err != nil {
			return fmt.Errorf("failed to unmarshal Task event: %w", err)
		}
		sr.Event = &task
	case raw["statusUpdate"] != nil:
		var ev TaskStatusUpdateEvent
		if err := json.Unmarshal(raw["statusUpdate"], &ev); err != nil {
			return fmt.Errorf("failed to unmarshal TaskStatusUpdateEvent: %w", err)
		}
		sr.Event = &ev
	case raw["artifactUpdate"] != nil:
		var ev TaskArtifactUpdateEvent
		if err := json.Unmarshal(raw["artifactUpdate"], &ev); err != nil {
			return fmt.Errorf("failed to unmarshal TaskArtifactUpdateEvent: %w", err)
		}
		sr.Event = &ev
	default:
		return fmt.Errorf("unknown event type: %v", raw)
	}
	return nil
}

// ContentParts is the ordered typed content of a message or artifact.
type ContentParts []*Part

// PartKind tags the content type of a part on the wire. The tag is mandatory.
type PartKind string

const (
	// PartKindText tags plain text content.
	PartKindText PartKind = "text"
	// PartKindData tags structured data content.
	PartKindData PartKind = "data"
	// PartKindFile tags binary content, inline or by reference.
	PartKindFile PartKind = "file"
)

// PartContent is a sealed union of the supported part content types.
type PartContent interface {
	isPartContent()
}

func (Text) isPartContent() {}
func (Raw) isPartContent()  {}
func (Data) isPartContent() {}
func (URL) isPartContent()  {}

func init() {
	gob.Register(Text(""))
	gob.Register(Raw{})
	gob.Register(Data{})
	gob.Register(URL(""))
}

// Text is part content carrying plain text.
type Text string

// Raw is part content carrying inline binary data.
type Raw []byte

// URL is part content referencing binary data by location.
type URL string

// Data is part content carrying a structured value.
type Data struct {
	Value any
}

// Part is one element of a message or artifact body. The wire form carries an
// explicit content-kind tag plus the content under a kind-specific key.
type Part struct {
	// Content holds one of [Text], [Raw], [Data] or [URL].
	Content PartContent `json:"content"`

	// Filename optionally names file content, e.g. "report.pdf".
	Filename string `json:"filename,omitempty"`

	// MediaType is the media type of the content, e.g. "image/png".
	MediaType string `json:"mediaType,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTextPart creates a part carrying text.
func NewTextPart(text string) *Part {
	return &Part{Content: Text(text)}
}

// NewDataPart creates a part carrying structured data.
func NewDataPart(data any) *Part {
	return &Part{Content: Data{Value: data}}
}

// NewRawPart creates a part carrying inline bytes.
func NewRawPart(raw []byte, mediaType string) *Part {
	return &Part{Content: Raw(raw), MediaType: mediaType}
}

// NewFileURLPart creates a part referencing a file by URL.
func NewFileURLPart(url URL, mediaType string) *Part {
	return &Part{Content: url, MediaType: mediaType}
}

// Kind returns the content-kind tag of the part.
func (p *Part) Kind() PartKind {
	switch p.Content.(type) {
	case Text:
		return PartKindText
	case Data:
		return PartKindData
	default:
		return PartKindFile
	}
}

// Text returns the text content, or "" if the part is not a text part.
func (p *Part) Text() string {
	if v, ok := p.Content.(Text); ok {
		return string(v)
	}
	return ""
}

// Raw returns the inline bytes, or nil if the part is not a raw file part.
func (p *Part) Raw() []byte {
	if v, ok := p.Content.(Raw); ok {
		return []byte(v)
	}
	return nil
}

// Data returns the structured value, or nil if the part is not a data part.
func (p *Part) Data() any {
	if v, ok := p.Content.(Data); ok {
		return v.Value
	}
	return nil
}

// URL returns the file reference, or "" if the part is not a URL file part.
func (p *Part) URL() URL {
	if v, ok := p.Content.(URL); ok {
		return v
	}
	return ""
}

// MarshalJSON flattens Content next to the kind tag.
func (p Part) MarshalJSON() ([]byte, error) {
	m := make(map[string]any)

	switch v := p.Content.(type) {
	case Text:
		m["kind"] = PartKindText
		m["text"] = string(v)
	case Data:
		m["kind"] = PartKindData
		m["data"] = v.Value
	case Raw:
		m["kind"] = PartKindFile
		m["bytes"] = []byte(v)
	case URL:
		m["kind"] = PartKindFile
		m["uri"] = string(v)
	default:
		return nil, fmt.Errorf("part has no content")
	}

	if p.Filename != "" {
		m["filename"] = p.Filename
	}
	if p.MediaType != "" {
		m["mediaType"] = p.MediaType
	}
	if p.Metadata != nil {
		m["metadata"] = p.Metadata
	}
	return json.Marshal(m)
}

// UnmarshalJSON hydrates Content from the kind tag and its content key.
func (p *Part) UnmarshalJSON(b []byte) error {
	var raw struct {
		Kind      PartKind        `json:"kind"`
		Text      *string         `json:"text"`
		Data      json.RawMessage `json:"data"`
		Bytes     *string         `json:"bytes"`
		URI       *string         `json:"uri"`
		Filename  string          `json:"filename"`
		MediaType string          `json:"mediaType"`
		Metadata  map[string]any  `json:"metadata"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch raw.Kind {
	case PartKindText:
		if raw.Text == nil {
			return fmt.Errorf("text part is missing text content")
		}
		p.Content = Text(*raw.Text)
	case PartKindData:
		if raw.Data == nil {
			return fmt.Errorf("data part is missing data content")
		}
		var v any
		if err := json.Unmarshal(raw.Data, &v); err != nil {
			return err
		}
		p.Content = Data{Value: v}
	case PartKindFile:
		switch {
		case raw.Bytes != nil:
			b, err := base64.StdEncoding.DecodeString(*raw.Bytes)
			if err != nil {
				return fmt.Errorf("failed to decode file part bytes: %w", err)
			}
			p.Content = Raw(b)
		case raw.URI != nil:
			p.Content = URL(*raw.URI)
		default:
			return fmt.Errorf("file part requires bytes or uri content")
		}
	default:
		return fmt.Errorf("unknown part kind: %q", raw.Kind)
	}

	p.Filename = raw.Filename
	p.MediaType = raw.MediaType
	p.Metadata = raw.Metadata
	return nil
}

// SendMessageConfig carries caller options for message/send and message/stream.
type SendMessageConfig struct {
	// AcceptedOutputModes lists output MIME types the caller can accept.
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`

	// Blocking requests that the send wait for the task to settle. The wait is
	// bounded by the server; on timeout the in-flight task is returned.
	Blocking *bool `json:"blocking,omitempty"`

	// HistoryLength limits how many trailing history messages the returned
	// task carries.
	HistoryLength *int `json:"historyLength,omitempty"`

	// PushConfig registers a webhook for updates beyond the initial response.
	PushConfig *PushConfig `json:"pushNotificationConfig,omitempty"`
}

// SendMessageRequest starts a new task, continues an existing one or resumes
// a suspended one, depending on the message's task linkage.
type SendMessageRequest struct {
	// Message is the inbound message. Required.
	Message *Message `json:"message"`

	// Config optionally tunes the send behavior.
	Config *SendMessageConfig `json:"configuration,omitempty"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// GetTaskRequest fetches a task by ID.
type GetTaskRequest struct {
	// ID is the task to fetch.
	ID TaskID `json:"id"`

	// HistoryLength limits how many trailing history messages are returned.
	HistoryLength *int `json:"historyLength,omitempty"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// CancelTaskRequest asks for cooperative cancellation of a running task.
type CancelTaskRequest struct {
	// ID is the task to cancel.
	ID TaskID `json:"id"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`

	// Metadata is optional extension metadata.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SubscribeToTaskRequest re-attaches an event stream to an existing task.
type SubscribeToTaskRequest struct {
	// ID is the task to subscribe to.
	ID TaskID `json:"id"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// ListTasksRequest lists tasks with optional filters and cursor pagination.
type ListTasksRequest struct {
	// ContextID filters tasks to one conversation.
	ContextID string `json:"contextId,omitempty"`

	// Status filters tasks by current lifecycle state.
	Status TaskState `json:"status,omitempty"`

	// StatusTimestampAfter filters tasks whose status changed after this time.
	StatusTimestampAfter *time.Time `json:"statusTimestampAfter,omitempty"`

	// PageSize caps the number of tasks returned. Must be between 1 and 100;
	// defaults to 50.
	PageSize int `json:"pageSize,omitempty"`

	// PageToken resumes listing from a previous response's cursor.
	PageToken string `json:"pageToken,omitempty"`

	// HistoryLength limits how many trailing history messages each task carries.
	HistoryLength *int `json:"historyLength,omitempty"`

	// IncludeArtifacts includes artifact content in the response.
	IncludeArtifacts bool `json:"includeArtifacts,omitempty"`

	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

// ListTasksResponse is one page of task listing results.
type ListTasksResponse struct {
	// Tasks is the page of matching tasks.
	Tasks []*Task `json:"tasks"`

	// TotalSize is the number of matching tasks before pagination.
	TotalSize int `json:"totalSize"`

	// PageSize is the cap applied to this page.
	PageSize int `json:"pageSize"`

	// NextPageToken resumes listing; empty when no further results exist.
	NextPageToken string `json:"nextPageToken"`
}

// GetExtendedAgentCardRequest fetches the authenticated extended agent card.
type GetExtendedAgentCardRequest struct {
	// Tenant optionally identifies the agent owner.
	Tenant string `json:"tenant,omitempty"`
}

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

package awp_test

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/awprotocol/awp-go/awp"
)

func ExampleNewMessage() {
	msg := awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Hello, agent!"))

	fmt.Println("Role:", msg.Role)
	fmt.Println("Parts count:", len(msg.Parts))
	fmt.Println("Has ID:", msg.ID != "")
	// Output:
	// Role: user
	// Parts count: 1
	// Has ID: true
}

func ExampleNewMessageForTask() {
	ref := awp.TaskRef{
		TaskID:    "task-abc",
		ContextID: "ctx-123",
	}

	msg := awp.NewMessageForTask(awp.MessageRoleAgent, ref, awp.NewTextPart("Working on it..."))

	fmt.Println("Role:", msg.Role)
	fmt.Println("TaskID:", msg.TaskID)
	fmt.Println("ContextID:", msg.ContextID)
	// Output:
	// Role: agent
	// TaskID: task-abc
	// ContextID: ctx-123
}

func ExampleNewSubmittedTask() {
	initialMsg := awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Translate this document"))

	task := awp.NewSubmittedTask(initialMsg, initialMsg)

	fmt.Println("State:", task.Status.State)
	fmt.Println("Has TaskID:", task.ID != "")
	fmt.Println("Has ContextID:", task.ContextID != "")
	fmt.Println("History length:", len(task.History))
	// Output:
	// State: submitted
	// Has TaskID: true
	// Has ContextID: true
	// History length: 1
}

func ExampleTaskState_Terminal() {
	states := []awp.TaskState{
		awp.TaskStateSubmitted,
		awp.TaskStateWorking,
		awp.TaskStateCompleted,
		awp.TaskStateCanceled,
		awp.TaskStateFailed,
		awp.TaskStateInputRequired,
		awp.TaskStateRejected,
	}

	for _, s := range states {
		fmt.Printf("%-16s terminal=%v\n", s, s.Terminal())
	}
	// Output:
	// submitted        terminal=false
	// working          terminal=false
	// completed        terminal=true
	// canceled         terminal=true
	// failed           terminal=true
	// input-required   terminal=false
	// rejected         terminal=true
}

func ExampleStreamResponse_UnmarshalJSON() {
	jsonData := []byte(`{"statusUpdate":{"taskId":"task-1","contextId":"ctx-1","status":{"state":"working"}}}`)

	var sr awp.StreamResponse
	if err := json.Unmarshal(jsonData, &sr); err != nil {
		fmt.Println("Error:", err)
		return
	}

	switch ev := sr.Event.(type) {
	case *awp.TaskStatusUpdateEvent:
		fmt.Println("Event type: TaskStatusUpdateEvent")
		fmt.Println("Task ID:", ev.TaskID)
		fmt.Println("State:", ev.Status.State)
	default:
		fmt.Printf("Unexpected type: %T\n", ev)
	}
	// Output:
	// Event type: TaskStatusUpdateEvent
	// Task ID: task-1
	// State: working
}

func ExampleStreamResponse_UnmarshalJSON_message() {
	jsonData := []byte(`{"message":{"messageId":"msg-42","role":"user","parts":[{"kind":"text","text":"hello"}]}}`)

	var sr awp.StreamResponse
	if err := json.Unmarshal(jsonData, &sr); err != nil {
		fmt.Println("Error:", err)
		return
	}

	msg := sr.Event.(*awp.Message)
	fmt.Println("ID:", msg.ID)
	fmt.Println("Role:", msg.Role)
	fmt.Println("Text:", msg.Parts[0].Text())
	// Output:
	// ID: msg-42
	// Role: user
	// Text: hello
}

func ExampleNewError() {
	err := awp.NewError(awp.ErrTaskNotFound, "task xyz was not found")

	fmt.Println("Message:", err.Error())
	fmt.Println("Is ErrTaskNotFound:", errors.Is(err, awp.ErrTaskNotFound))
	// Output:
	// Message: task xyz was not found
	// Is ErrTaskNotFound: true
}

func ExampleError_WithDetails() {
	err := awp.NewError(awp.ErrInvalidParams, "missing required field").
		WithDetails(map[string]any{
			"field":  "taskId",
			"reason": "must not be empty",
		})

	fmt.Println("Message:", err.Error())
	fmt.Println("Field:", err.Details["field"])
	fmt.Println("Reason:", err.Details["reason"])
	// Output:
	// Message: missing required field
	// Field: taskId
	// Reason: must not be empty
}

func ExampleNewStatusUpdateEvent() {
	ref := awp.TaskRef{TaskID: "task-1", ContextID: "ctx-1"}

	event := awp.NewStatusUpdateEvent(ref, awp.TaskStateWorking, nil)

	fmt.Println("Task ID:", event.TaskID)
	fmt.Println("State:", event.Status.State)
	fmt.Println("Has timestamp:", event.Status.Timestamp != nil)
	// Output:
	// Task ID: task-1
	// State: working
	// Has timestamp: true
}

func ExampleNewArtifactEvent() {
	ref := awp.TaskRef{TaskID: "task-1", ContextID: "ctx-1"}

	event := awp.NewArtifactEvent(ref, awp.NewTextPart("Generated content"))

	fmt.Println("Task ID:", event.TaskID)
	fmt.Println("Has artifact ID:", event.Artifact.ID != "")
	fmt.Println("Text:", event.Artifact.Parts[0].Text())
	// Output:
	// Task ID: task-1
	// Has artifact ID: true
	// Text: Generated content
}

func ExampleStreamResponse_MarshalJSON_message() {
	msg := awp.NewMessage(awp.MessageRoleUser, awp.NewTextPart("Hello"))
	msg.ID = "msg-1"

	data, err := json.Marshal(awp.StreamResponse{Event: msg})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	var raw map[string]any
	if err = json.Unmarshal(data, &raw); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Has message key:", raw["message"] != nil)
	inner := raw["message"].(map[string]any)
	fmt.Println("role:", inner["role"])
	// Output:
	// Has message key: true
	// role: user
}

func ExampleStreamResponse_MarshalJSON_task() {
	task := &awp.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    awp.TaskStatus{State: awp.TaskStateCompleted},
	}

	data, err := json.Marshal(awp.StreamResponse{Event: task})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	var raw map[string]any
	if err = json.Unmarshal(data, &raw); err != nil {
		fmt.Println("Error:", err)
		return
	}
	fmt.Println("Has task key:", raw["task"] != nil)
	inner := raw["task"].(map[string]any)
	fmt.Println("id:", inner["id"])
	// Output:
	// Has task key: true
	// id: task-1
}

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

	"github.com/a2aproject/a2a-go/a2apb"

	"github.com/awprotocol/awp-go/awp"
)

// convertSlice maps every element of in through conv. The first failing
// element aborts the conversion, with kind naming the element in the error.
func convertSlice[In, Out any](in []In, kind string, conv func(In) (Out, error)) ([]Out, error) {
	out := make([]Out, len(in))
	for i, v := range in {
		converted, err := conv(v)
		if err != nil {
			return nil, fmt.Errorf("failed to convert %s: %w", kind, err)
		}
		out[i] = converted
	}
	return out, nil
}

// protoTaskStates is the canonical state mapping. The wire-to-runtime
// direction below is derived from it, so the two can never drift apart.
var protoTaskStates = map[awp.TaskState]a2apb.TaskState{
	awp.TaskStateAuthRequired:  a2apb.TaskState_TASK_STATE_AUTH_REQUIRED,
	awp.TaskStateCanceled:      a2apb.TaskState_TASK_STATE_CANCELLED,
	awp.TaskStateCompleted:     a2apb.TaskState_TASK_STATE_COMPLETED,
	awp.TaskStateFailed:        a2apb.TaskState_TASK_STATE_FAILED,
	awp.TaskStateInputRequired: a2apb.TaskState_TASK_STATE_INPUT_REQUIRED,
	awp.TaskStateRejected:      a2apb.TaskState_TASK_STATE_REJECTED,
	awp.TaskStateSubmitted:     a2apb.TaskState_TASK_STATE_SUBMITTED,
	awp.TaskStateWorking:       a2apb.TaskState_TASK_STATE_WORKING,
}

var runtimeTaskStates = func() map[a2apb.TaskState]awp.TaskState {
	states := make(map[a2apb.TaskState]awp.TaskState, len(protoTaskStates))
	for state, pState := range protoTaskStates {
		states[pState] = state
	}
	return states
}()

// Unknown values map to the unspecified state in both directions.
func toProtoTaskState(state awp.TaskState) a2apb.TaskState {
	return protoTaskStates[state]
}

func fromProtoTaskState(pState a2apb.TaskState) awp.TaskState {
	return runtimeTaskStates[pState]
}

var protoRoles = map[awp.MessageRole]a2apb.Role{
	awp.MessageRoleUser:  a2apb.Role_ROLE_USER,
	awp.MessageRoleAgent: a2apb.Role_ROLE_AGENT,
}

var runtimeRoles = map[a2apb.Role]awp.MessageRole{
	a2apb.Role_ROLE_USER:  awp.MessageRoleUser,
	a2apb.Role_ROLE_AGENT: awp.MessageRoleAgent,
}

func toProtoRole(role awp.MessageRole) a2apb.Role {
	return protoRoles[role]
}

func fromProtoRole(pRole a2apb.Role) awp.MessageRole {
	return runtimeRoles[pRole]
}

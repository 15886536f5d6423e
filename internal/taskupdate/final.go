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

package taskupdate

import (
	"github.com/awprotocol/awp-go/awp"
)

// IsFinal reports whether the event must terminate a valid execution event
// sequence: a terminal status, a suspension waiting on the caller, or a plain
// message response.
func IsFinal(event awp.Event) bool {
	if _, ok := event.(*awp.Message); ok {
		return true
	}

	var state awp.TaskState
	switch v := event.(type) {
	case *awp.TaskStatusUpdateEvent:
		state = v.Status.State
	case *awp.Task:
		state = v.Status.State
	default:
		return false
	}

	return state.Terminal() || state.Suspended()
}

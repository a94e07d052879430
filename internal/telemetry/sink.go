/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import "faceplate/internal/events"

// Sink forwards committed canvas edits as anonymous "canvas_edit" events.
// Only the event kind and item count are sent, never ids or names.
type Sink struct{ C *Client }

func (s Sink) Emit(e events.Event) {
	if !s.C.Enabled() {
		return
	}
	var n int
	switch ev := e.(type) {
	case events.NodesMoveEnd:
		n = len(ev.Positions)
	case events.NodesAdded:
		n = len(ev.IDs)
	case events.NodesRemoved:
		n = len(ev.IDs)
	case events.NodeReparented:
		n = 1
	default:
		return
	}
	s.C.Event("canvas_edit", map[string]any{"kind": string(e.Kind()), "count": n})
}

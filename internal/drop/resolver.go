/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package drop finds the container a dragged node would land in.
package drop

import (
	"faceplate/internal/layout"
	"faceplate/internal/vector"
)

// Ancestry answers descendant queries on the node collection.
type Ancestry interface {
	IsDescendant(nodeID, ancestorID string) bool
}

// Resolve returns the innermost visible container whose absolute rect
// contains p. Dragged nodes and their descendants never qualify. Among
// containers at the same depth the higher zIndex wins, then the later one
// in paint order.
func Resolve(res layout.Result, tree Ancestry, dragged []string, p vector.Pt) (string, bool) {
	var best layout.Box
	found := false
	for _, id := range res.PaintOrder() {
		b, _ := res.Box(id)
		if !b.Container || !b.Visible || !b.Rect.Contains(p) {
			continue
		}
		if excluded(tree, dragged, id) {
			continue
		}
		if !found || b.Depth > best.Depth || (b.Depth == best.Depth && b.ZIndex >= best.ZIndex) {
			best, found = b, true
		}
	}
	return best.ID, found
}

func excluded(tree Ancestry, dragged []string, id string) bool {
	for _, d := range dragged {
		if d == id || tree.IsDescendant(id, d) {
			return true
		}
	}
	return false
}

// Tracker remembers the highlighted drop target of one drag and reports
// only changes.
type Tracker struct {
	current string
}

// Update sets the target ("" for none) and reports whether it changed.
func (t *Tracker) Update(id string) bool {
	if id == t.current {
		return false
	}
	t.current = id
	return true
}

func (t *Tracker) Current() string { return t.current }

// Reset clears the target and reports whether one was set.
func (t *Tracker) Reset() bool { return t.Update("") }

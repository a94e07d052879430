/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layers

import (
	"log/slog"

	"faceplate/internal/domain"
)

// Position of a drop relative to the target row.
type Position int

const (
	Before Position = iota
	After
	Inside
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	case Inside:
		return "inside"
	}
	return "unknown"
}

// Store is the node collection the controller reorders.
type Store interface {
	Get(id string) (domain.CanvasNode, bool)
	Siblings(parent string) []string
	IsDescendant(nodeID, ancestorID string) bool
	Reparent(id, parent string, index int) error
}

// Move is a planned reparent.
type Move struct {
	ID       string
	ParentID string
	Index    int
}

// Controller holds the expansion state of the layer panel. Expansion is
// UI state only and never persisted.
type Controller struct {
	expanded map[string]bool
	log      *slog.Logger
}

func NewController(log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{expanded: map[string]bool{}, log: log}
}

func (c *Controller) IsExpanded(id string) bool { return c.expanded[id] }
func (c *Controller) Expand(id string)          { c.expanded[id] = true }
func (c *Controller) Collapse(id string)        { delete(c.expanded, id) }

// ToggleExpanded flips the state and returns the new one.
func (c *Controller) ToggleExpanded(id string) bool {
	if c.expanded[id] {
		delete(c.expanded, id)
		return false
	}
	c.expanded[id] = true
	return true
}

// Forget drops expansion state of removed nodes.
func (c *Controller) Forget(ids ...string) {
	for _, id := range ids {
		delete(c.expanded, id)
	}
}

// Rows flattens the tree of nodes with the current expansion state.
func (c *Controller) Rows(nodes []domain.CanvasNode) []Row {
	return Flatten(BuildTree(nodes), c.IsExpanded)
}

// ClassifyDrop maps the vertical pointer offset inside a row to a drop
// position. Top third is before, bottom third after, the middle third is
// inside for expanded containers. Other rows split at half.
func ClassifyDrop(target domain.CanvasNode, expanded bool, offsetY, rowHeight float64) Position {
	if rowHeight <= 0 {
		return After
	}
	if target.IsContainer() && expanded {
		switch {
		case offsetY < rowHeight/3:
			return Before
		case offsetY > rowHeight*2/3:
			return After
		default:
			return Inside
		}
	}
	if offsetY < rowHeight/2 {
		return Before
	}
	return After
}

// Classify is ClassifyDrop with the controller's expansion state.
func (c *Controller) Classify(target domain.CanvasNode, offsetY, rowHeight float64) Position {
	return ClassifyDrop(target, c.IsExpanded(target.ID), offsetY, rowHeight)
}

// PlanReorder computes where dragID ends up when dropped at pos relative
// to targetID. ok is false for drops that would break the tree: onto
// itself, into itself or one of its descendants, or inside a non-container.
func PlanReorder(s Store, dragID, targetID string, pos Position) (Move, bool) {
	if dragID == "" || dragID == targetID {
		return Move{}, false
	}
	target, ok := s.Get(targetID)
	if !ok {
		return Move{}, false
	}
	if _, ok := s.Get(dragID); !ok {
		return Move{}, false
	}
	if pos == Inside {
		if !target.IsContainer() || s.IsDescendant(targetID, dragID) {
			return Move{}, false
		}
		return Move{ID: dragID, ParentID: targetID, Index: 0}, true
	}
	parent := target.ParentID
	if parent == dragID || s.IsDescendant(parent, dragID) {
		return Move{}, false
	}
	var siblings []string
	for _, id := range s.Siblings(parent) {
		if id != dragID {
			siblings = append(siblings, id)
		}
	}
	idx := 0
	for i, id := range siblings {
		if id == targetID {
			idx = i
			break
		}
	}
	if pos == After {
		idx++
	}
	return Move{ID: dragID, ParentID: parent, Index: idx}, true
}

// Reorder plans and applies a drop. Rejected drops change nothing and
// return false; they are not errors.
func (c *Controller) Reorder(s Store, dragID, targetID string, pos Position) (Move, bool) {
	m, ok := PlanReorder(s, dragID, targetID, pos)
	if !ok {
		c.log.Debug("reorder rejected", "drag", dragID, "target", targetID, "pos", pos.String())
		return Move{}, false
	}
	if err := s.Reparent(m.ID, m.ParentID, m.Index); err != nil {
		c.log.Debug("reorder refused by store", "drag", dragID, "target", targetID, "err", err)
		return Move{}, false
	}
	return m, true
}

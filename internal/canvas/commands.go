/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"fmt"

	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/layers"
	"faceplate/internal/scene"
)

// Place inserts a node from the component palette.
func (c *Canvas) Place(n domain.CanvasNode) (domain.CanvasNode, error) {
	placed, err := c.nodes.Place(n)
	if err != nil {
		return domain.CanvasNode{}, err
	}
	c.relayout()
	c.out.Emit(events.NodesAdded{IDs: []string{placed.ID}})
	if placed.ParentID != "" {
		c.out.Emit(events.LayoutChanged{ContainerIDs: []string{placed.ParentID}})
	}
	return placed, nil
}

// Remove deletes nodes with their subtrees. An active drag is cancelled
// first. It returns all removed ids.
func (c *Canvas) Remove(ids ...string) []string {
	c.drag.Cancel()
	var removed []string
	for _, id := range ids {
		removed = append(removed, c.nodes.Remove(id)...)
	}
	if len(removed) == 0 {
		return nil
	}
	c.layers.Forget(removed...)
	c.relayout()
	c.out.Emit(events.NodesRemoved{IDs: removed})
	c.pruneSelection()
	return removed
}

// ToggleVisibility flips the hidden flag of id. Nodes that become
// invisible leave the selection.
func (c *Canvas) ToggleVisibility(id string) error {
	hidden, err := c.nodes.ToggleHidden(id)
	if err != nil {
		return err
	}
	c.relayout()
	c.out.Emit(events.VisibilityChanged{ID: id, Hidden: hidden})
	if n, _ := c.nodes.Get(id); n.ParentID != "" {
		c.out.Emit(events.LayoutChanged{ContainerIDs: []string{n.ParentID}})
	}
	c.pruneSelection()
	return nil
}

// SetLocked locks or unlocks a node against dragging. Locked nodes leave
// an active drag untouched; the next press picks up the new state.
func (c *Canvas) SetLocked(id string, locked bool) error {
	n, ok := c.nodes.Get(id)
	if !ok {
		return fmt.Errorf("lock %s: %w", id, scene.ErrUnknownNode)
	}
	if n.Locked == locked {
		return nil
	}
	if err := c.nodes.SetLocked(id, locked); err != nil {
		return err
	}
	c.out.Emit(events.LockChanged{ID: id, Locked: locked})
	return nil
}

// ToggleLocked flips the lock flag and returns the new state.
func (c *Canvas) ToggleLocked(id string) (bool, error) {
	n, ok := c.nodes.Get(id)
	if !ok {
		return false, fmt.Errorf("lock %s: %w", id, scene.ErrUnknownNode)
	}
	return !n.Locked, c.SetLocked(id, !n.Locked)
}

// ToggleExpanded flips a layer row's expansion.
func (c *Canvas) ToggleExpanded(id string) bool { return c.layers.ToggleExpanded(id) }

// Rows returns the visible rows of the layer panel.
func (c *Canvas) Rows() []layers.Row { return c.layers.Rows(c.nodes.Nodes()) }

// Reorder moves dragID relative to targetID in the layer tree. Drops that
// would create a cycle are ignored and return false.
func (c *Canvas) Reorder(dragID, targetID string, pos layers.Position) bool {
	before, _ := c.nodes.Get(dragID)
	m, ok := c.layers.Reorder(c.nodes, dragID, targetID, pos)
	if !ok {
		return false
	}
	c.afterReparent(m.ID, before.ParentID, m.ParentID, m.Index, false)
	return true
}

// DropOnRow classifies a drop by the pointer offset inside the target row
// and reorders.
func (c *Canvas) DropOnRow(dragID, targetID string, offsetY, rowHeight float64) bool {
	target, ok := c.nodes.Get(targetID)
	if !ok {
		return false
	}
	return c.Reorder(dragID, targetID, c.layers.Classify(target, offsetY, rowHeight))
}

func (c *Canvas) BringToFront(id string) error {
	return c.restack(id, c.nodes.BringToFront)
}

func (c *Canvas) SendToBack(id string) error {
	return c.restack(id, c.nodes.SendToBack)
}

func (c *Canvas) restack(id string, op func(string) error) error {
	if err := op(id); err != nil {
		return fmt.Errorf("restack %s: %w", id, err)
	}
	n, _ := c.nodes.Get(id)
	c.afterReparent(id, n.ParentID, n.ParentID, n.ZIndex, false)
	return nil
}

// ResizeNode applies a size change. Containers lay out their children
// again, and so does the parent container.
func (c *Canvas) ResizeNode(id string, size domain.Vec2) error {
	if err := c.nodes.Resize(id, size); err != nil {
		return err
	}
	c.relayout()
	n, _ := c.nodes.Get(id)
	c.out.Emit(events.NodeResized{ID: id, Size: n.Size})
	var affected []string
	if n.IsContainer() {
		affected = append(affected, id)
	}
	if n.ParentID != "" {
		affected = append(affected, n.ParentID)
	}
	if len(affected) > 0 {
		c.out.Emit(events.LayoutChanged{ContainerIDs: affected})
	}
	return nil
}

// Restore replaces the collection content with an undo snapshot.
func (c *Canvas) Restore(snapshot []byte) error {
	c.drag.Cancel()
	if err := c.nodes.Restore(snapshot); err != nil {
		return err
	}
	c.relayout()
	c.out.Emit(events.LayoutChanged{})
	c.pruneSelection()
	return nil
}

func (c *Canvas) afterReparent(id, oldParent, newParent string, index int, drop bool) {
	c.relayout()
	c.out.Emit(events.NodeReparented{ID: id, ParentID: newParent, Index: index, Drop: drop})
	var affected []string
	if oldParent != "" {
		affected = append(affected, oldParent)
	}
	if newParent != "" && newParent != oldParent {
		affected = append(affected, newParent)
	}
	if len(affected) > 0 {
		c.out.Emit(events.LayoutChanged{ContainerIDs: affected})
	}
	c.pruneSelection()
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"faceplate/internal/domain"
	"faceplate/internal/drop"
	"faceplate/internal/events"
	"faceplate/internal/vector"
)

// dropObserver tracks the container under the pointer during a node drag
// and commits the reparent on release.
type dropObserver struct{ c *Canvas }

func (o dropObserver) DragMoved(ids []string, p vector.Pt) {
	c := o.c
	target, _ := drop.Resolve(c.resolved, c.nodes, ids, p)
	if c.tracker.Update(target) {
		c.out.Emit(events.DropTargetChanged{TargetID: target})
	}
}

func (o dropObserver) DragEnded(ids []string, p vector.Pt) {
	c := o.c
	target, _ := drop.Resolve(c.resolved, c.nodes, ids, p)
	if c.tracker.Reset() {
		c.out.Emit(events.DropTargetChanged{})
	}
	c.commitDrop(ids, target)
	c.releaseMoveEnd()
}

func (o dropObserver) DragCancelled([]string) {
	o.c.moveEnd = nil
	if o.c.tracker.Reset() {
		o.c.out.Emit(events.DropTargetChanged{})
	}
}

// commitDrop moves every dragged node whose parent differs from target
// into target (root level for ""). Nodes keep their absolute position on
// the canvas; inside a container the edit layout takes over anyway. The
// reparent events are marked as part of the drag, whose move-end follows.
func (c *Canvas) commitDrop(ids []string, target string) {
	var targetOrigin vector.Pt
	if target != "" {
		b, ok := c.resolved.Box(target)
		if !ok {
			return
		}
		targetOrigin = b.Rect.Min()
	}
	type moved struct{ id, from string }
	var done []moved
	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]
		n, ok := c.nodes.Get(id)
		if !ok || n.ParentID == target {
			continue
		}
		abs := n.Position.Pt()
		if n.ParentID != "" {
			if pb, ok := c.resolved.Box(n.ParentID); ok {
				abs = pb.Rect.Min().Add(abs)
			}
		}
		if err := c.nodes.Reparent(id, target, 0); err != nil {
			c.log.Debug("drop refused", "node", id, "target", target, "err", err)
			continue
		}
		local := vector.SnapToGrid(abs.Sub(targetOrigin), c.nodes.Grid())
		c.nodes.ApplyPositions([]domain.NodePosition{{ID: id, Position: domain.FromPt(local)}})
		done = append(done, moved{id: id, from: n.ParentID})
	}
	for i := len(done) - 1; i >= 0; i-- {
		n, _ := c.nodes.Get(done[i].id)
		c.afterReparent(done[i].id, done[i].from, target, n.ZIndex, true)
	}
}

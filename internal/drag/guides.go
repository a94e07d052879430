/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/vector"
)

// emitGuides reports alignment of the primary node with its siblings and
// parent. pos is the primary's new local position. Guides never change
// the snapped positions.
func (c *Controller) emitGuides(pos domain.Vec2) {
	if c.d.Geometry == nil {
		return
	}
	res := c.d.Geometry.Resolved()
	primary := c.parts[0].id
	pb, ok := res.Box(primary)
	if !ok {
		return
	}
	n, _ := c.d.Nodes.Get(primary)
	// absolute origin of the primary's coordinate space
	origin := pb.Rect.Min().Sub(pb.Local)
	moving := vector.R(origin.X+pos.X, origin.Y+pos.Y, pb.Rect.W, pb.Rect.H)

	dragged := make(map[string]bool, len(c.parts))
	for _, p := range c.parts {
		dragged[p.id] = true
	}
	var anchors []vector.Anchor
	for _, b := range res.Visible() {
		if dragged[b.ID] {
			continue
		}
		other, ok := c.d.Nodes.Get(b.ID)
		if !ok {
			continue
		}
		switch {
		case other.ParentID == n.ParentID:
			anchors = append(anchors, vector.Anchor{Rect: b.Rect, Weight: 1})
		case other.ID == n.ParentID:
			anchors = append(anchors, vector.Anchor{Rect: b.Rect, Weight: 2})
		}
	}
	_, gs := vector.ComputeSmartGuides(moving, anchors, vector.SnapOptions{
		Threshold:     c.opts.GuideThreshold,
		SnapToEdges:   true,
		SnapToCenters: true,
	})
	if len(gs) == 0 && !c.guides {
		return
	}
	c.guides = len(gs) > 0
	c.d.Emitter.Emit(events.GuidesChanged{Guides: gs})
}

func (c *Controller) clearGuides() {
	if !c.guides {
		return
	}
	c.guides = false
	c.d.Emitter.Emit(events.GuidesChanged{})
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layout positions the children of container nodes. In edit mode
// children flow inside the container's padding box; in live mode stored
// positions are used as they are.
package layout

import (
	"math"

	"faceplate/internal/domain"
)

// Mode selects how container children are positioned.
type Mode int

const (
	Edit Mode = iota
	Live
)

// Compute lays out children inside container and returns copies of them
// with the computed position. Size and every other field are unchanged.
// Hidden children keep their stored position and take no space.
//
// Horizontal flow places children left to right and starts a new row when
// wrapping is enabled and the next child would cross the right padding
// edge. The first child of a row never wraps, so oversized children
// overflow instead of looping. Vertical flow is the same on the other axis.
func Compute(container domain.CanvasNode, children []domain.CanvasNode) []domain.CanvasNode {
	l := container.Config.LayoutOrDefault()
	out := make([]domain.CanvasNode, len(children))

	// main axis is x for horizontal flow, y for vertical.
	mainSize := container.Size.X
	if !l.Horizontal() {
		mainSize = container.Size.Y
	}
	available := mainSize - 2*l.Padding

	main, cross, lineMax := l.Padding, l.Padding, 0.0
	for i, ch := range children {
		out[i] = ch.Clone()
		if ch.Hidden {
			continue
		}
		w, h := ch.Size.X, ch.Size.Y
		if !l.Horizontal() {
			w, h = h, w
		}
		if l.Wrap && main+w > l.Padding+available && main != l.Padding {
			main = l.Padding
			cross += lineMax + l.Gap
			lineMax = 0
		}
		if l.Horizontal() {
			out[i].Position = domain.V(main, cross)
		} else {
			out[i].Position = domain.V(cross, main)
		}
		main += w + l.Gap
		lineMax = math.Max(lineMax, h)
	}
	return out
}

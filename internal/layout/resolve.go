/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"sort"

	"faceplate/internal/domain"
	"faceplate/internal/vector"
)

// Box is the resolved geometry of one node. Local is relative to the
// parent (or the canvas for roots), Rect is absolute. Visible is false when
// the node or one of its ancestors is hidden.
type Box struct {
	ID        string
	Local     vector.Pt
	Rect      vector.Rect
	Visible   bool
	Depth     int
	ZIndex    int
	Container bool
}

// Result is the resolved layout of a whole collection.
type Result struct {
	boxes map[string]Box
	paint []string
}

// Box returns the resolved box of id.
func (r Result) Box(id string) (Box, bool) {
	b, ok := r.boxes[id]
	return b, ok
}

// PaintOrder lists ids back to front: roots by zIndex, each container
// before its children.
func (r Result) PaintOrder() []string { return append([]string(nil), r.paint...) }

// Visible returns the visible boxes in paint order.
func (r Result) Visible() []Box {
	out := make([]Box, 0, len(r.paint))
	for _, id := range r.paint {
		if b := r.boxes[id]; b.Visible {
			out = append(out, b)
		}
	}
	return out
}

// HitTest returns the top-most visible node containing p.
func (r Result) HitTest(p vector.Pt) (string, bool) {
	for i := len(r.paint) - 1; i >= 0; i-- {
		b := r.boxes[r.paint[i]]
		if b.Visible && b.Rect.Contains(p) {
			return b.ID, true
		}
	}
	return "", false
}

// Bounds is the union of all visible boxes.
func (r Result) Bounds() (vector.Rect, bool) {
	var rs []vector.Rect
	for _, b := range r.Visible() {
		rs = append(rs, b.Rect)
	}
	return vector.UnionAll(rs)
}

// Resolve computes local and absolute geometry for every node reachable
// from the roots. Container children are laid out per container with
// Compute in edit mode. Nodes whose parent is missing are treated as roots;
// nodes only reachable through a parent cycle are left out.
func Resolve(nodes []domain.CanvasNode, mode Mode) Result {
	byID := make(map[string]domain.CanvasNode, len(nodes))
	var roots []domain.CanvasNode
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, n := range nodes {
		if _, ok := byID[n.ParentID]; n.ParentID == "" || !ok {
			roots = append(roots, n)
		}
	}
	sortByZ(roots)

	res := Result{boxes: make(map[string]Box, len(nodes))}
	var walk func(n domain.CanvasNode, local vector.Pt, origin vector.Pt, depth int, hiddenAbove bool)
	walk = func(n domain.CanvasNode, local vector.Pt, origin vector.Pt, depth int, hiddenAbove bool) {
		if _, seen := res.boxes[n.ID]; seen {
			return
		}
		abs := origin.Add(local)
		res.boxes[n.ID] = Box{
			ID:        n.ID,
			Local:     local,
			Rect:      vector.R(abs.X, abs.Y, n.Size.X, n.Size.Y),
			Visible:   !n.Hidden && !hiddenAbove,
			Depth:     depth,
			ZIndex:    n.ZIndex,
			Container: n.IsContainer(),
		}
		res.paint = append(res.paint, n.ID)

		var kids []domain.CanvasNode
		for _, cid := range n.Children {
			if c, ok := byID[cid]; ok && c.ParentID == n.ID {
				kids = append(kids, c)
			}
		}
		if len(kids) == 0 {
			return
		}
		sortByZ(kids)
		if mode == Edit {
			kids = Compute(n, kids)
		}
		for _, c := range kids {
			walk(c, c.Position.Pt(), abs, depth+1, hiddenAbove || n.Hidden)
		}
	}
	for _, r := range roots {
		walk(r, r.Position.Pt(), vector.Pt{}, 0, false)
	}
	return res
}

func sortByZ(ns []domain.CanvasNode) {
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].ZIndex < ns[j].ZIndex })
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene holds the node collection of an open faceplate. Nodes refer
// to each other by id only; the collection keeps parentId and children in
// agreement after every mutation.
package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"faceplate/internal/domain"
	"faceplate/internal/vector"
)

var (
	ErrUnknownNode  = errors.New("unknown node")
	ErrDuplicateID  = errors.New("duplicate node id")
	ErrCycle        = errors.New("reparent would create a cycle")
	ErrNotContainer = errors.New("target is not a container")
	ErrInvariant    = errors.New("collection invariant violated")
)

// Collection is the arena of canvas nodes keyed by id.
type Collection struct {
	grid  float64
	order []string
	nodes map[string]*domain.CanvasNode
}

// New builds a collection from persisted nodes and validates it.
func New(nodes []domain.CanvasNode, grid float64) (*Collection, error) {
	if grid <= 0 {
		grid = domain.DefaultGrid
	}
	c := &Collection{grid: grid, nodes: make(map[string]*domain.CanvasNode, len(nodes))}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %q without id: %w", n.Name, ErrInvariant)
		}
		if _, dup := c.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%s: %w", n.ID, ErrDuplicateID)
		}
		cp := n.Clone()
		c.nodes[n.ID] = &cp
		c.order = append(c.order, n.ID)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Grid is the snapping cell size and per-axis size floor.
func (c *Collection) Grid() float64 { return c.grid }

func (c *Collection) Len() int { return len(c.order) }

// Get returns a copy of the node.
func (c *Collection) Get(id string) (domain.CanvasNode, bool) {
	n, ok := c.nodes[id]
	if !ok {
		return domain.CanvasNode{}, false
	}
	return n.Clone(), true
}

func (c *Collection) Has(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// Nodes returns copies of all nodes in insertion order.
func (c *Collection) Nodes() []domain.CanvasNode {
	out := make([]domain.CanvasNode, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.nodes[id].Clone())
	}
	return out
}

// Siblings returns the ordered child ids of parent, or the root ids when
// parent is empty. Order is ascending zIndex; ties keep list order.
func (c *Collection) Siblings(parent string) []string {
	var ids []string
	if parent == "" {
		for _, id := range c.order {
			if c.nodes[id].ParentID == "" {
				ids = append(ids, id)
			}
		}
	} else if p, ok := c.nodes[parent]; ok {
		ids = append(ids, p.Children...)
	}
	sort.SliceStable(ids, func(i, j int) bool { return c.nodes[ids[i]].ZIndex < c.nodes[ids[j]].ZIndex })
	return ids
}

// Roots returns the root ids in stacking order.
func (c *Collection) Roots() []string { return c.Siblings("") }

// IsDescendant reports whether nodeID sits strictly below ancestorID.
// The walk is bounded so a corrupted parent chain cannot loop.
func (c *Collection) IsDescendant(nodeID, ancestorID string) bool {
	n, ok := c.nodes[nodeID]
	if !ok || ancestorID == "" {
		return false
	}
	for steps := 0; n.ParentID != "" && steps <= len(c.order); steps++ {
		if n.ParentID == ancestorID {
			return true
		}
		if n, ok = c.nodes[n.ParentID]; !ok {
			return false
		}
	}
	return false
}

// Depth is the number of ancestors of id.
func (c *Collection) Depth(id string) int {
	d := 0
	n, ok := c.nodes[id]
	for ok && n.ParentID != "" && d <= len(c.order) {
		d++
		n, ok = c.nodes[n.ParentID]
	}
	return d
}

// Descendants returns all ids below id, depth first in child order.
func (c *Collection) Descendants(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	var walk func(string)
	walk = func(pid string) {
		p, ok := c.nodes[pid]
		if !ok {
			return
		}
		for _, ch := range p.Children {
			if seen[ch] {
				continue
			}
			seen[ch] = true
			out = append(out, ch)
			walk(ch)
		}
	}
	walk(id)
	return out
}

// Place inserts a new node on top of its siblings. An empty id gets a fresh
// uuid, the position is snapped and the size clamped to one grid cell.
func (c *Collection) Place(n domain.CanvasNode) (domain.CanvasNode, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, dup := c.nodes[n.ID]; dup {
		return domain.CanvasNode{}, fmt.Errorf("place %s: %w", n.ID, ErrDuplicateID)
	}
	if len(n.Children) > 0 {
		return domain.CanvasNode{}, fmt.Errorf("place %s: new node cannot bring children: %w", n.ID, ErrInvariant)
	}
	if n.ParentID != "" {
		p, ok := c.nodes[n.ParentID]
		if !ok {
			return domain.CanvasNode{}, fmt.Errorf("place %s in %s: %w", n.ID, n.ParentID, ErrUnknownNode)
		}
		if !p.IsContainer() {
			return domain.CanvasNode{}, fmt.Errorf("place %s in %s: %w", n.ID, n.ParentID, ErrNotContainer)
		}
	}
	n.Position = c.snap(n.Position)
	n.Size = c.clampSize(n.Size)
	n.ZIndex = len(c.Siblings(n.ParentID))
	cp := n.Clone()
	c.nodes[n.ID] = &cp
	c.order = append(c.order, n.ID)
	if n.ParentID != "" {
		p := c.nodes[n.ParentID]
		p.Children = append(p.Children, n.ID)
	}
	return cp.Clone(), nil
}

// Remove deletes id and its whole subtree and returns the removed ids,
// id first. Unknown ids remove nothing.
func (c *Collection) Remove(id string) []string {
	n, ok := c.nodes[id]
	if !ok {
		return nil
	}
	removed := append([]string{id}, c.Descendants(id)...)
	if n.ParentID != "" {
		if p, ok := c.nodes[n.ParentID]; ok {
			p.Children = without(p.Children, id)
		}
	}
	gone := make(map[string]bool, len(removed))
	for _, r := range removed {
		gone[r] = true
		delete(c.nodes, r)
	}
	kept := c.order[:0]
	for _, o := range c.order {
		if !gone[o] {
			kept = append(kept, o)
		}
	}
	c.order = kept
	c.renumber(n.ParentID, c.Siblings(n.ParentID))
	return removed
}

// ApplyPositions writes back drag results. Positions are clamped to the
// non-negative quadrant; unknown ids are skipped. It returns the number of
// nodes whose position changed.
func (c *Collection) ApplyPositions(ps []domain.NodePosition) int {
	changed := 0
	for _, p := range ps {
		n, ok := c.nodes[p.ID]
		if !ok {
			continue
		}
		pos := p.Position.Clamp0()
		if pos != n.Position {
			n.Position = pos
			changed++
		}
	}
	return changed
}

// Resize sets the node size, clamped to one grid cell per axis.
func (c *Collection) Resize(id string, size domain.Vec2) error {
	n, ok := c.nodes[id]
	if !ok {
		return fmt.Errorf("resize %s: %w", id, ErrUnknownNode)
	}
	n.Size = c.clampSize(size)
	return nil
}

// SetHidden changes visibility. It reports whether anything changed.
func (c *Collection) SetHidden(id string, hidden bool) (bool, error) {
	n, ok := c.nodes[id]
	if !ok {
		return false, fmt.Errorf("hide %s: %w", id, ErrUnknownNode)
	}
	if n.Hidden == hidden {
		return false, nil
	}
	n.Hidden = hidden
	return true, nil
}

// ToggleHidden flips visibility and returns the new hidden state.
func (c *Collection) ToggleHidden(id string) (bool, error) {
	n, ok := c.nodes[id]
	if !ok {
		return false, fmt.Errorf("toggle %s: %w", id, ErrUnknownNode)
	}
	n.Hidden = !n.Hidden
	return n.Hidden, nil
}

func (c *Collection) SetLocked(id string, locked bool) error {
	n, ok := c.nodes[id]
	if !ok {
		return fmt.Errorf("lock %s: %w", id, ErrUnknownNode)
	}
	n.Locked = locked
	return nil
}

// Reparent moves id under parent (empty = root level) at index among the
// new siblings. Index is clamped to the sibling range. Both sides of the
// parent/child relation are updated and the zIndex of old and new siblings
// is renumbered densely from 0.
func (c *Collection) Reparent(id, parent string, index int) error {
	n, ok := c.nodes[id]
	if !ok {
		return fmt.Errorf("reparent %s: %w", id, ErrUnknownNode)
	}
	if parent != "" {
		p, ok := c.nodes[parent]
		if !ok {
			return fmt.Errorf("reparent %s into %s: %w", id, parent, ErrUnknownNode)
		}
		if parent == id || c.IsDescendant(parent, id) {
			return fmt.Errorf("reparent %s into %s: %w", id, parent, ErrCycle)
		}
		if !p.IsContainer() {
			return fmt.Errorf("reparent %s into %s: %w", id, parent, ErrNotContainer)
		}
	}

	oldParent := n.ParentID
	if oldParent != "" {
		if op, ok := c.nodes[oldParent]; ok {
			op.Children = without(op.Children, id)
		}
	}
	siblings := without(c.Siblings(parent), id)
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}
	siblings = append(siblings, "")
	copy(siblings[index+1:], siblings[index:])
	siblings[index] = id

	n.ParentID = parent
	c.renumber(parent, siblings)
	if oldParent != parent {
		c.renumber(oldParent, c.Siblings(oldParent))
	}
	return nil
}

// MoveZ moves id by delta positions among its siblings (+1 towards the
// front). The result is clamped to the sibling range.
func (c *Collection) MoveZ(id string, delta int) error {
	n, ok := c.nodes[id]
	if !ok {
		return fmt.Errorf("move z %s: %w", id, ErrUnknownNode)
	}
	sib := c.Siblings(n.ParentID)
	idx := indexOf(sib, id)
	return c.Reparent(id, n.ParentID, idx+delta)
}

func (c *Collection) BringToFront(id string) error { return c.MoveZ(id, len(c.order)) }
func (c *Collection) SendToBack(id string) error   { return c.MoveZ(id, -len(c.order)) }

// Validate checks the structural invariants: parent links resolve, both
// sides of every relation agree, no cycles and no negative geometry.
func (c *Collection) Validate() error {
	var errs []error
	for _, id := range c.order {
		n := c.nodes[id]
		if !n.Position.NonNegative() || !n.Size.NonNegative() {
			errs = append(errs, fmt.Errorf("%s: negative position or size: %w", id, ErrInvariant))
		}
		if n.ParentID != "" {
			p, ok := c.nodes[n.ParentID]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: parent %s: %w", id, n.ParentID, ErrUnknownNode))
			} else if indexOf(p.Children, id) < 0 {
				errs = append(errs, fmt.Errorf("%s: missing from children of %s: %w", id, n.ParentID, ErrInvariant))
			}
		}
		seen := map[string]bool{}
		for _, ch := range n.Children {
			if seen[ch] {
				errs = append(errs, fmt.Errorf("%s: child %s listed twice: %w", id, ch, ErrInvariant))
				continue
			}
			seen[ch] = true
			cn, ok := c.nodes[ch]
			if !ok {
				errs = append(errs, fmt.Errorf("%s: child %s: %w", id, ch, ErrUnknownNode))
			} else if cn.ParentID != id {
				errs = append(errs, fmt.Errorf("%s: child %s points to parent %q: %w", id, ch, cn.ParentID, ErrInvariant))
			}
		}
		if c.onCycle(id) {
			errs = append(errs, fmt.Errorf("%s: %w", id, ErrCycle))
		}
	}
	return errors.Join(errs...)
}

// Snapshot serializes the nodes for undo consumers.
func (c *Collection) Snapshot() ([]byte, error) {
	return json.Marshal(c.Nodes())
}

// Restore replaces the content with a snapshot. On error the collection
// is left untouched.
func (c *Collection) Restore(b []byte) error {
	var nodes []domain.CanvasNode
	if err := json.Unmarshal(b, &nodes); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	fresh, err := New(nodes, c.grid)
	if err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	c.order, c.nodes = fresh.order, fresh.nodes
	return nil
}

func (c *Collection) onCycle(id string) bool {
	n := c.nodes[id]
	for steps := 0; n.ParentID != "" && steps <= len(c.order); steps++ {
		if n.ParentID == id {
			return true
		}
		next, ok := c.nodes[n.ParentID]
		if !ok {
			return false
		}
		n = next
	}
	return n.ParentID != ""
}

func (c *Collection) renumber(parent string, ordered []string) {
	for i, sid := range ordered {
		c.nodes[sid].ZIndex = i
	}
	if parent == "" {
		return
	}
	if p, ok := c.nodes[parent]; ok {
		p.Children = append(make([]string, 0, len(ordered)), ordered...)
	}
}

func (c *Collection) snap(v domain.Vec2) domain.Vec2 {
	return domain.FromPt(vector.SnapToGrid(v.Pt(), c.grid))
}

func (c *Collection) clampSize(v domain.Vec2) domain.Vec2 {
	return domain.FromPt(vector.ClampSize(v.Pt(), c.grid))
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}

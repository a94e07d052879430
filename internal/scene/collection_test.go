/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"errors"
	"testing"

	"faceplate/internal/domain"
)

func container(id string, children ...string) domain.CanvasNode {
	l := domain.DefaultContainerLayout()
	return domain.CanvasNode{ID: id, Name: id, ComponentID: "container", Size: domain.V(200, 200), Children: append([]string{}, children...), Config: domain.Config{Layout: &l}}
}

func leaf(id, parent string, z int) domain.CanvasNode {
	return domain.CanvasNode{ID: id, Name: id, ComponentID: "label", Size: domain.V(40, 20), ParentID: parent, ZIndex: z}
}

// fixture: A (container) holds B (container) holds C; D is a root leaf.
func fixture(t *testing.T) *Collection {
	t.Helper()
	a := container("A", "B")
	b := container("B", "C")
	b.ParentID = "A"
	c, err := New([]domain.CanvasNode{a, b, leaf("C", "B", 0), leaf("D", "", 1)}, 20)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return c
}

func TestNewRejectsBrokenLinks(t *testing.T) {
	a := container("A", "X")
	if _, err := New([]domain.CanvasNode{a}, 20); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected ErrUnknownNode, got %v", err)
	}
	orphan := leaf("B", "A", 0)
	if _, err := New([]domain.CanvasNode{container("A"), orphan}, 20); !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected one-sided relation to fail, got %v", err)
	}
	if _, err := New([]domain.CanvasNode{leaf("A", "", 0), leaf("A", "", 1)}, 20); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	x := container("X", "Y")
	x.ParentID = "Y"
	y := container("Y", "X")
	y.ParentID = "X"
	if _, err := New([]domain.CanvasNode{x, y}, 20); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestReparentRejectsCycles(t *testing.T) {
	c := fixture(t)
	if err := c.Reparent("A", "C", 0); !errors.Is(err, ErrNotContainer) && !errors.Is(err, ErrCycle) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if err := c.Reparent("A", "B", 0); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if err := c.Reparent("A", "A", 0); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle for self, got %v", err)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("collection changed after rejected reparent: %v", err)
	}
	b, _ := c.Get("B")
	if b.ParentID != "A" {
		t.Fatalf("B moved unexpectedly: %+v", b)
	}
}

func TestReparentKeepsBothSidesConsistent(t *testing.T) {
	c := fixture(t)
	if err := c.Reparent("D", "A", 0); err != nil {
		t.Fatalf("reparent: %v", err)
	}
	a, _ := c.Get("A")
	if len(a.Children) != 2 || a.Children[0] != "D" || a.Children[1] != "B" {
		t.Fatalf("unexpected children of A: %v", a.Children)
	}
	d, _ := c.Get("D")
	b, _ := c.Get("B")
	if d.ParentID != "A" || d.ZIndex != 0 || b.ZIndex != 1 {
		t.Fatalf("unexpected parent or z: D=%+v B=%+v", d, b)
	}
	// back to root at the end
	if err := c.Reparent("C", "", 99); err != nil {
		t.Fatalf("reparent to root: %v", err)
	}
	roots := c.Roots()
	if len(roots) != 2 || roots[1] != "C" {
		t.Fatalf("unexpected roots: %v", roots)
	}
	bb, _ := c.Get("B")
	if len(bb.Children) != 0 || bb.Children == nil {
		t.Fatalf("B must stay a container without children: %#v", bb.Children)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestIsDescendantAndDepth(t *testing.T) {
	c := fixture(t)
	if !c.IsDescendant("C", "A") || !c.IsDescendant("B", "A") {
		t.Fatalf("expected C and B under A")
	}
	if c.IsDescendant("A", "C") || c.IsDescendant("A", "A") || c.IsDescendant("D", "A") {
		t.Fatalf("unexpected descendant relation")
	}
	if c.Depth("C") != 2 || c.Depth("D") != 0 {
		t.Fatalf("unexpected depths")
	}
}

func TestRemoveStripsSubtreeAndParentLink(t *testing.T) {
	c := fixture(t)
	removed := c.Remove("B")
	if len(removed) != 2 || removed[0] != "B" || removed[1] != "C" {
		t.Fatalf("unexpected removed ids: %v", removed)
	}
	if c.Has("C") || c.Len() != 2 {
		t.Fatalf("subtree not removed")
	}
	a, _ := c.Get("A")
	if len(a.Children) != 0 {
		t.Fatalf("parent still lists removed child: %v", a.Children)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if c.Remove("nope") != nil {
		t.Fatalf("unknown id must remove nothing")
	}
}

func TestPlaceSnapsAndClamps(t *testing.T) {
	c := fixture(t)
	n, err := c.Place(domain.CanvasNode{Name: "Lamp", ComponentID: "lamp", Position: domain.V(33, -12), Size: domain.V(5, 90), ParentID: "A"})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if n.ID == "" {
		t.Fatalf("expected generated id")
	}
	if n.Position != domain.V(40, 0) || n.Size != domain.V(20, 90) {
		t.Fatalf("unexpected geometry: %v %v", n.Position, n.Size)
	}
	if n.ZIndex != 1 {
		t.Fatalf("expected on top of siblings, got z=%d", n.ZIndex)
	}
	a, _ := c.Get("A")
	if a.Children[len(a.Children)-1] != n.ID {
		t.Fatalf("parent does not list placed node")
	}
	if _, err := c.Place(domain.CanvasNode{ID: n.ID}); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if _, err := c.Place(domain.CanvasNode{ParentID: "D"}); !errors.Is(err, ErrNotContainer) {
		t.Fatalf("expected not-container error, got %v", err)
	}
	if _, err := c.Place(domain.CanvasNode{ParentID: "ghost"}); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected unknown parent error, got %v", err)
	}
}

func TestZOrderCommands(t *testing.T) {
	c, err := New([]domain.CanvasNode{leaf("a", "", 0), leaf("b", "", 1), leaf("c", "", 2)}, 20)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.BringToFront("a"); err != nil {
		t.Fatalf("front: %v", err)
	}
	assertOrder(t, c.Roots(), "b", "c", "a")
	if err := c.SendToBack("c"); err != nil {
		t.Fatalf("back: %v", err)
	}
	assertOrder(t, c.Roots(), "c", "b", "a")
	if err := c.MoveZ("c", 1); err != nil {
		t.Fatalf("move z: %v", err)
	}
	assertOrder(t, c.Roots(), "b", "c", "a")
	for i, id := range c.Roots() {
		n, _ := c.Get(id)
		if n.ZIndex != i {
			t.Fatalf("z not dense: %s=%d", id, n.ZIndex)
		}
	}
}

func TestApplyPositionsClampsAndCounts(t *testing.T) {
	c := fixture(t)
	changed := c.ApplyPositions([]domain.NodePosition{{ID: "D", Position: domain.V(-10, 40)}, {ID: "ghost", Position: domain.V(1, 1)}})
	if changed != 1 {
		t.Fatalf("expected one change, got %d", changed)
	}
	d, _ := c.Get("D")
	if d.Position != domain.V(0, 40) {
		t.Fatalf("unexpected position %v", d.Position)
	}
}

func TestSnapshotRestore(t *testing.T) {
	c := fixture(t)
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	c.Remove("A")
	if err := c.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if c.Len() != 4 || !c.IsDescendant("C", "A") {
		t.Fatalf("restore lost structure")
	}
	if err := c.Restore([]byte(`[{"id":"x","parentId":"y"}]`)); err == nil {
		t.Fatalf("expected invalid snapshot to fail")
	}
	if c.Len() != 4 {
		t.Fatalf("failed restore must keep content")
	}
}

func TestVisibilityAndLock(t *testing.T) {
	c := fixture(t)
	if changed, _ := c.SetHidden("D", true); !changed {
		t.Fatalf("expected change")
	}
	if changed, _ := c.SetHidden("D", true); changed {
		t.Fatalf("expected no-op")
	}
	hidden, err := c.ToggleHidden("D")
	if err != nil || hidden {
		t.Fatalf("toggle: hidden=%v err=%v", hidden, err)
	}
	if err := c.SetLocked("ghost", true); !errors.Is(err, ErrUnknownNode) {
		t.Fatalf("expected unknown node error")
	}
}

func assertOrder(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestEmptyContainerSurvivesSnapshot(t *testing.T) {
	box := domain.CanvasNode{ID: "box", Name: "box", ComponentID: "group", Size: domain.V(200, 200), Children: []string{"w"}}
	w := leaf("w", "box", 0)
	c, err := New([]domain.CanvasNode{box, w, leaf("v", "", 1)}, 20)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	// Taking out the only child leaves an empty, layout-less container.
	if err := c.Reparent("w", "", 0); err != nil {
		t.Fatalf("reparent to root: %v", err)
	}
	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := c.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := c.Get("box")
	if !got.IsContainer() {
		t.Fatalf("box lost container status: %+v", got)
	}
	if err := c.Reparent("v", "box", 0); err != nil {
		t.Fatalf("reparent into restored empty container: %v", err)
	}
}

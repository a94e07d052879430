/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"testing"

	"faceplate/internal/domain"
	"faceplate/internal/vector"
)

func nested() []domain.CanvasNode {
	la := domain.ContainerLayout{Direction: domain.DirectionHorizontal, Padding: 16, Gap: 12}
	lb := domain.ContainerLayout{Direction: domain.DirectionVertical, Padding: 10, Gap: 4}
	return []domain.CanvasNode{
		{ID: "A", Position: domain.V(100, 40), Size: domain.V(300, 300), Children: []string{"C", "B"}, Config: domain.Config{Layout: &la}},
		{ID: "B", ParentID: "A", Position: domain.V(5, 5), Size: domain.V(100, 100), ZIndex: 0, Children: []string{"D"}, Config: domain.Config{Layout: &lb}},
		{ID: "C", ParentID: "A", Position: domain.V(7, 7), Size: domain.V(40, 40), ZIndex: 1},
		{ID: "D", ParentID: "B", Position: domain.V(1, 1), Size: domain.V(20, 20)},
		{ID: "E", Position: domain.V(0, 0), Size: domain.V(20, 20), ZIndex: 1},
	}
}

func TestResolveEditModeNested(t *testing.T) {
	r := Resolve(nested(), Edit)
	cases := map[string]vector.Pt{
		"A": {X: 100, Y: 40},
		"B": {X: 116, Y: 56},
		"C": {X: 228, Y: 56},
		"D": {X: 126, Y: 66},
		"E": {X: 0, Y: 0},
	}
	for id, want := range cases {
		b, ok := r.Box(id)
		if !ok {
			t.Fatalf("missing box %s", id)
		}
		if b.Rect.Min() != want {
			t.Fatalf("%s at %v, want %v", id, b.Rect.Min(), want)
		}
	}
	d, _ := r.Box("D")
	if d.Local != (vector.Pt{X: 10, Y: 10}) || d.Depth != 2 {
		t.Fatalf("unexpected local/depth for D: %+v", d)
	}
	order := r.PaintOrder()
	want := []string{"A", "B", "D", "C", "E"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("paint order %v, want %v", order, want)
		}
	}
}

func TestResolveLiveModeUsesStoredPositions(t *testing.T) {
	r := Resolve(nested(), Live)
	c, _ := r.Box("C")
	if c.Rect.Min() != (vector.Pt{X: 107, Y: 47}) {
		t.Fatalf("unexpected live position %v", c.Rect.Min())
	}
}

func TestResolveHiddenAncestorAndHitTest(t *testing.T) {
	ns := nested()
	ns[1].Hidden = true // B
	r := Resolve(ns, Edit)
	if d, _ := r.Box("D"); d.Visible {
		t.Fatalf("child of hidden container must be invisible")
	}
	// C keeps its slot after the hidden sibling is skipped
	c, _ := r.Box("C")
	if c.Rect.Min() != (vector.Pt{X: 116, Y: 56}) {
		t.Fatalf("hidden sibling must take no space, C at %v", c.Rect.Min())
	}
	id, ok := r.HitTest(vector.Pt{X: 120, Y: 60})
	if !ok || id != "C" {
		t.Fatalf("expected C on top, got %q", id)
	}
	id, _ = r.HitTest(vector.Pt{X: 390, Y: 330})
	if id != "A" {
		t.Fatalf("expected container hit, got %q", id)
	}
	if _, ok := r.HitTest(vector.Pt{X: 600, Y: 600}); ok {
		t.Fatalf("expected background")
	}
	if len(r.Visible()) != 3 {
		t.Fatalf("expected A, C and E visible, got %d", len(r.Visible()))
	}
}

func TestResolveOrphanBecomesRoot(t *testing.T) {
	r := Resolve([]domain.CanvasNode{{ID: "x", ParentID: "gone", Position: domain.V(3, 4), Size: domain.V(1, 1)}}, Edit)
	if b, ok := r.Box("x"); !ok || b.Rect.Min() != (vector.Pt{X: 3, Y: 4}) {
		t.Fatalf("orphan not resolved as root: %+v", b)
	}
	if u, ok := r.Bounds(); !ok || u.W != 1 {
		t.Fatalf("unexpected bounds %+v", u)
	}
}

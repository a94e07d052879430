/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drop

import (
	"testing"

	"faceplate/internal/domain"
	"faceplate/internal/layout"
	"faceplate/internal/scene"
	"faceplate/internal/vector"
)

func grp(id, parent string, pos, size domain.Vec2, z int, children ...string) domain.CanvasNode {
	l := domain.ContainerLayout{Direction: domain.DirectionVertical, Padding: 10, Gap: 10}
	return domain.CanvasNode{ID: id, ParentID: parent, Position: pos, Size: size, ZIndex: z, Children: append([]string{}, children...), Config: domain.Config{Layout: &l}}
}

// Outer(0,0 400x400) holds Inner at (10,10) 200x200; Other(500,0) is a
// separate root container; Lamp is a root leaf.
func fixture(t *testing.T) (*scene.Collection, layout.Result) {
	t.Helper()
	c, err := scene.New([]domain.CanvasNode{
		grp("Outer", "", domain.V(0, 0), domain.V(400, 400), 0, "Inner"),
		grp("Inner", "Outer", domain.V(0, 0), domain.V(200, 200), 0),
		grp("Other", "", domain.V(500, 0), domain.V(100, 100), 1),
		{ID: "Lamp", Position: domain.V(700, 0), Size: domain.V(20, 20), ZIndex: 2},
	}, 20)
	if err != nil {
		t.Fatalf("fixture: %v", err)
	}
	return c, layout.Resolve(c.Nodes(), layout.Edit)
}

func TestResolvePicksInnermost(t *testing.T) {
	c, res := fixture(t)
	id, ok := Resolve(res, c, []string{"Lamp"}, vector.Pt{X: 50, Y: 50})
	if !ok || id != "Inner" {
		t.Fatalf("expected Inner, got %q ok=%v", id, ok)
	}
	id, _ = Resolve(res, c, []string{"Lamp"}, vector.Pt{X: 300, Y: 300})
	if id != "Outer" {
		t.Fatalf("expected Outer, got %q", id)
	}
	if _, ok := Resolve(res, c, []string{"Lamp"}, vector.Pt{X: 450, Y: 450}); ok {
		t.Fatalf("expected no target over background")
	}
}

func TestResolveExcludesDraggedSubtree(t *testing.T) {
	c, res := fixture(t)
	id, ok := Resolve(res, c, []string{"Outer"}, vector.Pt{X: 50, Y: 50})
	if ok {
		t.Fatalf("dragged container and its descendants must not be targets, got %q", id)
	}
	id, _ = Resolve(res, c, []string{"Inner"}, vector.Pt{X: 50, Y: 50})
	if id != "Outer" {
		t.Fatalf("expected Outer when Inner is dragged, got %q", id)
	}
}

func TestResolveSkipsHiddenContainers(t *testing.T) {
	c, _ := fixture(t)
	if _, err := c.SetHidden("Inner", true); err != nil {
		t.Fatalf("hide: %v", err)
	}
	res := layout.Resolve(c.Nodes(), layout.Edit)
	id, _ := Resolve(res, c, []string{"Lamp"}, vector.Pt{X: 50, Y: 50})
	if id != "Outer" {
		t.Fatalf("hidden container must be skipped, got %q", id)
	}
}

func TestTrackerReportsChangesOnly(t *testing.T) {
	var tr Tracker
	if tr.Update("") {
		t.Fatalf("empty to empty is no change")
	}
	if !tr.Update("a") || tr.Update("a") || !tr.Update("b") {
		t.Fatalf("unexpected change reporting")
	}
	if tr.Current() != "b" {
		t.Fatalf("unexpected current %q", tr.Current())
	}
	if !tr.Reset() || tr.Reset() {
		t.Fatalf("unexpected reset reporting")
	}
}

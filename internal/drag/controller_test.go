/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package drag

import (
	"reflect"
	"testing"

	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/layout"
	"faceplate/internal/scene"
	"faceplate/internal/selection"
	"faceplate/internal/vector"
)

type geo struct{ c *scene.Collection }

func (g geo) Resolved() layout.Result { return layout.Resolve(g.c.Nodes(), layout.Edit) }

type observed struct {
	moved, ended, cancelled int
	last                    vector.Pt
}

func (o *observed) DragMoved(_ []string, p vector.Pt) { o.moved++; o.last = p }
func (o *observed) DragEnded(_ []string, p vector.Pt) { o.ended++; o.last = p }
func (o *observed) DragCancelled([]string)            { o.cancelled++ }

type rig struct {
	c   *Controller
	bus *events.Bus
	sel *selection.Model
	rec *events.Recorder
	obs *observed
	col *scene.Collection
}

func newRig(t *testing.T, nodes ...domain.CanvasNode) *rig {
	t.Helper()
	col, err := scene.New(nodes, 20)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	r := &rig{bus: &events.Bus{}, sel: &selection.Model{}, rec: &events.Recorder{}, obs: &observed{}, col: col}
	r.c = New(Deps{Nodes: col, Selection: r.sel, Capture: r.bus, Geometry: geo{col}, Emitter: r.rec, Observer: r.obs}, Options{Grid: 20})
	return r
}

func node(id string, x, y float64) domain.CanvasNode {
	return domain.CanvasNode{ID: id, Name: id, Position: domain.V(x, y), Size: domain.V(40, 40)}
}

func down(target string, x, y float64, mods events.Modifiers) events.PointerEvent {
	return events.PointerEvent{Phase: events.PointerDown, Pos: vector.Pt{X: x, Y: y}, Target: target, Mods: mods}
}

func (r *rig) move(x, y float64) {
	r.bus.Publish(events.PointerEvent{Phase: events.PointerMove, Pos: vector.Pt{X: x, Y: y}})
}

func (r *rig) up(x, y float64) {
	r.bus.Publish(events.PointerEvent{Phase: events.PointerUp, Pos: vector.Pt{X: x, Y: y}})
}

func lastPositions(t *testing.T, rec *events.Recorder, k events.Kind) []domain.NodePosition {
	t.Helper()
	switch e := rec.Last(k).(type) {
	case events.NodesUpdated:
		return e.Positions
	case events.NodesMoveEnd:
		return e.Positions
	}
	t.Fatalf("no %s event recorded", k)
	return nil
}

func TestDragSnapsPrimaryToGrid(t *testing.T) {
	r := newRig(t, node("a", 40, 40))
	if !r.c.PointerDown(down("a", 100, 100, events.Modifiers{})) {
		t.Fatalf("expected session start")
	}
	if r.c.State() != NodeDragging || r.bus.Active() != 1 {
		t.Fatalf("expected drag with capture, state=%v active=%d", r.c.State(), r.bus.Active())
	}
	r.move(113, 107)
	got := lastPositions(t, r.rec, events.KindNodesUpdated)
	if len(got) != 1 || got[0].Position != domain.V(60, 40) {
		t.Fatalf("unexpected positions %+v", got)
	}
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a"}) {
		t.Fatalf("pointer down must select the target")
	}
}

func TestGroupDragKeepsRelativeOffsetsAndClamps(t *testing.T) {
	r := newRig(t, node("a", 40, 40), node("b", 100, 20))
	r.sel.SelectMany([]string{"a", "b"})
	r.c.PointerDown(down("a", 60, 60, events.Modifiers{}))
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a", "b"}) {
		t.Fatalf("pressing an already selected node keeps the group: %v", r.sel.IDs())
	}
	r.move(10, 10)
	got := lastPositions(t, r.rec, events.KindNodesUpdated)
	want := []domain.NodePosition{{ID: "a", Position: domain.V(0, 0)}, {ID: "b", Position: domain.V(60, 0)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestReleaseEmitsMoveEndAndReleasesCapture(t *testing.T) {
	r := newRig(t, node("a", 40, 40))
	r.c.PointerDown(down("a", 0, 0, events.Modifiers{}))
	r.move(20, 0)
	r.move(41, 0)
	r.up(41, 0)
	end := lastPositions(t, r.rec, events.KindNodesMoveEnd)
	if len(end) != 1 || end[0].Position != domain.V(80, 40) {
		t.Fatalf("unexpected final positions %+v", end)
	}
	if r.c.State() != Idle || r.bus.Active() != 0 {
		t.Fatalf("session not closed: state=%v active=%d", r.c.State(), r.bus.Active())
	}
	if r.obs.moved != 2 || r.obs.ended != 1 {
		t.Fatalf("observer calls moved=%d ended=%d", r.obs.moved, r.obs.ended)
	}
	n := len(r.rec.Events)
	r.move(300, 300)
	r.up(300, 300)
	if len(r.rec.Events) != n {
		t.Fatalf("events after release must be ignored")
	}
}

func TestModifierTogglesSelection(t *testing.T) {
	r := newRig(t, node("a", 0, 0), node("b", 100, 0))
	r.c.PointerDown(down("a", 1, 1, events.Modifiers{}))
	r.up(1, 1)
	r.c.PointerDown(down("b", 101, 1, events.Modifiers{Shift: true}))
	r.up(101, 1)
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a", "b"}) {
		t.Fatalf("unexpected selection %v", r.sel.IDs())
	}
	// toggling a off leaves b; a is not dragged
	r.c.PointerDown(down("a", 1, 1, events.Modifiers{Ctrl: true}))
	if r.c.State() != Idle {
		t.Fatalf("toggled-off target must not start a drag")
	}
	if !reflect.DeepEqual(r.sel.IDs(), []string{"b"}) {
		t.Fatalf("unexpected selection %v", r.sel.IDs())
	}
	sc, ok := r.rec.Last(events.KindSelectionChanged).(events.SelectionChanged)
	if !ok || !reflect.DeepEqual(sc.IDs, []string{"b"}) {
		t.Fatalf("expected selection-changed with b, got %#v", r.rec.Last(events.KindSelectionChanged))
	}
}

func TestLockedNodeIsSelectedButNotDragged(t *testing.T) {
	locked := node("a", 0, 0)
	locked.Locked = true
	r := newRig(t, locked)
	r.c.PointerDown(down("a", 1, 1, events.Modifiers{}))
	if r.c.State() != Idle || r.bus.Active() != 0 {
		t.Fatalf("locked node must not start a drag")
	}
	if !r.sel.Contains("a") {
		t.Fatalf("locked node is still selectable")
	}
}

func TestLockedMembersStayBehindInGroupDrag(t *testing.T) {
	b := node("b", 100, 0)
	b.Locked = true
	r := newRig(t, node("a", 0, 0), b)
	r.sel.SelectMany([]string{"a", "b"})
	r.c.PointerDown(down("a", 0, 0, events.Modifiers{}))
	if got := r.c.Dragging(); !reflect.DeepEqual(got, []string{"a"}) {
		t.Fatalf("expected only a dragged, got %v", got)
	}
}

func TestMarqueeSelectsIntersectingVisibleNodes(t *testing.T) {
	hidden := node("h", 20, 20)
	hidden.Hidden = true
	r := newRig(t, node("a", 0, 0), node("b", 40, 40), node("c", 200, 200), hidden)
	r.c.PointerDown(down("", 80, 80, events.Modifiers{}))
	if r.c.State() != BoxSelecting {
		t.Fatalf("background press must start a marquee")
	}
	r.move(40, 30)
	if m, ok := r.c.Marquee(); !ok || m != vector.R(40, 30, 40, 50) {
		t.Fatalf("unexpected marquee %+v", m)
	}
	r.up(40, 40) // touches a's corner (40,40) and overlaps b
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a", "b"}) {
		t.Fatalf("unexpected selection %v", r.sel.IDs())
	}
	done, ok := r.rec.Last(events.KindDragSelectComplete).(events.DragSelectComplete)
	if !ok || len(done.IDs) != 2 {
		t.Fatalf("expected drag-select-complete")
	}
	if mc := r.rec.Last(events.KindMarqueeChanged).(events.MarqueeChanged); mc.Active {
		t.Fatalf("marquee must be reported inactive on release")
	}
	if r.bus.Active() != 0 {
		t.Fatalf("capture not released")
	}
}

func TestEmptyMarqueeKeepsSelection(t *testing.T) {
	r := newRig(t, node("a", 0, 0))
	r.sel.SelectSingle("a")
	r.c.PointerDown(down("", 300, 300, events.Modifiers{}))
	r.move(400, 400)
	r.up(400, 400)
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a"}) {
		t.Fatalf("empty marquee must not change selection: %v", r.sel.IDs())
	}
	if r.rec.Last(events.KindDragSelectComplete) != nil {
		t.Fatalf("no drag-select-complete for empty marquee")
	}
}

func TestPointerDownRejectedWhileActive(t *testing.T) {
	r := newRig(t, node("a", 0, 0), node("b", 100, 0))
	r.c.PointerDown(down("a", 1, 1, events.Modifiers{}))
	if r.c.PointerDown(down("b", 101, 1, events.Modifiers{})) {
		t.Fatalf("second pointer down must be rejected")
	}
	if !reflect.DeepEqual(r.sel.IDs(), []string{"a"}) || r.bus.Active() != 1 {
		t.Fatalf("rejected down must not change anything")
	}
}

func TestCancelRestoresOrigins(t *testing.T) {
	r := newRig(t, node("a", 40, 40))
	r.c.PointerDown(down("a", 0, 0, events.Modifiers{}))
	r.move(100, 100)
	r.c.Cancel()
	got := lastPositions(t, r.rec, events.KindNodesUpdated)
	if got[0].Position != domain.V(40, 40) {
		t.Fatalf("cancel must restore origin, got %v", got[0].Position)
	}
	if r.rec.Last(events.KindNodesMoveEnd) != nil {
		t.Fatalf("cancel must not emit move end")
	}
	if r.c.State() != Idle || r.bus.Active() != 0 || r.obs.cancelled != 1 {
		t.Fatalf("cancel did not reset the session")
	}
	r.c.Cancel()
}

func TestGuidesReportAlignment(t *testing.T) {
	r := newRig(t, node("a", 0, 0), node("b", 200, 100))
	r.c = New(Deps{Nodes: r.col, Selection: r.sel, Capture: r.bus, Geometry: geo{r.col}, Emitter: r.rec}, Options{Grid: 20, Guides: true, GuideThreshold: 4})
	r.c.PointerDown(down("a", 0, 0, events.Modifiers{}))
	r.move(200, 0) // a lands at x=200, left edges align with b
	g, ok := r.rec.Last(events.KindGuidesChanged).(events.GuidesChanged)
	if !ok || len(g.Guides) == 0 {
		t.Fatalf("expected guides")
	}
	r.up(200, 0)
	g = r.rec.Last(events.KindGuidesChanged).(events.GuidesChanged)
	if len(g.Guides) != 0 {
		t.Fatalf("guides must be cleared on release")
	}
}

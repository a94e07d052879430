/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"faceplate/internal/canvas"
	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/scene"
	"faceplate/internal/vector"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func TestRecorderUndoesDragAndRemove(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	col, err := scene.New([]domain.CanvasNode{
		{ID: "a", Name: "a", ComponentID: "gauge", Position: domain.V(40, 40), Size: domain.V(40, 40)},
	}, 20)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	m := NewManager(Config{})
	rec := NewRecorder(m, "doc", col, quiet)
	clock := &fakeClock{t: time.Now()}
	rec.now = clock.now
	var pushed int
	rec.OnPush = func(Snapshot) { pushed++ }
	cv := canvas.New(col, rec, canvas.Options{Log: quiet})

	cv.PointerDown(vector.Pt{X: 50, Y: 50}, events.Modifiers{})
	cv.Bus().Publish(events.PointerEvent{Phase: events.PointerMove, Pos: vector.Pt{X: 90, Y: 50}})
	cv.Bus().Publish(events.PointerEvent{Phase: events.PointerUp, Pos: vector.Pt{X: 90, Y: 50}})
	if n, _ := col.Get("a"); n.Position != domain.V(80, 40) {
		t.Fatalf("drag not applied: %v", n.Position)
	}
	if pushed != 1 {
		t.Fatalf("expected one recorded edit for the drag, got %d", pushed)
	}

	cv.Remove("a")
	if col.Has("a") {
		t.Fatalf("remove failed")
	}

	if !rec.Undo(cv.Restore) {
		t.Fatalf("undo remove failed")
	}
	n, ok := col.Get("a")
	if !ok || n.Position != domain.V(80, 40) {
		t.Fatalf("after undoing remove: %v %v", ok, n.Position)
	}
	if !rec.Undo(cv.Restore) {
		t.Fatalf("undo drag failed")
	}
	if n, _ := col.Get("a"); n.Position != domain.V(40, 40) {
		t.Fatalf("after undoing drag: %v", n.Position)
	}
	if rec.Undo(cv.Restore) {
		t.Fatalf("nothing left to undo")
	}
	if !rec.Redo(cv.Restore) {
		t.Fatalf("redo failed")
	}
	if n, _ := col.Get("a"); n.Position != domain.V(80, 40) {
		t.Fatalf("after redo: %v", n.Position)
	}
	if !m.CanRedo("doc") {
		t.Fatalf("restore events must not clear redo")
	}
}

func TestRecorderOneEntryPerDropGesture(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := domain.DefaultContainerLayout()
	col, err := scene.New([]domain.CanvasNode{
		{ID: "P", Name: "P", ComponentID: "container", Position: domain.V(200, 0), Size: domain.V(200, 200), Children: []string{}, Config: domain.Config{Layout: &l}},
		{ID: "w", Name: "w", ComponentID: "gauge", Size: domain.V(40, 40), ZIndex: 1},
	}, 20)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	m := NewManager(Config{})
	rec := NewRecorder(m, "doc", col, quiet)
	clock := &fakeClock{t: time.Now()}
	rec.now = clock.now
	var pushed int
	rec.OnPush = func(Snapshot) { pushed++ }
	seen := &events.Recorder{}
	cv := canvas.New(col, events.Multi{rec, seen}, canvas.Options{Log: quiet})

	cv.PointerDown(vector.Pt{X: 10, Y: 10}, events.Modifiers{})
	cv.Bus().Publish(events.PointerEvent{Phase: events.PointerMove, Pos: vector.Pt{X: 300, Y: 100}})
	cv.Bus().Publish(events.PointerEvent{Phase: events.PointerUp, Pos: vector.Pt{X: 300, Y: 100}})
	if n, _ := col.Get("w"); n.ParentID != "P" {
		t.Fatalf("drop not committed: %+v", n)
	}
	if pushed != 1 {
		t.Fatalf("drop gesture recorded %d entries, want 1", pushed)
	}
	last := seen.Events[len(seen.Events)-1]
	end, ok := last.(events.NodesMoveEnd)
	if !ok {
		t.Fatalf("move-end must close the gesture, last event %T", last)
	}
	if w, _ := col.Get("w"); len(end.Positions) != 1 || end.Positions[0].Position != w.Position {
		t.Fatalf("move-end carries stale positions: %+v vs %v", end.Positions, w.Position)
	}

	if !rec.Undo(cv.Restore) {
		t.Fatalf("undo failed")
	}
	if n, _ := col.Get("w"); n.ParentID != "" || n.Position != domain.V(0, 0) {
		t.Fatalf("one undo must revert the whole drop: %+v", n)
	}
}

func TestRecorderRecordsResizeAndLock(t *testing.T) {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	col, err := scene.New([]domain.CanvasNode{
		{ID: "a", Name: "a", ComponentID: "gauge", Size: domain.V(40, 40)},
	}, 20)
	if err != nil {
		t.Fatalf("scene: %v", err)
	}
	m := NewManager(Config{})
	rec := NewRecorder(m, "doc", col, quiet)
	clock := &fakeClock{t: time.Now()}
	rec.now = clock.now
	var pushed int
	rec.OnPush = func(Snapshot) { pushed++ }
	cv := canvas.New(col, rec, canvas.Options{Log: quiet})

	if err := cv.ResizeNode("a", domain.V(200, 100)); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if err := cv.SetLocked("a", true); err != nil {
		t.Fatalf("lock: %v", err)
	}
	if err := cv.SetLocked("a", true); err != nil {
		t.Fatalf("relock: %v", err)
	}
	if pushed != 2 {
		t.Fatalf("expected resize and lock entries, got %d", pushed)
	}
	if !rec.Undo(cv.Restore) {
		t.Fatalf("undo lock failed")
	}
	if n, _ := col.Get("a"); n.Locked || n.Size != domain.V(200, 100) {
		t.Fatalf("after undoing lock: %+v", n)
	}
	if !rec.Undo(cv.Restore) {
		t.Fatalf("undo resize failed")
	}
	if n, _ := col.Get("a"); n.Size != domain.V(40, 40) {
		t.Fatalf("after undoing resize: %v", n.Size)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package events

import (
	"faceplate/internal/domain"
	"faceplate/internal/vector"
)

// Kind names an outbound canvas event.
type Kind string

const (
	KindSelectionChanged   Kind = "selection-changed"
	KindNodesUpdated       Kind = "nodes-updated"
	KindNodesMoveEnd       Kind = "nodes-move-end"
	KindDragSelectComplete Kind = "drag-select-complete"
	KindMarqueeChanged     Kind = "marquee-changed"
	KindDropTargetChanged  Kind = "drop-target-changed"
	KindGuidesChanged      Kind = "guides-changed"
	KindNodeReparented     Kind = "node-reparented"
	KindLayoutChanged      Kind = "layout-changed"
	KindNodesAdded         Kind = "nodes-added"
	KindNodesRemoved       Kind = "nodes-removed"
	KindVisibilityChanged  Kind = "visibility-changed"
	KindLockChanged        Kind = "lock-changed"
	KindNodeResized        Kind = "node-resized"
)

// Event is an outbound notification.
type Event interface {
	Kind() Kind
}

// SelectionChanged carries the new ordered selection.
type SelectionChanged struct{ IDs []string }

// NodesUpdated is emitted on every drag move with the live positions.
type NodesUpdated struct{ Positions []domain.NodePosition }

// NodesMoveEnd is the terminal event of a drag with the final positions.
// Consumers treat it as one undo unit.
type NodesMoveEnd struct{ Positions []domain.NodePosition }

// DragSelectComplete lists the ids hit by a marquee.
type DragSelectComplete struct{ IDs []string }

// MarqueeChanged carries the normalized marquee rect. Active is false once
// the marquee is released.
type MarqueeChanged struct {
	Rect   vector.Rect
	Active bool
}

// DropTargetChanged carries the highlighted container, "" for none.
type DropTargetChanged struct{ TargetID string }

// GuidesChanged carries the alignment guides of the current drag.
type GuidesChanged struct{ Guides []vector.GuideLine }

// NodeReparented reports a committed reparent or reorder. Drop is set when
// a canvas drag moved the node; the drag's NodesMoveEnd follows it.
type NodeReparented struct {
	ID       string
	ParentID string
	Index    int
	Drop     bool
}

// LayoutChanged lists containers whose children were laid out again.
type LayoutChanged struct{ ContainerIDs []string }

// NodesAdded lists placed node ids.
type NodesAdded struct{ IDs []string }

// NodesRemoved lists removed node ids.
type NodesRemoved struct{ IDs []string }

// VisibilityChanged reports a node's new hidden flag.
type VisibilityChanged struct {
	ID     string
	Hidden bool
}

// LockChanged reports a node's new locked flag.
type LockChanged struct {
	ID     string
	Locked bool
}

// NodeResized reports a committed size change after clamping.
type NodeResized struct {
	ID   string
	Size domain.Vec2
}

func (SelectionChanged) Kind() Kind   { return KindSelectionChanged }
func (NodesUpdated) Kind() Kind       { return KindNodesUpdated }
func (NodesMoveEnd) Kind() Kind       { return KindNodesMoveEnd }
func (DragSelectComplete) Kind() Kind { return KindDragSelectComplete }
func (MarqueeChanged) Kind() Kind     { return KindMarqueeChanged }
func (DropTargetChanged) Kind() Kind  { return KindDropTargetChanged }
func (GuidesChanged) Kind() Kind      { return KindGuidesChanged }
func (NodeReparented) Kind() Kind     { return KindNodeReparented }
func (LayoutChanged) Kind() Kind      { return KindLayoutChanged }
func (NodesAdded) Kind() Kind         { return KindNodesAdded }
func (NodesRemoved) Kind() Kind       { return KindNodesRemoved }
func (VisibilityChanged) Kind() Kind  { return KindVisibilityChanged }
func (LockChanged) Kind() Kind        { return KindLockChanged }
func (NodeResized) Kind() Kind        { return KindNodeResized }

// Edits reports whether e changed the document, as opposed to live drag
// feedback, selection or highlighting.
func Edits(e Event) bool {
	switch e.Kind() {
	case KindNodesMoveEnd, KindNodeReparented, KindLayoutChanged, KindNodesAdded,
		KindNodesRemoved, KindVisibilityChanged, KindLockChanged, KindNodeResized:
		return true
	}
	return false
}

// Emitter receives outbound events. Hosts implement it to forward events
// to their UI layer; tests use Recorder.
type Emitter interface {
	Emit(Event)
}

// Func adapts a function to Emitter.
type Func func(Event)

func (f Func) Emit(e Event) { f(e) }

// Multi fans an event out to several emitters in order. Nil entries are skipped.
type Multi []Emitter

func (m Multi) Emit(e Event) {
	for _, em := range m {
		if em != nil {
			em.Emit(e)
		}
	}
}

// Discard drops every event.
var Discard Emitter = Func(func(Event) {})

// Recorder is a test-friendly Emitter that records all events.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// OfKind returns the recorded events of kind k in order.
func (r *Recorder) OfKind(k Kind) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Kind() == k {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event of kind k, or nil.
func (r *Recorder) Last(k Kind) Event {
	es := r.OfKind(k)
	if len(es) == 0 {
		return nil
	}
	return es[len(es)-1]
}

func (r *Recorder) Reset() { r.Events = nil }

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
	"log/slog"
	"time"

	"faceplate/internal/events"
)

// Source produces the serialized state to record. scene.Collection
// satisfies it.
type Source interface {
	Snapshot() ([]byte, error)
}

// Recorder is an events.Emitter that turns committed canvas edits into
// undo entries. Live drag updates are ignored; the terminal move-end is
// the undo unit.
type Recorder struct {
	m        *Manager
	doc      string
	src      Source
	log      *slog.Logger
	now      func() time.Time
	applying bool
	// OnPush is called after each recorded snapshot, e.g. to persist it.
	OnPush func(Snapshot)
}

// NewRecorder records the current state of src as the bottom entry.
func NewRecorder(m *Manager, docID string, src Source, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	r := &Recorder{m: m, doc: docID, src: src, log: log, now: time.Now}
	r.record()
	return r
}

// records reports whether e closes an undoable edit. Layout changes only
// follow another edit, and a drop reparent is closed by the drag's
// move-end, so one gesture is one entry.
func records(e events.Event) bool {
	switch ev := e.(type) {
	case events.LayoutChanged:
		return false
	case events.NodeReparented:
		return !ev.Drop
	}
	return events.Edits(e)
}

func (r *Recorder) Emit(e events.Event) {
	if r.applying || !records(e) {
		return
	}
	r.record()
}

func (r *Recorder) record() {
	b, err := r.src.Snapshot()
	if err != nil {
		r.log.Warn("undo snapshot failed", slog.Any("err", err))
		return
	}
	s := Snapshot{DocID: r.doc, Blob: b, TS: r.now()}
	r.m.PushSnapshot(s)
	if r.OnPush != nil {
		r.OnPush(s)
	}
}

// Undo restores the previous state through apply. Events emitted while
// apply runs are not recorded.
func (r *Recorder) Undo(apply func([]byte) error) bool {
	s, ok := r.m.Undo(r.doc)
	if !ok {
		return false
	}
	return r.apply(s, apply)
}

// Redo re-applies the last undone state.
func (r *Recorder) Redo(apply func([]byte) error) bool {
	s, ok := r.m.Redo(r.doc)
	if !ok {
		return false
	}
	return r.apply(s, apply)
}

func (r *Recorder) apply(s Snapshot, apply func([]byte) error) bool {
	r.applying = true
	defer func() { r.applying = false }()
	if err := apply(s.Blob); err != nil {
		r.log.Error("undo apply failed", slog.Any("err", err))
		return false
	}
	return true
}

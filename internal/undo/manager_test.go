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
	"testing"
	"time"
)

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerDoc: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("base"), TS: t0})
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("a"), TS: t0.Add(20 * time.Millisecond)})
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("b"), TS: t0.Add(40 * time.Millisecond)})
	if _, docs, total := m.Stats(); docs != 1 || total != 3 {
		t.Fatalf("expected 1 doc and 3 snapshots, got docs=%d total=%d", docs, total)
	}
	s, ok := m.Undo("d")
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("undo expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Undo("d")
	if !ok || string(s.Blob) != "base" {
		t.Fatalf("undo expected 'base', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if _, ok := m.Undo("d"); ok || m.CanUndo("d") {
		t.Fatalf("bottom entry must not be undone")
	}
	s, ok = m.Redo("d")
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("redo expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo("d") {
		t.Fatalf("one more redo expected")
	}
	// a new change drops redo
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("c"), TS: t0.Add(time.Second)})
	if m.CanRedo("d") {
		t.Fatalf("redo must be cleared by a new change")
	}
}

func TestCoalesceKeepsBottomEntry(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerDoc: 10, MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("0"), TS: t0})
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("1"), TS: t0.Add(10 * time.Millisecond)})
	m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("2"), TS: t0.Add(20 * time.Millisecond)}) // coalesce
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("expected 2 snapshots, got %d", total)
	}
	s, ok := m.Undo("d")
	if !ok || string(s.Blob) != "0" {
		t.Fatalf("expected bottom '0', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if s, _ := m.Redo("d"); string(s.Blob) != "2" {
		t.Fatalf("expected coalesced '2', got %q", s.Blob)
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1000, MaxPerDoc: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.PushSnapshot(Snapshot{DocID: "d", Blob: []byte("xxxxx"), TS: t0.Add(time.Duration(i) * time.Second)})
	}
	if tb, _, total := m.Stats(); total != 2 || tb != 10 {
		t.Fatalf("expected MaxPerDoc cap to limit to 2 (10 bytes), got %d (%d bytes)", total, tb)
	}
}

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
	"sync"
	"time"
)

// Snapshot is one serialized collection state of a document.
// Blob content is opaque to the manager; size is estimated as len(Blob).
type Snapshot struct {
	DocID string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDoc limits snapshots kept per document (0 means unlimited).
	MaxPerDoc int
	// MinInterval coalesces snapshots captured within the interval for the
	// same document, replacing the previous one instead of pushing.
	MinInterval time.Duration
}

// Manager keeps in-memory undo/redo stacks per document. The bottom entry
// of a stack is the state undo returns to last and is never coalesced.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// bytes held by both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records the state after a change. Within MinInterval of the
// previous change it replaces that entry. Clears the redo stack.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.DocID]
	m.dropRedoLocked(s.DocID)
	if n := len(stack); n > 1 {
		last := stack[n-1]
		if s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes += len(s.Blob) - len(last.Blob)
			stack[n-1] = s
			m.enforceCapsLocked(s.DocID)
			return
		}
	}
	m.undo[s.DocID] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.DocID)
}

// Undo moves the current state to the redo stack and returns the state
// to restore. It fails when only the bottom entry is left.
func (m *Manager) Undo(docID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[docID]
	if len(stack) < 2 {
		return Snapshot{}, false
	}
	cur := stack[len(stack)-1]
	m.undo[docID] = stack[:len(stack)-1]
	m.redo[docID] = append(m.redo[docID], cur)
	return stack[len(stack)-2], true
}

// Redo re-applies the most recently undone state.
func (m *Manager) Redo(docID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[docID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[docID] = r[:len(r)-1]
	m.undo[docID] = append(m.undo[docID], s)
	m.enforceCapsLocked(docID)
	return s, true
}

// CanUndo and CanRedo report whether the stacks allow a step.
func (m *Manager) CanUndo(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[docID]) > 1
}

func (m *Manager) CanRedo(docID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[docID]) > 0
}

// ClearDoc drops both stacks of a document.
func (m *Manager) ClearDoc(docID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[docID] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(docID)
	delete(m.undo, docID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, docs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, docs, totalSnapshots
}

func (m *Manager) dropRedoLocked(docID string) {
	for _, s := range m.redo[docID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, docID)
}

func (m *Manager) enforceCapsLocked(docID string) {
	if m.cfg.MaxPerDoc > 0 {
		stack := m.undo[docID]
		if len(stack) > m.cfg.MaxPerDoc {
			toDrop := len(stack) - m.cfg.MaxPerDoc
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[docID] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// global cap: prune the oldest entry across documents, keeping the
	// current state of every document
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestDoc := ""
		found := false
		var oldestTS time.Time
		for doc, stack := range m.undo {
			if len(stack) < 2 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestDoc, oldestTS, found = doc, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestDoc]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestDoc] = stack[1:]
	}
}

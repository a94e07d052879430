/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package selection keeps the ordered set of selected node ids. The first
// inserted id is the primary selection.
package selection

import "slices"

// Model is an insertion-ordered set of node ids. The zero value is empty
// and ready to use. Mutators report whether the set changed.
type Model struct {
	ids []string
}

func (m *Model) IDs() []string { return append([]string(nil), m.ids...) }
func (m *Model) Len() int      { return len(m.ids) }

// Primary returns the first selected id, or "" when nothing is selected.
func (m *Model) Primary() string {
	if len(m.ids) == 0 {
		return ""
	}
	return m.ids[0]
}

func (m *Model) Contains(id string) bool { return m.index(id) >= 0 }

// SelectSingle replaces the selection with {id}.
func (m *Model) SelectSingle(id string) bool {
	if len(m.ids) == 1 && m.ids[0] == id {
		return false
	}
	m.ids = []string{id}
	return true
}

// Toggle removes id when present, otherwise appends it. Toggling off the
// only member keeps it selected.
func (m *Model) Toggle(id string) bool {
	i := m.index(id)
	if i < 0 {
		m.ids = append(m.ids, id)
		return true
	}
	if len(m.ids) == 1 {
		return false
	}
	m.ids = append(m.ids[:i:i], m.ids[i+1:]...)
	return true
}

// SelectMany replaces the selection with ids, deduplicated in order. An
// empty list leaves the selection untouched.
func (m *Model) SelectMany(ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	next := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			next = append(next, id)
		}
	}
	if slices.Equal(next, m.ids) {
		return false
	}
	m.ids = next
	return true
}

func (m *Model) Clear() bool {
	if len(m.ids) == 0 {
		return false
	}
	m.ids = nil
	return true
}

// Remove drops the given ids, e.g. after deletion. Unlike Toggle it may
// empty the set.
func (m *Model) Remove(ids ...string) bool {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	return m.Retain(func(id string) bool { return !drop[id] })
}

// Retain keeps only the ids for which keep returns true.
func (m *Model) Retain(keep func(id string) bool) bool {
	next := m.ids[:0:0]
	for _, id := range m.ids {
		if keep(id) {
			next = append(next, id)
		}
	}
	if len(next) == len(m.ids) {
		return false
	}
	m.ids = next
	return true
}

func (m *Model) index(id string) int {
	for i, x := range m.ids {
		if x == id {
			return i
		}
	}
	return -1
}


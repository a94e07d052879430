/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceplate/internal/domain"
)

// MemStore is an in-process Store for local development and tests.
type MemStore struct {
	mu       sync.Mutex
	versions map[string][]Published
	names    map[string]string
}

func NewMemStore() *MemStore {
	return &MemStore{versions: map[string][]Published{}, names: map[string]string{}}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) List(context.Context) ([]Faceplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Faceplate, 0, len(m.versions))
	for id, vs := range m.versions {
		last := vs[len(vs)-1]
		out = append(out, Faceplate{ID: id, Name: m.names[id], Version: last.Version, UpdatedAt: last.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemStore) Latest(_ context.Context, id string) (Published, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.versions[id]
	if len(vs) == 0 {
		return Published{}, ErrNotFound
	}
	return vs[len(vs)-1], nil
}

func (m *MemStore) Publish(_ context.Context, doc domain.Document, base int64, subject string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := int64(len(m.versions[doc.ID]))
	if base >= 0 && base != cur {
		return 0, ErrConflict
	}
	m.names[doc.ID] = doc.Name
	m.versions[doc.ID] = append(m.versions[doc.ID], Published{Version: cur + 1, CreatedAt: time.Now().UTC(), PublishedBy: subject, Document: doc})
	return cur + 1, nil
}

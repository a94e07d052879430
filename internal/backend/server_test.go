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
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
		"testing"
	"time"

	"faceplate/internal/domain"
	applog "faceplate/internal/log"
)

// flakyStore reports the database as down.
type flakyStore struct {
	*MemStore
	down bool
}

func (f *flakyStore) Ping(ctx context.Context) error {
	if f.down {
		return errors.New("down")
	}
	return f.MemStore.Ping(ctx)
}

func testDoc() domain.Document {
	return domain.Document{
		ID:   "fp-1",
		Name: "Valve",
		Grid: 20,
		Nodes: []domain.CanvasNode{
			{ID: "a", ComponentID: "button", Position: domain.V(20, 20), Size: domain.V(40, 20)},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *flakyStore) {
	t.Helper()
	st := &flakyStore{MemStore: NewMemStore()}
	srv := NewServer(st, "test-secret", applog.Discard())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, st
}

func TestHealthAndReady(t *testing.T) {
	ts, st := newTestServer(t)
	for _, p := range []string{"/healthz", "/readyz", "/version"} {
		resp, err := http.Get(ts.URL + p)
		if err != nil {
			t.Fatalf("GET %s: %v", p, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s = %d", p, resp.StatusCode)
		}
	}
	st.down = true
	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz with db down = %d", resp.StatusCode)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewClient(ts.URL+"/", "")
	_, err := c.ListFaceplates(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
	c.Token = "garbage.token"
	if _, err := c.ListFaceplates(context.Background()); err == nil {
		t.Fatalf("expected rejection of bad token")
	}
}

func TestPublishGetListRoundTrip(t *testing.T) {
	ts, st := newTestServer(t)
	ctx := context.Background()
	c := NewClient(ts.URL, "")
	if _, err := c.RequestToken(ctx, "alice", time.Hour); err != nil {
		t.Fatalf("token: %v", err)
	}

	if _, err := c.GetDocument(ctx, "fp-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	v, err := c.PublishDocument(ctx, testDoc(), 0)
	if err != nil || v != 1 {
		t.Fatalf("publish v=%d err=%v", v, err)
	}
	if st.versions["fp-1"][0].PublishedBy != "alice" {
		t.Fatalf("subject not recorded: %+v", st.versions["fp-1"][0])
	}
	if _, err := c.PublishDocument(ctx, testDoc(), 0); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on stale base, got %v", err)
	}
	if v, err := c.PublishDocument(ctx, testDoc(), -1); err != nil || v != 2 {
		t.Fatalf("unconditional publish v=%d err=%v", v, err)
	}

	p, err := c.GetDocument(ctx, "fp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Version != 2 || p.Document.Name != "Valve" || len(p.Document.Nodes) != 1 {
		t.Fatalf("unexpected document %+v", p)
	}
	list, err := c.ListFaceplates(ctx)
	if err != nil || len(list) != 1 || list[0].Version != 2 {
		t.Fatalf("list=%+v err=%v", list, err)
	}
}

func TestPublishRejectsInvalidDocuments(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()
	c := NewClient(ts.URL, "")
	if _, err := c.RequestToken(ctx, "bob", time.Minute); err != nil {
		t.Fatalf("token: %v", err)
	}
	bad := testDoc()
	bad.Nodes = append(bad.Nodes, domain.CanvasNode{ID: "b", ComponentID: "x", ParentID: "missing", Size: domain.V(20, 20)})
	_, err := c.PublishDocument(ctx, bad, -1)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %v", err)
	}

	// Path and body ids must agree.
	tok := c.Token
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/faceplates/other/document",
		strings.NewReader(`{"id":"fp-1","name":"x","nodes":[]}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("id mismatch = %d", resp.StatusCode)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	tok, err := signToken("s", "carol", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifyToken("s", tok, time.Now()); !errors.Is(err, errTokenExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}
	tok, _ = signToken("s", "carol", time.Now().Add(time.Minute))
	if sub, err := verifyToken("s", tok, time.Now()); err != nil || sub != "carol" {
		t.Fatalf("sub=%q err=%v", sub, err)
	}
	if _, err := verifyToken("other", tok, time.Now()); err == nil {
		t.Fatalf("expected signature failure")
	}
}

func TestParseVersion(t *testing.T) {
	if v, err := parseVersion("0002_published_by.sql"); err != nil || v != 2 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	if _, err := parseVersion("init.sql"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil || len(entries) < 2 {
		t.Fatalf("embedded migrations: %v %d", err, len(entries))
	}
}

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
	"os"
	"testing"
	"time"

	applog "faceplate/internal/log"
)

func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("FPB_PG_DSN")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("FPB_PG_DSN not set; skipping postgres test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := OpenPG(ctx, dsn, applog.Discard())
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestE2E_PGPublishAndFetch(t *testing.T) {
	st := openPGForTest(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := testDoc()
	doc.ID = "e2e-" + time.Now().Format("20060102150405.000000000")
	v1, err := st.Publish(ctx, doc, 0, "e2e")
	if err != nil || v1 != 1 {
		t.Fatalf("publish v=%d err=%v", v1, err)
	}
	if _, err := st.Publish(ctx, doc, 0, "e2e"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	p, err := st.Latest(ctx, doc.ID)
	if err != nil || p.Version != 1 || p.Document.Name != doc.Name || p.PublishedBy != "e2e" {
		t.Fatalf("latest=%+v err=%v", p, err)
	}
	if _, err := st.Latest(ctx, "nope-"+doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	list, err := st.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	found := false
	for _, f := range list {
		found = found || f.ID == doc.ID
	}
	if !found {
		t.Fatalf("published faceplate missing from list")
	}
}

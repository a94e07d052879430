/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func TestIndexInitCreatesWALAndTables(t *testing.T) {
	root := t.TempDir()
	db, err := InitOrOpenIndex(root)
	if err != nil {
		t.Fatalf("InitOrOpenIndex: %v", err)
	}
	_ = db.Close()

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(IndexPath(root)))
	raw, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer raw.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var mode string
	if err := raw.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := raw.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','nodes','snapshots')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 4 {
		t.Fatalf("expected 4 tables, got %d", cnt)
	}
}

func TestRebuildIndexAndQueryNodes(t *testing.T) {
	root := t.TempDir()
	doc := sampleDocument()
	doc.ID = "doc-q"
	doc.Nodes[2].Hidden = true
	ctx := context.Background()
	if err := RebuildIndex(ctx, root, doc); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	all, err := QueryNodes(ctx, root, NodeFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("QueryNodes all = %d, %v", len(all), err)
	}
	// roots first, ordered by zIndex
	if all[0].ID != "panel" || all[1].ID != "label" || all[2].ID != "gauge" {
		t.Fatalf("unexpected order: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}
	gauge := all[2]
	if gauge.Depth != 1 || gauge.ParentID != "panel" {
		t.Fatalf("gauge row: %+v", gauge)
	}
	// edit-mode layout puts the child at the container padding
	if gauge.Rect.X != 36 || gauge.Rect.Y != 36 || gauge.Rect.W != 80 {
		t.Fatalf("gauge absolute rect = %+v", gauge.Rect)
	}
	if !all[0].Container || all[1].Container {
		t.Fatalf("container flags wrong")
	}

	parent := "panel"
	kids, err := QueryNodes(ctx, root, NodeFilter{ParentID: &parent})
	if err != nil || len(kids) != 1 || kids[0].ID != "gauge" {
		t.Fatalf("by parent = %+v, %v", kids, err)
	}
	hidden := true
	hs, err := QueryNodes(ctx, root, NodeFilter{Hidden: &hidden})
	if err != nil || len(hs) != 1 || hs[0].ID != "label" {
		t.Fatalf("hidden = %+v, %v", hs, err)
	}
	byComp, err := QueryNodes(ctx, root, NodeFilter{ComponentID: "gauge"})
	if err != nil || len(byComp) != 1 {
		t.Fatalf("component = %+v, %v", byComp, err)
	}
	pre, err := QueryNodes(ctx, root, NodeFilter{NamePrefix: "Ga", Limit: 5})
	if err != nil || len(pre) != 1 || pre[0].ID != "gauge" {
		t.Fatalf("prefix = %+v, %v", pre, err)
	}
	none, err := QueryNodes(ctx, root, NodeFilter{NamePrefix: "%"})
	if err != nil || len(none) != 0 {
		t.Fatalf("wildcard must be escaped, got %+v, %v", none, err)
	}

	// rebuild replaces content
	doc.Nodes = doc.Nodes[2:]
	if err := RebuildIndex(ctx, root, doc); err != nil {
		t.Fatalf("second RebuildIndex: %v", err)
	}
	if all, _ = QueryNodes(ctx, root, NodeFilter{}); len(all) != 1 {
		t.Fatalf("expected 1 node after rebuild, got %d", len(all))
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session binds an on-disk document to a live canvas with undo,
// snapshot persistence and telemetry. Hosts (CLI, desktop UI) drive it.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"faceplate/internal/canvas"
	"faceplate/internal/config"
	"faceplate/internal/events"
	"faceplate/internal/layout"
	applog "faceplate/internal/log"
	"faceplate/internal/scene"
	"faceplate/internal/storage"
	"faceplate/internal/telemetry"
	"faceplate/internal/undo"
)

// Options configures Open. Zero values get app defaults.
type Options struct {
	Config    config.AppConfig
	Undo      *undo.Manager
	Telemetry *telemetry.Client
	// Observer receives every canvas event after the built-in consumers.
	Observer events.Emitter
	// PersistSnapshots writes each undo entry to the document index.
	PersistSnapshots bool
	Log              *slog.Logger
}

// Session is one open document.
type Session struct {
	Handle *storage.DocumentHandle
	Canvas *canvas.Canvas
	Undo   *undo.Recorder

	cfg   config.AppConfig
	log   *slog.Logger
	dirty bool
}

// Open loads the document at root and builds its canvas.
func Open(root string, opts Options) (*Session, error) {
	h, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	return New(h, opts)
}

// New builds a session around an already open handle.
func New(h *storage.DocumentHandle, opts Options) (*Session, error) {
	if opts.Config.ConfigVersion == 0 {
		opts.Config = config.Defaults()
	}
	l := opts.Log
	if l == nil {
		l = applog.WithComponent("session")
	}
	l = l.With(slog.String("doc", h.Document.ID))
	if h.Recovered {
		l.Warn("document recovered from backup", slog.String("root", h.Root))
	}
	col, err := scene.New(h.Document.Nodes, h.Document.GridSize())
	if err != nil {
		return nil, fmt.Errorf("load scene: %w", err)
	}
	m := opts.Undo
	if m == nil {
		m = undo.NewManager(undo.Config{
			MaxBytes:    32 * 1024 * 1024,
			MaxPerDoc:   50,
			MinInterval: 300 * time.Millisecond,
		})
	}
	s := &Session{Handle: h, cfg: opts.Config, log: l}
	s.Undo = undo.NewRecorder(m, h.Document.ID, col, applog.WithOperation(l, "undo"))
	if opts.PersistSnapshots {
		s.Undo.OnPush = s.persist
	}

	out := events.Multi{s.Undo, events.Func(s.markDirty)}
	if opts.Telemetry != nil {
		out = append(out, telemetry.Sink{C: opts.Telemetry})
	}
	if opts.Observer != nil {
		out = append(out, opts.Observer)
	}
	mode := layout.Edit
	if opts.Config.Canvas.LiveMode {
		mode = layout.Live
	}
	s.Canvas = canvas.New(col, out, canvas.Options{
		Mode:           mode,
		Guides:         opts.Config.Canvas.SmartGuides,
		GuideThreshold: opts.Config.Canvas.GuideThreshold,
		Log:            l,
	})
	return s, nil
}

func (s *Session) markDirty(e events.Event) {
	if events.Edits(e) {
		s.dirty = true
	}
}

func (s *Session) persist(snap undo.Snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := storage.SaveSnapshot(ctx, s.Handle, snap.Blob, snap.TS); err != nil {
		s.log.Warn("persist snapshot", slog.Any("err", err))
		return
	}
	if keep := s.cfg.Storage.KeepSnapshots; keep > 0 {
		if _, err := storage.PruneOldSnapshots(ctx, s.Handle, keep); err != nil {
			s.log.Warn("prune snapshots", slog.Any("err", err))
		}
	}
}

// Dirty reports unsaved edits since open or the last Save.
func (s *Session) Dirty() bool { return s.dirty }

// Save writes the canvas state to the manifest, prunes backups and
// refreshes the node index.
func (s *Session) Save(ctx context.Context) error {
	s.Handle.Document.Nodes = s.Canvas.Nodes()
	if err := storage.Save(s.Handle); err != nil {
		return err
	}
	s.dirty = false
	if keep := s.cfg.Storage.KeepBackups; keep > 0 {
		if _, err := storage.PruneBackups(s.Handle.Root, keep); err != nil {
			s.log.Warn("prune backups", slog.Any("err", err))
		}
	}
	if err := storage.RebuildIndex(ctx, s.Handle.Root, s.Handle.Document); err != nil {
		s.log.Warn("rebuild index", slog.Any("err", err))
	}
	return nil
}

// UndoEdit restores the previous recorded state.
func (s *Session) UndoEdit() bool {
	if s.Undo.Undo(s.Canvas.Restore) {
		s.dirty = true
		return true
	}
	return false
}

// RedoEdit reapplies the last undone state.
func (s *Session) RedoEdit() bool {
	if s.Undo.Redo(s.Canvas.Restore) {
		s.dirty = true
		return true
	}
	return false
}

// CrashHandle is a copy of the handle carrying the live canvas nodes,
// for crash.RecoverWith.
func (s *Session) CrashHandle() *storage.DocumentHandle {
	h := *s.Handle
	h.Document.Nodes = s.Canvas.Nodes()
	return &h
}

// CrashSnapshot writes the live canvas state next to the backups.
func (s *Session) CrashSnapshot() (string, error) {
	return storage.AutosaveCrashSnapshot(s.CrashHandle())
}

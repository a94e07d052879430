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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"faceplate/internal/domain"
	applog "faceplate/internal/log"
)

// DefaultWatchDebounce coalesces the write/rename bursts of a save.
const DefaultWatchDebounce = 150 * time.Millisecond

// ChangeHandler receives the reloaded document, or the validation error
// when the new manifest is unusable.
type ChangeHandler func(doc domain.Document, err error)

// Watch reloads the manifest under root whenever it changes on disk and
// calls onChange once per debounced burst. It blocks until ctx is done.
func Watch(ctx context.Context, root string, debounce time.Duration, onChange ChangeHandler) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	// the directory is watched so the temp-file rename of Save is seen
	if err := w.Add(abs); err != nil {
		return fmt.Errorf("watch %s: %w", abs, err)
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "watch").With(slog.String("root", abs))
	manifest := filepath.Join(abs, ManifestFileName)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != manifest || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.Warn("watch error", slog.Any("err", err))
		case <-fire:
			fire = nil
			b, err := os.ReadFile(manifest)
			if err != nil {
				// mid-rename; the create event re-arms the timer
				l.Debug("manifest not readable", slog.Any("err", err))
				continue
			}
			doc, err := decodeManifest(b)
			if err != nil {
				l.Warn("reloaded manifest invalid", slog.Any("err", err))
				onChange(domain.Document{}, err)
				continue
			}
			onChange(*doc, nil)
		}
	}
}

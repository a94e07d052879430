/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"faceplate/internal/domain"
	applog "faceplate/internal/log"
)

const (
	ManifestFileName = "faceplate.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

// DocumentHandle keeps track of a document loaded/saved from disk.
// Root is the document directory containing faceplate.json and subfolders.
type DocumentHandle struct {
	Root         string
	ManifestPath string
	Document     domain.Document
	// Recovered is set when Open fell back to a backup.
	Recovered bool
}

// InitDocument creates a new document directory at root, scaffolds the
// standard subfolders and writes the manifest. A missing document id is
// generated.
func InitDocument(root string, doc domain.Document) (*DocumentHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Grid <= 0 {
		doc.Grid = domain.DefaultGrid
	}
	if doc.Nodes == nil {
		doc.Nodes = []domain.CanvasNode{}
	}
	h := &DocumentHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Document:     doc,
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads an existing document from root. If the manifest cannot be
// read, parsed or validated, the latest backup is tried.
func Open(root string) (*DocumentHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	b, err := os.ReadFile(mpath)
	if err == nil {
		var doc *domain.Document
		if doc, err = decodeManifest(b); err == nil {
			return &DocumentHandle{Root: root, ManifestPath: mpath, Document: *doc}, nil
		}
	}
	doc, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	l.Warn("manifest unusable, recovered from backup", slog.Any("err", err))
	return &DocumentHandle{Root: root, ManifestPath: mpath, Document: *doc, Recovered: true}, nil
}

// Save writes the document with transactional semantics and a timestamped
// backup of the previous manifest. Documents that break the scene
// invariants are refused.
func Save(h *DocumentHandle) error {
	if h == nil {
		return errors.New("nil DocumentHandle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid DocumentHandle: missing paths")
	}
	if err := ValidateDocument(h.Document); err != nil {
		return fmt.Errorf("refusing to save: %w", err)
	}
	data, err := encodeManifest(h.Document)
	if err != nil {
		return err
	}

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		bpath := uniquePath(filepath.Join(bdir, backupName(time.Now())))
		if cerr := copyFile(h.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}
	return replaceFile(h.ManifestPath, data)
}

// SaveAs writes the manifest to a new root folder and updates the handle.
func SaveAs(h *DocumentHandle, newRoot string) error {
	if h == nil {
		return errors.New("nil DocumentHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	h.Root = newRoot
	h.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(h)
}

// AutosaveCrashSnapshot writes the in-memory document next to the backups
// without validation or backup rotation. Used from crash recovery.
func AutosaveCrashSnapshot(h *DocumentHandle) (string, error) {
	if h == nil {
		return "", errors.New("nil DocumentHandle")
	}
	dir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	data, err := encodeManifest(h.Document)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, time.Now().Format("20060102-150405")))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// PruneBackups keeps the newest keep manifest backups and removes the rest.
// It returns the number of removed files.
func PruneBackups(root string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	list, err := backupFiles(root)
	if err != nil {
		return 0, err
	}
	if len(list) <= keep {
		return 0, nil
	}
	removed := 0
	for _, p := range list[:len(list)-keep] {
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create document root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

func encodeManifest(doc domain.Document) ([]byte, error) {
	if doc.Nodes == nil {
		doc.Nodes = []domain.CanvasNode{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeManifest validates and parses manifest bytes.
func decodeManifest(b []byte) (*domain.Document, error) {
	if err := ValidateManifest(b); err != nil {
		return nil, err
	}
	var doc domain.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &doc, nil
}

// backupName yields names that sort lexicographically by time.
func backupName(t time.Time) string {
	return fmt.Sprintf("%s.%s.bak", ManifestFileName, t.Format("20060102-150405.000"))
}

// uniquePath appends a counter when saves land in the same millisecond.
func uniquePath(p string) string {
	if _, err := os.Stat(p); err != nil {
		return p
	}
	base := strings.TrimSuffix(p, ".bak")
	for i := 1; ; i++ {
		c := fmt.Sprintf("%s_%03d.bak", base, i)
		if _, err := os.Stat(c); err != nil {
			return c
		}
	}
}

// replaceFile writes to a temp file in the same directory, then renames
// it over the target.
func replaceFile(target string, data []byte) error {
	dir := filepath.Dir(target)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(target), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// Windows cannot rename over an existing file
	if _, err := os.Stat(target); err == nil {
		_ = os.Remove(target)
	}
	if rerr := os.Rename(temp, target); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies src to dst, overwriting dst.
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// backupFiles lists manifest backups oldest first.
func backupFiles(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

// openFromLatestBackup walks backups newest first and returns the first
// one that decodes and validates.
func openFromLatestBackup(root string) (*domain.Document, error) {
	list, err := backupFiles(root)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		b, err := os.ReadFile(list[i])
		if err != nil {
			lastErr = err
			continue
		}
		doc, err := decodeManifest(b)
		if err != nil {
			lastErr = err
			continue
		}
		return doc, nil
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}

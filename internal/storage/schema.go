/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"faceplate/internal/domain"
	"faceplate/internal/scene"
)

//go:embed faceplate.schema.json
var manifestSchema []byte

// ErrSchema wraps schema violations reported by ValidateManifest.
var ErrSchema = errors.New("manifest does not match schema")

var (
	schemaOnce   sync.Once
	schemaLoaded *gojsonschema.Schema
	schemaErr    error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaLoaded, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(manifestSchema))
	})
	return schemaLoaded, schemaErr
}

// Schema returns the embedded manifest JSON schema.
func Schema() []byte { return append([]byte(nil), manifestSchema...) }

// ValidateManifest checks manifest bytes against the embedded JSON schema
// and then against the scene invariants.
func ValidateManifest(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
	}
	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	return ValidateDocument(doc)
}

// ValidateDocument checks the scene invariants of an in-memory document.
func ValidateDocument(doc domain.Document) error {
	if _, err := scene.New(doc.Nodes, doc.GridSize()); err != nil {
		return fmt.Errorf("document %s: %w", doc.ID, err)
	}
	return nil
}

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
	"fmt"

	"gopkg.in/yaml.v3"

	"faceplate/internal/domain"
)

// ExportYAML renders the document in YAML with the same keys as the JSON
// manifest. The detour through a generic value keeps the custom config
// flattening identical in both formats.
func ExportYAML(doc domain.Document) ([]byte, error) {
	js, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	var generic any
	if err := json.Unmarshal(js, &generic); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}

// ImportYAML parses a YAML document and validates it like a manifest.
func ImportYAML(data []byte) (domain.Document, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return domain.Document{}, fmt.Errorf("parse yaml: %w", err)
	}
	js, err := json.Marshal(generic)
	if err != nil {
		return domain.Document{}, fmt.Errorf("convert yaml: %w", err)
	}
	doc, err := decodeManifest(js)
	if err != nil {
		return domain.Document{}, err
	}
	return *doc, nil
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"os"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"faceplate/internal/scene"
)

func TestManifestConformsToSchema(t *testing.T) {
	h, err := InitDocument(t.TempDir(), sampleDocument())
	if err != nil {
		t.Fatalf("InitDocument error: %v", err)
	}
	data, err := os.ReadFile(h.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(Schema()), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("manifest does not conform to schema")
	}
}

func TestValidateManifestRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"missing nodes", `{"id":"d","name":"x"}`, ErrSchema},
		{"negative position", `{"id":"d","name":"x","nodes":[{"id":"a","componentId":"c","position":{"x":-1,"y":0},"size":{"x":20,"y":20},"zIndex":0,"config":{}}]}`, ErrSchema},
		{"bad direction", `{"id":"d","name":"x","nodes":[{"id":"a","componentId":"c","position":{"x":0,"y":0},"size":{"x":20,"y":20},"zIndex":0,"config":{"layoutDirection":"diagonal"}}]}`, ErrSchema},
		{"dangling parent", `{"id":"d","name":"x","nodes":[{"id":"a","componentId":"c","parentId":"p","position":{"x":0,"y":0},"size":{"x":20,"y":20},"zIndex":0,"config":{}}]}`, scene.ErrUnknownNode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateManifest([]byte(tc.data))
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

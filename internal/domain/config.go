/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Layout directions understood by the container layout engine.
const (
	DirectionHorizontal = "horizontal"
	DirectionVertical   = "vertical"
)

// Container layout defaults, applied when a config carries at least one
// layout key but not all of them.
const (
	DefaultPadding   = 16
	DefaultGap       = 12
	DefaultDirection = DirectionVertical
)

// Persisted config keys of the container layout parameters.
const (
	keyDirection = "layoutDirection"
	keyPadding   = "padding"
	keyGap       = "gap"
	keyWrap      = "wrap"
)

var layoutKeys = []string{keyDirection, keyPadding, keyGap, keyWrap}

// ContainerLayout holds the parameters of the flow layout.
type ContainerLayout struct {
	Direction string
	Padding   float64
	Gap       float64
	Wrap      bool
}

// DefaultContainerLayout returns the layout used when no key is given.
func DefaultContainerLayout() ContainerLayout {
	return ContainerLayout{Direction: DefaultDirection, Padding: DefaultPadding, Gap: DefaultGap}
}

// Horizontal reports whether children flow left to right. Any value other
// than "horizontal" flows top to bottom.
func (l ContainerLayout) Horizontal() bool { return l.Direction == DirectionHorizontal }

// Config is a node's configuration. Layout is set for containers; every
// other key is widget specific and stays opaque to the canvas.
type Config struct {
	Layout *ContainerLayout
	Widget map[string]json.RawMessage
}

// LayoutOrDefault returns the container layout or the defaults.
func (c Config) LayoutOrDefault() ContainerLayout {
	if c.Layout == nil {
		return DefaultContainerLayout()
	}
	return *c.Layout
}

func (c Config) Clone() Config {
	out := Config{}
	if c.Layout != nil {
		l := *c.Layout
		out.Layout = &l
	}
	if c.Widget != nil {
		out.Widget = make(map[string]json.RawMessage, len(c.Widget))
		for k, v := range c.Widget {
			out.Widget[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// WidgetKeys lists the opaque keys in sorted order.
func (c Config) WidgetKeys() []string {
	keys := make([]string, 0, len(c.Widget))
	for k := range c.Widget {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens layout parameters and widget keys into one object.
func (c Config) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Widget)+len(layoutKeys))
	for k, v := range c.Widget {
		m[k] = v
	}
	if c.Layout != nil {
		m[keyDirection] = c.Layout.Direction
		m[keyPadding] = c.Layout.Padding
		m[keyGap] = c.Layout.Gap
		m[keyWrap] = c.Layout.Wrap
	}
	return json.Marshal(m)
}

// UnmarshalJSON splits the flat object back into layout and widget parts.
func (c *Config) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	*c = Config{}
	var layout *ContainerLayout
	for _, k := range layoutKeys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		delete(raw, k)
		if layout == nil {
			l := DefaultContainerLayout()
			layout = &l
		}
		var err error
		switch k {
		case keyDirection:
			err = json.Unmarshal(v, &layout.Direction)
		case keyPadding:
			err = json.Unmarshal(v, &layout.Padding)
		case keyGap:
			err = json.Unmarshal(v, &layout.Gap)
		case keyWrap:
			err = json.Unmarshal(v, &layout.Wrap)
		}
		if err != nil {
			return fmt.Errorf("config %s: %w", k, err)
		}
	}
	c.Layout = layout
	if len(raw) > 0 {
		c.Widget = raw
	}
	return nil
}

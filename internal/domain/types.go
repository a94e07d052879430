/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Data model of a faceplate layout document. Everything here serializes to
// the human-readable faceplate.json manifest.

import (
	"encoding/json"
	"fmt"

	"faceplate/internal/vector"
)

// DefaultGrid is the canvas grid cell size in px. It is also the minimum
// width and height of a node.
const DefaultGrid = 20

// Document is a faceplate: a canvas of bound widgets.
type Document struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Grid     float64      `json:"grid"`
	Width    float64      `json:"width,omitempty"`
	Height   float64      `json:"height,omitempty"`
	Metadata Metadata     `json:"metadata,omitempty"`
	Nodes    []CanvasNode `json:"nodes"`
}

// Metadata contains optional descriptive metadata for a document.
type Metadata struct {
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// GridSize returns the configured cell size or DefaultGrid.
func (d *Document) GridSize() float64 {
	if d.Grid <= 0 {
		return DefaultGrid
	}
	return d.Grid
}

// Vec2 is a persisted 2D value (position or size).
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Pt() vector.Pt   { return vector.Pt{X: v.X, Y: v.Y} }
func FromPt(p vector.Pt) Vec2  { return Vec2{X: p.X, Y: p.Y} }
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Clamp0() Vec2    { return FromPt(v.Pt().ClampNonNegative()) }
func (v Vec2) String() string  { return fmt.Sprintf("(%g, %g)", v.X, v.Y) }

// NonNegative reports whether both components are >= 0.
func (v Vec2) NonNegative() bool { return v.X >= 0 && v.Y >= 0 }

// CanvasNode is one widget instance placed on the canvas.
// Position is relative to the parent's top-left corner, or to the canvas
// origin for root nodes.
type CanvasNode struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ComponentID string   `json:"componentId"`
	Position    Vec2     `json:"position"`
	Size        Vec2     `json:"size"`
	ParentID    string   `json:"parentId,omitempty"`
	Children    []string `json:"children,omitempty"`
	ZIndex      int      `json:"zIndex"`
	Locked      bool     `json:"locked,omitempty"`
	Hidden      bool     `json:"hidden,omitempty"`
	Config      Config   `json:"config"`
}

// IsContainer reports whether the node can hold children.
func (n *CanvasNode) IsContainer() bool {
	return n.Children != nil || n.Config.Layout != nil
}

// MarshalJSON writes children as [] for an empty container so the node
// still reads back as a container. Leaves omit the key.
func (n CanvasNode) MarshalJSON() ([]byte, error) {
	type plain CanvasNode
	out := struct {
		plain
		Children *[]string `json:"children,omitempty"`
	}{plain: plain(n)}
	if n.Children != nil {
		kids := n.Children
		out.Children = &kids
	}
	return json.Marshal(out)
}

// Rect is the node's rectangle in its own coordinate space.
func (n *CanvasNode) Rect() vector.Rect {
	return vector.R(n.Position.X, n.Position.Y, n.Size.X, n.Size.Y)
}

// Clone returns a deep copy.
func (n CanvasNode) Clone() CanvasNode {
	out := n
	if n.Children != nil {
		out.Children = append([]string{}, n.Children...)
	}
	out.Config = n.Config.Clone()
	return out
}

// NodePosition is a position write-back produced by a drag.
type NodePosition struct {
	ID       string `json:"id"`
	Position Vec2   `json:"position"`
}

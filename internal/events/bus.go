/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package events carries pointer input into the canvas and canvas
// notifications out of it.
package events

import "faceplate/internal/vector"

// Phase of a pointer event.
type Phase int

const (
	PointerDown Phase = iota
	PointerMove
	PointerUp
)

func (p Phase) String() string {
	switch p {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	}
	return "unknown"
}

// Modifiers held during a pointer event.
type Modifiers struct {
	Shift bool
	Ctrl  bool
	Meta  bool
}

// Multi reports whether any multi-select modifier is held.
func (m Modifiers) Multi() bool { return m.Shift || m.Ctrl || m.Meta }

// PointerEvent is a pointer sample. Pos is in the coordinate space of the
// publisher: screen space on the Bus, canvas space inside the canvas.
type PointerEvent struct {
	Phase Phase
	Pos   vector.Pt
	Mods  Modifiers
	// Target is the id of the node under the pointer on down, "" for the
	// canvas background.
	Target string
}

type handler struct {
	id uint32
	fn func(PointerEvent)
}

// Bus delivers window-level pointer move/up events to whoever currently
// holds a subscription. It is not safe for concurrent use; hosts publish
// from their UI thread.
type Bus struct {
	nextID   uint32
	handlers []handler
}

// Subscribe registers fn until the returned subscription is cancelled.
func (b *Bus) Subscribe(fn func(PointerEvent)) Subscription {
	b.nextID++
	b.handlers = append(b.handlers, handler{id: b.nextID, fn: fn})
	return Subscription{id: b.nextID, bus: b}
}

// Publish delivers ev to every subscriber registered at call time, in
// subscription order. Handlers may cancel their subscription while running.
func (b *Bus) Publish(ev PointerEvent) {
	hs := append([]handler(nil), b.handlers...)
	for _, h := range hs {
		if b.live(h.id) {
			h.fn(ev)
		}
	}
}

// Active is the number of live subscriptions.
func (b *Bus) Active() int { return len(b.handlers) }

func (b *Bus) live(id uint32) bool {
	for _, h := range b.handlers {
		if h.id == id {
			return true
		}
	}
	return false
}

// Subscription is a handle to a Bus registration. The zero value is inert.
type Subscription struct {
	id  uint32
	bus *Bus
}

// Cancel unregisters the handler. Calling it more than once is harmless.
func (s Subscription) Cancel() {
	if s.bus == nil {
		return
	}
	hs := s.bus.handlers
	for i, h := range hs {
		if h.id == s.id {
			s.bus.handlers = append(hs[:i:i], hs[i+1:]...)
			return
		}
	}
}

// Valid reports whether the subscription was issued by a bus.
func (s Subscription) Valid() bool { return s.bus != nil }

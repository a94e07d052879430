/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"faceplate/internal/domain"
	"faceplate/internal/events"
	"faceplate/internal/layers"
	"faceplate/internal/layout"
	"faceplate/internal/session"
	"faceplate/internal/storage"
	"faceplate/internal/vector"
)

func (a *app) openSession(dir string) (*session.Session, error) {
	return session.Open(absDir(dir), session.Options{
		Config:           a.cfg,
		Telemetry:        a.tel,
		PersistSnapshots: true,
		Log:              a.log,
	})
}

func (a *app) newInitCmd() *cobra.Command {
	var width, height, grid float64
	cmd := &cobra.Command{
		Use:   "init <dir> <name>",
		Short: "Create a new faceplate document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := absDir(args[0])
			if grid <= 0 {
				grid = a.cfg.Canvas.GridSize
			}
			a.log.Info("init document", slog.String("root", root), slog.String("name", args[1]))
			h, err := storage.InitDocument(root, domain.Document{Name: args[1], Grid: grid, Width: width, Height: height})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s) at %s\n", h.Document.Name, h.Document.ID, root)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "canvas width in px (0 = fit content)")
	cmd.Flags().Float64Var(&height, "height", 0, "canvas height in px (0 = fit content)")
	cmd.Flags().Float64Var(&grid, "grid", 0, "grid size in px (default from config)")
	return cmd
}

func (a *app) newOpenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <dir>",
		Short: "Open a document and print a summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Document: %s (%s)\n", h.Document.Name, h.Document.ID)
			fmt.Fprintf(out, "Grid: %g\n", h.Document.GridSize())
			fmt.Fprintf(out, "Nodes: %d\n", len(h.Document.Nodes))
			if h.Recovered {
				fmt.Fprintln(out, "Recovered: from latest backup")
			}
			return nil
		},
	}
}

func (a *app) newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <dir>",
		Short: "Print the layer tree, bottom to top within each level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			rows := layers.Flatten(layers.BuildTree(h.Document.Nodes), func(string) bool { return true })
			for _, r := range rows {
				flags := ""
				if r.Hidden {
					flags += " hidden"
				}
				if r.Locked {
					flags += " locked"
				}
				if r.Container {
					flags += " container"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s%s [%s]%s\n", strings.Repeat("  ", r.Depth), r.Name, r.ID, flags)
			}
			return nil
		},
	}
}

func (a *app) newLayoutCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "layout <dir>",
		Short: "Print resolved absolute rectangles of visible nodes in paint order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			mode := layout.Edit
			if live {
				mode = layout.Live
			}
			for _, b := range layout.Resolve(h.Document.Nodes, mode).Visible() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%g,%g\t%gx%g\n", b.ID, b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "use stored child positions instead of flow layout")
	return cmd
}

func (a *app) newPlaceCmd() *cobra.Command {
	var (
		n         domain.CanvasNode
		x, y      float64
		w, h      float64
		container bool
	)
	cmd := &cobra.Command{
		Use:   "place <dir> <componentId>",
		Short: "Place a new node from the palette and save",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			n.ComponentID = args[1]
			n.Position, n.Size = domain.V(x, y), domain.V(w, h)
			if container {
				lay := a.cfg.Layout.ContainerLayout()
				n.Config.Layout = &lay
				n.Children = []string{}
			}
			placed, err := s.Canvas.Place(n)
			if err != nil {
				return err
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Placed %s at %g,%g\n", placed.ID, placed.Position.X, placed.Position.Y)
			return nil
		},
	}
	cmd.Flags().StringVar(&n.ID, "id", "", "node id (generated when empty)")
	cmd.Flags().StringVar(&n.Name, "name", "", "display name")
	cmd.Flags().StringVar(&n.ParentID, "parent", "", "container to place into")
	cmd.Flags().Float64Var(&x, "x", 0, "x position in px")
	cmd.Flags().Float64Var(&y, "y", 0, "y position in px")
	cmd.Flags().Float64Var(&w, "w", 80, "width in px")
	cmd.Flags().Float64Var(&h, "h", 40, "height in px")
	cmd.Flags().BoolVar(&container, "container", false, "make the node a flow layout container")
	return cmd
}

// move replays a pointer drag on the node's centre so the same snapping
// and drop rules apply as in the editor.
func (a *app) newMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <dir> <id> <dx> <dy>",
		Short: "Drag a node by a delta and save",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			dx, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("dx: %w", err)
			}
			dy, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("dy: %w", err)
			}
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			b, ok := s.Canvas.Resolved().Box(args[1])
			if !ok || !b.Visible {
				return fmt.Errorf("node %q not found or hidden", args[1])
			}
			from := vector.Pt{X: b.Rect.X + b.Rect.W/2, Y: b.Rect.Y + b.Rect.H/2}
			to := vector.Pt{X: from.X + dx, Y: from.Y + dy}
			if !s.Canvas.PointerDown(from, events.Modifiers{}) {
				return fmt.Errorf("node %q cannot be dragged", args[1])
			}
			s.Canvas.Bus().Publish(events.PointerEvent{Phase: events.PointerMove, Pos: to})
			s.Canvas.Bus().Publish(events.PointerEvent{Phase: events.PointerUp, Pos: to})
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			n, _ := s.Canvas.Collection().Get(args[1])
			parent := n.ParentID
			if parent == "" {
				parent = "(root)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %g,%g in %s\n", n.ID, n.Position.X, n.Position.Y, parent)
			return nil
		},
	}
}

func (a *app) newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <dir> <id>...",
		Short: "Remove nodes with their descendants and save",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			removed := s.Canvas.Remove(args[1:]...)
			if len(removed) == 0 {
				return fmt.Errorf("no such nodes: %s", strings.Join(args[1:], ", "))
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", strings.Join(removed, ", "))
			return nil
		},
	}
}

func (a *app) newResizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resize <dir> <id> <w> <h>",
		Short: "Resize a node (clamped to one grid cell) and save",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("w: %w", err)
			}
			h, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				return fmt.Errorf("h: %w", err)
			}
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			if err := s.Canvas.ResizeNode(args[1], domain.V(w, h)); err != nil {
				return err
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			n, _ := s.Canvas.Collection().Get(args[1])
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %gx%g\n", n.ID, n.Size.X, n.Size.Y)
			return nil
		},
	}
}

func (a *app) newLockCmd() *cobra.Command {
	var unlock bool
	cmd := &cobra.Command{
		Use:   "lock <dir> <id>...",
		Short: "Lock nodes against dragging (or unlock with --off) and save",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openSession(args[0])
			if err != nil {
				return err
			}
			for _, id := range args[1:] {
				if err := s.Canvas.SetLocked(id, !unlock); err != nil {
					return err
				}
			}
			if !s.Dirty() {
				fmt.Fprintln(cmd.OutOrStdout(), "Unchanged")
				return nil
			}
			if err := s.Save(cmd.Context()); err != nil {
				return err
			}
			state := "Locked"
			if unlock {
				state = "Unlocked"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, strings.Join(args[1:], ", "))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlock, "off", false, "unlock instead")
	return cmd
}

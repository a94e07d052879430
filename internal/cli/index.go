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
	"time"

	"github.com/spf13/cobra"

	"faceplate/internal/domain"
	"faceplate/internal/storage"
)

func (a *app) newIndexCmd() *cobra.Command {
	var (
		f              storage.NodeFilter
		parent         string
		hidden, locked string
	)
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Rebuild the node index and query it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			if err := storage.RebuildIndex(cmd.Context(), h.Root, h.Document); err != nil {
				return err
			}
			if cmd.Flags().Changed("parent") {
				f.ParentID = &parent
			}
			if f.Hidden, err = triState(hidden); err != nil {
				return err
			}
			if f.Locked, err = triState(locked); err != nil {
				return err
			}
			rows, err := storage.QueryNodes(cmd.Context(), h.Root, f)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\tdepth=%d z=%d\t%g,%g %gx%g\n",
					r.ID, r.Name, r.ComponentID, r.Depth, r.ZIndex, r.Rect.X, r.Rect.Y, r.Rect.W, r.Rect.H)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.ComponentID, "component", "", "filter by component id")
	cmd.Flags().StringVar(&parent, "parent", "", "filter by parent id (empty string for roots)")
	cmd.Flags().StringVar(&f.NamePrefix, "name", "", "filter by name prefix")
	cmd.Flags().StringVar(&hidden, "hidden", "", "true or false")
	cmd.Flags().StringVar(&locked, "locked", "", "true or false")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum rows (0 = all)")
	return cmd
}

func triState(s string) (*bool, error) {
	switch s {
	case "":
		return nil, nil
	case "true":
		v := true
		return &v, nil
	case "false":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("want true or false, got %q", s)
}

func (a *app) newSnapshotsCmd() *cobra.Command {
	var limit int
	var prune int
	cmd := &cobra.Command{
		Use:   "snapshots <dir>",
		Short: "List persisted undo snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			if prune > 0 {
				n, err := storage.PruneOldSnapshots(cmd.Context(), h, prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d\n", n)
			}
			list, err := storage.ListSnapshots(cmd.Context(), h, limit)
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d bytes\n", s.TS.Format(time.RFC3339), len(s.Blob))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum snapshots to list")
	cmd.Flags().IntVar(&prune, "keep", 0, "prune to the newest N before listing")
	return cmd
}

func (a *app) newWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Revalidate the document whenever its manifest changes on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := absDir(args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Watching", root)
			return storage.Watch(cmd.Context(), root, debounce, func(doc domain.Document, err error) {
				if err != nil {
					a.log.Warn("invalid document on disk", slog.Any("err", err))
					fmt.Fprintln(out, "invalid:", err)
					return
				}
				fmt.Fprintf(out, "reloaded %q: %d nodes\n", doc.Name, len(doc.Nodes))
				if err := storage.RebuildIndex(cmd.Context(), root, doc); err != nil {
					a.log.Warn("rebuild index", slog.Any("err", err))
				}
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", storage.DefaultWatchDebounce, "quiet period before reloading")
	return cmd
}

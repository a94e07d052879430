/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layers builds the hierarchical layer panel and turns row drops
// into guarded reparent operations.
package layers

import (
	"sort"

	"faceplate/internal/domain"
)

// TreeNode is one entry of the layer tree.
type TreeNode struct {
	Node     domain.CanvasNode
	Children []*TreeNode
}

// BuildTree returns the root entries with children resolved to live
// records. Siblings are ordered by ascending zIndex, ties keep list order.
// Child ids that do not resolve, or whose record points to another parent,
// are skipped.
func BuildTree(nodes []domain.CanvasNode) []*TreeNode {
	byID := make(map[string]domain.CanvasNode, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	seen := make(map[string]bool, len(nodes))
	var build func(n domain.CanvasNode) *TreeNode
	build = func(n domain.CanvasNode) *TreeNode {
		seen[n.ID] = true
		tn := &TreeNode{Node: n}
		var kids []domain.CanvasNode
		for _, cid := range n.Children {
			if c, ok := byID[cid]; ok && c.ParentID == n.ID && !seen[cid] {
				kids = append(kids, c)
			}
		}
		sortByZ(kids)
		for _, k := range kids {
			if !seen[k.ID] {
				tn.Children = append(tn.Children, build(k))
			}
		}
		return tn
	}

	var roots []domain.CanvasNode
	for _, n := range nodes {
		if n.ParentID == "" {
			roots = append(roots, n)
		}
	}
	sortByZ(roots)
	out := make([]*TreeNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}

// Row is a flattened, visible line of the layer panel.
type Row struct {
	ID        string
	Name      string
	Depth     int
	Container bool
	Expanded  bool
	Hidden    bool
	Locked    bool
}

// Flatten walks the tree top to bottom, descending only into expanded
// containers.
func Flatten(tree []*TreeNode, expanded func(id string) bool) []Row {
	var rows []Row
	var walk func(ts []*TreeNode, depth int)
	walk = func(ts []*TreeNode, depth int) {
		for _, t := range ts {
			open := t.Node.IsContainer() && expanded(t.Node.ID)
			rows = append(rows, Row{
				ID:        t.Node.ID,
				Name:      t.Node.Name,
				Depth:     depth,
				Container: t.Node.IsContainer(),
				Expanded:  open,
				Hidden:    t.Node.Hidden,
				Locked:    t.Node.Locked,
			})
			if open {
				walk(t.Children, depth+1)
			}
		}
	}
	walk(tree, 0)
	return rows
}

func sortByZ(ns []domain.CanvasNode) {
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].ZIndex < ns[j].ZIndex })
}

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
	"os"
	"strings"

	"github.com/spf13/cobra"

	"faceplate/internal/export"
	"faceplate/internal/storage"
)

func (a *app) newExportCmd() *cobra.Command {
	var (
		format string
		out    string
		opt    export.Options
	)
	cmd := &cobra.Command{
		Use:   "export <dir>",
		Short: "Export a wireframe of the resolved layout (svg, png or pdf)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			format = strings.ToLower(strings.TrimSpace(format))
			if out == "" {
				out = "wireframe." + format
			}
			var path string
			switch format {
			case "svg":
				path, err = export.ExportSVG(h, out, opt)
			case "png":
				path, err = export.ExportPNG(h, out, opt)
			case "pdf":
				path, err = export.ExportPDF(h, out, opt)
			default:
				return fmt.Errorf("unknown format %q (want svg, png or pdf)", format)
			}
			if err != nil {
				return err
			}
			a.tel.Event("export", map[string]any{"format": format})
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "output format: svg, png or pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (relative paths go to <dir>/exports)")
	cmd.Flags().Float64Var(&opt.Scale, "scale", 1, "output units per canvas px")
	cmd.Flags().BoolVar(&opt.Labels, "labels", true, "draw node names")
	cmd.Flags().BoolVar(&opt.Grid, "grid", false, "draw the document grid")
	cmd.Flags().StringSliceVar(&opt.Highlight, "highlight", nil, "node ids to outline in the highlight colour")
	return cmd
}

func (a *app) newYAMLCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "yaml",
		Short: "Convert documents to and from YAML",
	}
	var out string
	exp := &cobra.Command{
		Use:   "export <dir>",
		Short: "Write the document as YAML (stdout when --out is empty)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			b, err := storage.ExportYAML(h.Document)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			return os.WriteFile(out, b, 0o644)
		},
	}
	exp.Flags().StringVarP(&out, "out", "o", "", "output file")

	imp := &cobra.Command{
		Use:   "import <dir> <file.yaml>",
		Short: "Replace the document at <dir> with a validated YAML document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			doc, err := storage.ImportYAML(b)
			if err != nil {
				return err
			}
			root := absDir(args[0])
			h, err := storage.Open(root)
			if err != nil {
				h, err = storage.InitDocument(root, doc)
				if err != nil {
					return err
				}
			} else {
				if doc.ID == "" {
					doc.ID = h.Document.ID
				}
				h.Document = doc
				if err := storage.Save(h); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %q with %d nodes\n", h.Document.Name, len(h.Document.Nodes))
			return nil
		},
	}
	cmd.AddCommand(exp, imp)
	return cmd
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"faceplate/internal/backend"
	"faceplate/internal/config"
	"faceplate/internal/storage"
	"faceplate/internal/ui"
)

func (a *app) newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui [dir]",
		Short: "Launch the desktop builder (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = absDir(args[0])
			}
			return ui.Run(dir)
		},
	}
}

func (a *app) newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the shared faceplate library server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.General.EnableServer {
				return fmt.Errorf("server disabled; set general.enable_server or %s=true", config.EnvEnableServer)
			}
			cfg := backend.LoadConfig()
			if addr != "" {
				cfg.Addr = addr
			}
			return backend.Start(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from ADDR/PORT or :8080)")
	return cmd
}

func (a *app) client() *backend.Client {
	return backend.NewClientFromConfig(a.cfg.Backend, a.token)
}

func (a *app) newLoginCmd() *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Request a backend token and store it in the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := a.client()
			tr, err := c.RequestToken(cmd.Context(), subject, ttl)
			if err != nil {
				return err
			}
			if err := config.Save(a.cfg, tr.Token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged in; token expires", tr.ExpiresAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "dev", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func (a *app) newPublishCmd() *cobra.Command {
	var base int64
	cmd := &cobra.Command{
		Use:   "publish <dir>",
		Short: "Publish the document to the shared library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := storage.Open(absDir(args[0]))
			if err != nil {
				return err
			}
			v, err := a.client().PublishDocument(cmd.Context(), h.Document, base)
			if errors.Is(err, backend.ErrConflict) {
				return fmt.Errorf("%w: pull the latest version first", err)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Published %s as version %d\n", h.Document.ID, v)
			return nil
		},
	}
	cmd.Flags().Int64Var(&base, "base", -1, "expected current server version (-1 = unconditional)")
	return cmd
}

func (a *app) newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <id> <dir>",
		Short: "Fetch the latest published version into <dir>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.client().GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			root := absDir(args[1])
			h, err := storage.Open(root)
			if err != nil {
				if h, err = storage.InitDocument(root, p.Document); err != nil {
					return err
				}
			} else {
				h.Document = p.Document
				if err := storage.Save(h); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pulled %s version %d into %s\n", p.Document.ID, p.Version, h.Root)
			return nil
		},
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli implements the faceplate command tree.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"faceplate/internal/config"
	applog "faceplate/internal/log"
	"faceplate/internal/telemetry"
	"faceplate/internal/version"
)

// app carries state shared by all commands of one invocation.
type app struct {
	cfg     config.AppConfig
	token   string
	verbose bool
	log     *slog.Logger
	tel     *telemetry.Client
	// logOut overrides the console log writer; tests set it.
	logOut io.Writer
}

// Execute runs the command tree with os.Args.
func Execute(ctx context.Context) error {
	return NewRoot(nil).ExecuteContext(ctx)
}

// NewRoot builds the root command. logOut defaults to stderr.
func NewRoot(logOut io.Writer) *cobra.Command {
	a := &app{logOut: logOut}
	root := &cobra.Command{
		Use:           "faceplate",
		Short:         "Faceplate Builder: compose widget faceplates on a grid canvas",
		Version:       version.String(),
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.tel != nil {
				a.tel.Flush(cmd.Context())
				a.tel.Close()
			}
		},
	}
	root.SetVersionTemplate("faceplate {{.Version}}\n")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newOpenCmd(),
		a.newTreeCmd(),
		a.newLayoutCmd(),
		a.newPlaceCmd(),
		a.newMoveCmd(),
		a.newRemoveCmd(),
		a.newResizeCmd(),
		a.newLockCmd(),
		a.newExportCmd(),
		a.newYAMLCmd(),
		a.newIndexCmd(),
		a.newSnapshotsCmd(),
		a.newWatchCmd(),
		a.newUICmd(),
		a.newServeCmd(),
		a.newLoginCmd(),
		a.newPublishCmd(),
		a.newPullCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, token, err := config.Load()
	a.cfg, a.token = cfg, token
	opts := applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Output:    a.logOut,
	}
	if a.verbose {
		opts.Level = "debug"
	}
	applog.Init(opts)
	a.log = applog.WithComponent("cli")
	if err != nil {
		a.log.Warn("config load failed; using defaults", slog.Any("err", err))
	}
	a.tel = telemetry.New(telemetry.FromEnv().WithOptIn(cfg.General.TelemetryOptIn))
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "faceplate", version.String())
			return err
		},
	}
}

func absDir(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	return abs
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"faceplate/internal/domain"
)

// AppConfig is the user configuration persisted as YAML in the user scope.
// Environment variables override it at runtime and are never written back.
// Bump ConfigVersion on backward-incompatible changes.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Layout        LayoutConfig  `yaml:"layout"`
	Storage       StorageConfig `yaml:"storage"`
	Backend       BackendConfig `yaml:"backend"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	EnableServer   bool   `yaml:"enable_server"`
}

// CanvasConfig holds editor surface settings.
type CanvasConfig struct {
	GridSize       float64 `yaml:"grid_size"`
	Zoom           float64 `yaml:"zoom"`
	SmartGuides    bool    `yaml:"smart_guides"`
	GuideThreshold float64 `yaml:"guide_threshold"`
	LiveMode       bool    `yaml:"live_mode"`
}

// LayoutConfig is applied to newly placed containers.
type LayoutConfig struct {
	Direction string  `yaml:"direction"`
	Padding   float64 `yaml:"padding"`
	Gap       float64 `yaml:"gap"`
	Wrap      bool    `yaml:"wrap"`
}

// ContainerLayout converts the settings to the document type.
func (l LayoutConfig) ContainerLayout() domain.ContainerLayout {
	return domain.ContainerLayout{Direction: l.Direction, Padding: l.Padding, Gap: l.Gap, Wrap: l.Wrap}
}

type StorageConfig struct {
	KeepBackups   int `yaml:"keep_backups"`
	KeepSnapshots int `yaml:"keep_snapshots"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// The API token lives in the OS keychain, never in this file.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Canvas:        CanvasConfig{GridSize: domain.DefaultGrid, Zoom: 1, SmartGuides: true, GuideThreshold: 6},
		Layout:        LayoutConfig{Direction: domain.DefaultDirection, Padding: domain.DefaultPadding, Gap: domain.DefaultGap},
		Storage:       StorageConfig{KeepBackups: 10, KeepSnapshots: 50},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "FPB_CONFIG_DIR"
	EnvBackendURL       = "FPB_BACKEND_URL"
	EnvBackendTimeoutMs = "FPB_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "FPB_TLS_INSECURE"
	EnvTelemetryOptIn   = "FPB_TELEMETRY_OPT_IN"
	EnvEnableServer     = "FPB_ENABLE_SERVER"
	EnvGridSize         = "FPB_GRID_SIZE"
	EnvLogLevel         = "FPB_LOG_LEVEL"
	EnvLogFormat        = "FPB_LOG_FORMAT"
	EnvLogSource        = "FPB_LOG_SOURCE"
	EnvLogFile          = "FPB_LOG_FILE"
)

// ConfigPath returns the per-user config file path. FPB_CONFIG_DIR wins
// over the OS user config directory.
func ConfigPath() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvConfigDir)); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "faceplate", "config.yaml"), nil
}

// Load reads the user config file if present, applies defaults and env
// overrides, and fetches the backend token from the keychain.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFrom(path)
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, err
}

// LoadFrom is Load for an explicit file without the keychain lookup. A
// missing file is not an error; a malformed one is reported but defaults
// and env overrides are still returned.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		loadErr = fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, loadErr
}

// Save writes the user config YAML and stores a non-empty token in the
// OS keychain.
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := SaveTo(path, cfg); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans come straight from the file so user choices persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer

	if src.Canvas.GridSize > 0 {
		dst.Canvas.GridSize = src.Canvas.GridSize
	}
	if src.Canvas.Zoom > 0 {
		dst.Canvas.Zoom = src.Canvas.Zoom
	}
	if src.Canvas.GuideThreshold > 0 {
		dst.Canvas.GuideThreshold = src.Canvas.GuideThreshold
	}
	dst.Canvas.SmartGuides = src.Canvas.SmartGuides
	dst.Canvas.LiveMode = src.Canvas.LiveMode

	if d := strings.ToLower(strings.TrimSpace(src.Layout.Direction)); d == domain.DirectionHorizontal || d == domain.DirectionVertical {
		dst.Layout.Direction = d
	}
	if src.Layout.Padding > 0 {
		dst.Layout.Padding = src.Layout.Padding
	}
	if src.Layout.Gap > 0 {
		dst.Layout.Gap = src.Layout.Gap
	}
	dst.Layout.Wrap = src.Layout.Wrap

	if src.Storage.KeepBackups > 0 {
		dst.Storage.KeepBackups = src.Storage.KeepBackups
	}
	if src.Storage.KeepSnapshots > 0 {
		dst.Storage.KeepSnapshots = src.Storage.KeepSnapshots
	}

	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func envBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	env := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }
	if v := env(EnvBackendURL); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := env(EnvBackendTimeoutMs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := env(EnvBackendTLSInsec); v != "" {
		cfg.Backend.TLSInsecure = envBool(v)
	}
	if v := env(EnvTelemetryOptIn); v != "" {
		cfg.General.TelemetryOptIn = envBool(v)
	}
	if v := env(EnvEnableServer); v != "" {
		cfg.General.EnableServer = envBool(v)
	}
	if v := env(EnvGridSize); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Canvas.GridSize = f
		}
	}
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = envBool(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

var overrideKeys = map[string]string{
	"backend.base_url":         EnvBackendURL,
	"backend.timeout_ms":       EnvBackendTimeoutMs,
	"backend.tls_insecure":     EnvBackendTLSInsec,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.enable_server":    EnvEnableServer,
	"canvas.grid_size":         EnvGridSize,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name when the dotted config key is
// currently overridden from the environment.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := overrideKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend timeout, falling back to the default.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Package config provides configuration types and defaults for gridcore.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zjrosen/gridcore/internal/clipboard"
	"github.com/zjrosen/gridcore/internal/log"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration options for gridcore.
type Config struct {
	AllowSelection bool            `mapstructure:"allow_selection"`
	StartRowNumber int             `mapstructure:"start_row_number"`
	ReadOnly       bool            `mapstructure:"read_only"`
	Watch          bool            `mapstructure:"watch"`
	WatchDebounce  time.Duration   `mapstructure:"watch_debounce"`
	Theme          ThemeConfig     `mapstructure:"theme"`
	Clipboard      ClipboardConfig `mapstructure:"clipboard"`
	Columns        ColumnsConfig   `mapstructure:"columns"`
	Log            LogConfig       `mapstructure:"log"`
}

// ThemeConfig holds all theme customization options.
type ThemeConfig struct {
	// Preset loads a built-in theme as the base (optional).
	// Valid values: "default", "nord", "high-contrast"
	Preset string `mapstructure:"preset"`

	// Highlight is the background of selected cells, e.g. "#3B4252".
	Highlight string `mapstructure:"highlight"`

	// Colors allows overriding individual color tokens.
	// Supports both nested YAML structure and dot notation.
	// Example YAML:
	//   colors:
	//     selection:
	//       background: "#FF0000"
	// Or quoted dot notation:
	//   colors:
	//     "selection.background": "#FF0000"
	Colors map[string]any `mapstructure:"colors"`
}

// FlattenedColors returns the Colors map flattened to dot-notation keys.
// This handles both nested YAML structures and already-flat keys.
func (t ThemeConfig) FlattenedColors() map[string]string {
	result := make(map[string]string)
	flattenColors("", t.Colors, result)
	return result
}

// flattenColors recursively flattens a nested map into dot-notation keys.
func flattenColors(prefix string, m map[string]any, result map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}

		switch val := v.(type) {
		case string:
			result[key] = val
		case map[string]any:
			flattenColors(key, val, result)
		case map[any]any:
			// YAML sometimes produces map[any]any instead of map[string]any
			converted := make(map[string]any, len(val))
			for mk, mv := range val {
				if strKey, ok := mk.(string); ok {
					converted[strKey] = mv
				}
			}
			flattenColors(key, converted, result)
		}
	}
}

// ClipboardConfig selects the copy formats and the system clipboard fallback.
type ClipboardConfig struct {
	// Formats are exported in order. Valid values: "tsv", "csv", "html", "json"
	Formats []string `mapstructure:"formats"`

	// OSC52 writes the copied text to the terminal when the OS clipboard is
	// unavailable (e.g. over SSH).
	OSC52 bool `mapstructure:"osc52"`
}

// ColumnsConfig holds column sizing and per-table column hints.
type ColumnsConfig struct {
	MinWidth int `mapstructure:"min_width"`
	MaxWidth int `mapstructure:"max_width"`

	// Widths maps a table name to its saved column widths. Viper lowercases
	// map keys, so table names are matched case-insensitively.
	Widths map[string][]int `mapstructure:"widths"`

	// JSON maps a table name to the columns validated as JSON when edited.
	JSON map[string][]string `mapstructure:"json"`
}

// WidthsFor returns the saved widths of a table, or nil.
func (c ColumnsConfig) WidthsFor(table string) []int {
	return c.Widths[strings.ToLower(table)]
}

// IsJSON reports whether a column of a table holds JSON text.
func (c ColumnsConfig) IsJSON(table, column string) bool {
	for _, name := range c.JSON[strings.ToLower(table)] {
		if strings.EqualFold(name, column) {
			return true
		}
	}
	return false
}

// LogConfig controls the debug log written with --debug.
type LogConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"` // "debug" (default), "info", "warn", "error"
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		AllowSelection: true,
		StartRowNumber: 1,
		WatchDebounce:  200 * time.Millisecond,
		Theme: ThemeConfig{
			Preset: "default",
		},
		Clipboard: ClipboardConfig{
			Formats: []string{"tsv"},
			OSC52:   true,
		},
		Columns: ColumnsConfig{
			MinWidth: 3,
			MaxWidth: 40,
		},
		Log: LogConfig{
			File:  "debug.log",
			Level: "debug",
		},
	}
}

// SetDefaults registers Defaults with v so unset keys keep their default.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("allow_selection", d.AllowSelection)
	v.SetDefault("start_row_number", d.StartRowNumber)
	v.SetDefault("read_only", d.ReadOnly)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("watch_debounce", d.WatchDebounce)
	v.SetDefault("theme.preset", d.Theme.Preset)
	v.SetDefault("clipboard.formats", d.Clipboard.Formats)
	v.SetDefault("clipboard.osc52", d.Clipboard.OSC52)
	v.SetDefault("columns.min_width", d.Columns.MinWidth)
	v.SetDefault("columns.max_width", d.Columns.MaxWidth)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and resolves configured names.
func Validate(cfg Config) error {
	if cfg.StartRowNumber < 0 {
		return fmt.Errorf("%w: start_row_number must not be negative, got %d", ErrInvalid, cfg.StartRowNumber)
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("%w: watch_debounce must not be negative, got %s", ErrInvalid, cfg.WatchDebounce)
	}
	if cfg.Columns.MinWidth < 1 {
		return fmt.Errorf("%w: columns.min_width must be at least 1, got %d", ErrInvalid, cfg.Columns.MinWidth)
	}
	if cfg.Columns.MaxWidth < cfg.Columns.MinWidth {
		return fmt.Errorf("%w: columns.max_width %d is less than min_width %d",
			ErrInvalid, cfg.Columns.MaxWidth, cfg.Columns.MinWidth)
	}
	for table, widths := range cfg.Columns.Widths {
		for i, w := range widths {
			if w < 1 {
				return fmt.Errorf("%w: columns.widths.%s[%d] must be positive, got %d", ErrInvalid, table, i, w)
			}
		}
	}
	if len(cfg.Clipboard.Formats) == 0 {
		return fmt.Errorf("%w: clipboard.formats must name at least one format", ErrInvalid)
	}
	if _, err := clipboard.FormatsByName(cfg.Clipboard.Formats); err != nil {
		return fmt.Errorf("%w: clipboard.formats: %w", ErrInvalid, err)
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a commented YAML string.
func DefaultConfigTemplate() string {
	return `# gridcore configuration

# Enable mouse selection of rows and cells
allow_selection: true

# Number shown in the gutter for the first row
start_row_number: 1

# Refuse edits, deletes and pastes
read_only: false

# Reload the data file when it changes on disk
watch: false
watch_debounce: 200ms

# Theme customization
theme:
  # Built-in presets: default, nord, high-contrast
  preset: default
  # Background of selected cells (shorthand for colors."selection.background")
  # highlight: "#3B4252"
  # colors:
  #   editing:
  #     background: "#434C5E"

# Copy formats, exported in order: tsv, csv, html, json
clipboard:
  formats:
    - tsv
  # Fall back to the terminal clipboard (OSC 52) when the OS clipboard is unavailable
  osc52: true

# Column sizing
columns:
  min_width: 3
  max_width: 40
  # Saved automatically when a column is resized with < and >
  # widths:
  #   people: [12, 4, 30]
  # Columns validated as JSON when edited
  # json:
  #   people: [meta]

# Debug log (written when run with --debug)
log:
  file: debug.log
  level: debug
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

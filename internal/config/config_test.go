package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.True(t, cfg.AllowSelection)
	assert.Equal(t, 1, cfg.StartRowNumber)
	assert.Equal(t, 200*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, []string{"tsv"}, cfg.Clipboard.Formats)
	assert.Equal(t, 3, cfg.Columns.MinWidth)
	assert.Equal(t, 40, cfg.Columns.MaxWidth)
	require.NoError(t, Validate(cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative start row", func(c *Config) { c.StartRowNumber = -1 }, "start_row_number"},
		{"negative debounce", func(c *Config) { c.WatchDebounce = -time.Second }, "watch_debounce"},
		{"zero min width", func(c *Config) { c.Columns.MinWidth = 0 }, "min_width"},
		{"max below min", func(c *Config) { c.Columns.MaxWidth = 2 }, "max_width"},
		{"bad saved width", func(c *Config) { c.Columns.Widths = map[string][]int{"people": {4, 0}} }, "columns.widths.people[1]"},
		{"no formats", func(c *Config) { c.Clipboard.Formats = nil }, "at least one format"},
		{"unknown format", func(c *Config) { c.Clipboard.Formats = []string{"tsv", "xml"} }, `"xml"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFlattenedColors(t *testing.T) {
	theme := ThemeConfig{Colors: map[string]any{
		"selection":          map[string]any{"background": "#111111"},
		"editing.background": "#222222",
		"text":               map[any]any{"primary": "#333333", 7: "ignored"},
	}}
	assert.Equal(t, map[string]string{
		"selection.background": "#111111",
		"editing.background":   "#222222",
		"text.primary":         "#333333",
	}, theme.FlattenedColors())
}

func TestColumnsConfig_Lookups(t *testing.T) {
	c := ColumnsConfig{
		Widths: map[string][]int{"people": {10, 4}},
		JSON:   map[string][]string{"people": {"meta"}},
	}
	assert.Equal(t, []int{10, 4}, c.WidthsFor("People"))
	assert.Nil(t, c.WidthsFor("orders"))
	assert.True(t, c.IsJSON("PEOPLE", "Meta"))
	assert.False(t, c.IsJSON("people", "name"))
}

func TestLoad_DefaultTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `start_row_number: 0
watch: true
watch_debounce: 1s
theme:
  highlight: "#FF0000"
clipboard:
  formats: [tsv, json]
columns:
  widths:
    People: [8, 3]
  json:
    people: [meta]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.StartRowNumber)
	assert.True(t, cfg.Watch)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.Equal(t, "#FF0000", cfg.Theme.Highlight)
	assert.Equal(t, "default", cfg.Theme.Preset)
	assert.Equal(t, []string{"tsv", "json"}, cfg.Clipboard.Formats)
	assert.Equal(t, []int{8, 3}, cfg.Columns.WidthsFor("people"))
	assert.True(t, cfg.Columns.IsJSON("people", "meta"))
	assert.Equal(t, 40, cfg.Columns.MaxWidth)
}

func TestLoad_Invalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("clipboard.formats", []string{"rtf"})

	_, err := Load(v)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestWriteDefaultConfig_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gridcore", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# gridcore configuration"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

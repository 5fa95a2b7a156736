// Package styles contains Lip Gloss style definitions.
package styles

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// styleRebuilders holds callbacks to rebuild styles in other packages.
var styleRebuilders []func()

// RegisterStyleRebuilder adds a callback that will be called after ApplyTheme
// updates colors. Use this to rebuild styles in packages that depend on styles.
func RegisterStyleRebuilder(fn func()) {
	styleRebuilders = append(styleRebuilders, fn)
}

// ThemeConfig mirrors config.ThemeConfig to avoid circular imports.
type ThemeConfig struct {
	Preset string
	// Highlight is a shorthand for the selection.background token.
	Highlight string
	Colors    map[string]string
}

// ApplyTheme applies a complete theme configuration.
// Order of application:
// 1. Start with default colors
// 2. Apply preset (if specified)
// 3. Apply the highlight shorthand, then individual color overrides
// 4. Rebuild all Style objects
func ApplyTheme(cfg ThemeConfig) error {
	colors := maps.Clone(DefaultPreset.Colors)

	if cfg.Preset != "" && cfg.Preset != "default" {
		preset, ok := Presets[cfg.Preset]
		if !ok {
			return fmt.Errorf("unknown theme preset: %s", cfg.Preset)
		}
		maps.Copy(colors, preset.Colors)
	}

	if cfg.Highlight != "" {
		if !isValidHexColor(cfg.Highlight) {
			return fmt.Errorf("invalid hex color for highlight: %s", cfg.Highlight)
		}
		colors[TokenSelectionBackground] = cfg.Highlight
	}

	for key, value := range cfg.Colors {
		token := ColorToken(key)
		if !isValidToken(token) {
			return fmt.Errorf("unknown color token: %s", key)
		}
		if !isValidHexColor(value) {
			return fmt.Errorf("invalid hex color for %s: %s", key, value)
		}
		colors[token] = value
	}

	applyColors(colors)
	rebuildStyles()

	return nil
}

func applyColors(colors map[ColorToken]string) {
	makeColor := func(hex string) lipgloss.AdaptiveColor {
		return lipgloss.AdaptiveColor{Light: hex, Dark: hex}
	}

	targets := map[ColorToken]*lipgloss.AdaptiveColor{
		TokenTextPrimary:         &TextPrimaryColor,
		TokenTextSecondary:       &TextSecondaryColor,
		TokenTextMuted:           &TextMutedColor,
		TokenBorderDefault:       &BorderDefaultColor,
		TokenBorderHighlight:     &BorderHighlightColor,
		TokenStatusSuccess:       &StatusSuccessColor,
		TokenStatusWarning:       &StatusWarningColor,
		TokenStatusError:         &StatusErrorColor,
		TokenSelectionBackground: &SelectionBackgroundColor,
		TokenEditingBackground:   &EditingBackgroundColor,
	}
	for token, dst := range targets {
		if c, ok := colors[token]; ok {
			*dst = makeColor(c)
		}
	}
}

// rebuildStyles recreates all Style objects with updated colors.
// lipgloss.Style objects capture colors at creation time.
func rebuildStyles() {
	HeaderStyle = lipgloss.NewStyle().Foreground(TextSecondaryColor).Bold(true)
	GutterStyle = lipgloss.NewStyle().Foreground(TextMutedColor)
	GutterSelectedStyle = lipgloss.NewStyle().Foreground(BorderHighlightColor).Bold(true)
	CellStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor)
	SelectedCellStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor).Background(SelectionBackgroundColor)
	EditingCellStyle = lipgloss.NewStyle().Foreground(TextPrimaryColor).Background(EditingBackgroundColor)
	InvalidEditStyle = lipgloss.NewStyle().Foreground(StatusErrorColor).Background(EditingBackgroundColor)
	EdgeStyle = lipgloss.NewStyle().Foreground(BorderHighlightColor)

	StatusBarStyle = lipgloss.NewStyle().
		Foreground(TextSecondaryColor).
		Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(StatusErrorColor).
		Bold(true)

	for _, fn := range styleRebuilders {
		fn()
	}
}

func isValidToken(token ColorToken) bool {
	return slices.Contains(AllTokens(), token)
}

func isValidHexColor(s string) bool {
	if !strings.HasPrefix(s, "#") {
		return false
	}
	hex := s[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return false
	}
	_, err := strconv.ParseUint(hex, 16, 64)
	return err == nil
}

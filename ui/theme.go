package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// CustomTheme keeps the default look but uses the app's accent and a dark
// background regardless of the system variant.
type CustomTheme struct {
	fyne.Theme
}

// NewCustomTheme creates a new instance of the custom theme.
func NewCustomTheme() fyne.Theme {
	return &CustomTheme{Theme: theme.DefaultTheme()}
}

// Color overrides the primary and background colors.
func (t *CustomTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return RunningColor
	case theme.ColorNameBackground:
		return BackgroundColor
	}
	return t.Theme.Color(name, theme.VariantDark)
}

// Size enlarges body text slightly.
func (t *CustomTheme) Size(name fyne.ThemeSizeName) float32 {
	if name == theme.SizeNameText {
		return t.Theme.Size(name) + 1
	}
	return t.Theme.Size(name)
}

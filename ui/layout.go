package ui

import (
	"image/color"
	"path/filepath"

	"TimeRing/i18n"
	"TimeRing/timer"
)

// Layout
const (
	WindowWidth  = 420
	WindowHeight = 560

	FontSizePrimaryTime float32 = 48.0
	FontSizePrimaryName float32 = 20.0
	FontSizeRowTime     float32 = 18.0

	CornerRadius         = 10.0
	RowSpacing   float32 = 2
)

var (
	// BackgroundColor is the base background of the primary display.
	BackgroundColor = color.NRGBA{R: 0x1e, G: 0x1e, B: 0x1e, A: 0xff}
	RunningColor    = color.NRGBA{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}
	PausedColor     = color.NRGBA{R: 0xff, G: 0xc1, B: 0x07, A: 0xff}
	RingingColor    = color.NRGBA{R: 0xf4, G: 0x43, B: 0x36, A: 0xff}
	FinishedColor   = color.NRGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
)

// Preset is a one-click duration in the create dialog.
type Preset struct {
	Label   string
	Seconds int
}

// Presets lists the quick durations offered when creating a timer.
var Presets = []Preset{
	{"1 min", 60},
	{"5 min", 5 * 60},
	{"10 min", 10 * 60},
	{"25 min", 25 * 60},
}

// StatusText is the localized label for a timer state.
func StatusText(state timer.TimerState) string {
	switch state {
	case timer.StateRunning:
		return i18n.T("Running")
	case timer.StatePaused:
		return i18n.T("Paused")
	case timer.StateRinging:
		return i18n.T("ALARM!")
	}
	return i18n.T("Finished")
}

// StatusColor is the accent used for a timer state.
func StatusColor(state timer.TimerState) color.Color {
	switch state {
	case timer.StateRunning:
		return RunningColor
	case timer.StatePaused:
		return PausedColor
	case timer.StateRinging:
		return RingingColor
	}
	return FinishedColor
}

// ActionText labels the main button of a timer in the given state.
func ActionText(state timer.TimerState) string {
	switch state {
	case timer.StateRunning:
		return i18n.T("Pause")
	case timer.StatePaused:
		return i18n.T("Resume")
	case timer.StateRinging:
		return i18n.T("Stop Alarm")
	}
	return i18n.T("Rerun")
}

// WordCountText renders the live word counter under the description entry.
func WordCountText(description string) string {
	return i18n.Tf("%d/%d words", timer.WordCount(description), timer.MaxDescriptionWords)
}

// SoundLabel shows a sound path as its file name, or the built-in label.
func SoundLabel(path string) string {
	if path == "" {
		return i18n.T("Built-in alarm")
	}
	return filepath.Base(path)
}

func withAlpha(c color.Color, alpha uint8) color.NRGBA {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}

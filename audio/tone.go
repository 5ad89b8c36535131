package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Built-in alarm: four short two-tone pulses.
const (
	toneLength  = 2 * time.Second
	pulseOn     = 300 * time.Millisecond
	pulsePeriod = 500 * time.Millisecond
	toneHigh    = 880.0
	toneLow     = 660.0
	toneVolume  = 0.4
)

// AlarmTone synthesizes the built-in alarm at sample rate sr.
func AlarmTone(sr beep.SampleRate) beep.Streamer {
	total := sr.N(toneLength)
	on := sr.N(pulseOn)
	period := sr.N(pulsePeriod)
	pos := 0
	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		if pos >= total {
			return 0, false
		}
		for i := range samples {
			if pos >= total {
				break
			}
			var v float64
			if inPulse := pos % period; inPulse < on {
				freq := toneHigh
				if (pos/period)%2 == 1 {
					freq = toneLow
				}
				// Short linear fade keeps the pulse edges from clicking.
				env := math.Min(1, math.Min(float64(inPulse), float64(on-inPulse))/float64(sr.N(5*time.Millisecond)))
				v = toneVolume * env * math.Sin(2*math.Pi*freq*float64(pos)/float64(sr))
			}
			samples[i][0], samples[i][1] = v, v
			pos++
			n++
		}
		return n, true
	})
}

// WriteBuiltinTone writes the built-in alarm as a WAV file at path unless a
// file is already there.
func WriteBuiltinTone(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create builtin tone: %w", err)
	}
	format := beep.Format{SampleRate: DefaultSampleRate, NumChannels: 2, Precision: 2}
	if err := wav.Encode(f, AlarmTone(format.SampleRate), format); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode builtin tone: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ResolveSound picks the sound to play: the timer's own sound, then the
// default from settings, then the built-in tone.
func ResolveSound(timerSound, defaultSound, builtin string, exists func(string) bool) string {
	if timerSound != "" && exists(timerSound) {
		return timerSound
	}
	if defaultSound != "" && exists(defaultSound) {
		return defaultSound
	}
	return builtin
}

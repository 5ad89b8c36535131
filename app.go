// Package main contains the application wiring and the AppManager which
// connects the engine, audio, notifications, persistence and the UI.
//
// Maintenance notes / tips:
//   - All timer state lives in engine.Engine. The UI never mutates timers
//     directly; it posts control.Command values through EnqueueCommand, which
//     the engine command loop executes one at a time.
//   - EnqueueCommand waits briefly for the reply so the UI can show
//     validation errors, then gives up rather than block the fyne thread.
//   - Shutdown is idempotent. It stops the command loop and the preview
//     player, closes the engine (which saves timers) and saves settings.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"TimeRing/audio"
	"TimeRing/control"
	"TimeRing/engine"
	"TimeRing/notify"
	"TimeRing/store"
	"TimeRing/timer"

	"fyne.io/fyne/v2"
)

// replyTimeout bounds how long EnqueueCommand waits for a command result.
const replyTimeout = 500 * time.Millisecond

var errCommandTimeout = errors.New("command did not complete in time")

// AppManager is the main application struct, holding all state.
type AppManager struct {
	settings *store.SettingsStore
	timers   *store.TimerStore
	engine   *engine.Engine
	backend  audio.Backend
	preview  *audio.Player
	builtin  string

	cmdCtx    context.Context
	cmdCancel context.CancelFunc
	closeOnce sync.Once
}

// NewAppManager loads settings and saved timers from dir and starts the
// engine. fyneApp may be nil when no window is shown.
func NewAppManager(dir string, fyneApp fyne.App) *AppManager {
	a := &AppManager{
		settings: store.NewSettingsStore(filepath.Join(dir, store.SettingsFile)),
		timers:   store.NewTimerStore(filepath.Join(dir, store.TimersFile)),
		builtin:  filepath.Join(dir, store.BuiltinSound),
	}
	settings := a.settings.Load()

	if err := audio.WriteBuiltinTone(a.builtin); err != nil {
		log.Printf("Failed to write built-in alarm tone: %v", err)
	}
	a.backend = newAudioBackend()
	a.preview = audio.NewPlayer(a.backend)

	a.engine = engine.New(engine.Options{
		Store:        a.timers,
		NewAlarm:     func() engine.Alarm { return audio.NewPlayer(a.backend) },
		Notifier:     newNotifier(fyneApp),
		Settings:     settings,
		BuiltinSound: a.builtin,
	})
	a.restore()

	a.cmdCtx, a.cmdCancel = context.WithCancel(context.Background())
	go a.engine.Run(a.cmdCtx)
	return a
}

func newAudioBackend() audio.Backend {
	chain := audio.Fallback{audio.NewBeepBackend()}
	if exe, err := audio.FindExecBackend(); err == nil {
		chain = append(chain, exe)
	} else {
		log.Printf("No external audio player found: %v", err)
	}
	return chain
}

func newNotifier(fyneApp fyne.App) notify.Notifier {
	var chain notify.Chain
	if ns, err := notify.FindNotifySend(); err == nil {
		chain = append(chain, ns)
	}
	if fyneApp != nil {
		chain = append(chain, notify.FyneNotifier{App: fyneApp})
	}
	return chain
}

func (a *AppManager) restore() {
	snaps, err := a.timers.Load(time.Now())
	if err != nil {
		if errors.Is(err, store.ErrCorrupt) {
			log.Printf("Saved timers are unreadable, starting empty: %v", err)
			if moved, qerr := a.timers.Quarantine(); qerr != nil {
				log.Printf("Failed to move corrupt timers file: %v", qerr)
			} else {
				log.Printf("Corrupt timers file kept as %s", moved)
			}
		} else {
			log.Printf("Failed to load timers: %v", err)
		}
		return
	}
	log.Printf("Loaded %d saved timers.", len(snaps))
	a.engine.Restore(snaps)
}

// EnqueueCommand posts a command to the engine and waits briefly for its
// result.
func (a *AppManager) EnqueueCommand(cmd control.Command) error {
	reply := make(chan error, 1)
	cmd.Reply = reply
	a.engine.Enqueue(cmd)
	select {
	case err := <-reply:
		return err
	case <-time.After(replyTimeout):
		log.Printf("EnqueueCommand timeout: no reply for %s", cmd.Type)
		return errCommandTimeout
	}
}

// Timers returns snapshots of every timer, most recent first.
func (a *AppManager) Timers() []timer.Snapshot {
	return a.engine.List()
}

// Primary returns the timer for the main display.
func (a *AppManager) Primary() (timer.Snapshot, bool) {
	return a.engine.Primary()
}

// Subscribe forwards to the engine change feed.
func (a *AppManager) Subscribe() (<-chan engine.Event, func()) {
	return a.engine.Subscribe()
}

// Settings returns the active settings.
func (a *AppManager) Settings() store.Settings {
	return a.engine.Settings()
}

// ApplySettings activates s and writes it to disk.
func (a *AppManager) ApplySettings(s store.Settings) {
	a.engine.ApplySettings(s)
	if err := a.settings.Save(a.engine.Settings()); err != nil {
		log.Printf("Failed to save settings: %v", err)
	}
}

// SetDefaultSound stores path as the default alarm sound. The file must
// exist.
func (a *AppManager) SetDefaultSound(path string) error {
	if !audio.FileExists(path) {
		return fmt.Errorf("sound file not found: %s", path)
	}
	s := a.engine.Settings()
	s.DefaultSound = path
	a.ApplySettings(s)
	return nil
}

// PreviewSound plays path once, falling back like an alarm would.
func (a *AppManager) PreviewSound(path string) {
	a.preview.Start(audio.ResolveSound("", path, a.builtin, audio.FileExists), false)
}

// StopPreview stops a running preview.
func (a *AppManager) StopPreview() {
	a.preview.Stop()
}

// Shutdown stops the command loop, silences every alarm and writes timers
// and settings.
func (a *AppManager) Shutdown() {
	a.closeOnce.Do(func() {
		a.cmdCancel()
		a.preview.Stop()
		a.engine.Close()
		if err := a.settings.Save(a.engine.Settings()); err != nil {
			log.Printf("Failed to save settings: %v", err)
		}
	})
}

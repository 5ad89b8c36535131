// Package engine owns the timer collection and runs the countdowns.
//
// Maintenance notes:
//   - A single mutex (Engine.mu) guards the collection and every field of
//     every timer. Countdown workers take it once per tick; never call into
//     code that may take it again while holding it.
//   - Workers are cancelled under mu. A worker checks its context right
//     after acquiring mu, so a cancelled worker never mutates a timer.
//   - Only Delete and Close wait for workers to exit, and they do so after
//     releasing mu.
//   - Timers are keyed by stable IDs; deleting one never shifts another.
package engine

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"TimeRing/audio"
	"TimeRing/control"
	"TimeRing/notify"
	"TimeRing/store"
	"TimeRing/timer"
)

// DefaultTickInterval is how often a running countdown recomputes.
const DefaultTickInterval = 200 * time.Millisecond

var (
	// ErrNotFound is returned for unknown timer IDs.
	ErrNotFound = errors.New("timer not found")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("engine closed")
)

// Alarm plays the sound of one ringing timer. audio.Player implements it.
type Alarm interface {
	Start(path string, loop bool)
	Stop()
}

// Persister writes timer snapshots. store.TimerStore implements it.
type Persister interface {
	Save(timers []timer.Snapshot, force bool) (bool, error)
}

// Options configures an Engine. Zero values select defaults; a nil Store,
// NewAlarm or Notifier disables that side effect.
type Options struct {
	Clock        timer.Clock
	Store        Persister
	NewAlarm     func() Alarm
	Notifier     notify.Notifier
	Settings     store.Settings
	BuiltinSound string
	SoundExists  func(string) bool
	TickInterval time.Duration
}

type worker struct {
	cancel context.CancelFunc
	done   chan struct{}
	resume chan struct{}
}

// Engine is the authoritative state machine for all timers.
type Engine struct {
	clock        timer.Clock
	store        Persister
	newAlarm     func() Alarm
	notifier     notify.Notifier
	builtinSound string
	soundExists  func(string) bool
	tickInterval time.Duration

	mu       sync.Mutex
	timers   map[string]*timer.Timer
	order    []string // newest first
	primary  string
	workers  map[string]*worker
	running  sync.WaitGroup // every worker, including ones still notifying
	alarms   map[string]Alarm
	settings store.Settings
	closed   bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int

	cmdCh chan control.Command
}

// New returns an engine with no timers.
func New(opts Options) *Engine {
	e := &Engine{
		clock:        opts.Clock,
		store:        opts.Store,
		newAlarm:     opts.NewAlarm,
		notifier:     opts.Notifier,
		builtinSound: opts.BuiltinSound,
		soundExists:  opts.SoundExists,
		tickInterval: opts.TickInterval,
		timers:       make(map[string]*timer.Timer),
		workers:      make(map[string]*worker),
		alarms:       make(map[string]Alarm),
		settings:     opts.Settings.Normalize(),
		subs:         make(map[int]chan Event),
		cmdCh:        make(chan control.Command, 256),
	}
	if e.clock == nil {
		e.clock = timer.SystemClock{}
	}
	if e.soundExists == nil {
		e.soundExists = audio.FileExists
	}
	if e.tickInterval <= 0 {
		e.tickInterval = DefaultTickInterval
	}
	return e
}

// Create validates cfg, adds a running timer at the front of the collection,
// makes it the primary timer and starts its countdown.
func (e *Engine) Create(cfg timer.TimerConfig) (timer.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return timer.Snapshot{}, ErrClosed
	}

	t, err := timer.NewTimer(cfg, e.clock.Now())
	if err != nil {
		return timer.Snapshot{}, err
	}
	e.timers[t.ID] = t
	e.order = append([]string{t.ID}, e.order...)
	e.primary = t.ID
	e.startWorkerLocked(t.ID)
	e.persistLocked(true)
	e.publish(Event{Type: EventCreated, TimerID: t.ID})
	return t.Snapshot(), nil
}

// PauseResume toggles a running or paused timer. Ringing and finished timers
// are left untouched.
func (e *Engine) PauseResume(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return err
	}
	if t.IsRinging || t.HasFinished {
		return nil
	}

	now := e.clock.Now()
	if t.IsPaused {
		t.Resume(now)
		if w := e.workers[id]; w != nil {
			select {
			case w.resume <- struct{}{}:
			default:
			}
		} else {
			e.startWorkerLocked(id)
		}
	} else if !t.Pause(now) {
		// Already at zero: a fresh worker completes it without waiting for
		// the next tick.
		e.startWorkerLocked(id)
		return nil
	}
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated, TimerID: id})
	return nil
}

// Stop silences and finishes a timer. Stopping a stopped timer is a no-op.
func (e *Engine) Stop(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return err
	}

	e.stopAlarmLocked(id)
	if !t.Stop(e.clock.Now()) {
		return nil
	}
	e.cancelWorkerLocked(id)
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated, TimerID: id})
	return nil
}

// Rerun restarts a timer from its full duration and makes it primary.
func (e *Engine) Rerun(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return err
	}

	e.stopAlarmLocked(id)
	t.Rerun(e.clock.Now())
	e.startWorkerLocked(id)
	e.primary = id
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated, TimerID: id})
	return nil
}

// Delete removes a timer, stops its alarm and waits for its countdown
// worker to exit.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()
	if _, err := e.lookupLocked(id); err != nil {
		e.mu.Unlock()
		return err
	}

	w := e.cancelWorkerLocked(id)
	e.stopAlarmLocked(id)
	delete(e.timers, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	if e.primary == id {
		e.primary = ""
	}
	e.persistLocked(true)
	e.publish(Event{Type: EventDeleted, TimerID: id})
	e.mu.Unlock()

	if w != nil {
		<-w.done
	}
	return nil
}

// EditDescription renames a timer and replaces its description.
func (e *Engine) EditDescription(id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &timer.ValidationError{Field: "name", Reason: "timer name is required"}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return err
	}
	t.Name = name
	t.Description = strings.TrimSpace(description)
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated, TimerID: id})
	return nil
}

// EditSound changes a timer's sound. A ringing timer switches to the new
// sound immediately.
func (e *Engine) EditSound(id, soundPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return err
	}
	t.SoundPath = strings.TrimSpace(soundPath)
	if t.IsRinging {
		e.startAlarmLocked(t)
	}
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated, TimerID: id})
	return nil
}

// Get returns a snapshot of one timer.
func (e *Engine) Get(id string) (timer.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, err := e.lookupLocked(id)
	if err != nil {
		return timer.Snapshot{}, err
	}
	t.Recompute(e.clock.Now())
	return t.Snapshot(), nil
}

// List returns snapshots ordered by most recent interaction; ties keep
// creation order, newest first.
func (e *Engine) List() []timer.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	out := make([]timer.Snapshot, 0, len(e.order))
	for _, id := range e.order {
		t := e.timers[id]
		t.Recompute(now)
		out = append(out, t.Snapshot())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastInteraction.After(out[j].LastInteraction)
	})
	return out
}

// Primary returns the timer shown in the prominent display slot: the most
// recently created or rerun timer, or else the first unfinished one.
func (e *Engine) Primary() (timer.Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	if t, ok := e.timers[e.primary]; ok {
		t.Recompute(now)
		return t.Snapshot(), true
	}
	for _, id := range e.order {
		if t := e.timers[id]; !t.HasFinished {
			t.Recompute(now)
			return t.Snapshot(), true
		}
	}
	return timer.Snapshot{}, false
}

// Restore loads saved timers, restarting countdowns and alarms. When
// auto-start is disabled, running timers come back paused.
func (e *Engine) Restore(snaps []timer.Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}

	now := e.clock.Now()
	for _, s := range snaps {
		if _, dup := e.timers[s.ID]; dup || s.ID == "" {
			s.ID = timer.NewID()
		}
		t := timer.FromSnapshot(s)
		e.timers[t.ID] = t
		e.order = append(e.order, t.ID)

		switch t.State() {
		case timer.StateRunning:
			// Timers that expired while the app was closed still ring.
			if !e.settings.AutoStartTimers && t.Pause(now) {
				continue
			}
			e.startWorkerLocked(t.ID)
		case timer.StateRinging:
			e.startAlarmLocked(t)
		}
	}
	e.persistLocked(true)
	e.publish(Event{Type: EventUpdated})
}

// Settings returns the settings the engine currently applies.
func (e *Engine) Settings() store.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// ApplySettings replaces the settings used for new notifications, alarms and
// saves.
func (e *Engine) ApplySettings(s store.Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s.Normalize()
}

// Close stops every worker and alarm and writes a final snapshot. It returns
// once every worker has exited, including any completion notification still
// being sent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for id := range e.workers {
		e.cancelWorkerLocked(id)
	}
	for id := range e.alarms {
		e.stopAlarmLocked(id)
	}
	e.persistLocked(true)
	e.mu.Unlock()

	e.running.Wait()

	e.subMu.Lock()
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.subMu.Unlock()
}

func (e *Engine) lookupLocked(id string) (*timer.Timer, error) {
	if e.closed {
		return nil, ErrClosed
	}
	t, ok := e.timers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (e *Engine) snapshotsLocked() []timer.Snapshot {
	now := e.clock.Now()
	out := make([]timer.Snapshot, 0, len(e.order))
	for _, id := range e.order {
		t := e.timers[id]
		t.Recompute(now)
		out = append(out, t.Snapshot())
	}
	return out
}

func (e *Engine) persistLocked(force bool) {
	if e.store == nil || !e.settings.SaveState {
		return
	}
	if _, err := e.store.Save(e.snapshotsLocked(), force); err != nil {
		log.Printf("Failed to save timers: %v", err)
	}
}

func (e *Engine) startAlarmLocked(t *timer.Timer) {
	if e.newAlarm == nil {
		return
	}
	path := audio.ResolveSound(t.SoundPath, e.settings.DefaultSound, e.builtinSound, e.soundExists)
	if path == "" {
		log.Printf("No sound available for timer %q", t.Name)
		return
	}
	a := e.alarms[t.ID]
	if a == nil {
		a = e.newAlarm()
		e.alarms[t.ID] = a
	}
	a.Start(path, e.settings.LoopSound)
}

func (e *Engine) stopAlarmLocked(id string) {
	if a := e.alarms[id]; a != nil {
		a.Stop()
		delete(e.alarms, id)
	}
}

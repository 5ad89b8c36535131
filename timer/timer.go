// Package timer contains the domain model for countdown timers: the Timer
// entity, its state machine and the creation config.
//
// Maintenance notes:
//   - Timer carries no lock of its own. The engine owns every Timer and
//     guards all reads and mutations with its collection mutex; the UI only
//     ever sees Snapshot values.
//   - Remaining time is always derived from wall-clock timestamps (see
//     Recompute). Never decrement RemainingSeconds directly: a suspended
//     laptop or a delayed goroutine would make the display drift.
package timer

import (
	"time"

	"github.com/google/uuid"
)

// TimerState defines the possible states of a timer.
type TimerState int

const (
	StateRunning TimerState = iota
	StatePaused
	StateRinging
	StateFinished
)

func (s TimerState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateRinging:
		return "ringing"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// Timer represents a single countdown and its timing bookkeeping.
type Timer struct {
	ID          string
	Name        string
	Description string
	SoundPath   string

	TotalSeconds     int
	RemainingSeconds int

	StartTime   time.Time
	PauseTime   time.Time // zero unless paused
	TotalPaused time.Duration

	IsPaused    bool
	IsRinging   bool
	HasFinished bool

	LastInteraction time.Time
}

// NewID returns a fresh stable timer identifier.
func NewID() string {
	return "tmr-" + uuid.NewString()
}

// NewTimer validates cfg and builds a running timer whose baseline is now.
func NewTimer(cfg TimerConfig, now time.Time) (*Timer, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Timer{
		ID:               NewID(),
		Name:             cfg.Name,
		Description:      cfg.Description,
		SoundPath:        cfg.SoundPath,
		TotalSeconds:     cfg.TotalSeconds,
		RemainingSeconds: cfg.TotalSeconds,
		StartTime:        now,
		LastInteraction:  now,
	}, nil
}

// State reports which of the four lifecycle states the timer is in.
func (t *Timer) State() TimerState {
	switch {
	case t.IsRinging:
		return StateRinging
	case t.HasFinished:
		return StateFinished
	case t.IsPaused:
		return StatePaused
	}
	return StateRunning
}

// Elapsed returns the counted (non-paused) time at now.
func (t *Timer) Elapsed(now time.Time) time.Duration {
	ref := now
	if t.IsPaused && !t.PauseTime.IsZero() {
		ref = t.PauseTime
	}
	d := ref.Sub(t.StartTime) - t.TotalPaused
	if d < 0 {
		return 0
	}
	return d
}

// Recompute refreshes RemainingSeconds from the timestamps and returns it.
// Finished timers keep the value they had when they finished or were stopped.
func (t *Timer) Recompute(now time.Time) int {
	if t.HasFinished {
		return t.RemainingSeconds
	}
	remaining := t.TotalSeconds - int(t.Elapsed(now)/time.Second)
	t.RemainingSeconds = clamp(remaining, 0, t.TotalSeconds)
	return t.RemainingSeconds
}

// Pause freezes the countdown at now. It reports whether anything changed.
// A countdown that has already reached zero cannot be paused; it is due to
// finish instead.
func (t *Timer) Pause(now time.Time) bool {
	if t.IsPaused || t.HasFinished {
		return false
	}
	if t.Recompute(now) == 0 {
		return false
	}
	t.PauseTime = now
	t.IsPaused = true
	t.LastInteraction = now
	return true
}

// Resume folds the pause interval into TotalPaused and continues counting.
func (t *Timer) Resume(now time.Time) bool {
	if !t.IsPaused || t.HasFinished {
		return false
	}
	if !t.PauseTime.IsZero() && now.After(t.PauseTime) {
		t.TotalPaused += now.Sub(t.PauseTime)
	}
	t.PauseTime = time.Time{}
	t.IsPaused = false
	t.LastInteraction = now
	t.Recompute(now)
	return true
}

// Finish marks the countdown as complete and ringing.
func (t *Timer) Finish(now time.Time) {
	t.RemainingSeconds = 0
	t.IsRinging = true
	t.HasFinished = true
	t.IsPaused = false
	t.PauseTime = time.Time{}
	t.LastInteraction = now
}

// Stop silences the timer and ends its countdown. Stopping a timer that is
// already stopped changes nothing and reports false.
func (t *Timer) Stop(now time.Time) bool {
	if t.HasFinished && !t.IsRinging && t.IsPaused {
		return false
	}
	t.Recompute(now)
	if !t.IsPaused {
		t.PauseTime = now
	}
	t.IsRinging = false
	t.IsPaused = true
	t.HasFinished = true
	t.LastInteraction = now
	return true
}

// Rerun resets all timing fields to a fresh start at now.
func (t *Timer) Rerun(now time.Time) {
	t.RemainingSeconds = t.TotalSeconds
	t.StartTime = now
	t.PauseTime = time.Time{}
	t.TotalPaused = 0
	t.IsPaused = false
	t.IsRinging = false
	t.HasFinished = false
	t.LastInteraction = now
}

// Rebase re-anchors a paused timer at now so that the time the application
// was closed is not counted in either direction. RemainingSeconds must hold
// the value saved at pause time.
func (t *Timer) Rebase(now time.Time) {
	if !t.IsPaused || t.HasFinished {
		return
	}
	elapsed := time.Duration(t.TotalSeconds-t.RemainingSeconds) * time.Second
	t.StartTime = now.Add(-elapsed)
	t.TotalPaused = 0
	t.PauseTime = now
}

// Snapshot is an atomic copy of the fields the UI and the store need.
type Snapshot struct {
	ID               string
	Name             string
	Description      string
	SoundPath        string
	TotalSeconds     int
	RemainingSeconds int
	StartTime        time.Time
	PauseTime        time.Time
	TotalPaused      time.Duration
	IsPaused         bool
	IsRinging        bool
	HasFinished      bool
	LastInteraction  time.Time
	State            TimerState
}

// Snapshot returns a value copy of the timer.
func (t *Timer) Snapshot() Snapshot {
	return Snapshot{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		SoundPath:        t.SoundPath,
		TotalSeconds:     t.TotalSeconds,
		RemainingSeconds: t.RemainingSeconds,
		StartTime:        t.StartTime,
		PauseTime:        t.PauseTime,
		TotalPaused:      t.TotalPaused,
		IsPaused:         t.IsPaused,
		IsRinging:        t.IsRinging,
		HasFinished:      t.HasFinished,
		LastInteraction:  t.LastInteraction,
		State:            t.State(),
	}
}

// FromSnapshot rebuilds a Timer from a snapshot (used when restoring).
func FromSnapshot(s Snapshot) *Timer {
	return &Timer{
		ID:               s.ID,
		Name:             s.Name,
		Description:      s.Description,
		SoundPath:        s.SoundPath,
		TotalSeconds:     s.TotalSeconds,
		RemainingSeconds: clamp(s.RemainingSeconds, 0, s.TotalSeconds),
		StartTime:        s.StartTime,
		PauseTime:        s.PauseTime,
		TotalPaused:      s.TotalPaused,
		IsPaused:         s.IsPaused,
		IsRinging:        s.IsRinging && s.HasFinished,
		HasFinished:      s.HasFinished,
		LastInteraction:  s.LastInteraction,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Package store persists the timer collection and the application settings
// as JSON files in the per-user configuration directory.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"TimeRing/timer"
)

// DefaultSaveInterval is the minimum spacing between unforced saves.
const DefaultSaveInterval = time.Second

// ErrCorrupt is returned when the timers file exists but cannot be parsed.
var ErrCorrupt = errors.New("timers file is corrupt")

// timerRecord is the on-disk shape of one timer. Optional pointers mark
// fields that older files may not have.
type timerRecord struct {
	ID               string   `json:"id,omitempty"`
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	SoundPath        string   `json:"sound_path"`
	TotalSeconds     int      `json:"total_seconds"`
	RemainingSeconds *int     `json:"remaining_seconds,omitempty"`
	StartTime        *float64 `json:"start_time,omitempty"`
	PauseTime        *float64 `json:"pause_time"`
	TotalPaused      float64  `json:"total_paused_duration"`
	IsPaused         bool     `json:"is_paused"`
	IsRinging        bool     `json:"is_ringing"`
	HasFinished      *bool    `json:"has_finished,omitempty"`
	LastInteraction  *float64 `json:"last_interaction,omitempty"`
}

// TimerStore reads and writes timers.json.
type TimerStore struct {
	Path     string
	Interval time.Duration
	Now      func() time.Time

	mu       sync.Mutex
	lastSave time.Time
}

// NewTimerStore returns a store writing to path with the default throttle.
func NewTimerStore(path string) *TimerStore {
	return &TimerStore{Path: path, Interval: DefaultSaveInterval, Now: time.Now}
}

// Save writes the snapshots unless an unforced save already happened within
// Interval. It reports whether the file was written.
func (s *TimerStore) Save(timers []timer.Snapshot, force bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if !force && !s.lastSave.IsZero() && now.Sub(s.lastSave) < s.Interval {
		return false, nil
	}

	records := make([]timerRecord, 0, len(timers))
	for _, t := range timers {
		records = append(records, toRecord(t))
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode timers: %w", err)
	}
	if err := writeFileAtomic(s.Path, data); err != nil {
		return false, fmt.Errorf("write timers: %w", err)
	}
	s.lastSave = now
	return true, nil
}

// Load reads the timers file. A missing file yields no timers. Fields added
// in later versions are backfilled, and paused timers are re-anchored at now
// so the time the application was closed does not count.
func (s *TimerStore) Load(now time.Time) ([]timer.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read timers: %w", err)
	}

	var records []timerRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	out := make([]timer.Snapshot, 0, len(records))
	for _, r := range records {
		if r.TotalSeconds < 1 || r.TotalSeconds > timer.MaxTotalSeconds {
			continue
		}
		t := timer.FromSnapshot(fromRecord(r, now))
		t.Rebase(now)
		out = append(out, t.Snapshot())
	}
	return out, nil
}

// Quarantine moves an unreadable timers file aside so the next save does not
// overwrite it. It returns the new path.
func (s *TimerStore) Quarantine() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := s.Path + ".corrupt"
	if err := os.Rename(s.Path, dst); err != nil {
		return "", fmt.Errorf("quarantine timers: %w", err)
	}
	return dst, nil
}

func toRecord(t timer.Snapshot) timerRecord {
	remaining := t.RemainingSeconds
	finished := t.HasFinished
	start := unixSeconds(t.StartTime)
	last := unixSeconds(t.LastInteraction)
	r := timerRecord{
		ID:               t.ID,
		Name:             t.Name,
		Description:      t.Description,
		SoundPath:        t.SoundPath,
		TotalSeconds:     t.TotalSeconds,
		RemainingSeconds: &remaining,
		StartTime:        &start,
		TotalPaused:      t.TotalPaused.Seconds(),
		IsPaused:         t.IsPaused,
		IsRinging:        t.IsRinging,
		HasFinished:      &finished,
		LastInteraction:  &last,
	}
	if !t.PauseTime.IsZero() {
		p := unixSeconds(t.PauseTime)
		r.PauseTime = &p
	}
	return r
}

func fromRecord(r timerRecord, now time.Time) timer.Snapshot {
	s := timer.Snapshot{
		ID:           r.ID,
		Name:         r.Name,
		Description:  r.Description,
		SoundPath:    r.SoundPath,
		TotalSeconds: r.TotalSeconds,
		TotalPaused:  time.Duration(r.TotalPaused * float64(time.Second)),
		IsPaused:     r.IsPaused,
		IsRinging:    r.IsRinging,
	}
	if s.ID == "" {
		s.ID = timer.NewID()
	}

	s.RemainingSeconds = r.TotalSeconds
	if r.RemainingSeconds != nil {
		s.RemainingSeconds = *r.RemainingSeconds
	}

	if r.StartTime != nil {
		s.StartTime = fromUnixSeconds(*r.StartTime)
	} else {
		// Older files only tracked the countdown value.
		elapsed := time.Duration(r.TotalSeconds-s.RemainingSeconds) * time.Second
		s.StartTime = now.Add(-elapsed)
		s.TotalPaused = 0
	}
	if r.PauseTime != nil {
		s.PauseTime = fromUnixSeconds(*r.PauseTime)
	}

	if r.HasFinished != nil {
		s.HasFinished = *r.HasFinished
	} else {
		s.HasFinished = r.IsRinging || s.RemainingSeconds <= 0
	}
	if s.IsRinging {
		s.HasFinished = true
	}

	if r.LastInteraction != nil {
		s.LastInteraction = fromUnixSeconds(*r.LastInteraction)
	} else {
		s.LastInteraction = s.StartTime
	}
	return s
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func fromUnixSeconds(v float64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(v)
	return time.Unix(int64(sec), int64(math.Round(frac*float64(time.Second))))
}

package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"TimeRing/control"
	"TimeRing/i18n"
	"TimeRing/notify"
	"TimeRing/store"
	"TimeRing/timer"
	"TimeRing/timer/timertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

type alarmCall struct {
	path string
	loop bool
}

type fakeAlarms struct {
	mu      sync.Mutex
	starts  []alarmCall
	stops   int
	playing int
}

type fakeAlarm struct {
	rec     *fakeAlarms
	playing bool
}

func (a *fakeAlarm) Start(path string, loop bool) {
	a.rec.mu.Lock()
	defer a.rec.mu.Unlock()
	a.rec.starts = append(a.rec.starts, alarmCall{path, loop})
	if !a.playing {
		a.rec.playing++
	}
	a.playing = true
}

func (a *fakeAlarm) Stop() {
	a.rec.mu.Lock()
	defer a.rec.mu.Unlock()
	a.rec.stops++
	if a.playing {
		a.rec.playing--
	}
	a.playing = false
}

func (r *fakeAlarms) last() (alarmCall, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.starts) == 0 {
		return alarmCall{}, r.playing
	}
	return r.starts[len(r.starts)-1], r.playing
}

type fakeNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (n *fakeNotifier) Notify(msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *fakeNotifier) sent() []notify.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Message(nil), n.msgs...)
}

type memStore struct {
	mu     sync.Mutex
	saves  int
	forced int
	last   []timer.Snapshot
}

func (m *memStore) Save(timers []timer.Snapshot, force bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if force {
		m.forced++
	}
	m.last = timers
	return true, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type harness struct {
	e        *Engine
	clock    *timertest.FakeClock
	alarms   *fakeAlarms
	notifier *fakeNotifier
	store    *memStore
}

const builtin = "/sounds/timesup.wav"

func newHarness(t *testing.T, settings store.Settings) *harness {
	t.Helper()
	i18n.SetLang("en")
	h := &harness{
		clock:    timertest.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		alarms:   &fakeAlarms{},
		notifier: &fakeNotifier{},
		store:    &memStore{},
	}
	h.e = New(Options{
		Clock:        h.clock,
		Store:        h.store,
		NewAlarm:     func() Alarm { return &fakeAlarm{rec: h.alarms} },
		Notifier:     h.notifier,
		Settings:     settings,
		BuiltinSound: builtin,
		SoundExists:  func(p string) bool { return p == builtin || p == "/sounds/bell.ogg" },
		TickInterval: poll,
	})
	t.Cleanup(h.e.Close)
	return h
}

func (h *harness) create(t *testing.T, name string, secs int) timer.Snapshot {
	t.Helper()
	s, err := h.e.Create(timer.TimerConfig{Name: name, TotalSeconds: secs})
	require.NoError(t, err)
	return s
}

func (h *harness) waitState(t *testing.T, id string, want timer.TimerState) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := h.e.Get(id)
		return err == nil && s.State == want
	}, waitFor, poll)
}

func TestCreate_ValidatesAndOrdersNewestFirst(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())

	_, err := h.e.Create(timer.TimerConfig{Name: "  ", TotalSeconds: 10})
	var verr *timer.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)

	_, err = h.e.Create(timer.TimerConfig{Name: "x", TotalSeconds: 0})
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, h.e.List())

	a := h.create(t, "A", 60)
	b := h.create(t, "B", 60)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, timer.StateRunning, a.State)
	assert.Equal(t, 60, a.RemainingSeconds)

	list := h.e.List()
	require.Len(t, list, 2)
	assert.Equal(t, "B", list[0].Name)
	assert.Equal(t, "A", list[1].Name)

	p, ok := h.e.Primary()
	require.True(t, ok)
	assert.Equal(t, b.ID, p.ID)
	assert.Positive(t, h.store.count())
}

func TestCountdown_FollowsWallClock(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	events, cancel := h.e.Subscribe()
	defer cancel()

	s := h.create(t, "Tea", 5)
	h.clock.Advance(3 * time.Second)

	require.Eventually(t, func() bool {
		select {
		case ev := <-events:
			return ev.Type == EventTick && ev.TimerID == s.ID
		default:
			return false
		}
	}, waitFor, poll)

	got, err := h.e.Get(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemainingSeconds)
	assert.Equal(t, timer.StateRunning, got.State)
}

func TestPauseResume_ExcludesPausedTime(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 10)

	h.clock.Advance(3 * time.Second)
	require.NoError(t, h.e.PauseResume(s.ID))
	got, _ := h.e.Get(s.ID)
	assert.Equal(t, timer.StatePaused, got.State)
	assert.Equal(t, 7, got.RemainingSeconds)

	h.clock.Advance(100 * time.Second)
	got, _ = h.e.Get(s.ID)
	assert.Equal(t, 7, got.RemainingSeconds)

	require.NoError(t, h.e.PauseResume(s.ID))
	h.clock.Advance(2 * time.Second)
	got, _ = h.e.Get(s.ID)
	assert.Equal(t, timer.StateRunning, got.State)
	assert.Equal(t, 5, got.RemainingSeconds)

	// The resumed worker must still drive the timer to completion.
	h.clock.Advance(10 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)
}

func TestCompletion_RingsAndNotifies(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s, err := h.e.Create(timer.TimerConfig{Name: "Tea", TotalSeconds: 2, Description: "green"})
	require.NoError(t, err)

	h.clock.Advance(3 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)

	got, _ := h.e.Get(s.ID)
	assert.Equal(t, 0, got.RemainingSeconds)
	assert.True(t, got.HasFinished)

	call, playing := h.alarms.last()
	assert.Equal(t, alarmCall{builtin, true}, call)
	assert.Equal(t, 1, playing)

	require.Eventually(t, func() bool { return len(h.notifier.sent()) == 1 }, waitFor, poll)
	msg := h.notifier.sent()[0]
	assert.Equal(t, notify.Title, msg.Title)
	assert.Equal(t, "Timer 'Tea' completed!\ngreen...", msg.Body)
	assert.Equal(t, notify.Normal, msg.Urgency)
}

func TestCompletion_RespectsSettings(t *testing.T) {
	settings := store.DefaultSettings()
	settings.ShowNotifications = false
	settings.LoopSound = false
	settings.DefaultSound = "/sounds/bell.ogg"
	h := newHarness(t, settings)

	s := h.create(t, "Tea", 1)
	h.clock.Advance(2 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)

	call, _ := h.alarms.last()
	assert.Equal(t, alarmCall{"/sounds/bell.ogg", false}, call)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, h.notifier.sent())
}

func TestPauseResume_ExpiredTimerRingsInsteadOfPausing(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 5)

	h.clock.Advance(5*time.Second + 50*time.Millisecond)
	require.NoError(t, h.e.PauseResume(s.ID))

	h.waitState(t, s.ID, timer.StateRinging)
	got, _ := h.e.Get(s.ID)
	assert.False(t, got.IsPaused)
	assert.Equal(t, 0, got.RemainingSeconds)
	_, playing := h.alarms.last()
	assert.Equal(t, 1, playing)
	require.Eventually(t, func() bool { return len(h.notifier.sent()) == 1 }, waitFor, poll)
}

func TestStop_IsIdempotent(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 1)
	h.clock.Advance(2 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)

	require.NoError(t, h.e.Stop(s.ID))
	got, _ := h.e.Get(s.ID)
	assert.Equal(t, timer.StateFinished, got.State)
	_, playing := h.alarms.last()
	assert.Equal(t, 0, playing)

	require.NoError(t, h.e.Stop(s.ID))
	again, _ := h.e.Get(s.ID)
	assert.Equal(t, got, again)

	// Pause on a finished timer is ignored.
	require.NoError(t, h.e.PauseResume(s.ID))
	again, _ = h.e.Get(s.ID)
	assert.Equal(t, timer.StateFinished, again.State)
}

func TestStop_RunningTimerFreezes(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 60)
	h.clock.Advance(10 * time.Second)

	require.NoError(t, h.e.Stop(s.ID))
	h.clock.Advance(time.Minute)
	got, _ := h.e.Get(s.ID)
	assert.Equal(t, timer.StateFinished, got.State)
	assert.Equal(t, 50, got.RemainingSeconds)
}

func TestRerun_ResetsAndBecomesPrimary(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	a := h.create(t, "A", 1)
	b := h.create(t, "B", 60)

	h.clock.Advance(2 * time.Second)
	h.waitState(t, a.ID, timer.StateRinging)

	require.NoError(t, h.e.Rerun(a.ID))
	got, _ := h.e.Get(a.ID)
	assert.Equal(t, timer.StateRunning, got.State)
	assert.Equal(t, 1, got.RemainingSeconds)
	_, playing := h.alarms.last()
	assert.Equal(t, 0, playing)

	p, _ := h.e.Primary()
	assert.Equal(t, a.ID, p.ID)
	assert.NotEqual(t, b.ID, p.ID)

	h.clock.Advance(2 * time.Second)
	h.waitState(t, a.ID, timer.StateRinging)
}

func TestDelete_KeepsOtherTimersAddressable(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	a := h.create(t, "A", 60)
	b := h.create(t, "B", 60)
	c := h.create(t, "C", 60)

	require.NoError(t, h.e.Delete(b.ID))
	_, err := h.e.Get(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, h.e.Delete(b.ID), ErrNotFound)

	require.NoError(t, h.e.PauseResume(c.ID))
	got, _ := h.e.Get(c.ID)
	assert.Equal(t, "C", got.Name)
	assert.Equal(t, timer.StatePaused, got.State)

	require.NoError(t, h.e.Delete(c.ID))
	p, ok := h.e.Primary()
	require.True(t, ok)
	assert.Equal(t, a.ID, p.ID)

	require.NoError(t, h.e.Delete(a.ID))
	_, ok = h.e.Primary()
	assert.False(t, ok)
	assert.Empty(t, h.e.List())
}

func TestDelete_RingingTimerSilencesAlarm(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 1)
	h.clock.Advance(2 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)

	require.NoError(t, h.e.Delete(s.ID))
	_, playing := h.alarms.last()
	assert.Equal(t, 0, playing)
}

func TestEdit(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	s := h.create(t, "Tea", 1)

	var verr *timer.ValidationError
	require.ErrorAs(t, h.e.EditDescription(s.ID, " ", "x"), &verr)
	require.NoError(t, h.e.EditDescription(s.ID, "Coffee", " strong "))
	got, _ := h.e.Get(s.ID)
	assert.Equal(t, "Coffee", got.Name)
	assert.Equal(t, "strong", got.Description)

	h.clock.Advance(2 * time.Second)
	h.waitState(t, s.ID, timer.StateRinging)

	require.NoError(t, h.e.EditSound(s.ID, "/sounds/bell.ogg"))
	call, playing := h.alarms.last()
	assert.Equal(t, "/sounds/bell.ogg", call.path)
	assert.Equal(t, 1, playing)

	assert.ErrorIs(t, h.e.EditSound("tmr-missing", ""), ErrNotFound)
}

func restoredSnapshots(now time.Time) []timer.Snapshot {
	return []timer.Snapshot{
		{
			ID: "tmr-run", Name: "Run", TotalSeconds: 60, RemainingSeconds: 55,
			StartTime: now.Add(-5 * time.Second), LastInteraction: now.Add(-5 * time.Second),
		},
		{
			ID: "tmr-pause", Name: "Pause", TotalSeconds: 60, RemainingSeconds: 30,
			StartTime: now.Add(-30 * time.Second), PauseTime: now, IsPaused: true,
		},
		{
			ID: "tmr-ring", Name: "Ring", TotalSeconds: 60,
			IsRinging: true, HasFinished: true,
		},
		{ID: "tmr-run", Name: "Duplicate", TotalSeconds: 10, RemainingSeconds: 10, StartTime: now},
	}
}

func TestRestore_ResumesCountdownsAndAlarms(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	now := h.clock.Now()
	h.e.Restore(restoredSnapshots(now))

	list := h.e.List()
	require.Len(t, list, 4)
	ids := map[string]bool{}
	for _, s := range list {
		ids[s.ID] = true
	}
	assert.Len(t, ids, 4)

	run, err := h.e.Get("tmr-run")
	require.NoError(t, err)
	assert.Equal(t, "Run", run.Name)
	assert.Equal(t, 55, run.RemainingSeconds)

	pause, _ := h.e.Get("tmr-pause")
	assert.Equal(t, timer.StatePaused, pause.State)

	ring, _ := h.e.Get("tmr-ring")
	assert.Equal(t, timer.StateRinging, ring.State)
	_, playing := h.alarms.last()
	assert.Equal(t, 1, playing)

	h.clock.Advance(time.Minute)
	h.waitState(t, "tmr-run", timer.StateRinging)
	pause, _ = h.e.Get("tmr-pause")
	assert.Equal(t, 30, pause.RemainingSeconds)
}

func TestRestore_WithoutAutoStartPausesRunningTimers(t *testing.T) {
	settings := store.DefaultSettings()
	settings.AutoStartTimers = false
	h := newHarness(t, settings)
	h.e.Restore(restoredSnapshots(h.clock.Now()))

	run, _ := h.e.Get("tmr-run")
	assert.Equal(t, timer.StatePaused, run.State)
	assert.Equal(t, 55, run.RemainingSeconds)

	h.clock.Advance(time.Minute)
	run, _ = h.e.Get("tmr-run")
	assert.Equal(t, 55, run.RemainingSeconds)

	require.NoError(t, h.e.PauseResume("tmr-run"))
	h.clock.Advance(5 * time.Second)
	run, _ = h.e.Get("tmr-run")
	assert.Equal(t, 50, run.RemainingSeconds)
}

func TestRestore_WithoutAutoStartExpiredTimerRings(t *testing.T) {
	settings := store.DefaultSettings()
	settings.AutoStartTimers = false
	h := newHarness(t, settings)
	now := h.clock.Now()
	h.e.Restore([]timer.Snapshot{{
		ID: "tmr-late", Name: "Late", TotalSeconds: 60, RemainingSeconds: 40,
		StartTime: now.Add(-90 * time.Second), LastInteraction: now.Add(-90 * time.Second),
	}})

	h.waitState(t, "tmr-late", timer.StateRinging)
	_, playing := h.alarms.last()
	assert.Equal(t, 1, playing)
	require.Eventually(t, func() bool { return len(h.notifier.sent()) == 1 }, waitFor, poll)
}

func TestSaveStateDisabled(t *testing.T) {
	settings := store.DefaultSettings()
	settings.SaveState = false
	h := newHarness(t, settings)
	s := h.create(t, "Tea", 60)
	require.NoError(t, h.e.PauseResume(s.ID))
	assert.Zero(t, h.store.count())

	settings.SaveState = true
	h.e.ApplySettings(settings)
	require.NoError(t, h.e.PauseResume(s.ID))
	assert.Equal(t, 1, h.store.count())
	assert.True(t, h.e.Settings().SaveState)
}

func TestCommandLoop(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.e.Run(ctx)

	send := func(cmd control.Command) error {
		cmd.Reply = make(chan error, 1)
		h.e.Enqueue(cmd)
		select {
		case err := <-cmd.Reply:
			return err
		case <-time.After(waitFor):
			t.Fatalf("no reply to %s", cmd.Type)
			return nil
		}
	}

	require.NoError(t, send(control.Command{Type: control.CmdCreate,
		Config: timer.TimerConfig{Name: "Tea", TotalSeconds: 30}}))
	list := h.e.List()
	require.Len(t, list, 1)
	id := list[0].ID

	var verr *timer.ValidationError
	assert.ErrorAs(t, send(control.Command{Type: control.CmdCreate}), &verr)
	assert.ErrorIs(t, send(control.Command{Type: control.CmdStop, TimerID: "nope"}), ErrNotFound)

	require.NoError(t, send(control.Command{Type: control.CmdPauseResume, TimerID: id}))
	require.NoError(t, send(control.Command{Type: control.CmdEditDescription, TimerID: id,
		Name: "Chai", Description: "spiced"}))
	require.NoError(t, send(control.Command{Type: control.CmdEditSound, TimerID: id, SoundPath: "/sounds/bell.ogg"}))
	got, _ := h.e.Get(id)
	assert.Equal(t, timer.StatePaused, got.State)
	assert.Equal(t, "Chai", got.Name)
	assert.Equal(t, "/sounds/bell.ogg", got.SoundPath)

	require.NoError(t, send(control.Command{Type: control.CmdStop, TimerID: id}))
	require.NoError(t, send(control.Command{Type: control.CmdRerun, TimerID: id}))
	require.NoError(t, send(control.Command{Type: control.CmdDelete, TimerID: id}))
	assert.Empty(t, h.e.List())
	assert.Error(t, send(control.Command{Type: control.CommandType(99)}))
}

func TestClose(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	events, _ := h.e.Subscribe()
	a := h.create(t, "A", 1)
	h.create(t, "B", 60)
	h.clock.Advance(2 * time.Second)
	h.waitState(t, a.ID, timer.StateRinging)

	h.e.Close()
	h.e.Close()

	_, playing := h.alarms.last()
	assert.Equal(t, 0, playing)
	_, err := h.e.Create(timer.TimerConfig{Name: "C", TotalSeconds: 5})
	assert.ErrorIs(t, err, ErrClosed)

	require.Eventually(t, func() bool {
		for {
			select {
			case _, ok := <-events:
				if !ok {
					return true
				}
			default:
				return false
			}
		}
	}, waitFor, poll)
}

type blockingNotifier struct {
	entered chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) Notify(notify.Message) error {
	close(n.entered)
	<-n.release
	return nil
}

func TestClose_WaitsForPendingNotification(t *testing.T) {
	clock := timertest.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	n := &blockingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	e := New(Options{
		Clock:        clock,
		Store:        &memStore{},
		NewAlarm:     func() Alarm { return &fakeAlarm{rec: &fakeAlarms{}} },
		Notifier:     n,
		Settings:     store.DefaultSettings(),
		BuiltinSound: builtin,
		TickInterval: poll,
	})
	_, err := e.Create(timer.TimerConfig{Name: "Tea", TotalSeconds: 1})
	require.NoError(t, err)
	clock.Advance(2 * time.Second)

	select {
	case <-n.entered:
	case <-time.After(waitFor):
		t.Fatal("notification was never sent")
	}

	closed := make(chan struct{})
	go func() {
		e.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while a notification was still being sent")
	case <-time.After(20 * time.Millisecond):
	}

	close(n.release)
	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("Close did not return")
	}
}

func TestSubscribe_Cancel(t *testing.T) {
	h := newHarness(t, store.DefaultSettings())
	events, cancel := h.e.Subscribe()
	cancel()
	cancel()
	_, ok := <-events
	assert.False(t, ok)
	h.create(t, "A", 60)
}

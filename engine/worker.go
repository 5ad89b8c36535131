package engine

import (
	"context"
	"log"
	"time"

	"TimeRing/notify"
	"TimeRing/timer"
)

// startWorkerLocked replaces any countdown worker of id with a fresh one.
func (e *Engine) startWorkerLocked(id string) {
	e.cancelWorkerLocked(id)

	ctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		cancel: cancel,
		done:   make(chan struct{}),
		resume: make(chan struct{}, 1),
	}
	e.workers[id] = w
	e.running.Add(1)

	go func() {
		defer e.running.Done()
		defer close(w.done)
		if msg, ok := e.countdown(ctx, id, w); ok {
			e.dispatch(msg)
		}
	}()
}

// cancelWorkerLocked signals the worker of id to exit and forgets it. The
// returned worker (nil if none) can be waited on once mu is released.
func (e *Engine) cancelWorkerLocked(id string) *worker {
	w := e.workers[id]
	if w == nil {
		return nil
	}
	w.cancel()
	delete(e.workers, id)
	return w
}

// countdown is the body of a countdown worker. It returns the completion
// notification to send, if any, once the timer has finished.
func (e *Engine) countdown(ctx context.Context, id string, w *worker) (notify.Message, bool) {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	for {
		e.mu.Lock()
		if ctx.Err() != nil {
			e.mu.Unlock()
			return notify.Message{}, false
		}
		t, ok := e.timers[id]
		if !ok {
			e.mu.Unlock()
			return notify.Message{}, false
		}

		if t.IsPaused {
			e.mu.Unlock()
			select {
			case <-w.resume:
				continue
			case <-ctx.Done():
				return notify.Message{}, false
			}
		}

		if e.tickLocked(t) {
			if e.workers[id] == w {
				delete(e.workers, id)
			}
			msg, send := e.completeLocked(t)
			e.mu.Unlock()
			return msg, send
		}
		e.mu.Unlock()

		select {
		case <-ctx.Done():
			return notify.Message{}, false
		case <-ticker.C:
		}
	}
}

// tickLocked recomputes the remaining time and reports whether the timer
// reached zero.
func (e *Engine) tickLocked(t *timer.Timer) bool {
	prev := t.RemainingSeconds
	remaining := t.Recompute(e.clock.Now())
	if remaining == 0 {
		return true
	}
	if remaining != prev {
		e.persistLocked(false)
		e.publish(Event{Type: EventTick, TimerID: t.ID})
	}
	return false
}

// completeLocked moves t to ringing, starts its alarm and builds the
// notification that should be sent once mu is released.
func (e *Engine) completeLocked(t *timer.Timer) (notify.Message, bool) {
	t.Finish(e.clock.Now())
	e.startAlarmLocked(t)
	e.persistLocked(true)
	e.publish(Event{Type: EventFinished, TimerID: t.ID})

	if !e.settings.ShowNotifications || e.notifier == nil {
		return notify.Message{}, false
	}
	return notify.Completion(t.Name, t.Description, e.settings.IncludeDescription,
		notify.ParseUrgency(e.settings.NotificationUrgency)), true
}

func (e *Engine) dispatch(msg notify.Message) {
	if err := e.notifier.Notify(msg); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

// Package audio plays alarm sounds. A Player owns one playback session at a
// time; looping is done by invoking the Backend again each time a play
// finishes, so backends only need to know how to play a file once.
package audio

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrNoPlayer is returned when no audio output is available.
var ErrNoPlayer = errors.New("no audio player available")

// loopGap separates two plays of a looping alarm.
var loopGap = 100 * time.Millisecond

// Backend plays path once, blocking until playback ends or ctx is cancelled.
type Backend interface {
	Play(ctx context.Context, path string) error
}

// Player plays, loops and stops an alarm sound for a single timer.
type Player struct {
	backend Backend

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPlayer returns a player using backend.
func NewPlayer(backend Backend) *Player {
	return &Player{backend: backend}
}

// Start begins playback of path, replacing any current session. It only
// blocks while a previous session shuts down. Playback errors are logged and
// end the session.
func (p *Player) Start(path string, loop bool) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.mu.Lock()
	prevCancel, prevDone := p.cancel, p.done
	p.cancel, p.done = cancel, done
	p.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	go func() {
		defer close(done)
		for {
			if err := p.backend.Play(ctx, path); err != nil {
				if ctx.Err() == nil {
					log.Printf("Alarm playback of %s failed: %v", path, err)
				}
				return
			}
			if !loop {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(loopGap):
			}
		}
	}()
}

// Stop ends the current session, if any, and waits for it to finish.
// Calling Stop on an idle player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Playing reports whether a session is still running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

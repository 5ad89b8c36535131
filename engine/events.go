package engine

// EventType says what changed in the collection.
type EventType int

const (
	EventCreated EventType = iota
	EventUpdated
	EventTick
	EventFinished
	EventDeleted
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventTick:
		return "tick"
	case EventFinished:
		return "finished"
	case EventDeleted:
		return "deleted"
	}
	return "unknown"
}

// Event is a change notification. TimerID is empty when several timers
// changed at once.
type Event struct {
	Type    EventType
	TimerID string
}

// Subscribe returns a channel of change events and a function that cancels
// the subscription. Events are dropped rather than queued when the
// subscriber falls behind; a reader should treat any event as "refresh".
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)

	e.subMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if c, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

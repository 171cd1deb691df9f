package session

import (
	"fmt"
	"sync"
)

// DefaultEventBuffer is the per-participant event queue depth.
const DefaultEventBuffer = 64

// Participant routes session events to a Go channel drained by the
// transport. One Participant may take part in several sessions; every Event
// carries its session id.
type Participant struct {
	id     string
	events chan Event
	mu     sync.Mutex
	closed bool
}

// NewParticipant creates a Participant with an open events channel.
//
// Precondition: id must be non-empty.
func NewParticipant(id string, bufferSize int) *Participant {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBuffer
	}
	return &Participant{id: id, events: make(chan Event, bufferSize)}
}

// ID returns the opaque routing id.
func (p *Participant) ID() string { return p.id }

// Push enqueues ev without blocking.
//
// Postcondition: returns an error if the participant is closed or its
// buffer is full; the event is dropped in both cases.
func (p *Participant) Push(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return fmt.Errorf("participant %s is closed", p.id)
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return fmt.Errorf("participant %s event buffer full", p.id)
	}
}

// Events returns the read-only events channel.
func (p *Participant) Events() <-chan Event { return p.events }

// Close closes the events channel. Safe to call multiple times.
func (p *Participant) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

// IsClosed reports whether Close has been called.
func (p *Participant) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

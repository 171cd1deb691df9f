package session

import (
	"context"

	"github.com/looplab/fsm"
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusAwaitingSecondParticipant Status = "awaiting_second_participant"
	StatusActive                    Status = "active"
	StatusEnded                     Status = "ended"
)

const (
	transitionStart = "start"
	transitionEnd   = "end"
)

// lifecycle wraps the session status machine:
//
//	awaiting_second_participant --start--> active --end--> ended
//	awaiting_second_participant --end--> ended
type lifecycle struct {
	f *fsm.FSM
}

func newLifecycle() *lifecycle {
	return &lifecycle{f: fsm.NewFSM(
		string(StatusAwaitingSecondParticipant),
		fsm.Events{
			{Name: transitionStart, Src: []string{string(StatusAwaitingSecondParticipant)}, Dst: string(StatusActive)},
			{Name: transitionEnd, Src: []string{string(StatusAwaitingSecondParticipant), string(StatusActive)}, Dst: string(StatusEnded)},
		},
		fsm.Callbacks{},
	)}
}

func (l *lifecycle) Current() Status { return Status(l.f.Current()) }

// fire applies a transition, reporting false when it is not allowed from
// the current status.
func (l *lifecycle) fire(name string) bool {
	return l.f.Event(context.Background(), name) == nil
}

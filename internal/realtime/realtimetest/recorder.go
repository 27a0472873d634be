// Package realtimetest provides an emitter that records events for tests.
package realtimetest

import (
	"context"
	"sync"
)

// Emitted is one recorded event.
type Emitted struct {
	Room    string
	Event   string
	Payload interface{}
}

// Recorder is an Emitter that keeps every event it is given.
type Recorder struct {
	mu     sync.Mutex
	events []Emitted
	// Err, when set, is returned after recording.
	Err error
}

// Emit implements realtime.Emitter.
func (r *Recorder) Emit(_ context.Context, room, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Emitted{Room: room, Event: event, Payload: payload})
	return r.Err
}

// Events returns a copy of what was emitted.
func (r *Recorder) Events() []Emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Emitted(nil), r.events...)
}

// InRoom returns the events emitted to one room.
func (r *Recorder) InRoom(room string) []Emitted {
	var out []Emitted
	for _, e := range r.Events() {
		if e.Room == room {
			out = append(out, e)
		}
	}
	return out
}

package notify

import (
	"context"
	"sync"
)

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory. It backs tests and local runs.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned by Publish instead of recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OtpCalls filters the recorded OtpEmailSendCall events.
func (r *Recorder) OtpCalls() []OtpEmailSendCall {
	var out []OtpEmailSendCall
	for _, e := range r.Events() {
		if c, ok := e.(OtpEmailSendCall); ok {
			out = append(out, c)
		}
	}
	return out
}

// Registrations filters the recorded UserRegisterEvent events.
func (r *Recorder) Registrations() []UserRegisterEvent {
	var out []UserRegisterEvent
	for _, e := range r.Events() {
		if u, ok := e.(UserRegisterEvent); ok {
			out = append(out, u)
		}
	}
	return out
}

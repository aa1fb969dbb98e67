// Package eventbustest provides a publisher that records what it is given.
package eventbustest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus"
)

// Recorder is an eventbus.Publisher that keeps every envelope in memory.
type Recorder struct {
	mu        sync.Mutex
	envelopes []*eventbus.Envelope
	err       error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes Publish return err without recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(_ context.Context, routingKey string, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	env := &eventbus.Envelope{}
	if err := json.Unmarshal(payload, env); err != nil {
		return err
	}
	if env.RoutingKey == "" {
		env.RoutingKey = routingKey
	}
	r.envelopes = append(r.envelopes, env)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Envelopes returns a copy of everything recorded so far.
func (r *Recorder) Envelopes() []*eventbus.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*eventbus.Envelope(nil), r.envelopes...)
}

// RoutingKeys lists the routing keys in publish order.
func (r *Recorder) RoutingKeys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.envelopes))
	for _, env := range r.envelopes {
		keys = append(keys, env.RoutingKey)
	}
	return keys
}

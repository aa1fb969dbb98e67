// Package notify carries signals between surfaces that share a session,
// such as the due-date banner asking the dashboard to open checkout.
package notify

import (
	"errors"
	"log/slog"
	"sync"
)

// ErrSubscriberMounted is returned by Subscribe while another subscriber is
// registered. A bus has at most one subscriber.
var ErrSubscriberMounted = errors.New("notify: subscriber already mounted")

// Bus is a typed publish/subscribe channel with at most one subscriber.
// Delivery is synchronous and at most once; events published while nobody
// is subscribed are dropped.
type Bus[T any] struct {
	name   string
	logger *slog.Logger

	mu      sync.RWMutex
	handler func(T)
	token   uint64
}

// NewBus creates a bus. name only appears in logs.
func NewBus[T any](name string, logger *slog.Logger) *Bus[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{name: name, logger: logger}
}

// Subscribe mounts handler and returns the function that unmounts it.
// Unsubscribing twice, or after someone else mounted, is a no-op.
func (b *Bus[T]) Subscribe(handler func(T)) (unsubscribe func(), err error) {
	if handler == nil {
		return nil, errors.New("notify: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler != nil {
		return nil, ErrSubscriberMounted
	}
	b.token++
	token := b.token
	b.handler = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.token == token {
			b.handler = nil
		}
	}, nil
}

// Publish hands event to the subscriber and reports whether one was there.
// The handler runs on the caller's goroutine.
func (b *Bus[T]) Publish(event T) bool {
	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()

	if handler == nil {
		b.logger.Debug("notification dropped, no subscriber", "bus", b.name)
		return false
	}
	handler(event)
	return true
}

// HasSubscriber reports whether a subscriber is mounted.
func (b *Bus[T]) HasSubscriber() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.handler != nil
}

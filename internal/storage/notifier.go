package storage

import (
	"context"
	"sync"
)

const changeBuffer = 16

// localNotifier fans writes out to in-process watchers.
type localNotifier struct {
	mu       sync.Mutex
	watchers map[Namespace]map[chan string]struct{}
}

func newLocalNotifier() *localNotifier {
	return &localNotifier{watchers: make(map[Namespace]map[chan string]struct{})}
}

func (n *localNotifier) Changes(ctx context.Context, ns Namespace) (<-chan string, error) {
	ch := make(chan string, changeBuffer)

	n.mu.Lock()
	if n.watchers[ns] == nil {
		n.watchers[ns] = make(map[chan string]struct{})
	}
	n.watchers[ns][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.watchers[ns], ch)
		n.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func (n *localNotifier) notify(ns Namespace, keys ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.watchers[ns] {
		for _, key := range keys {
			select {
			case ch <- key:
			default:
			}
		}
	}
}

func entryKeys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

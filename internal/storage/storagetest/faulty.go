// Package storagetest provides store doubles for tests in other packages.
package storagetest

import (
	"context"
	"errors"
	"sync"

	"github.com/foodthrift/paysmallsmall/internal/storage"
)

// ErrInjected is the default failure returned by FaultyStore.
var ErrInjected = errors.New("storagetest: injected failure")

// FaultyStore wraps a store and fails selected operations on demand.
type FaultyStore struct {
	storage.Store

	mu        sync.Mutex
	failGet   error
	failWrite error
	writes    int
}

// NewFaultyStore wraps inner, or a fresh memory store when inner is nil.
func NewFaultyStore(inner storage.Store) *FaultyStore {
	if inner == nil {
		inner = storage.NewMemoryStore()
	}
	return &FaultyStore{Store: inner}
}

// FailReads makes every Get return err until cleared with nil.
func (f *FaultyStore) FailReads(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet = err
}

// FailWrites makes Put, PutAll and Delete return err until cleared with nil.
func (f *FaultyStore) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = err
}

// Writes counts write calls that were let through.
func (f *FaultyStore) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

func (f *FaultyStore) Get(ctx context.Context, ns storage.Namespace, key string) ([]byte, error) {
	f.mu.Lock()
	err := f.failGet
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.Store.Get(ctx, ns, key)
}

func (f *FaultyStore) Put(ctx context.Context, ns storage.Namespace, key string, value []byte) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.Store.Put(ctx, ns, key, value)
}

func (f *FaultyStore) PutAll(ctx context.Context, ns storage.Namespace, entries ...storage.Entry) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.Store.PutAll(ctx, ns, entries...)
}

func (f *FaultyStore) Delete(ctx context.Context, ns storage.Namespace, key string) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.Store.Delete(ctx, ns, key)
}

// Changes forwards to the wrapped store when it supports notifications.
func (f *FaultyStore) Changes(ctx context.Context, ns storage.Namespace) (<-chan string, error) {
	if n, ok := f.Store.(storage.ChangeNotifier); ok {
		return n.Changes(ctx, ns)
	}
	return nil, errors.ErrUnsupported
}

func (f *FaultyStore) writeErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	f.writes++
	return nil
}

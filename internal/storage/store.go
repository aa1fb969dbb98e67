// Package storage is the namespaced key-value store that backs the ledger,
// the plan catalog and the session. Values are opaque bytes (JSON in practice).
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by Get when a key was never written.
	ErrNotFound = errors.New("storage: key not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("storage: store closed")
)

// Namespace partitions keys. User data lives in UserNamespace(id); the plan
// catalog and session live in GlobalNamespace.
type Namespace string

// GlobalNamespace holds data shared by every user on the device.
const GlobalNamespace Namespace = "global"

// UserNamespace returns the partition owned by userID.
func UserNamespace(userID string) Namespace {
	return Namespace("user:" + userID)
}

// Keys.
const (
	KeySubscriptions = "subscriptions"
	KeyTransactions  = "transactions"
	KeyPlans         = "plans"
	KeyArchivedPlans = "archivedPlans"
	KeySession       = "session"
	KeyActiveView    = "activeView"
)

// Entry is one key/value pair of a batch write.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a namespaced key-value store.
type Store interface {
	Get(ctx context.Context, ns Namespace, key string) ([]byte, error)
	Put(ctx context.Context, ns Namespace, key string, value []byte) error
	Delete(ctx context.Context, ns Namespace, key string) error
	// PutAll writes every entry or none of them.
	PutAll(ctx context.Context, ns Namespace, entries ...Entry) error
	Ping(ctx context.Context) error
	Close() error
}

// ChangeNotifier is implemented by stores that can report writes. The
// returned channel yields changed keys and is closed when ctx is done.
// Delivery is best effort: a slow reader may miss notifications.
type ChangeNotifier interface {
	Changes(ctx context.Context, ns Namespace) (<-chan string, error)
}

// GetJSON reads and decodes key. found is false when the key was never written.
func GetJSON[T any](ctx context.Context, s Store, ns Namespace, key string) (value T, found bool, err error) {
	raw, err := s.Get(ctx, ns, key)
	if errors.Is(err, ErrNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, err
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, false, fmt.Errorf("decode %s/%s: %w", ns, key, err)
	}
	return value, true, nil
}

// PutJSON encodes and writes value.
func PutJSON(ctx context.Context, s Store, ns Namespace, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", ns, key, err)
	}
	return s.Put(ctx, ns, key, raw)
}

// JSONEntry encodes value as a batch entry.
func JSONEntry(key string, value any) (Entry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return Entry{Key: key, Value: raw}, nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foodthrift/paysmallsmall/internal/storage"
)

var (
	// ErrNotSignedIn is returned by Current when no session is stored.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrRoleUnavailable is returned when signing in with a role that has
	// no mock account.
	ErrRoleUnavailable = errors.New("no account for role")
)

// Manager signs mock users in and out and remembers the active view. State
// lives in the global namespace so every surface on the device shares it.
type Manager struct {
	store  storage.Store
	logger *slog.Logger
}

// NewManager creates a session manager.
func NewManager(store storage.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}
}

// Login signs in the mock account for role and moves to its home view.
func (m *Manager) Login(ctx context.Context, role Role) (User, error) {
	var user User
	switch role {
	case RoleCustomer:
		user = MockCustomer()
	case RoleAdmin:
		user = MockAdmin()
	default:
		return User{}, fmt.Errorf("%w: %s", ErrRoleUnavailable, role)
	}

	sessionEntry, err := storage.JSONEntry(storage.KeySession, user)
	if err != nil {
		return User{}, err
	}
	viewEntry, err := storage.JSONEntry(storage.KeyActiveView, HomeView(role))
	if err != nil {
		return User{}, err
	}
	if err := m.store.PutAll(ctx, storage.GlobalNamespace, sessionEntry, viewEntry); err != nil {
		return User{}, fmt.Errorf("save session: %w", err)
	}

	m.logger.InfoContext(ctx, "signed in", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Logout clears the session and returns to the auth view.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, storage.GlobalNamespace, storage.KeySession); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := storage.PutJSON(ctx, m.store, storage.GlobalNamespace, storage.KeyActiveView, ViewAuth); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "signed out")
	return nil
}

// Current returns the signed-in user.
func (m *Manager) Current(ctx context.Context) (User, error) {
	user, found, err := storage.GetJSON[User](ctx, m.store, storage.GlobalNamespace, storage.KeySession)
	if err != nil {
		return User{}, err
	}
	if !found {
		return User{}, ErrNotSignedIn
	}
	return user, nil
}

// ActiveView returns the last view, or ViewAuth when none was saved.
func (m *Manager) ActiveView(ctx context.Context) (View, error) {
	view, found, err := storage.GetJSON[View](ctx, m.store, storage.GlobalNamespace, storage.KeyActiveView)
	if err != nil {
		return "", err
	}
	if !found || view == "" {
		return ViewAuth, nil
	}
	return view, nil
}

// SetActiveView records the view the user moved to.
func (m *Manager) SetActiveView(ctx context.Context, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}
	return storage.PutJSON(ctx, m.store, storage.GlobalNamespace, storage.KeyActiveView, view)
}

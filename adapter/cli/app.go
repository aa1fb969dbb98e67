package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/foodthrift/paysmallsmall/internal/advisory"
	internalApp "github.com/foodthrift/paysmallsmall/internal/app"
	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	savingsApp "github.com/foodthrift/paysmallsmall/internal/savings/application"
	"github.com/foodthrift/paysmallsmall/internal/session"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

var (
	// ErrNotInitialized is returned by commands run without a wired app.
	ErrNotInitialized = errors.New("application not initialized - storage connection required")
	// ErrAdminRequired is returned when a customer runs an administrator command.
	ErrAdminRequired = errors.New("this command requires an administrator")
)

// App holds the CLI application dependencies.
type App struct {
	Catalog  *catalogApp.Service
	Ledger   *savingsApp.Ledger
	Sessions *session.Manager
	Advisory *advisory.Service
	Health   *observability.HealthRegistry

	// OpenUserSession starts the monitor and settlement runtime for a user.
	OpenUserSession func(ctx context.Context, user session.User) (*internalApp.UserSession, error)

	// DefaultUserID is used when nobody is signed in.
	DefaultUserID string
}

// NewApp exposes the container's services to the commands.
func NewApp(c *internalApp.Container) *App {
	return &App{
		Catalog:         c.Catalog,
		Ledger:          c.Ledger,
		Sessions:        c.Sessions,
		Advisory:        c.Advisory,
		Health:          c.Health,
		OpenUserSession: c.OpenUserSession,
		DefaultUserID:   c.Config.UserID,
	}
}

// CurrentUser returns the signed-in user, falling back to the mock customer
// under DefaultUserID.
func (a *App) CurrentUser(ctx context.Context) session.User {
	if a.Sessions != nil {
		if user, err := a.Sessions.Current(ctx); err == nil {
			return user
		}
	}
	user := session.MockCustomer()
	if a.DefaultUserID != "" {
		user.ID = a.DefaultUserID
	}
	return user
}

// RequireAdmin fails unless an administrator is signed in.
func (a *App) RequireAdmin(ctx context.Context) (session.User, error) {
	user := a.CurrentUser(ctx)
	if !user.IsAdmin() {
		return session.User{}, fmt.Errorf("%w; run 'paysmall auth login admin'", ErrAdminRequired)
	}
	return user, nil
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the app or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}

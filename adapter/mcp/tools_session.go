package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/foodthrift/paysmallsmall/internal/session"
)

type loginInput struct {
	Role string `json:"role" jsonschema:"required"`
}

type viewInput struct {
	View string `json:"view" jsonschema:"required"`
}

func registerSessionTools(srv *mcp.Server, t *toolset) {
	srv.Tool("session.login").
		Description("Sign in as the demo CUSTOMER or ADMIN account").
		Handler(t.login)

	srv.Tool("session.logout").
		Description("Sign out").
		Handler(func(ctx context.Context, input struct{}) (map[string]any, error) {
			if t.app == nil || t.app.Sessions == nil {
				return nil, errNotInitialized
			}
			if err := t.app.Sessions.Logout(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"signed_in": false}, nil
		})

	srv.Tool("session.whoami").
		Description("Show the signed-in account and active view").
		Handler(t.whoami)

	srv.Tool("session.view").
		Description("Switch the active view").
		Handler(func(ctx context.Context, input viewInput) (map[string]any, error) {
			if t.app == nil || t.app.Sessions == nil {
				return nil, errNotInitialized
			}
			view, err := session.ParseView(input.View)
			if err != nil {
				return nil, err
			}
			if err := t.app.Sessions.SetActiveView(ctx, view); err != nil {
				return nil, err
			}
			return map[string]any{"view": view}, nil
		})
}

func (t *toolset) login(ctx context.Context, input loginInput) (map[string]any, error) {
	if t.app == nil || t.app.Sessions == nil {
		return nil, errNotInitialized
	}
	role, err := session.ParseRole(input.Role)
	if err != nil {
		return nil, err
	}
	user, err := t.app.Sessions.Login(ctx, role)
	if err != nil {
		return nil, err
	}
	return map[string]any{"signed_in": true, "user": user}, nil
}

func (t *toolset) whoami(ctx context.Context, input struct{}) (map[string]any, error) {
	if t.app == nil || t.app.Sessions == nil {
		return nil, errNotInitialized
	}
	user, err := t.app.Sessions.Current(ctx)
	if errors.Is(err, session.ErrNotSignedIn) {
		return map[string]any{"signed_in": false}, nil
	}
	if err != nil {
		return nil, err
	}
	view, err := t.app.Sessions.ActiveView(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"signed_in": true, "user": user, "view": view}, nil
}

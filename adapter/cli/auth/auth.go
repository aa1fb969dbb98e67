package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/session"
)

// Cmd is the session command group
var Cmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in and out of the mock accounts",
}

var loginCmd = &cobra.Command{
	Use:   "login <customer|admin>",
	Short: "Sign in as the demo customer or administrator",
	Long: `Sign in with one of the built-in accounts. Staff sign-in is not
available yet.

Examples:
  paysmall auth login customer
  paysmall auth login admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		role, err := session.ParseRole(args[0])
		if err != nil {
			return err
		}
		user, err := app.Sessions.Login(cmd.Context(), role)
		if err != nil {
			return fmt.Errorf("sign in failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Welcome to %s, %s!\n", session.AppName, user.FirstName())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if err := app.Sessions.Logout(cmd.Context()); err != nil {
			return fmt.Errorf("sign out failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account and active view",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		user, err := app.Sessions.Current(ctx)
		if errors.Is(err, session.ErrNotSignedIn) {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		if err != nil {
			return err
		}
		view, err := app.Sessions.ActiveView(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s>\n", user.Name, user.Email)
		fmt.Fprintf(out, "  id:   %s\n", user.ID)
		fmt.Fprintf(out, "  role: %s\n", user.Role)
		fmt.Fprintf(out, "  view: %s\n", view)
		return nil
	},
}

var viewCmd = &cobra.Command{
	Use:   "view <view>",
	Short: "Switch the active view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		view, err := session.ParseView(args[0])
		if err != nil {
			names := make([]string, 0, len(session.Views()))
			for _, v := range session.Views() {
				names = append(names, string(v))
			}
			return fmt.Errorf("%w (one of: %s)", err, strings.Join(names, ", "))
		}
		if err := app.Sessions.SetActiveView(cmd.Context(), view); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active view: %s\n", view)
		return nil
	},
}

func init() {
	Cmd.AddCommand(loginCmd)
	Cmd.AddCommand(logoutCmd)
	Cmd.AddCommand(whoamiCmd)
	Cmd.AddCommand(viewCmd)
}

// AngelaMos | 2026
// commands.go

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/apiclient"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/gate"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/navigation"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/session"
)

func newLoginCommand(a *app, opts Options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session for later runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (email == "" || password == "") && opts.Interactive() {
				var err error
				email, password, err = opts.Prompter.Credentials(email, password)
				if err != nil {
					return err
				}
			}

			sess, err := a.store.Login(cmd.Context(), email, password)
			if err != nil {
				return loginError(err)
			}

			fmt.Fprintf(a.out, "%s %s as %s\n",
				a.styles.title.Render("Logged in"),
				sess.Identity.Email,
				sess.Identity.Role,
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (prompted when omitted)")
	return cmd
}

func loginError(err error) error {
	var validationErr *session.ValidationError
	if errors.As(err, &validationErr) {
		return &ExitError{Code: ExitUsage, Err: err}
	}

	if authErr, ok := session.AsAuthError(err); ok {
		if authErr.Unreachable() {
			return &ExitError{Code: ExitNetwork, Err: err}
		}
		return &ExitError{Code: ExitAuthFailed, Err: err}
	}
	return err
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.store.Logout(cmd.Context())
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in identity and its role predicates",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			identity, ok := a.store.Current()
			if !ok {
				return exitf(ExitLoginRequired, "not logged in")
			}

			renderIdentity(a.out, a.styles, identity, a.store)
			return nil
		},
	}
}

func newMenuCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the areas the current role may open",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			r, authenticated := a.store.Role()
			entries := navigation.Default()

			renderMenu(a.out, a.styles,
				navigation.Filter(entries, r, authenticated),
				navigation.AdminGroup(entries, r, authenticated),
			)
			return nil
		},
	}
}

func newOpenCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a back-office area, e.g. /persons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !strings.HasPrefix(path, "/") {
				path = "/" + path
			}

			g := gate.New(a.store, gate.RoutesFrom(navigation.Default()), gate.DefaultLoginPath)
			decision := g.Check(path)
			if !decision.Allow {
				return exitf(ExitLoginRequired,
					"%s: redirected to %s (%s)", path, decision.Redirect, decision.Reason)
			}

			route, ok := g.Lookup(path)
			if !ok {
				return exitf(ExitUsage, "%s: no such area", path)
			}
			if route.Resource == "" {
				fmt.Fprintln(a.out, a.styles.title.Render(route.Label))
				return nil
			}

			rows, err := a.api.List(cmd.Context(), route.Resource)
			var statusErr *apiclient.StatusError
			switch {
			case errors.Is(err, apiclient.ErrUnauthorized), errors.Is(err, apiclient.ErrNoSession):
				return exitf(ExitLoginRequired, "%s: redirected to %s", path, g.LoginPath())
			case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusForbidden:
				return &ExitError{Code: ExitAuthFailed, Err: err}
			case err != nil:
				return &ExitError{Code: ExitNetwork, Err: err}
			}

			if asJSON {
				enc := json.NewEncoder(a.out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			renderRows(a.out, a.styles, route.Label, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the records as JSON")
	return cmd
}

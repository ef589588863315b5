package main

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/JHMR18/truck-drive/internal/session"
	"github.com/JHMR18/truck-drive/internal/token"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd(a *app) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Long: `Sign in with backend credentials. The issued tokens are stored
encrypted in the local state directory and renewed automatically before
they expire.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				fmt.Print("Email: ")
				if _, err := fmt.Scanln(&email); err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}
			email = strings.ToLower(strings.TrimSpace(email))

			if password == "" {
				fmt.Print("Password: ")
				raw, err := term.ReadPassword(int(syscall.Stdin))
				fmt.Println()
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				password = string(raw)
			}

			if err := a.session.SignIn(cmd.Context(), email, password); err != nil {
				return err
			}

			if identity := a.session.Identity(); identity != nil {
				fmt.Printf("Signed in as %s (%s)\n", identity.DisplayName(), identity.Role)
			} else {
				fmt.Println("Signed in")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")

	return cmd
}

func logoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAuth(); err != nil {
				return err
			}
			identity := a.session.Identity()
			if identity == nil {
				return fmt.Errorf("no identity loaded")
			}
			return a.output(identity, func() {
				fmt.Printf("%s <%s>\n", identity.DisplayName(), identity.Email)
				fmt.Printf("Role:   %s\n", identity.Role)
				fmt.Printf("Status: %s\n", identity.Status)
			})
		},
	}
}

func authCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Session diagnostics",
	}
	cmd.AddCommand(authStatusCmd(a))
	return cmd
}

// authStatusCmd reports the session without touching the network: the
// state machine, the stored expiry, and what the access token says
// about itself.
func authStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session state and token details",
		RunE: func(cmd *cobra.Command, args []string) error {
			status := struct {
				State     string      `json:"state"`
				User      string      `json:"user,omitempty"`
				Role      string      `json:"role,omitempty"`
				ExpiresAt string      `json:"expires_at,omitempty"`
				Token     *token.Info `json:"token,omitempty"`
			}{
				State: a.session.State().String(),
			}

			if identity := a.session.Identity(); identity != nil {
				status.User = identity.DisplayName()
				status.Role = string(identity.Role)
			}

			if a.session.State() == session.StateAuthenticated {
				tok, err := a.session.Token()
				if err == nil {
					status.ExpiresAt = tok.Expiry.Format("2006-01-02 15:04:05 MST")
					if info, err := token.Inspect(tok.AccessToken); err == nil {
						status.Token = info
					}
				}
			}

			return a.output(status, func() {
				fmt.Printf("State:   %s\n", status.State)
				if status.User != "" {
					fmt.Printf("User:    %s (%s)\n", status.User, status.Role)
				}
				if status.ExpiresAt != "" {
					fmt.Printf("Expires: %s\n", status.ExpiresAt)
				}
				if status.Token != nil && status.Token.Issuer != "" {
					fmt.Printf("Issuer:  %s\n", status.Token.Issuer)
				}
			})
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vitalog/vita/internal/remote"
	"github.com/vitalog/vita/internal/store"
	"github.com/vitalog/vita/internal/ui"
)

var loginCmd = &cobra.Command{
	Use:     "login [user-id]",
	GroupID: "session",
	Short:   "Start a session",
	Long: `Store an access token and activate a user session.

The token is prompted for without echo, or read from --token. When the
token is a JWT its subject claim supplies the user id, so the argument
is only needed for opaque tokens.

Example:
  vita login               # token subject becomes the active user
  vita login alice --token $TOKEN`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()

		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			fmt.Fprint(os.Stderr, "Access token: ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading token: %v\n", err)
				os.Exit(1)
			}
			token = strings.TrimSpace(string(raw))
		}
		if token == "" {
			fmt.Fprintln(os.Stderr, "Error: empty token")
			os.Exit(1)
		}

		userID := ""
		if len(args) == 1 {
			userID = args[0]
		} else {
			sub, err := remote.TokenSubject(token)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: cannot derive user from token (%v); pass a user id\n", err)
				os.Exit(1)
			}
			userID = sub
		}

		ctx := cmd.Context()
		if err := app.store.SetActiveUser(ctx, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := app.store.SetAuthToken(ctx, token); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Logged in as %s\n", ui.RenderPass("✓"), userID)
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "session",
	Short:   "End the session",
	Long: `Clear the active user and stored token.

Local data stays on disk. Rows of other users are left untouched and
become visible again on their next login.`,
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()

		if err := app.store.ClearActiveUser(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s Logged out\n", ui.RenderPass("✓"))
	},
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	GroupID: "session",
	Short:   "Show the active user",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustOpenApp()
		defer app.Close()

		userID, err := app.store.ActiveUser(cmd.Context())
		if errors.Is(err, store.ErrNoSession) {
			fmt.Println("Not logged in")
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(userID)
		if !app.creds.Available(cmd.Context()) {
			fmt.Printf("%s Token missing or expired; sync is paused\n", ui.RenderWarn("⚠"))
		}
	},
}

func init() {
	loginCmd.Flags().String("token", "", "Access token (prompted when omitted)")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

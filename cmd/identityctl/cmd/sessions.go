package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goIdentity/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and terminate user sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list <user-id>",
	Short: "List the live sessions of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		engine, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		sessions, err := engine.ListSessions(cmd.Context(), userID)
		if err != nil {
			return err
		}
		return printSessions(cmd.OutOrStdout(), sessions)
	},
}

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke <session-id>",
	Short: "Terminate one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := session.ParseID(args[0])
		if err != nil {
			return err
		}
		engine, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		if err := engine.Logout(cmd.Context(), sessionID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "session %s terminated\n", sessionID)
		return nil
	},
}

var sessionsRevokeAllCmd = &cobra.Command{
	Use:   "revoke-all <user-id>",
	Short: "Terminate every session of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
		engine, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		n, err := engine.LogoutAll(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d sessions terminated\n", n)
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsRevokeCmd, sessionsRevokeAllCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func printSessions(w io.Writer, sessions []*session.Session) error {
	table := uitable.New()
	table.AddRow("SESSION", "LAST REFRESHED")
	for _, s := range sessions {
		table.AddRow(s.ID, s.LastRefreshed.UTC().Format(time.RFC3339))
	}
	_, err := fmt.Fprintln(w, table)
	return err
}

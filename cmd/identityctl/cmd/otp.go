package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var otpCmd = &cobra.Command{
	Use:   "otp",
	Short: "Email code maintenance",
}

var otpPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete email codes past the delete-before horizon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := openEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer engine.Close()

		n, err := engine.PurgeEmailOtps(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d codes purged\n", n)
		return nil
	},
}

func init() {
	otpCmd.AddCommand(otpPurgeCmd)
	rootCmd.AddCommand(otpCmd)
}

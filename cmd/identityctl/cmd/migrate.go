package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goIdentity/store/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long:  `Opens the SQLite database at GOIDENTITY_DB_PATH, applies every pending migration and prints the resulting version.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		version, err := migrate(cfg.Database.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s at version %d\n", cfg.Database.Path, version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func migrate(path string) (int64, error) {
	store, err := sqlite.Open(path)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return sqlite.MigrationVersion(store.DB())
}

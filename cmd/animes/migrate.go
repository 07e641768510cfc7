package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jbweber/homelab/animes/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the database schema up to date",
	Long: `Open the configured database, apply every pending migration and print
the resulting schema version. serve does the same on startup.

With --down-to N every applied migration above version N is reverted,
newest first. --down-to 0 drops the whole schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ds, err := cfg.InitializeDatabase(log)
		if err != nil {
			return err
		}
		defer ds.Close()

		migrator := migrations.NewDefault(ds.DB, ds.Dialect(), log)
		if cmd.Flags().Changed("down-to") {
			target, _ := cmd.Flags().GetInt64("down-to")
			if err := migrator.Rollback(target); err != nil {
				return errors.Wrapf(err, "failed to roll back to version %d", target)
			}
		}

		current, err := migrator.GetCurrentVersion()
		if err != nil {
			return errors.Wrap(err, "failed to read schema version")
		}

		fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", current)
		return nil
	},
}

func init() {
	migrateCmd.Flags().Int64("down-to", 0, "revert applied migrations above this version")
	rootCmd.AddCommand(migrateCmd)
}

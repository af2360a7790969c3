package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/saildata/trackd/internal/buffer"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the local buffer database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBuffer(func(db *buffer.DB) error {
			return db.MigrateUp()
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBuffer(func(db *buffer.DB) error {
			return db.MigrateDown()
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBuffer(func(db *buffer.DB) error {
			version, dirty, err := db.MigrateVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "version: %d dirty: %v\n", version, dirty)
			return nil
		})
	},
}

func withBuffer(fn func(*buffer.DB) error) error {
	db, err := buffer.Open(filepath.Join(cfg.Data.Dir, bufferFile))
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

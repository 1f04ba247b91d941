package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/auratask/internal/config"
	"github.com/yukikurage/auratask/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := database.Connect(config.Load()); err != nil {
			return err
		}
		if err := database.MigrateDatabase(database.GetDB()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

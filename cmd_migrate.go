package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or upgrades the schema and exits
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Ping(cmd.Context()); err != nil {
			return err
		}
		logger.Info("schema up to date", zap.String("database", db.DatabaseType()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/userhub/apiserver/config"
	"github.com/userhub/apiserver/internal/db"
	"github.com/userhub/apiserver/internal/store"
)

// indexesCmd represents the indexes command.
var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Ensure document-store indexes",
	Long: `Creates the indexes the store relies on, including the unique
index enforcing one account per email. The server also ensures indexes at
startup; this command exists for provisioning a deployment ahead of time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		client, database, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("connect failed: %w", err)
		}
		defer func() {
			_ = client.Disconnect(context.Background())
		}()

		if err := store.NewUserRepository(database).EnsureIndexes(cmd.Context()); err != nil {
			return fmt.Errorf("ensure indexes failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(indexesCmd)
}

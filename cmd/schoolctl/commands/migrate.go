package commands

import (
	"context"
	"fmt"

	"go-school-admin/internal/app"
	"go-school-admin/internal/data"
	"go-school-admin/internal/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the shared migrations and create every owner type's tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.New(cfg.Log, cmd.ErrOrStderr())
		db, err := data.NewDB(cfg.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := app.Migrate(context.Background(), cfg, db, log); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema is up to date for %d owner types\n", len(data.OwnerTypes()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

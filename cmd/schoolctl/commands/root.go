package commands

import (
	"context"
	"fmt"
	"os"

	"go-school-admin/internal/app"
	"go-school-admin/internal/config"
	"go-school-admin/internal/logger"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	driver   string
	dsn      string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "schoolctl",
	Short: "Administer the school records database",
	Long: `schoolctl manages the database behind the school administration service:
it applies migrations, prints the per-owner-type DDL, imports seed files and
lists owners. Settings come from config.yml and SCHOOL_* environment variables;
the flags below override them.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Database driver: sqlite3, mysql or postgres")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "Database connection string")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level")
}

// loadConfig reads the configuration and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if driver != "" {
		cfg.DB.Driver = driver
	}
	if dsn != "" {
		cfg.DB.DSN = dsn
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// openDeps opens storage for commands that read or write records.
func openDeps(cmd *cobra.Command) (app.Deps, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return app.Deps{}, nil, err
	}
	log := logger.New(cfg.Log, cmd.ErrOrStderr())
	return app.Open(context.Background(), cfg, log)
}

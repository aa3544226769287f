package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arawak/singora/internal/config"
	"github.com/arawak/singora/internal/logging"
	"github.com/arawak/singora/migrations"
)

var version = "dev"

var dsn string

var rootCmd = &cobra.Command{
	Use:     "singora-migrate",
	Short:   "Applies or rolls back the singora database schema",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if dsn == "" {
			dsn = config.DSN()
		}
		return nil
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Up(dsn); err != nil {
			return err
		}
		return report()
	},
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back all migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrations.Down(dsn); err != nil {
			return err
		}
		return report()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		return report()
	},
}

func report() error {
	v, dirty, err := migrations.Version(dsn)
	if err != nil {
		return err
	}
	slog.Info("schema version", "version", v, "dirty", dirty)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "MySQL DSN (defaults to SINGORA_DB_DSN or the MYSQL_* variables)")
	rootCmd.AddCommand(upCmd, downCmd, versionCmd)
}

func main() {
	_ = godotenv.Load()
	logger, closer, err := logging.New(os.Getenv("SINGORA_LOG_LEVEL"), "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closer.Close()
	slog.SetDefault(logger.With("version", version))

	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}

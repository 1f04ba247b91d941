package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/yukikurage/auratask/internal/config"
	"github.com/yukikurage/auratask/internal/database"
	"github.com/yukikurage/auratask/internal/repository"
)

var rootCmd = &cobra.Command{
	Use:   "auractl",
	Short: "Operator commands for AuraTask",
	Long: `auractl runs maintenance against the AuraTask database using the same
DB_* environment variables as the API server.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// openRepositories connects with the environment configuration.
func openRepositories() (*config.Config, *repository.Repositories, error) {
	cfg := config.Load()
	if err := database.Connect(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, repository.New(database.GetDB()), nil
}

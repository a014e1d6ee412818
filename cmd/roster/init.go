package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ersonp/roster-core/internal/application/handlers"
	"github.com/ersonp/roster-core/internal/domain/ports"
	"github.com/ersonp/roster-core/internal/infrastructure/config"
	"github.com/ersonp/roster-core/internal/infrastructure/relationaldb/sqlite"
)

func newInitCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a roster project",
		Long:  "Creates a .roster directory with default configuration and, with --db, prepares the SQLite schema.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, dbPath)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to create the schema in")

	return cmd
}

func runInit(cmd *cobra.Command, dbPath string) error {
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	var loader ports.Loader
	if dbPath != "" {
		repo, err := sqlite.NewRepository(config.SQLiteConfig{Path: dbPath})
		if err != nil {
			return fmt.Errorf("creating sqlite repository: %w", err)
		}
		defer repo.Close()
		loader = repo
	}

	result, err := handlers.NewInitHandler(loader).Handle(ctx, cwd)
	if err != nil {
		return err
	}

	pterm.Success.Printf("Created %s\n", result.ConfigPath)
	if dbPath != "" {
		pterm.Success.Printf("Prepared %s with %d group categories\n", dbPath, result.Categories)
	}
	fmt.Println("Roster initialized successfully!")

	return nil
}

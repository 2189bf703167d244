package main

import (
	"os"

	"github.com/ontologymarket/catalog/cmd"
	"github.com/ontologymarket/catalog/cmd/migrate"
	"github.com/ontologymarket/catalog/cmd/run"
	"github.com/ontologymarket/catalog/cmd/seed"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	runCmd := run.NewRunCommand()
	rootCmd.AddCommand(runCmd)

	migrateCmd := migrate.NewMigrateCommand()
	rootCmd.AddCommand(migrateCmd)

	seedCmd := seed.NewSeedCommand()
	rootCmd.AddCommand(seedCmd)

	versionCmd := cmd.NewVersionCommand()
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

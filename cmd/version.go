package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ontologymarket/catalog/internal/build"
)

// NewVersionCommand returns the command to get the catalog version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the catalog version",
		Long:  "Return the catalog version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

func version(cmd *cobra.Command, _ []string) error {
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "catalog version %s date %s commit %s\n", build.Version, build.Date, build.Commit)
	return err
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alem-hub/progression-engine/internal/infrastructure/catalog"
)

// CatalogSummary is printed by catalog validate.
type CatalogSummary struct {
	Valid        bool   `json:"valid"`
	Path         string `json:"path"`
	Levels       int    `json:"levels"`
	Badges       int    `json:"badges"`
	Achievements int    `json:"achievements"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate progression catalogs",
	}
	cmd.AddCommand(newCatalogExportCommand(rootOpts))
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	return cmd
}

func newCatalogExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the active catalog as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := rootOpts.loadCatalog()
			if err != nil {
				return err
			}
			return catalog.Encode(cmd.OutOrStdout(), c)
		},
	}
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a catalog file and report whether it is valid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0])
			if err != nil {
				return err
			}

			summary := CatalogSummary{
				Valid:        true,
				Path:         args[0],
				Levels:       c.Levels().MaxLevel(),
				Badges:       len(c.Badges()),
				Achievements: len(c.Achievements()),
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, summary)
			}
			fmt.Fprintf(out, "✓ %s is valid: %d levels, %d badges, %d achievements\n",
				summary.Path, summary.Levels, summary.Badges, summary.Achievements)
			return nil
		},
	}
}

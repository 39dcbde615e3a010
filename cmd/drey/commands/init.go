package commands

import (
	"fmt"

	"github.com/dyluth/drey/internal/scaffold"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new drey project",
		Long: `Initialize a new drey project in the current directory.

Creates:
  • drey.yml  - Project configuration file
  • tree.yml  - Example instance tree
  • patch.yml - Example patch for tree.yml

Use --force to reinitialize an existing project (WARNING: overwrites these files).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if err := scaffold.CheckExisting(); err != nil {
					return err
				}
			}

			if err := scaffold.Initialize(force); err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			scaffold.PrintSuccess()
			return nil
		},
	}

	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	cmd.Flags().BoolVar(&force, "force", false, "Force reinitialization (overwrites existing project files)")
	return cmd
}

package commands

import (
	"github.com/dyluth/drey/internal/document"
	"github.com/dyluth/drey/internal/filter"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/render"
	"github.com/spf13/cobra"
)

func newTreeCmd() *cobra.Command {
	var (
		treePath   string
		criteria   filter.Criteria
		properties bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show an instance tree",
		Long: `Show a tree file as an indented outline.

With --class or --name, list the matching instances as a table instead.
Both filters are glob patterns ("Part", "*Light", "Base?").

Examples:
  # Show the whole tree with property values
  drey tree --tree tree.yml --props

  # List every Part whose name starts with "Wall"
  drey tree --tree tree.yml --class Part --name "Wall*"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := criteria.Validate(); err != nil {
				return printer.Error("invalid filter", err.Error(), []string{"Use glob patterns like 'Part' or '*Light'"})
			}

			t, err := document.LoadTree(treePath)
			if err != nil {
				return printer.Error("failed to load tree", err.Error(), nil)
			}

			out := cmd.OutOrStdout()
			if criteria.HasFilters() {
				render.FormatInstances(out, criteria.Select(t))
				return nil
			}
			return render.FormatTree(out, t, properties)
		},
	}

	cmd.Flags().StringVarP(&treePath, "tree", "t", "", "Tree file to show (required)")
	cmd.Flags().StringVar(&criteria.ClassGlob, "class", "", "Filter by class (glob pattern)")
	cmd.Flags().StringVar(&criteria.NameGlob, "name", "", "Filter by name (glob pattern)")
	cmd.Flags().BoolVar(&properties, "props", false, "Include property values in the outline")
	cmd.MarkFlagRequired("tree")

	return cmd
}

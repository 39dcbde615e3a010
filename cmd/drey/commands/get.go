package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyluth/drey/internal/document"
	"github.com/dyluth/drey/internal/printer"
	"github.com/dyluth/drey/internal/render"
	"github.com/dyluth/drey/internal/resolver"
	"github.com/dyluth/drey/pkg/mirror"
	"github.com/dyluth/drey/pkg/tree"
	"github.com/spf13/cobra"
)

func newGetCmd(global *globalOptions) *cobra.Command {
	var (
		treePath   string
		fromMirror bool
	)

	cmd := &cobra.Command{
		Use:   "get INSTANCE_ID",
		Short: "Show one instance as JSON",
		Long: `Show the complete state of one instance as pretty-printed JSON.

The instance is read from a tree file (--tree) or from the configured mirror
(--mirror). Short IDs of at least 6 characters are accepted.

Examples:
  drey get 7a1c2e --tree tree.yml
  drey get 7a1c2e00-0000-4000-8000-000000000001 --mirror`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			out := cmd.OutOrStdout()
			shortID := args[0]

			if (treePath == "") == !fromMirror {
				return printer.Error(
					"choose one source",
					"Exactly one of --tree or --mirror is required.",
					[]string{"Read from a file:\n  drey get <id> --tree tree.yml", "Read from the mirror:\n  drey get <id> --mirror"},
				)
			}

			if treePath != "" {
				t, err := document.LoadTree(treePath)
				if err != nil {
					return printer.Error("failed to load tree", err.Error(), nil)
				}
				id, err := resolveInstance(ctx, resolver.TreeIndex{Tree: t}, shortID, treePath)
				if err != nil {
					return err
				}
				inst, _ := t.Get(id)
				return render.FormatInstanceJSON(out, mirror.RecordFromInstance(inst, 0))
			}

			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			client, err := connectMirror(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := resolveInstance(ctx, resolver.MirrorIndex{Client: client}, shortID, "mirror '"+client.Name()+"'")
			if err != nil {
				return err
			}
			record, err := client.GetInstance(ctx, id.String())
			if err != nil {
				if mirror.IsNotFound(err) {
					return printer.Error(
						fmt.Sprintf("instance with ID '%s' not found", id),
						"The instance was resolved but could not be fetched.",
						[]string{"This might indicate a concurrent removal. Try again."},
					)
				}
				return fmt.Errorf("failed to get instance: %w", err)
			}
			return render.FormatInstanceJSON(out, record)
		},
	}

	cmd.Flags().StringVarP(&treePath, "tree", "t", "", "Read the instance from this tree file")
	cmd.Flags().BoolVar(&fromMirror, "mirror", false, "Read the instance from the configured mirror")

	return cmd
}

// resolveInstance expands shortID and turns resolver failures into CLI errors.
func resolveInstance(ctx context.Context, index resolver.Index, shortID, source string) (id tree.ID, err error) {
	id, err = resolver.Resolve(ctx, index, shortID)
	if err == nil {
		return id, nil
	}

	var ambigErr *resolver.AmbiguousError
	switch {
	case resolver.IsNotFoundError(err):
		return id, printer.Error(
			fmt.Sprintf("instance with ID '%s' not found", shortID),
			fmt.Sprintf("No instance in %s matches this ID.", source),
			[]string{"List instances:\n  drey tree --tree <file>"},
		)
	case errors.As(err, &ambigErr):
		return id, printer.Error(
			"ambiguous short ID",
			resolver.FormatAmbiguousError(ambigErr),
			nil,
		)
	default:
		return id, printer.Error("invalid instance ID", err.Error(), nil)
	}
}

package commands

import (
	"context"
	"fmt"

	"github.com/dyluth/drey/internal/document"
	"github.com/dyluth/drey/internal/printer"
	"github.com/spf13/cobra"
)

func newSyncCmd(global *globalOptions) *cobra.Command {
	var treePath string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Replace the mirror's instances with a tree file",
		Long: `Write every instance of a tree file to the configured mirror and delete
mirrored instances the tree no longer contains.

Run this once before 'drey apply --replicate' so the mirror starts from the
same tree the patches are applied to. The change history is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}

			t, err := document.LoadTree(treePath)
			if err != nil {
				return printer.Error("failed to load tree", err.Error(), nil)
			}

			client, err := connectMirror(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Sync(ctx, t); err != nil {
				return fmt.Errorf("failed to sync mirror: %w", err)
			}

			printer.Success("Synced %d instances to mirror '%s'\n", t.Len(), client.Name())
			return nil
		},
	}

	cmd.Flags().StringVarP(&treePath, "tree", "t", "", "Tree file to mirror (required)")
	cmd.MarkFlagRequired("tree")

	return cmd
}

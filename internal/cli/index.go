package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the search index",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Create the search index, or update its schema",
		Long: `Create the vector search index. When it already exists it is
recreated with the current schema; stored records are kept and reindexed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return createIndex(cmd, a)
		},
	})
	return cmd
}

func createIndex(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	idx, err := a.services.Index(ctx)
	if err != nil {
		return err
	}
	replaced, err := idx.EnsureIndex(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	verb := "created"
	if replaced {
		verb = "updated"
	}
	fmt.Fprintf(out, "✓ Index %q %s\n", idx.IndexName(), verb)
	fmt.Fprintf(out, "  Vector dimensions: %d (%s, %s)\n",
		a.cfg.Search.Dimensions, a.cfg.Search.Algorithm, a.cfg.Search.DistanceMetric)
	return nil
}

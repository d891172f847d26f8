package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	var fromBlob bool
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Extract, chunk, embed and index documents",
		Long: `Index every PDF of a local folder (default storage.data_dir) or, with
--from-blob, of the blob container. Documents, chunks and batches that fail are
reported and skipped; the command still succeeds.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var src ingest.Source
			if fromBlob {
				var err error
				if src, err = a.services.BlobSource(ctx); err != nil {
					return err
				}
			} else {
				dir := a.cfg.Storage.DataDir
				if len(args) == 1 {
					dir = args[0]
				}
				src = ingest.NewLocalSource(dir, a.cfg.Storage.Pattern)
			}
			return runIngest(cmd, a, src)
		},
	}
	cmd.Flags().BoolVar(&fromBlob, "from-blob", false, "read documents from the blob container")
	return cmd
}

func runIngest(cmd *cobra.Command, a *app, src ingest.Source) error {
	ctx := cmd.Context()
	ing, err := a.services.Ingester(ctx)
	if err != nil {
		return err
	}
	report, err := ing.Run(ctx, src)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

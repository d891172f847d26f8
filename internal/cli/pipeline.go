package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
)

func newPipelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Check settings, create the index, upload and ingest storage.data_dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireAll(a); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Settings checked\n")
			fmt.Fprintf(out, "  Storage container: %s\n", a.cfg.Storage.Container)
			fmt.Fprintf(out, "  Search index:      %s\n", a.cfg.Search.IndexName)
			fmt.Fprintf(out, "  Embedding model:   %s\n", a.cfg.Embedding.Deployment)

			fmt.Fprintf(out, "\n[1/3] Search index\n%s\n", rule)
			if err := createIndex(cmd, a); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n[2/3] Upload\n%s\n", rule)
			ctx := cmd.Context()
			up, err := a.services.Uploader(ctx)
			if err != nil {
				return err
			}
			results, err := up.UploadPath(ctx, a.cfg.Storage.DataDir, a.cfg.Storage.Pattern)
			if err != nil {
				// local files can still be indexed
				a.logger.Warn("Upload step failed", zap.Error(err))
				fmt.Fprintf(out, "  ✗ upload failed: %v\n", err)
			} else {
				printResults(out, "Uploaded", results)
			}

			fmt.Fprintf(out, "\n[3/3] Indexing\n%s\n", rule)
			return runIngest(cmd, a, ingest.NewLocalSource(a.cfg.Storage.DataDir, a.cfg.Storage.Pattern))
		},
	}
}

// requireAll reports the first missing setting needed by the pipeline.
func requireAll(a *app) error {
	for _, check := range []func() error{
		a.cfg.RequireStorage,
		a.cfg.RequireSearch,
		a.cfg.RequireEmbedding,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

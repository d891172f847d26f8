package cli

import (
	"github.com/spf13/cobra"
)

func newUploadCmd(a *app) *cobra.Command {
	var pattern string
	cmd := &cobra.Command{
		Use:   "upload [path]",
		Short: "Upload a PDF or a folder of PDFs to blob storage",
		Long: `Upload a single file, or every file of a folder matching --pattern,
to the configured blob container. Existing blobs are overwritten.
Without a path, storage.data_dir is uploaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			up, err := a.services.Uploader(ctx)
			if err != nil {
				return err
			}

			path := a.cfg.Storage.DataDir
			if len(args) == 1 {
				path = args[0]
			}
			if pattern == "" {
				pattern = a.cfg.Storage.Pattern
			}

			out := cmd.OutOrStdout()
			results, err := up.UploadPath(ctx, path, pattern)
			if err != nil {
				return err
			}
			printResults(out, "Uploaded", results)

			listing, err := up.List(ctx)
			if err != nil {
				return err
			}
			printListing(out, a.cfg.Storage.Container, listing)
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "file name pattern for folders (default storage.pattern)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the documents in blob storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			up, err := a.services.Uploader(ctx)
			if err != nil {
				return err
			}
			listing, err := up.List(ctx)
			if err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), a.cfg.Storage.Container, listing)
			return nil
		},
	}
}

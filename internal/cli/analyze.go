package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/docqa/internal/domain"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var keyword, output string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Summarize a PDF and analyze the errors it describes around a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			analyzer, err := a.services.Analyzer(ctx)
			if err != nil {
				return err
			}
			an, err := analyzer.AnalyzeFile(ctx, args[0], keyword)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printAnalysis(out, an)
			if output != "" {
				if err := os.WriteFile(output, []byte(an.Content), 0o644); err != nil { //nolint:gosec // a user-readable report
					return fmt.Errorf("save analysis: %w", err)
				}
				fmt.Fprintf(out, "\nSaved analysis to %s\n", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&keyword, "keyword", "k", "", "error code or term to focus on, e.g. TBR-12170 (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the analysis to this file")
	_ = cmd.MarkFlagRequired("keyword")
	return cmd
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		top       int
		queryType string
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			qt, err := domain.ParseQueryType(queryType)
			if err != nil {
				return err
			}
			cfg := a.cfg.RetrievalOptions()
			cfg.QueryType = qt
			if top > 0 {
				cfg.TopN = top
			}

			searcher, err := a.services.Searcher(ctx, qt)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			hits, err := searcher.Retrieve(ctx, query, cfg)
			if err != nil {
				return err
			}
			printHits(cmd.OutOrStdout(), query, hits)
			return nil
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 0, "number of results (default retrieval.top_n)")
	cmd.Flags().StringVar(&queryType, "type", string(domain.QuerySimple), "query type: simple, vector or vector_simple_hybrid")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Beaulewis1977/synthesis-sub002/pkg/synthesis"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	var (
		collectionID string
		topK         int
		withSynth    bool
	)

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "run a hybrid search query against a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			svc, err := synthesis.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("starting service: %w", err)
			}
			defer svc.Close()

			result, err := svc.Query(cmd.Context(), collectionID, args[0], synthesis.QueryOptions{
				TopK:      topK,
				Synthesis: withSynth,
			})
			if err != nil {
				return fmt.Errorf("querying: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.Degraded {
				fmt.Fprintln(out, "(degraded: query embedding fell back to a local provider)")
			}
			for i, r := range result.Results {
				fmt.Fprintf(out, "%d. [%.3f] %s (%s)\n", i+1, r.RerankScore, r.Citation, r.DocumentTitle)
			}
			if result.Synthesis != nil {
				fmt.Fprintln(out, "\n--- synthesis ---")
				for _, a := range result.Synthesis.Approaches {
					fmt.Fprintf(out, "* %s: %s\n", a.Method, a.Summary)
				}
				for _, c := range result.Synthesis.Conflicts {
					fmt.Fprintf(out, "! conflict: %s\n", c.Difference)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "target collection ID")
	cmd.Flags().IntVar(&topK, "top-k", 10, "number of results to return")
	cmd.Flags().BoolVar(&withSynth, "synthesize", false, "run the synthesis engine over the results")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Beaulewis1977/synthesis-sub002/internal/config"
	"github.com/Beaulewis1977/synthesis-sub002/internal/logging"
)

type rootFlags struct {
	debug      bool
	configFile string
}

// Execute builds the command tree and runs it, mirroring cmd/root.Execute's
// build-then-ExecuteContext shape.
func Execute(ctx context.Context, args ...string) error {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "synthesis",
		Short: "synthesis - retrieval-augmented knowledge base",
		Long:  "synthesis ingests documents, answers hybrid-search queries, and synthesizes multi-source summaries.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(logging.Options{Debug: flags.debug})
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "path to a YAML config overlay")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newIngestCmd(&flags))
	cmd.AddCommand(newQueryCmd(&flags))
	cmd.AddCommand(newServeCmd(&flags))

	return cmd
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	cfg := config.LoadEnv()
	if flags.configFile == "" {
		return cfg, nil
	}
	cfg, err := config.LoadFile(cfg, flags.configFile)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Beaulewis1977/synthesis-sub002/pkg/synthesis"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var (
		collectionID string
		watchRoots   []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "run the ingestion orchestrator, warming indexes and watching for file changes",
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

			if err := svc.Initialize(cmd.Context()); err != nil {
				return fmt.Errorf("initializing: %w", err)
			}

			if len(watchRoots) > 0 {
				if err := svc.StartFileWatcher(cmd.Context(), collectionID, watchRoots); err != nil {
					return fmt.Errorf("starting file watcher: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "watching %s for collection %s\n", strings.Join(watchRoots, ", "), collectionID)
			}

			go func() {
				for event := range svc.Events() {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %s\n", event.Type, event.Component, event.Message)
				}
			}()

			<-cmd.Context().Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "collection to watch")
	cmd.Flags().StringSliceVar(&watchRoots, "watch", nil, "paths or glob patterns to watch for changes")

	return cmd
}

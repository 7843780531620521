package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Beaulewis1977/synthesis-sub002/internal/domain"
	"github.com/Beaulewis1977/synthesis-sub002/internal/fsx"
	"github.com/Beaulewis1977/synthesis-sub002/pkg/synthesis"
)

func newIngestCmd(flags *rootFlags) *cobra.Command {
	var collectionID string

	cmd := &cobra.Command{
		Use:   "ingest [paths...]",
		Short: "ingest files or directories into a collection",
		Args:  cobra.MinimumNArgs(1),
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

			files, err := fsx.CollectFiles(args, nil)
			if err != nil {
				return fmt.Errorf("collecting files: %w", err)
			}

			for _, path := range files {
				content, err := os.ReadFile(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping %s: %v\n", path, err)
					continue
				}
				doc := domain.Document{
					CollectionID: collectionID,
					FilePath:     path,
					Title:        filepath.Base(path),
				}
				if _, err := svc.Ingest(cmd.Context(), doc, string(content)); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "ingesting %s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ingested %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "target collection ID")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

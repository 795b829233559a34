package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"manual-rag/internal/config"
	"manual-rag/internal/embedding"
	"manual-rag/internal/ingest"
	"manual-rag/internal/store"
)

func ingestCMD(load func() *config.Config) *cobra.Command {
	var (
		filePath string
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse the manual and rebuild the vector index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			if filePath != "" {
				cfg.Document.Path = filePath
			}

			var deps ingest.Deps
			if !dryRun {
				embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
				if err != nil {
					log.Fatal().Err(err).Msg("Error initializing embedder")
				}
				open, err := store.NewOpener(cfg, embedder)
				if err != nil {
					log.Fatal().Err(err).Msg("Error configuring vector store")
				}
				deps = ingest.Deps{Embedder: embedder, Open: open}
			}

			chunks, err := ingest.Run(cmd.Context(), cfg, deps, dryRun)
			if err != nil {
				log.Fatal().Err(err).Str("file", cfg.Document.Path).Msg("Error ingesting document")
			}
			log.Info().Int("chunks", len(chunks)).Bool("dry_run", dryRun).Msg("Ingestion finished")
			return nil
		},
	}
	cmd.Flags().StringVarP(&filePath, "file", "f", "", "path to the manual (overrides document.path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the chunks without embedding or storing them")
	return cmd
}

package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"manual-rag/internal/config"
	"manual-rag/internal/embedding"
	"manual-rag/internal/llmservice"
	"manual-rag/internal/rag"
	"manual-rag/internal/store"
)

// newRAG wires the retriever and generator described by cfg.
func newRAG(cfg *config.Config) *rag.RAG {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	open, err := store.NewOpener(cfg, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error configuring vector store")
	}
	generator, err := llmservice.NewGenerator(&cfg.InferenceLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing llm")
	}
	score, err := rag.ScoreFuncByName(cfg.RAG.ScoreStrategy)
	if err != nil {
		log.Fatal().Err(err).Msg("Error selecting score strategy")
	}

	retriever := rag.NewRetriever(open, cfg.RAG.TopK,
		rag.WithScoreFunc(score),
		rag.WithFallbackWithoutFilter(cfg.RAG.FallbackWithoutFilter),
	)
	return rag.NewRAG(retriever, generator, rag.Options{
		ManualName:    cfg.Document.Name,
		MinSimilarity: cfg.RAG.MinSimilarity,
	})
}

func queryCMD(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "query <question>",
		Short: "Answer a question from the indexed manual",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			r := newRAG(cfg)

			question := strings.Join(args, " ")
			response, err := r.Query(cmd.Context(), question)
			if err != nil {
				log.Fatal().Err(err).Msg("Error querying")
			}
			rag.LogOutcome(question, response)

			log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", question)

			log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			for i, s := range response.Sources {
				fmt.Printf("%d. %s (page %d, score %.3f)\n", i+1, s.Chapter, s.Page, s.Score)
			}
			fmt.Println()

			log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", response.Answer)
			return nil
		},
	}
}

func chaptersCMD(load func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters",
		Short: "List the chapters stored in the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
			if err != nil {
				log.Fatal().Err(err).Msg("Error initializing embedder")
			}
			open, err := store.NewOpener(cfg, embedder)
			if err != nil {
				log.Fatal().Err(err).Msg("Error configuring vector store")
			}

			vs, err := open(cmd.Context())
			if err != nil {
				log.Fatal().Err(err).Msg("Error opening vector store")
			}
			defer vs.Close()

			metas, err := vs.ListMetadata(cmd.Context())
			if err != nil {
				log.Fatal().Err(err).Msg("Error listing chapters")
			}
			chapters := rag.DistinctChapters(metas)
			log.Info().Int("chunks", len(metas)).Int("chapters", len(chapters)).Msg("Index contents")
			for _, ch := range chapters {
				fmt.Println(ch)
			}
			return nil
		},
	}
}

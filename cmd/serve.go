package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"manual-rag/internal/config"
	"manual-rag/internal/metrics"
	"manual-rag/internal/server"
)

func serveCMD(load func() *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := load()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			r := newRAG(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			h := server.NewHandler(r, metrics.NewCollector(), cfg.Document.Name)
			if err := server.Run(ctx, cfg.Server.Addr, h); err != nil {
				log.Fatal().Err(err).Msg("Server stopped")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

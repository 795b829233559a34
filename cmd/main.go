package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"manual-rag/internal/config"
	"manual-rag/internal/helper"
)

const configFilePath = "./configs/config.yaml"

func main() {
	var cfgPath string
	root := &cobra.Command{
		Use:           "manual-rag",
		Short:         "Question answering over a vehicle owner's manual",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", configFilePath, "path to the config file")

	load := func() *config.Config {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfgPath).Msg("Error loading config")
		}
		helper.SetupLogger(cfg.Log.Level, os.Stdout)
		log.Debug().Str("store", cfg.VectorStore.Type).Str("embed_model", cfg.EmbedLLM.Model).
			Str("inference_model", cfg.InferenceLLM.Model).Msg("Loaded config")
		return cfg
	}

	root.AddCommand(ingestCMD(load), queryCMD(load), chaptersCMD(load), serveCMD(load))

	helper.SetupLogger("info", os.Stdout)
	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}

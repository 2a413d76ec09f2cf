package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantumlabs/quantumchain/internal/config"
	"github.com/quantumlabs/quantumchain/internal/engine"
	"github.com/quantumlabs/quantumchain/internal/storage"
)

func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(cmd.Flags())
}

func openStore(cfg config.Config) (*storage.Store, error) {
	return storage.Open(cfg.StoragePath)
}

func openEngine(cfg config.Config, store *storage.Store, log zerolog.Logger) (*engine.Engine, error) {
	return engine.New(engine.Config{
		BaseDifficulty:     cfg.BaseDifficulty,
		DifficultyInterval: cfg.DifficultyInterval,
		MiningReward:       cfg.MiningReward,
	}, store, log, nowUnix)
}

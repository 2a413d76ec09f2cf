// Package config loads node configuration from flags, environment
// variables, and an optional config file via viper, the way the rest of
// the example corpus's CLI tools do it (the teacher repo itself parses
// flags by hand; viper/pflag/cobra are adopted from the wider pack since
// this spec's CLI surface is considerably larger than createwallet/send).
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every tunable spec.md §6 names.
type Config struct {
	StoragePath        string  `mapstructure:"storage_path"`
	BaseDifficulty     int     `mapstructure:"base_difficulty"`
	DifficultyInterval int     `mapstructure:"difficulty_interval"`
	MiningReward       float64 `mapstructure:"mining_reward"`
	ListenHost         string  `mapstructure:"listen_host"`
	ListenPort         int     `mapstructure:"listen_port"`
	BootstrapPeer      string  `mapstructure:"bootstrap_peer"`
}

// BindFlags registers the recognized flags on fs, for a cobra command to
// attach at construction time.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("storage-path", "./data/quantumnode", "directory for the badger-backed chain and wallet store")
	fs.Int("base-difficulty", 5, "initial proof-of-work leading-zero count")
	fs.Int("difficulty-interval", 10, "blocks per +1 difficulty step")
	fs.Float64("mining-reward", 10.2, "coinbase amount paid per mined block")
	fs.String("listen-host", "0.0.0.0", "TCP bind host for the P2P listener")
	fs.Int("listen-port", 3000, "TCP bind port for the P2P listener")
	fs.String("bootstrap-peer", "", "optional host:port of an initial peer to contact")
}

// Load reads configuration from (in ascending priority) a config file named
// quantumnode.yaml on the search path, environment variables prefixed
// QUANTUMNODE_, and flags already parsed onto fs.
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigName("quantumnode")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.quantumnode")
	v.SetEnvPrefix("quantumnode")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return Config{}, fmt.Errorf("config: bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := Config{
		StoragePath:        v.GetString("storage-path"),
		BaseDifficulty:     v.GetInt("base-difficulty"),
		DifficultyInterval: v.GetInt("difficulty-interval"),
		MiningReward:       v.GetFloat64("mining-reward"),
		ListenHost:         v.GetString("listen-host"),
		ListenPort:         v.GetInt("listen-port"),
		BootstrapPeer:      v.GetString("bootstrap-peer"),
	}
	return cfg, nil
}

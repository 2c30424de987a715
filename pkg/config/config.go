// Package config provides a reusable loader for SmartXChain configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"smartxchain/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// SecurityProtocol enumerates the TLS versions a node may require of its
// transport. The node core never negotiates TLS itself (transport is an
// external collaborator); this value is only forwarded to whatever HTTP
// server binds the RPC surface.
type SecurityProtocol string

const (
	TLS11 SecurityProtocol = "Tls11"
	TLS12 SecurityProtocol = "Tls12"
	TLS13 SecurityProtocol = "Tls13"
)

// Config mirrors the recognized configuration options of SmartXChain: ChainId,
// MinerAddress, NodeAddress, URL, Peers, BlockchainPath, SSL,
// SecurityProtocol, MaxParallelConnections and Debug, plus the consensus/node
// tunables that don't have a fixed home in that list.
type Config struct {
	ChainID                string           `mapstructure:"chain_id" json:"chain_id"`
	MinerAddress           string           `mapstructure:"miner_address" json:"miner_address"`
	NodeAddress            string           `mapstructure:"node_address" json:"node_address"`
	URL                    string           `mapstructure:"url" json:"url"`
	Peers                  []string         `mapstructure:"peers" json:"peers"`
	BlockchainPath         string           `mapstructure:"blockchain_path" json:"blockchain_path"`
	SSL                    bool             `mapstructure:"ssl" json:"ssl"`
	SecurityProtocol       SecurityProtocol `mapstructure:"security_protocol" json:"security_protocol"`
	MaxParallelConnections int              `mapstructure:"max_parallel_connections" json:"max_parallel_connections"`
	Debug                  bool             `mapstructure:"debug" json:"debug"`

	Consensus struct {
		Difficulty     int `mapstructure:"difficulty" json:"difficulty"`
		TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	} `mapstructure:"consensus" json:"consensus"`

	Node struct {
		TimeoutSeconds int `mapstructure:"timeout_seconds" json:"timeout_seconds"`
	} `mapstructure:"node" json:"node"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// defaults applies process-wide defaults before any file or environment
// override is merged in.
func defaults() {
	viper.SetDefault("chain_id", "smartxchain-dev")
	viper.SetDefault("blockchain_path", "./data")
	viper.SetDefault("max_parallel_connections", 32)
	viper.SetDefault("security_protocol", string(TLS13))
	viper.SetDefault("consensus.difficulty", 2)
	viper.SetDefault("consensus.timeout_seconds", 5)
	viper.SetDefault("node.timeout_seconds", 120)
}

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	defaults()

	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // picks up process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the SXC_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("SXC_ENV", ""))
}

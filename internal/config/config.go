// Package config exposes strongly typed program configuration structs loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the programs look for their configuration when no flag is given.
const DefaultPath = "internal/config/config.yaml"

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|console
	MetricsAddr string `yaml:"metrics_addr"`
}

// Token names the asset the programs operate on and the amounts they move.
// Amounts are human readable and scaled by the mint decimals at run time.
type Token struct {
	Mint           string `yaml:"mint"`
	Recipient      string `yaml:"recipient"`
	MintAmount     string `yaml:"mint_amount"`
	TransferAmount string `yaml:"transfer_amount"`
}

// Limits caps how much a single run may issue or move. Empty means unlimited.
type Limits struct {
	MaxMint     string `yaml:"max_mint"`
	MaxTransfer string `yaml:"max_transfer"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App     App     `yaml:"app"`
	Cluster Cluster `yaml:"cluster"`
	Wallet  Wallet  `yaml:"wallet"`
	Token   Token   `yaml:"token"`
	Limits  Limits  `yaml:"limits"`
	Simnet  Simnet  `yaml:"simnet"`
}

// Load reads a YAML file from disk and hydrates a Config struct with defaults applied.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	config.applyDefaults()
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ApplyEnv overlays SOLANA_* / SPL_* environment variables, reading .env first when present.
func (c *Config) ApplyEnv() {
	_ = godotenv.Load() // best-effort
	c.Cluster.RpcURL = getEnv("SOLANA_RPC_URL", c.Cluster.RpcURL)
	c.Cluster.Commitment = getEnv("SOLANA_COMMITMENT", c.Cluster.Commitment)
	c.Wallet.KeypairPath = getEnv("SOLANA_KEYPAIR", c.Wallet.KeypairPath)
	c.Token.Mint = getEnv("SPL_MINT", c.Token.Mint)
	c.Token.Recipient = getEnv("SPL_RECIPIENT", c.Token.Recipient)
}

// Validate reports every malformed field at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Cluster.RpcURL) == "" {
		errs = append(errs, errors.New("cluster.rpc_url is required"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Cluster.Commitment)) {
	case "processed", "confirmed", "finalized":
	default:
		errs = append(errs, fmt.Errorf("cluster.commitment %q must be processed|confirmed|finalized", c.Cluster.Commitment))
	}
	if c.Token.Mint != "" {
		if _, err := solana.PublicKeyFromBase58(c.Token.Mint); err != nil {
			errs = append(errs, fmt.Errorf("token.mint: %w", err))
		}
	}
	if c.Token.Recipient != "" {
		if _, err := solana.PublicKeyFromBase58(c.Token.Recipient); err != nil {
			errs = append(errs, fmt.Errorf("token.recipient: %w", err))
		}
	}
	for i, m := range c.Simnet.Mints {
		if _, err := solana.PublicKeyFromBase58(m.Address); err != nil {
			errs = append(errs, fmt.Errorf("simnet.mints[%d].address: %w", i, err))
		}
		if m.Authority != "" {
			if _, err := solana.PublicKeyFromBase58(m.Authority); err != nil {
				errs = append(errs, fmt.Errorf("simnet.mints[%d].authority: %w", i, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Cluster.RpcURL == "" {
		c.Cluster.RpcURL = DevnetRPC
	}
	if c.Cluster.Commitment == "" {
		c.Cluster.Commitment = "confirmed"
	}
	if c.Cluster.TimeoutMs <= 0 {
		c.Cluster.TimeoutMs = 60_000
	}
	if c.Cluster.ConfirmPollMs <= 0 {
		c.Cluster.ConfirmPollMs = 500
	}
	if c.Wallet.KeypairPath == "" {
		c.Wallet.KeypairPath = "id.json"
	}
	if c.Simnet.Addr == "" {
		c.Simnet.Addr = "127.0.0.1:8899"
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

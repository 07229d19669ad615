// Package config loads the swapchain CLI configuration from YAML, a .env file
// and SWAPCHAIN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete CLI configuration.
type Config struct {
	ProgramID Key            `yaml:"program_id"`
	Log       LogConfig      `yaml:"log"`
	Storage   StorageConfig  `yaml:"storage"`
	RPC       RPCConfig      `yaml:"rpc"`
	Simulate  SimulateConfig `yaml:"simulate"`
	Submit    SubmitConfig   `yaml:"submit"`
}

// LogConfig sets the log level. A non-empty File enables a rotated log
// file next to stderr.
type LogConfig struct {
	Level      string `yaml:"level"` // debug | info | warn | error
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type StorageConfig struct {
	DSN string `yaml:"dsn"` // SQLite path or ":memory:"
}

type RPCConfig struct {
	URL               string  `yaml:"url"`
	Commitment        string  `yaml:"commitment"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Keypair           string  `yaml:"keypair"` // solana-keygen JSON file
}

// SimulateConfig describes a local ledger: tokens, pools and the route run
// against them.
type SimulateConfig struct {
	// Tokens maps a token name to the trader's starting balance.
	Tokens   map[string]uint64 `yaml:"tokens"`
	Origin   string            `yaml:"origin"`
	AmountIn uint64            `yaml:"amount_in"`
	Pools    []PoolConfig      `yaml:"pools"`
	Route    []RouteLeg        `yaml:"route"`
}

type PoolConfig struct {
	Name     string `yaml:"name"`
	Venue    string `yaml:"venue"`
	TokenA   string `yaml:"token_a"`
	TokenB   string `yaml:"token_b"`
	ReserveA uint64 `yaml:"reserve_a"`
	ReserveB uint64 `yaml:"reserve_b"`
	FeeBps   uint16 `yaml:"fee_bps"`
}

type RouteLeg struct {
	Pool      string `yaml:"pool"`
	Direction string `yaml:"direction"`
}

// SubmitConfig is a chain with fully resolved on-chain accounts.
type SubmitConfig struct {
	Origin   Key         `yaml:"origin"`
	AmountIn uint64      `yaml:"amount_in"`
	Legs     []SubmitLeg `yaml:"legs"`
}

type SubmitLeg struct {
	Venue     string          `yaml:"venue"`
	Direction string          `yaml:"direction"`
	Accounts  []AccountConfig `yaml:"accounts"`
}

type AccountConfig struct {
	Key      Key  `yaml:"key"`
	Writable bool `yaml:"writable"`
	Signer   bool `yaml:"signer"`
}

// Key is a base58 public key in YAML.
type Key solana.PublicKey

func (k *Key) UnmarshalYAML(node *yaml.Node) error {
	pk, err := solana.PublicKeyFromBase58(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: public key %q: %w", node.Line, node.Value, err)
	}
	*k = Key(pk)
	return nil
}

func (k Key) PublicKey() solana.PublicKey { return solana.PublicKey(k) }

func (k Key) IsZero() bool { return solana.PublicKey(k).IsZero() }

// Load reads the YAML file at path, then applies a .env file if present and
// SWAPCHAIN_* overrides, then defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	setDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SWAPCHAIN_PROGRAM_ID"); v != "" {
		pk, err := solana.PublicKeyFromBase58(v)
		if err != nil {
			return fmt.Errorf("SWAPCHAIN_PROGRAM_ID: %w", err)
		}
		cfg.ProgramID = Key(pk)
	}
	if v := os.Getenv("SWAPCHAIN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SWAPCHAIN_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv("SWAPCHAIN_STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("SWAPCHAIN_RPC_URL"); v != "" {
		cfg.RPC.URL = v
	}
	if v := os.Getenv("SWAPCHAIN_KEYPAIR"); v != "" {
		cfg.RPC.Keypair = v
	}
	if v := os.Getenv("SWAPCHAIN_RPC_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SWAPCHAIN_RPC_RPS: %w", err)
		}
		cfg.RPC.RequestsPerSecond = rps
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "swapchain.db"
	}
	if cfg.RPC.Commitment == "" {
		cfg.RPC.Commitment = "confirmed"
	}
	if cfg.RPC.RequestsPerSecond <= 0 {
		cfg.RPC.RequestsPerSecond = 5
	}
}

// Validate checks the settings shared by every command.
func (c *Config) Validate() error {
	if c.ProgramID.IsZero() {
		return errors.New("config: program_id is required")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}

// ValidateSimulate checks that the simulated ledger and route are consistent.
func (c *Config) ValidateSimulate() error {
	s := c.Simulate
	if len(s.Tokens) == 0 {
		return errors.New("config: simulate.tokens is empty")
	}
	if _, ok := s.Tokens[s.Origin]; !ok {
		return fmt.Errorf("config: simulate.origin %q is not a token", s.Origin)
	}
	pools := make(map[string]bool, len(s.Pools))
	for i, p := range s.Pools {
		if p.Name == "" {
			return fmt.Errorf("config: simulate.pools[%d] has no name", i)
		}
		if pools[p.Name] {
			return fmt.Errorf("config: duplicate pool %q", p.Name)
		}
		pools[p.Name] = true
		if _, ok := s.Tokens[p.TokenA]; !ok {
			return fmt.Errorf("config: pool %q token_a %q is not a token", p.Name, p.TokenA)
		}
		if _, ok := s.Tokens[p.TokenB]; !ok {
			return fmt.Errorf("config: pool %q token_b %q is not a token", p.Name, p.TokenB)
		}
		if p.TokenA == p.TokenB {
			return fmt.Errorf("config: pool %q trades %q against itself", p.Name, p.TokenA)
		}
		if p.FeeBps > 10_000 {
			return fmt.Errorf("config: pool %q fee_bps %d exceeds 10000", p.Name, p.FeeBps)
		}
	}
	for i, leg := range s.Route {
		if !pools[leg.Pool] {
			return fmt.Errorf("config: simulate.route[%d] names unknown pool %q", i, leg.Pool)
		}
	}
	return nil
}

// ValidateSubmit checks the live chain description.
func (c *Config) ValidateSubmit() error {
	if c.RPC.URL == "" {
		return errors.New("config: rpc.url is required")
	}
	if c.RPC.Keypair == "" {
		return errors.New("config: rpc.keypair is required")
	}
	if c.Submit.Origin.IsZero() {
		return errors.New("config: submit.origin is required")
	}
	for i, leg := range c.Submit.Legs {
		if len(leg.Accounts) == 0 {
			return fmt.Errorf("config: submit.legs[%d] has no accounts", i)
		}
	}
	return nil
}

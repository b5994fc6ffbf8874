package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Synergy-Corpp/c-protocol-work-to-earn/internal/protocol"
)

// Config holds the node configuration. Values come from defaults, then the
// optional YAML file, then explicitly passed flags.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `yaml:"data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `yaml:"http"`

	// KeyPath is the path to the node's Ed25519 private key file.
	KeyPath string `yaml:"key"`

	// PrivateKey is the node's Ed25519 key. Its public key is the default vault.
	PrivateKey ed25519.PrivateKey `yaml:"-"`

	// Vault is the hex identity receiving staked collateral. Empty selects the node key.
	Vault string `yaml:"vault"`

	// RegistryPath is the YAML witness registry file.
	RegistryPath string `yaml:"witnesses"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// SyncWrites forces an fsync on every committed operation.
	SyncWrites bool `yaml:"sync_writes"`

	// SlotDuration is the length of one clock slot. Slots count from the unix epoch.
	SlotDuration time.Duration `yaml:"slot_duration"`

	// SweepInterval is the period of the background decay sweep. Zero disables it.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// SnapshotInterval is the period between snapshots.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// SnapshotDir is where the latest snapshot is written. Empty keeps it in memory.
	SnapshotDir string `yaml:"snapshot_dir"`

	// RestorePath is a compressed snapshot restored into the store before start.
	RestorePath string `yaml:"restore"`

	// API holds the HTTP surface limits.
	API APIConfig `yaml:"api"`

	// Protocol holds the genesis parameters, used only for a fresh store.
	Protocol ParamsConfig `yaml:"protocol"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	RateLimit    float64       `yaml:"rate_limit"`
	RateBurst    int           `yaml:"rate_burst"`
	MaxClockSkew time.Duration `yaml:"max_clock_skew"`
	Faucet       bool          `yaml:"faucet"`
	FaucetMax    uint64        `yaml:"faucet_max"`
}

// ParamsConfig holds the genesis protocol parameters.
type ParamsConfig struct {
	DecayRateBPS     uint   `yaml:"decay_rate_bps"`
	WitnessThreshold uint64 `yaml:"witness_threshold"`
	MinStakeToEmit   uint64 `yaml:"min_stake_to_emit"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() *Config {
	p := protocol.DefaultParams()

	return &Config{
		DataPath:         "./data",
		HTTPAddress:      ":8080",
		LogLevel:         "info",
		SlotDuration:     time.Second,
		SweepInterval:    time.Hour,
		SnapshotInterval: 10 * time.Minute,
		API: APIConfig{
			RateLimit:    5,
			RateBurst:    20,
			MaxClockSkew: time.Minute,
			FaucetMax:    10_000_000,
		},
		Protocol: ParamsConfig{
			DecayRateBPS:     uint(p.DecayRateBPS),
			WitnessThreshold: p.WitnessThreshold,
			MinStakeToEmit:   p.MinStakeToEmit,
		},
	}
}

// loadConfig parses args into a Config.
func loadConfig(args []string) (*Config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("node", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file")

	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "Data directory path")
	fs.StringVar(&cfg.HTTPAddress, "http", cfg.HTTPAddress, "HTTP API address")
	fs.StringVar(&cfg.KeyPath, "key", cfg.KeyPath, "Ed25519 private key path (generates new if missing)")
	fs.StringVar(&cfg.Vault, "vault", cfg.Vault, "Hex identity receiving stake (default: node key)")
	fs.StringVar(&cfg.RegistryPath, "witnesses", cfg.RegistryPath, "Witness registry YAML file")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.SyncWrites, "sync-writes", cfg.SyncWrites, "Fsync every committed operation")
	fs.DurationVar(&cfg.SlotDuration, "slot", cfg.SlotDuration, "Clock slot duration")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Decay sweep interval (0 disables)")
	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", cfg.SnapshotInterval, "Snapshot interval")
	fs.StringVar(&cfg.SnapshotDir, "snapshot-dir", cfg.SnapshotDir, "Snapshot output directory")
	fs.StringVar(&cfg.RestorePath, "restore", cfg.RestorePath, "Restore this snapshot file before starting")
	fs.Float64Var(&cfg.API.RateLimit, "rate-limit", cfg.API.RateLimit, "Requests per second per actor (0 disables)")
	fs.IntVar(&cfg.API.RateBurst, "rate-burst", cfg.API.RateBurst, "Request burst per actor")
	fs.DurationVar(&cfg.API.MaxClockSkew, "max-clock-skew", cfg.API.MaxClockSkew, "Accepted request timestamp drift")
	fs.BoolVar(&cfg.API.Faucet, "faucet", cfg.API.Faucet, "Enable the development faucet")
	fs.Uint64Var(&cfg.API.FaucetMax, "faucet-max", cfg.API.FaucetMax, "Maximum faucet grant")
	fs.UintVar(&cfg.Protocol.DecayRateBPS, "decay-rate-bps", cfg.Protocol.DecayRateBPS, "Genesis decay rate per epoch in basis points")
	fs.Uint64Var(&cfg.Protocol.WitnessThreshold, "witness-threshold", cfg.Protocol.WitnessThreshold, "Genesis witness consensus threshold")
	fs.Uint64Var(&cfg.Protocol.MinStakeToEmit, "min-stake", cfg.Protocol.MinStakeToEmit, "Genesis minimum stake to emit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		if err := loadFile(*configPath, cfg); err != nil {
			return nil, err
		}

		// Parsing again reapplies only the flags given on the command line
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile overlays the YAML file at path onto cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s:\n%w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s:\n%w", path, err)
	}

	return nil
}

// validate checks value ranges.
func (c *Config) validate() error {
	if c.Protocol.DecayRateBPS > 10_000 {
		return fmt.Errorf("decay rate %d exceeds 10000 bps", c.Protocol.DecayRateBPS)
	}

	if c.Protocol.WitnessThreshold == 0 {
		return errors.New("witness threshold must be positive")
	}

	if c.SlotDuration <= 0 {
		return errors.New("slot duration must be positive")
	}

	if c.DataPath == "" {
		return errors.New("data path is required")
	}

	return nil
}

// Params returns the genesis protocol parameters.
func (c *Config) Params() protocol.Params {
	return protocol.Params{
		DecayRateBPS:     uint16(c.Protocol.DecayRateBPS),
		WitnessThreshold: c.Protocol.WitnessThreshold,
		MinStakeToEmit:   c.Protocol.MinStakeToEmit,
	}
}

// VaultIdentity returns the configured vault, or the node key's identity.
func (c *Config) VaultIdentity() (protocol.Identity, error) {
	if c.Vault != "" {
		return protocol.ParseIdentity(c.Vault)
	}

	var id protocol.Identity
	copy(id[:], c.PrivateKey.Public().(ed25519.PublicKey))

	return id, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}

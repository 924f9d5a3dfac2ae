package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tradepost/native/trade"
)

// Config is the daemon configuration, loaded from a TOML file.
type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	Environment   string `toml:"Environment"`

	Trade TradeConfig          `toml:"trade"`
	Seed  map[string]SeedActor `toml:"seed"`
}

// TradeConfig carries the engine knobs.
type TradeConfig struct {
	EscrowTimeoutSeconds    int64                 `toml:"EscrowTimeoutSeconds"`
	FeePercent              int                   `toml:"FeePercent"`
	HistoryCap              int                   `toml:"HistoryCap"`
	CooldownSeconds         int64                 `toml:"CooldownSeconds"`
	BurstWindowSeconds      int64                 `toml:"BurstWindowSeconds"`
	BurstCap                int                   `toml:"BurstCap"`
	SweepIntervalSeconds    int64                 `toml:"SweepIntervalSeconds"`
	SnapshotIntervalSeconds int64                 `toml:"SnapshotIntervalSeconds"`
	DefaultTier             string                `toml:"DefaultTier"`
	Tiers                   map[string]TierConfig `toml:"tiers"`
	TierAssignments         map[string]string     `toml:"assignments"`
}

// TierConfig is one row of the tier policy table.
type TierConfig struct {
	DailyTrades   int   `toml:"DailyTrades"`
	MaxTradeValue int64 `toml:"MaxTradeValue"`
}

// SeedActor bootstraps an actor's ledgers on first start.
type SeedActor struct {
	Currency int64            `toml:"Currency"`
	Items    map[string]int64 `toml:"Items"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		ListenAddress: ":8440",
		DataDir:       "./data",
		Environment:   "dev",
		Trade: TradeConfig{
			EscrowTimeoutSeconds:    86_400,
			FeePercent:              5,
			HistoryCap:              50,
			CooldownSeconds:         30,
			BurstWindowSeconds:      300,
			BurstCap:                10,
			SweepIntervalSeconds:    60,
			SnapshotIntervalSeconds: 300,
			DefaultTier:             "novice",
			Tiers: map[string]TierConfig{
				"novice":  {DailyTrades: 5, MaxTradeValue: 500},
				"trader":  {DailyTrades: 15, MaxTradeValue: 5_000},
				"magnate": {DailyTrades: 40, MaxTradeValue: 50_000},
			},
		},
	}
}

// Load reads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyFallbacks(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := Default()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("write default config %s: %w", path, err)
	}
	return cfg, nil
}

func applyFallbacks(cfg *Config) {
	def := Default()
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = def.DataDir
	}
	if len(cfg.Trade.Tiers) == 0 {
		cfg.Trade.Tiers = def.Trade.Tiers
	}
	if strings.TrimSpace(cfg.Trade.DefaultTier) == "" {
		cfg.Trade.DefaultTier = def.Trade.DefaultTier
	}
	if cfg.Trade.SweepIntervalSeconds <= 0 {
		cfg.Trade.SweepIntervalSeconds = def.Trade.SweepIntervalSeconds
	}
	if cfg.Trade.SnapshotIntervalSeconds <= 0 {
		cfg.Trade.SnapshotIntervalSeconds = def.Trade.SnapshotIntervalSeconds
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Trade.EscrowTimeoutSeconds <= 0 {
		return fmt.Errorf("trade: EscrowTimeoutSeconds must be positive")
	}
	if c.Trade.FeePercent < 0 || c.Trade.FeePercent > 100 {
		return fmt.Errorf("trade: FeePercent outside 0..100")
	}
	if c.Trade.HistoryCap <= 0 {
		return fmt.Errorf("trade: HistoryCap must be positive")
	}
	if c.Trade.CooldownSeconds < 0 {
		return fmt.Errorf("trade: CooldownSeconds must be non-negative")
	}
	if c.Trade.BurstCap <= 0 || c.Trade.BurstWindowSeconds <= 0 {
		return fmt.Errorf("trade: burst window and cap must be positive")
	}
	if _, ok := c.Trade.Tiers[c.Trade.DefaultTier]; !ok {
		return fmt.Errorf("trade: DefaultTier %q missing from tier table", c.Trade.DefaultTier)
	}
	for name, tier := range c.Trade.Tiers {
		if tier.DailyTrades <= 0 || tier.MaxTradeValue <= 0 {
			return fmt.Errorf("trade: tier %q has non-positive ceilings", name)
		}
	}
	for actor, tier := range c.Trade.TierAssignments {
		if _, ok := c.Trade.Tiers[tier]; !ok {
			return fmt.Errorf("trade: actor %q assigned to unknown tier %q", actor, tier)
		}
	}
	return nil
}

// EngineConfig converts the file representation into the engine's config.
func (c *Config) EngineConfig() trade.Config {
	tiers := make(map[string]trade.TierLimits, len(c.Trade.Tiers))
	for name, tier := range c.Trade.Tiers {
		tiers[name] = trade.TierLimits{DailyTrades: tier.DailyTrades, MaxTradeValue: tier.MaxTradeValue}
	}
	return trade.Config{
		EscrowTimeout: time.Duration(c.Trade.EscrowTimeoutSeconds) * time.Second,
		FeePercent:    c.Trade.FeePercent,
		HistoryCap:    c.Trade.HistoryCap,
		RateLimit: trade.RateLimitConfig{
			Cooldown:    time.Duration(c.Trade.CooldownSeconds) * time.Second,
			BurstWindow: time.Duration(c.Trade.BurstWindowSeconds) * time.Second,
			BurstCap:    c.Trade.BurstCap,
		},
		Tiers:       tiers,
		DefaultTier: c.Trade.DefaultTier,
	}
}

// SnapshotPath locates the sqlite database inside the data directory.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.DataDir, "tradepost.db")
}

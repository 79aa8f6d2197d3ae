package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultTideStation is the NOAA CO-OPS station used when a spot does
// not name one.
const DefaultTideStation = "8570283"

// Config is the top-level configuration for surfseer.
type Config struct {
	ListenAddr string         `mapstructure:"listen_addr"`
	LogFormat  string         `mapstructure:"log_format"`
	Cache      CacheConfig    `mapstructure:"cache"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Upstream   UpstreamConfig `mapstructure:"upstream"`
	Prefetch   PrefetchConfig `mapstructure:"prefetch"`
	Spots      []SpotConfig   `mapstructure:"spots"`
}

// SpotConfig defines a surf spot to report on.
type SpotConfig struct {
	ID          string  `mapstructure:"id"`
	Name        string  `mapstructure:"name"`
	Latitude    float64 `mapstructure:"latitude"`
	Longitude   float64 `mapstructure:"longitude"`
	FacingDeg   float64 `mapstructure:"facing_deg"`
	TideStation string  `mapstructure:"tide_station"`
	Beginner    bool    `mapstructure:"beginner"`
}

// CacheConfig controls report freshness.
type CacheConfig struct {
	TTL     time.Duration `mapstructure:"ttl"`
	TideTTL time.Duration `mapstructure:"tide_ttl"`
}

// StorageConfig defines the database backend for the shared cache.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// SQLiteConfig holds SQLite-specific configuration.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig holds PostgreSQL-specific configuration.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// UpstreamConfig holds provider credentials.
type UpstreamConfig struct {
	StormglassKey string `mapstructure:"stormglass_key"`
}

// PrefetchConfig controls the background cache warmer.
type PrefetchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from flag path, env vars, then default file paths.
// Precedence: flag → $SURFSEER_CONFIG env → ~/.config/surfseer/config.yaml → /etc/surfseer/config.yaml
func Load(configPath string) (*Config, error) {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_format", "json")
	v.SetDefault("cache.ttl", "30m")
	v.SetDefault("cache.tide_ttl", "6h")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite.path", "surfseer.db")
	v.SetDefault("prefetch.enabled", false)
	v.SetDefault("prefetch.interval", "20m")

	// Env var support
	v.SetEnvPrefix("SURFSEER")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else if envPath := os.Getenv("SURFSEER_CONFIG"); envPath != "" {
		v.SetConfigFile(envPath)
	} else {
		// Try ~/.config/surfseer/config.yaml first
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "surfseer"))
		}
		// Fall back to /etc/surfseer/config.yaml
		v.AddConfigPath("/etc/surfseer")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else {
		// Warn if config file is world-readable.
		if cfgPath := v.ConfigFileUsed(); cfgPath != "" {
			if info, err := os.Stat(cfgPath); err == nil {
				perm := info.Mode().Perm()
				if perm&0004 != 0 {
					slog.Warn("config file is world-readable", "path", cfgPath, "permissions", fmt.Sprintf("%04o", perm))
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Inject the API key from the env explicitly. AutomaticEnv only maps
	// keys that appear in the config file or have defaults, and secrets
	// should never need a file entry.
	if key := os.Getenv("SURFSEER_UPSTREAM_STORMGLASS_KEY"); key != "" {
		cfg.Upstream.StormglassKey = key
	}

	for i := range cfg.Spots {
		if cfg.Spots[i].TideStation == "" {
			cfg.Spots[i].TideStation = DefaultTideStation
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is complete and correct.
func (c *Config) Validate() error {
	if len(c.Spots) == 0 {
		return fmt.Errorf("at least one spot is required")
	}

	seen := make(map[string]bool, len(c.Spots))
	for i, s := range c.Spots {
		if s.ID == "" {
			return fmt.Errorf("spot[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("spot[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Latitude < -90 || s.Latitude > 90 {
			return fmt.Errorf("spot[%d]: latitude %v out of range", i, s.Latitude)
		}
		if s.Longitude < -180 || s.Longitude > 180 {
			return fmt.Errorf("spot[%d]: longitude %v out of range", i, s.Longitude)
		}
		if s.FacingDeg < 0 || s.FacingDeg >= 360 {
			return fmt.Errorf("spot[%d]: facing_deg %v out of range [0, 360)", i, s.FacingDeg)
		}
	}

	if c.Upstream.StormglassKey == "" {
		return fmt.Errorf("upstream.stormglass_key is required (or SURFSEER_UPSTREAM_STORMGLASS_KEY)")
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", c.Cache.TTL)
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return fmt.Errorf("storage.sqlite.path is required for sqlite driver")
		}
		dir := filepath.Dir(c.Storage.SQLite.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return fmt.Errorf("creating storage directory %q: %w", dir, err)
			}
		}
	case "postgres":
		if c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required for postgres driver")
		}
	default:
		return fmt.Errorf("storage.driver must be 'sqlite' or 'postgres', got %q", c.Storage.Driver)
	}

	if c.Prefetch.Enabled && c.Prefetch.Interval <= 0 {
		return fmt.Errorf("prefetch.interval must be positive when prefetch is enabled")
	}

	// Validate listen_addr.
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("listen_addr %q is not a valid address: %w", c.ListenAddr, err)
	}

	return nil
}

// DSN returns the appropriate DSN for the configured storage driver.
func (c *Config) DSN() string {
	switch c.Storage.Driver {
	case "sqlite":
		return c.Storage.SQLite.Path
	case "postgres":
		return c.Storage.Postgres.DSN
	default:
		return ""
	}
}

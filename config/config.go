package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/warp/worktime/factory"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override (WORKTIME_SERVER_LISTEN).
const EnvPrefix = "WORKTIME"

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig      `mapstructure:"server" yaml:"server"`
	Storage   StorageConfig     `mapstructure:"storage" yaml:"storage"`
	Logging   LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	Rules     factory.RulesJSON `mapstructure:"rules" yaml:"rules"`
	Live      LiveConfig        `mapstructure:"live" yaml:"live"`
	Scheduler SchedulerConfig   `mapstructure:"scheduler" yaml:"scheduler"`
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
}

// ServerConfig defines the HTTP listener
type ServerConfig struct {
	Listen          string   `mapstructure:"listen" yaml:"listen"`
	AllowedOrigins  []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	ReadTimeout     string   `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    string   `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout string   `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// StorageConfig defines the storage backend
type StorageConfig struct {
	Type string `mapstructure:"type" yaml:"type"` // "sqlite" or "memory"
	Path string `mapstructure:"path" yaml:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "text"
}

// LiveConfig defines the refresh cadence of the live balance stream
type LiveConfig struct {
	Interval string `mapstructure:"interval" yaml:"interval"`
}

// SchedulerConfig defines the month-close job
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	PeriodCloseCron string `mapstructure:"period_close_cron" yaml:"period_close_cron"`
}

// CacheConfig sizes the completed-day cache
type CacheConfig struct {
	DayEntries int `mapstructure:"day_entries" yaml:"day_entries"`
}

// Load loads configuration from file and environment variables.
// An empty or missing path means defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Save writes cfg as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RuleSet resolves the rules section.
func (c *Config) RuleSet() (factory.RuleSet, error) {
	return factory.NewRulesFactory().FromJSON(c.Rules)
}

// ReadTimeout, WriteTimeout, ShutdownTimeout and LiveInterval parse the
// duration strings, falling back to the defaults on empty input.
func (c *Config) ReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 15*time.Second)
}

func (c *Config) WriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 0)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 30*time.Second)
}

func (c *Config) LiveInterval() time.Duration {
	return parseDuration(c.Live.Interval, time.Second)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("server.read_timeout", "15s")
	// Zero keeps the live stream open; plain handlers finish well within it.
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Storage defaults
	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.path", "worktime.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Rules defaults
	rules := factory.DefaultRulesJSON()
	v.SetDefault("rules.standard_hours", rules.StandardHours)
	v.SetDefault("rules.short_day", rules.ShortDay)
	v.SetDefault("rules.short_day_hours", rules.ShortDayHours)
	v.SetDefault("rules.non_working_days", rules.NonWorkingDays)
	v.SetDefault("rules.public_holidays", rules.PublicHolidays)
	v.SetDefault("rules.balance_policy", rules.BalancePolicy)
	v.SetDefault("rules.timezone", rules.Timezone)

	// Live stream defaults
	v.SetDefault("live.interval", "1s")

	// Scheduler defaults: closing is idempotent, so hourly also catches up
	// after downtime at the month boundary.
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.period_close_cron", "@hourly")

	// Cache defaults
	v.SetDefault("cache.day_entries", 4096)
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "sqlite":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for sqlite")
		}
		if dir := filepath.Dir(cfg.Storage.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format: %q", cfg.Logging.Format)
	}

	for name, value := range map[string]string{
		"server.read_timeout":     cfg.Server.ReadTimeout,
		"server.write_timeout":    cfg.Server.WriteTimeout,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"live.interval":           cfg.Live.Interval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	if d := cfg.LiveInterval(); d <= 0 {
		return fmt.Errorf("live.interval must be positive, got %s", d)
	}

	if cfg.Cache.DayEntries <= 0 {
		return fmt.Errorf("cache.day_entries must be positive, got %d", cfg.Cache.DayEntries)
	}

	if _, err := cfg.RuleSet(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}

	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DIAG_ENGINE_ECU_QUERY_TIMEOUT=3s.
const EnvPrefix = "DIAG"

type Config struct {
	Port      string          `mapstructure:"port"`
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

// EngineConfig holds the deadlines and limits of the diagnostic session engine.
type EngineConfig struct {
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	DisconnectTimeout time.Duration `mapstructure:"disconnect_timeout"`
	IdentityTimeout   time.Duration `mapstructure:"identity_timeout"`
	ECUQueryTimeout   time.Duration `mapstructure:"ecu_query_timeout"`
	MaxInFlight       int           `mapstructure:"max_in_flight"`
	StreamInterval    time.Duration `mapstructure:"stream_interval"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SimulatorConfig tunes the built-in vehicle simulator.
type SimulatorConfig struct {
	Latency        time.Duration  `mapstructure:"latency"`
	ConfirmedVIN   string         `mapstructure:"confirmed_vin"`
	ConfirmedModel string         `mapstructure:"confirmed_model"`
	TimeoutECUs    []string       `mapstructure:"timeout_ecus"`
	FailingECUs    []string       `mapstructure:"failing_ecus"`
	Faults         map[string]int `mapstructure:"faults"`
	SensorRate     time.Duration  `mapstructure:"sensor_rate"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("engine.connect_timeout", 10*time.Second)
	v.SetDefault("engine.disconnect_timeout", 5*time.Second)
	v.SetDefault("engine.identity_timeout", 10*time.Second)
	v.SetDefault("engine.ecu_query_timeout", 5*time.Second)
	v.SetDefault("engine.max_in_flight", 8)
	v.SetDefault("engine.stream_interval", time.Second)
	v.SetDefault("catalog.path", "")
	v.SetDefault("simulator.latency", 150*time.Millisecond)
	v.SetDefault("simulator.sensor_rate", 250*time.Millisecond)
}

// AddFlags registers command-line overrides on fs.
func AddFlags(fs *pflag.FlagSet) {
	fs.String("config", "configs/config.yml", "Path to the YAML configuration file.")
	fs.String("port", "", "HTTP listen port (overrides config).")
	fs.String("log.level", "", "Minimum log level ('debug', 'info', 'warn', 'error').")
}

// Load reads the config file named by the "config" flag (if any), applies
// DIAG_* environment overrides and flag overrides, and returns the typed config.
// A missing file is not an error: defaults apply.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := "configs/config.yml"
	if flags != nil {
		if p, err := flags.GetString("config"); err == nil && p != "" {
			path = p
		}
		for _, name := range []string{"port", "log.level"} {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(name, f); err != nil {
					return nil, fmt.Errorf("bind flag %q: %w", name, err)
				}
			}
		}
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	e := c.Engine
	switch {
	case e.ConnectTimeout <= 0:
		return fmt.Errorf("engine.connect_timeout must be > 0")
	case e.IdentityTimeout <= 0:
		return fmt.Errorf("engine.identity_timeout must be > 0")
	case e.ECUQueryTimeout <= 0:
		return fmt.Errorf("engine.ecu_query_timeout must be > 0")
	case e.MaxInFlight < 1 || e.MaxInFlight > 8:
		return fmt.Errorf("engine.max_in_flight must be within [1, 8], got %d", e.MaxInFlight)
	case e.StreamInterval <= 0:
		return fmt.Errorf("engine.stream_interval must be > 0")
	}
	return nil
}

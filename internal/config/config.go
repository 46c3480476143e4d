// Package config loads server configuration from a YAML file and DUEL_
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/elementsduel/duel-server-go/internal/game/ai"
)

// Config is the full server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
}

type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig configures the Postgres results store. An empty URL
// keeps results in memory.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type GameConfig struct {
	Seed              int64         `mapstructure:"seed"`
	LockTimeout       time.Duration `mapstructure:"lock_timeout"`
	DefaultDifficulty string        `mapstructure:"default_difficulty"`
	ReplayDir         string        `mapstructure:"replay_dir"`
	StartingLife      int           `mapstructure:"starting_life"`
}

// Load reads path, applies DUEL_* environment overrides and validates the
// result. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("game.seed", 0)
	v.SetDefault("game.lock_timeout", 5*time.Second)
	v.SetDefault("game.default_difficulty", string(ai.Easy))
	v.SetDefault("game.replay_dir", "")
	v.SetDefault("game.starting_life", 20)
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if _, err := ai.ParseDifficulty(c.Game.DefaultDifficulty); err != nil {
		return fmt.Errorf("game.default_difficulty: %w", err)
	}
	if c.Game.LockTimeout < 0 {
		return fmt.Errorf("game.lock_timeout must not be negative, got %s", c.Game.LockTimeout)
	}
	if c.Game.StartingLife < 1 {
		return fmt.Errorf("game.starting_life must be at least 1, got %d", c.Game.StartingLife)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("server.shutdown_timeout must not be negative, got %s", c.Server.ShutdownTimeout)
	}
	if c.Server.GRPC.MaxConcurrentStreams < 0 {
		return fmt.Errorf("server.grpc.max_concurrent_streams must not be negative")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must not be negative")
	}
	return nil
}

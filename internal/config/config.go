// Package config loads settings from flag defaults, an optional YAML file,
// LEITBOX_ environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/conorfennell/leitbox/internal/domain"
	"github.com/conorfennell/leitbox/internal/storage"
)

// EnvPrefix is stripped from environment variables. A double underscore
// separates nesting levels: LEITBOX_STORAGE__DRIVER sets storage.driver.
const EnvPrefix = "LEITBOX_"

type Config struct {
	ConfigFile string         `koanf:"config"`
	CardsFile  string         `koanf:"cards_file" validate:"required"`
	Storage    StorageConfig  `koanf:"storage"`
	ImageDir   string         `koanf:"image_dir" validate:"required"`
	SessionDir string         `koanf:"session_dir" validate:"required"`
	ReposDir   string         `koanf:"repos_dir" validate:"required"`
	MaxBox     int            `koanf:"max_box" validate:"gte=1,lte=365"`
	Listen     string         `koanf:"listen" validate:"required"`
	Reminder   ReminderConfig `koanf:"reminder"`
	Log        LogConfig      `koanf:"log"`
}

type StorageConfig struct {
	Driver     string `koanf:"driver" validate:"oneof=json sqlite"`
	SQLitePath string `koanf:"sqlite_path" validate:"required_if=Driver sqlite"`
}

type ReminderConfig struct {
	Enabled bool   `koanf:"enabled"`
	At      string `koanf:"at" validate:"datetime=15:04"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=text json"`
}

// NewFlagSet returns a flag set carrying every setting with its default.
// Callers may add their own flags before parsing.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.String("config", "leitbox.yaml", "YAML configuration file (optional)")
	flags.String("cards_file", "flashcards.json", "JSON card collection")
	flags.String("storage.driver", "json", "card storage: json or sqlite")
	flags.String("storage.sqlite_path", "flashcards.db", "SQLite database when storage.driver is sqlite")
	flags.String("image_dir", "images", "directory holding card images")
	flags.String("session_dir", "review_sessions", "directory holding review session checkpoints")
	flags.String("repos_dir", "repos", "directory for cloned git decks")
	flags.Int("max_box", domain.DefaultMaxBox, "highest Leitner box")
	flags.String("listen", ":8080", "HTTP listen address")
	flags.Bool("reminder.enabled", true, "run the daily reminder job while serving")
	flags.String("reminder.at", "08:00", "local time of the daily reminder (HH:MM)")
	flags.String("log.level", "info", "log level: debug, info, warn or error")
	flags.String("log.format", "text", "log format: text or json")
	return flags
}

// Load builds the configuration from a parsed flag set.
func Load(flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	path, _ := flags.GetString("config")
	if envPath := os.Getenv(EnvPrefix + "CONFIG"); envPath != "" && !flags.Changed("config") {
		path = envPath
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// Repository returns the card store settings.
func (c *Config) Repository() storage.Config {
	return storage.Config{
		Driver:     c.Storage.Driver,
		CardsFile:  c.CardsFile,
		SQLitePath: c.Storage.SQLitePath,
	}
}

// Handler returns the slog handler for the configured format and level.
func (c LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.level()}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func (c LogConfig) level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

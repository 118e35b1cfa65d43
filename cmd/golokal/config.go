package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ZaguanLabs/golokal"
	"github.com/ZaguanLabs/golokal/cache"
)

// settings is the merged CLI configuration: config file, then environment
// (GOLOKAL_*), then flags.
type settings struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Locale       string        `mapstructure:"locale"`
	Namespaces   []string      `mapstructure:"namespaces"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Store        string        `mapstructure:"store"`
	StorePath    string        `mapstructure:"store_path"`
	RedisURL     string        `mapstructure:"redis_url"`
	S3Bucket     string        `mapstructure:"s3_bucket"`
	S3Prefix     string        `mapstructure:"s3_prefix"`
	S3Region     string        `mapstructure:"s3_region"`
	S3Endpoint   string        `mapstructure:"s3_endpoint"`
	LogLevel     string        `mapstructure:"log_level"`
}

var defaults = map[string]any{
	"api_key":       "",
	"base_url":      "",
	"locale":        "en",
	"namespaces":    []string{golokal.DefaultNamespace},
	"poll_interval": golokal.DefaultPollInterval.String(),
	"store":         "file",
	"store_path":    "",
	"redis_url":     "",
	"s3_bucket":     "",
	"s3_prefix":     "golokal/",
	"s3_region":     "",
	"s3_endpoint":   "",
	"log_level":     "warn",
}

// globalFlags registers the flags accepted before the command name.
type globalFlags struct {
	configFile string
	envFile    string
}

func registerGlobalFlags(flagSet *flag.FlagSet) *globalFlags {
	g := &globalFlags{}
	flagSet.StringVar(&g.configFile, "config", "", "Config file (YAML)")
	flagSet.StringVar(&g.envFile, "env-file", ".env", "Env file to load if present")

	flagSet.String("api-key", "", "Project API key (env GOLOKAL_API_KEY)")
	flagSet.String("base-url", "", "Translations API base URL (env GOLOKAL_BASE_URL)")
	flagSet.String("locale", "", "Default locale (default \"en\")")
	flagSet.String("namespaces", "", "Comma-separated namespaces (default \"default\")")
	flagSet.String("poll-interval", "", "Poll interval for watch (default 30s)")
	flagSet.String("store", "", "Cache backend: file, sqlite, redis, s3, memory (default \"file\")")
	flagSet.String("store-path", "", "Directory (file) or database path (sqlite)")
	flagSet.String("redis-url", "", "Redis URL for the redis backend")
	flagSet.String("s3-bucket", "", "Bucket for the s3 backend")
	flagSet.String("s3-prefix", "", "Object key prefix for the s3 backend")
	flagSet.String("s3-region", "", "Region for the s3 backend")
	flagSet.String("s3-endpoint", "", "Custom endpoint for S3-compatible services")
	flagSet.String("log-level", "", "Log level: debug, info, warn, error (default \"warn\")")
	return g
}

// loadSettings merges configuration sources. Only flags set explicitly override.
func loadSettings(flagSet *flag.FlagSet, g *globalFlags) (*settings, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading env file %s: %w", g.envFile, err)
		}
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if g.configFile != "" {
		v.SetConfigFile(g.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GOLOKAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	flagSet.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "env-file" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &s, nil
}

func (s *settings) clientConfig(storage cache.Storage) golokal.Config {
	namespaces := make([]string, 0, len(s.Namespaces))
	for _, ns := range s.Namespaces {
		if ns = strings.TrimSpace(ns); ns != "" {
			namespaces = append(namespaces, ns)
		}
	}
	return golokal.Config{
		APIKey:        s.APIKey,
		BaseURL:       s.BaseURL,
		DefaultLocale: s.Locale,
		Namespaces:    namespaces,
		PollInterval:  s.PollInterval,
		Storage:       storage,
	}
}

func newLogger(w io.Writer, level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).
		Level(lvl).
		With().Timestamp().Str("app", golokal.Name).
		Logger(), nil
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), golokal.Name)
	}
	return filepath.Join(dir, golokal.Name)
}

// openStorage builds the configured cache backend. closer releases its resources.
func openStorage(ctx context.Context, s *settings) (storage cache.Storage, closer func() error, err error) {
	noop := func() error { return nil }

	switch strings.ToLower(s.Store) {
	case "memory":
		return cache.NewMemoryStorage(), noop, nil

	case "file", "":
		dir := s.StorePath
		if dir == "" {
			dir = defaultCacheDir()
		}
		fsStore, err := cache.NewFileStorage(dir)
		if err != nil {
			return nil, nil, err
		}
		return fsStore, noop, nil

	case "sqlite":
		path := s.StorePath
		if path == "" {
			if err := os.MkdirAll(defaultCacheDir(), 0o700); err != nil {
				return nil, nil, err
			}
			path = filepath.Join(defaultCacheDir(), "golokal.db")
		}
		db, err := cache.OpenSQLiteStorage(path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case "redis":
		if s.RedisURL == "" {
			return nil, nil, fmt.Errorf("--redis-url is required for the redis store")
		}
		rs, err := cache.NewRedisStorage(cache.RedisConfig{URL: s.RedisURL})
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil

	case "s3":
		s3Store, err := cache.NewS3Storage(ctx, cache.S3Config{
			Bucket:         s.S3Bucket,
			Prefix:         s.S3Prefix,
			Region:         s.S3Region,
			Endpoint:       s.S3Endpoint,
			ForcePathStyle: s.S3Endpoint != "",
		})
		if err != nil {
			return nil, nil, err
		}
		return s3Store, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q", s.Store)
	}
}

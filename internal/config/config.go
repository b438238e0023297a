package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the resolved client configuration.
type Config struct {
	APIURL         string        `mapstructure:"api-url"`
	Token          string        `mapstructure:"token"`
	PageSize       int           `mapstructure:"page-size"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`

	CacheBackend  string `mapstructure:"cache-backend"`
	DBPath        string `mapstructure:"db-path"`
	RedisAddr     string `mapstructure:"redis-addr"`
	RedisPassword string `mapstructure:"redis-password"`
	RedisDB       int    `mapstructure:"redis-db"`
	RedisPrefix   string `mapstructure:"redis-prefix"`

	LogDir        string        `mapstructure:"log-dir"`
	LiveURL       string        `mapstructure:"live-url"` // empty disables the live feed
	AddressDB     string        `mapstructure:"address-db"`
	DraftDebounce time.Duration `mapstructure:"draft-debounce"`

	MockAddr string `mapstructure:"mock-addr"`
	MockSeed int    `mapstructure:"mock-seed"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		APIURL:         "http://localhost:8000/api/v1",
		PageSize:       10,
		RequestTimeout: 15 * time.Second,
		CacheBackend:   BackendSQLite,
		DBPath:         "~/.local/share/campaigndesk/campaigndesk.db",
		RedisAddr:      "localhost:6379",
		RedisPrefix:    "campaigndesk:",
		LogDir:         "~/.local/share/campaigndesk/logs",
		DraftDebounce:  time.Second,
		MockAddr:       "127.0.0.1:8000",
		MockSeed:       24,
	}
}

// DefaultPath returns ~/.config/campaigndesk/config.yml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "campaigndesk", "config.yml"), nil
}

// Load reads configPath (or the default path when empty), overlays
// CAMPAIGNDESK_* environment variables and validates the result.
// A missing config file is not an error.
func Load(configPath string) (Config, error) {
	var cfg Config

	def := Defaults()
	v := viper.New()
	v.SetEnvPrefix("CAMPAIGNDESK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("api-url", def.APIURL)
	v.SetDefault("token", def.Token)
	v.SetDefault("page-size", def.PageSize)
	v.SetDefault("request-timeout", def.RequestTimeout)
	v.SetDefault("cache-backend", def.CacheBackend)
	v.SetDefault("db-path", def.DBPath)
	v.SetDefault("redis-addr", def.RedisAddr)
	v.SetDefault("redis-password", def.RedisPassword)
	v.SetDefault("redis-db", def.RedisDB)
	v.SetDefault("redis-prefix", def.RedisPrefix)
	v.SetDefault("log-dir", def.LogDir)
	v.SetDefault("live-url", def.LiveURL)
	v.SetDefault("address-db", def.AddressDB)
	v.SetDefault("draft-debounce", def.DraftDebounce)
	v.SetDefault("mock-addr", def.MockAddr)
	v.SetDefault("mock-seed", def.MockSeed)

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return cfg, err
		}
		configPath = p
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.resolvePaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks value ranges and the cache backend name.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: api-url is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: page-size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("config: request-timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.DraftDebounce < 0 {
		return fmt.Errorf("config: draft-debounce must not be negative, got %s", c.DraftDebounce)
	}
	switch c.CacheBackend {
	case BackendSQLite, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("config: unknown cache-backend %q (want sqlite, redis or memory)", c.CacheBackend)
	}
	if c.CacheBackend == BackendRedis && c.RedisAddr == "" {
		return errors.New("config: redis-addr is required for the redis backend")
	}
	return nil
}

func (c *Config) resolvePaths() error {
	for _, p := range []*string{&c.DBPath, &c.LogDir, &c.AddressDB} {
		expanded, err := ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = expanded
	}
	return nil
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// WriteDefault writes the built-in configuration as YAML to path.
// An existing file is left alone unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := Marshal(Defaults())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Marshal renders cfg as YAML. Secrets are masked.
func Marshal(cfg Config) ([]byte, error) {
	node := toFile(cfg)
	if node.Token != "" {
		node.Token = "********"
	}
	if node.RedisPassword != "" {
		node.RedisPassword = "********"
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

// fileConfig mirrors Config with durations as strings, which is what
// viper parses back.
type fileConfig struct {
	APIURL         string `yaml:"api-url"`
	Token          string `yaml:"token"`
	PageSize       int    `yaml:"page-size"`
	RequestTimeout string `yaml:"request-timeout"`
	CacheBackend   string `yaml:"cache-backend"`
	DBPath         string `yaml:"db-path"`
	RedisAddr      string `yaml:"redis-addr"`
	RedisPassword  string `yaml:"redis-password"`
	RedisDB        int    `yaml:"redis-db"`
	RedisPrefix    string `yaml:"redis-prefix"`
	LogDir         string `yaml:"log-dir"`
	LiveURL        string `yaml:"live-url"`
	AddressDB      string `yaml:"address-db"`
	DraftDebounce  string `yaml:"draft-debounce"`
	MockAddr       string `yaml:"mock-addr"`
	MockSeed       int    `yaml:"mock-seed"`
}

func toFile(c Config) fileConfig {
	return fileConfig{
		APIURL:         c.APIURL,
		Token:          c.Token,
		PageSize:       c.PageSize,
		RequestTimeout: c.RequestTimeout.String(),
		CacheBackend:   c.CacheBackend,
		DBPath:         c.DBPath,
		RedisAddr:      c.RedisAddr,
		RedisPassword:  c.RedisPassword,
		RedisDB:        c.RedisDB,
		RedisPrefix:    c.RedisPrefix,
		LogDir:         c.LogDir,
		LiveURL:        c.LiveURL,
		AddressDB:      c.AddressDB,
		DraftDebounce:  c.DraftDebounce.String(),
		MockAddr:       c.MockAddr,
		MockSeed:       c.MockSeed,
	}
}

// Package config loads chefmate settings from a YAML (or JSON) file and the
// CHEFMATE_* environment, in that order of precedence (environment wins).
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/chefmate/internal/adapters/file"
	"github.com/aretw0/chefmate/pkg/adapters/catalog"
	"github.com/aretw0/chefmate/pkg/adapters/redis"
	"github.com/aretw0/chefmate/pkg/adapters/search"
	"github.com/aretw0/chefmate/pkg/dialogue"
	"github.com/aretw0/chefmate/pkg/voice"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "chefmate.yaml"

// Store drivers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Search  SearchConfig  `mapstructure:"search" json:"search"`
	Catalog CatalogConfig `mapstructure:"catalog" json:"catalog"`
	Turn    TurnConfig    `mapstructure:"turn" json:"turn"`
	Voice   VoiceConfig   `mapstructure:"voice" json:"voice"`
	Store   StoreConfig   `mapstructure:"store" json:"store"`
	Server  ServerConfig  `mapstructure:"server" json:"server"`
	Log     LogConfig     `mapstructure:"log" json:"log"`
}

// SearchConfig points at the remote recipe service. An empty URL selects the
// built-in catalog.
type SearchConfig struct {
	URL       string        `mapstructure:"url" json:"url"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	CSRFToken string        `mapstructure:"csrf_token" json:"-"`
}

type CatalogConfig struct {
	// Dir holds extra recipe files. Empty uses the embedded catalog.
	Dir     string `mapstructure:"dir" json:"dir"`
	Pattern string `mapstructure:"pattern" json:"pattern"`
}

type TurnConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// MaxInputSize of 0 defers to the sanitizer default.
	MaxInputSize int `mapstructure:"max_input_size" json:"max_input_size"`
}

type VoiceConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown" json:"cooldown"`
}

type StoreConfig struct {
	Driver        string        `mapstructure:"driver" json:"driver"`
	Path          string        `mapstructure:"path" json:"path"`
	TTL           time.Duration `mapstructure:"ttl" json:"ttl"`
	EncryptionKey string        `mapstructure:"encryption_key" json:"-"`
	Redis         RedisConfig   `mapstructure:"redis" json:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	Prefix   string `mapstructure:"prefix" json:"prefix"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Search:  SearchConfig{Timeout: search.DefaultTimeout},
		Catalog: CatalogConfig{Pattern: catalog.DefaultPattern},
		Turn:    TurnConfig{Timeout: dialogue.DefaultTimeout},
		Voice:   VoiceConfig{Cooldown: voice.DefaultCooldown},
		Store: StoreConfig{
			Driver: DriverMemory,
			Path:   file.DefaultDir,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: redis.DefaultPrefix,
			},
		},
		Server: ServerConfig{Addr: ":8080"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// envKeys maps environment variables onto config paths.
var envKeys = map[string][]string{
	"CHEFMATE_SEARCH_URL":     {"search", "url"},
	"CHEFMATE_SEARCH_TIMEOUT": {"search", "timeout"},
	"CHEFMATE_CSRF_TOKEN":     {"search", "csrf_token"},
	"CHEFMATE_CATALOG_DIR":    {"catalog", "dir"},
	"CHEFMATE_TURN_TIMEOUT":   {"turn", "timeout"},
	dialogue.EnvMaxInputSize:  {"turn", "max_input_size"},
	"CHEFMATE_VOICE_COOLDOWN": {"voice", "cooldown"},
	"CHEFMATE_STORE":          {"store", "driver"},
	"CHEFMATE_STORE_PATH":     {"store", "path"},
	"CHEFMATE_SESSION_TTL":    {"store", "ttl"},
	"CHEFMATE_ENCRYPTION_KEY": {"store", "encryption_key"},
	"CHEFMATE_REDIS_ADDR":     {"store", "redis", "addr"},
	"CHEFMATE_REDIS_PASSWORD": {"store", "redis", "password"},
	"CHEFMATE_REDIS_DB":       {"store", "redis", "db"},
	"CHEFMATE_REDIS_PREFIX":   {"store", "redis", "prefix"},
	"CHEFMATE_ADDR":           {"server", "addr"},
	"CHEFMATE_LOG_LEVEL":      {"log", "level"},
	"CHEFMATE_LOG_FORMAT":     {"log", "format"},
}

// Load reads path (or DefaultFile when empty) and applies the environment.
// A missing default file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	raw, err := readFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist) && !explicit:
	case err != nil:
		return cfg, err
	default:
		if err := decode(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config %s: %w", path, err)
		}
	}

	if err := decode(envMap(lookup), &cfg); err != nil {
		return cfg, fmt.Errorf("invalid environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return raw, nil
}

func envMap(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	for env, keys := range envKeys {
		val, ok := lookup(env)
		if !ok || val == "" {
			continue
		}
		node := out
		for _, k := range keys[:len(keys)-1] {
			child, ok := node[k].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[k] = child
			}
			node = child
		}
		node[keys[len(keys)-1]] = val
	}
	return out
}

func decode(raw map[string]any, cfg *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverFile, DriverRedis:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Turn.Timeout <= 0 || c.Search.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Voice.Cooldown < 0 || c.Store.TTL < 0 || c.Turn.MaxInputSize < 0 {
		return errors.New("cooldown, ttl and max_input_size cannot be negative")
	}
	if c.Search.URL != "" && !strings.HasPrefix(c.Search.URL, "http://") && !strings.HasPrefix(c.Search.URL, "https://") {
		return fmt.Errorf("search url must be http(s): %q", c.Search.URL)
	}
	return nil
}

// UsesCatalog reports whether searches are served by the built-in catalog.
func (c Config) UsesCatalog() bool {
	return c.Search.URL == ""
}

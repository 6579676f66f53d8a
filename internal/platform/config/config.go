package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const EnvPrefix = "ENEMIA_"

type Config struct {
	Env   string      `koanf:"env" validate:"oneof=dev test prod"`
	HTTP  HTTPConfig  `koanf:"http"`
	Log   LogConfig   `koanf:"log"`
	DB    DBConfig    `koanf:"db"`
	Auth  AuthConfig  `koanf:"auth"`
	Cache CacheConfig `koanf:"cache"`
	LLM   LLMConfig   `koanf:"llm"`
	OTel  OTelConfig  `koanf:"otel"`
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr" validate:"required"`
	AllowedOrigins []string      `koanf:"allowed_origins"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

type LogConfig struct {
	Mode      string `koanf:"mode" validate:"oneof=dev prod"`
	Level     string `koanf:"level" validate:"oneof=debug info warn error"`
	Redaction bool   `koanf:"redaction"`
	HashSalt  string `koanf:"hash_salt"`
}

type DBConfig struct {
	Driver      string `koanf:"driver" validate:"oneof=postgres sqlite"`
	DSN         string `koanf:"dsn" validate:"required"`
	AutoMigrate bool   `koanf:"auto_migrate"`
	ReadRetries uint   `koanf:"read_retries" validate:"gte=1,lte=10"`
}

type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" validate:"required,min=16"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

type CacheConfig struct {
	Backend   string        `koanf:"backend" validate:"oneof=memory redis"`
	TTL       time.Duration `koanf:"ttl" validate:"gt=0"`
	MaxItems  int           `koanf:"max_items" validate:"gte=1"`
	RedisAddr string        `koanf:"redis_addr" validate:"required_if=Backend redis"`
	KeyPrefix string        `koanf:"key_prefix"`
}

type LLMConfig struct {
	APIKey      string        `koanf:"api_key" validate:"required"`
	BaseURL     string        `koanf:"base_url" validate:"required,url"`
	Model       string        `koanf:"model" validate:"required"`
	Timeout     time.Duration `koanf:"timeout" validate:"gt=0"`
	MaxRetries  int           `koanf:"max_retries" validate:"gte=0,lte=8"`
	Temperature float64       `koanf:"temperature" validate:"gte=0,lte=2"`
}

type OTelConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Exporter    string  `koanf:"exporter" validate:"oneof=otlp stdout"`
	Endpoint    string  `koanf:"endpoint"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// Default returns the baseline configuration. Every source loaded by Load overrides it key by key.
func Default() Config {
	return Config{
		Env: "dev",
		HTTP: HTTPConfig{
			Addr:           ":5001",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RequestTimeout: 5 * time.Minute,
		},
		Log: LogConfig{Mode: "dev", Level: "debug", Redaction: true},
		DB: DBConfig{
			Driver:      "sqlite",
			DSN:         "file:enemia.db?cache=shared",
			AutoMigrate: true,
			ReadRetries: 3,
		},
		Cache: CacheConfig{Backend: "memory", TTL: time.Hour, MaxItems: 256, KeyPrefix: "enemia:gen:"},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com",
			Model:       "gpt-4.1-mini",
			Timeout:     3 * time.Minute,
			MaxRetries:  4,
			Temperature: 0.7,
		},
		OTel: OTelConfig{Exporter: "otlp", SampleRatio: 1},
	}
}

// RegisterFlags declares the command-line overrides understood by Load.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.String("http.addr", Default().HTTP.Addr, "HTTP listen address")
	fs.String("db.driver", Default().DB.Driver, "database driver (postgres|sqlite)")
	fs.String("db.dsn", Default().DB.DSN, "database DSN")
	fs.String("log.mode", Default().Log.Mode, "log mode (dev|prod)")
	fs.String("cache.backend", Default().Cache.Backend, "generation cache backend (memory|redis)")
}

// Load merges defaults, an optional YAML file, ENEMIA_* environment variables and changed flags,
// in that order, and validates the result.
func Load(fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	path := ""
	if fs != nil {
		path, _ = fs.GetString("config")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, changedOnly(fs)), nil); err != nil {
			return Config{}, fmt.Errorf("load flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// ENEMIA_CACHE__REDIS_ADDR -> cache.redis_addr
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func changedOnly(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed || f.Name == "config" {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}
}

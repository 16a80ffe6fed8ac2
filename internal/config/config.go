package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required when store.driver is postgres")
	ErrMissingRedisAddr   = errors.New("REDIS_ADDR is required when candidates.driver is redis")
	ErrUnknownDriver      = errors.New("unknown driver")
	ErrUnknownMode        = errors.New("unknown generator mode")
	ErrInvalidDuration    = errors.New("duration must be positive")
)

// Config holds application configuration loaded from files and environment variables.
type Config struct {
	Env        string     `mapstructure:"env"` // local, dev, production
	HTTP       HTTP       `mapstructure:"http"`
	Store      Store      `mapstructure:"store"`
	DB         DB         `mapstructure:"database"`
	Query      Query      `mapstructure:"query"`
	Generator  Generator  `mapstructure:"generator"`
	Candidates Candidates `mapstructure:"candidates"`
	Redis      Redis      `mapstructure:"redis"`
	Auth       Auth       `mapstructure:"auth"`
	Seed       Seed       `mapstructure:"seed"`
}

type HTTP struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (h HTTP) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

type Store struct {
	Driver string `mapstructure:"driver"` // memory or postgres
}

type DB struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type Query struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

type Generator struct {
	Mode         string        `mapstructure:"mode"` // api, mock or cli
	DefaultModel string        `mapstructure:"default_model"`
	MaxCount     int           `mapstructure:"max_count"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CLIPath      string        `mapstructure:"cli_path"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`

	DeepseekAPIKey  string `mapstructure:"deepseek_api_key"`
	DeepseekBaseURL string `mapstructure:"deepseek_base_url"`
	DeepseekModel   string `mapstructure:"deepseek_model"`

	QwenAPIKey  string `mapstructure:"qwen_api_key"`
	QwenBaseURL string `mapstructure:"qwen_base_url"`
	QwenModel   string `mapstructure:"qwen_model"`
}

type Candidates struct {
	Driver          string        `mapstructure:"driver"` // memory or redis
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Auth struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Enabled reports whether mutating routes require a bearer token.
func (a Auth) Enabled() bool {
	return a.Secret != ""
}

type Seed struct {
	File string `mapstructure:"file"`
}

// Load reads configuration from an optional .env file, an optional
// config/config.yaml and environment variables, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if err := v.ReadInConfig(); err != nil {
		var fileLookupErr viper.ConfigFileNotFoundError
		if !errors.As(err, &fileLookupErr) {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("http.host", "")
	v.SetDefault("http.port", 8081)
	v.SetDefault("http.shutdown_timeout", "10s")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("query.default_page_size", 10)
	v.SetDefault("query.max_page_size", 100)
	v.SetDefault("generator.mode", "api")
	v.SetDefault("generator.default_model", "claude")
	v.SetDefault("generator.max_count", 10)
	v.SetDefault("generator.timeout", "90s")
	v.SetDefault("generator.cli_path", "claude")
	v.SetDefault("generator.anthropic_model", "claude-opus-4-5-20251101")
	v.SetDefault("generator.deepseek_base_url", "https://api.deepseek.com/v1")
	v.SetDefault("generator.deepseek_model", "deepseek-chat")
	v.SetDefault("generator.qwen_base_url", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	v.SetDefault("generator.qwen_model", "qwen-plus")
	v.SetDefault("candidates.driver", "memory")
	v.SetDefault("candidates.ttl", "30m")
	v.SetDefault("candidates.janitor_interval", "1m")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.token_ttl", "72h")
}

// envBindings maps config keys to the environment variable names used in
// deployment, where they differ from the automatic KEY_NAME form.
var envBindings = map[string]string{
	"env":                         "APP_ENV",
	"http.port":                   "PORT",
	"store.driver":                "STORE_DRIVER",
	"database.url":                "DATABASE_URL",
	"generator.mode":              "GENERATOR_MODE",
	"generator.cli_path":          "CLAUDE_CLI_PATH",
	"generator.anthropic_api_key": "ANTHROPIC_API_KEY",
	"generator.anthropic_model":   "ANTHROPIC_MODEL",
	"generator.deepseek_api_key":  "DEEPSEEK_API_KEY",
	"generator.qwen_api_key":      "DASHSCOPE_API_KEY",
	"candidates.driver":           "CANDIDATES_DRIVER",
	"redis.addr":                  "REDIS_ADDR",
	"redis.password":              "REDIS_PASSWORD",
	"auth.secret":                 "AUTH_SECRET",
	"seed.file":                   "SEED_FILE",
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.DB.URL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("store.driver %q: %w", c.Store.Driver, ErrUnknownDriver)
	}

	switch c.Candidates.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("candidates.driver %q: %w", c.Candidates.Driver, ErrUnknownDriver)
	}

	switch c.Generator.Mode {
	case "api", "mock", "cli":
	default:
		return fmt.Errorf("generator.mode %q: %w", c.Generator.Mode, ErrUnknownMode)
	}

	if c.Candidates.TTL <= 0 {
		return fmt.Errorf("candidates.ttl %v: %w", c.Candidates.TTL, ErrInvalidDuration)
	}
	if c.Candidates.Driver == "memory" && c.Candidates.JanitorInterval <= 0 {
		return fmt.Errorf("candidates.janitor_interval %v: %w", c.Candidates.JanitorInterval, ErrInvalidDuration)
	}

	if c.Query.MaxPageSize <= 0 || c.Query.DefaultPageSize <= 0 || c.Query.DefaultPageSize > c.Query.MaxPageSize {
		return fmt.Errorf("query page sizes must satisfy 0 < default_page_size <= max_page_size")
	}
	return nil
}

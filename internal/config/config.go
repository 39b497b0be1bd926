package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Generation GenerationConfig `mapstructure:"generation"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Redis      RedisConfig      `mapstructure:"redis"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	R2         R2Config         `mapstructure:"r2"`
	Log        LogConfig        `mapstructure:"log"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Mode           string        `mapstructure:"mode"`
	FrontendURL    string        `mapstructure:"frontend_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	// VisionAPIKey enables image text extraction through Gemini when the
	// main provider is not Gemini.
	VisionAPIKey string `mapstructure:"vision_api_key"`
}

type GenerationConfig struct {
	ChunkSize     int `mapstructure:"chunk_size"`
	ChunkAttempts int `mapstructure:"chunk_attempts"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	SessionSecret string        `mapstructure:"session_secret"`
	Google        GoogleConfig  `mapstructure:"google"`
}

type GoogleConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURL  string `mapstructure:"redirect_url"`
}

// Enabled reports whether Google login is fully configured.
func (g GoogleConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != "" && g.RedirectURL != ""
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type RabbitMQConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type R2Config struct {
	AccountID       string `mapstructure:"account_id"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	PublicURL       string `mapstructure:"public_url"`
}

// Enabled reports whether every R2 setting is present.
func (r R2Config) Enabled() bool {
	return r.AccountID != "" && r.Bucket != "" && r.AccessKeyID != "" && r.SecretAccessKey != "" && r.PublicURL != ""
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"server.port":               "PORT",
	"server.mode":               "SERVER_MODE",
	"server.frontend_url":       "FRONTEND_URL",
	"server.request_timeout":    "REQUEST_TIMEOUT",
	"database.url":              "DATABASE_URL",
	"llm.provider":              "LLM_PROVIDER",
	"llm.api_key":               "LLM_API_KEY",
	"llm.base_url":              "LLM_BASE_URL",
	"llm.model":                 "LLM_MODEL",
	"llm.temperature":           "LLM_TEMPERATURE",
	"llm.max_tokens":            "LLM_MAX_TOKENS",
	"llm.max_attempts":          "LLM_MAX_ATTEMPTS",
	"llm.retry_delay":           "LLM_RETRY_DELAY",
	"llm.vision_api_key":        "GEMINI_API_KEY",
	"generation.chunk_size":     "CHUNK_SIZE",
	"generation.chunk_attempts": "CHUNK_ATTEMPTS",
	"auth.jwt_secret":           "JWT_SECRET",
	"auth.token_ttl":            "TOKEN_TTL",
	"auth.session_secret":       "SESSION_SECRET",
	"auth.google.client_id":     "GOOGLE_CLIENT_ID",
	"auth.google.client_secret": "GOOGLE_CLIENT_SECRET",
	"auth.google.redirect_url":  "GOOGLE_REDIRECT_URL",
	"redis.addr":                "REDIS_ADDR",
	"redis.password":            "REDIS_PASSWORD",
	"redis.db":                  "REDIS_DB",
	"redis.ttl":                 "REDIS_TTL",
	"rabbitmq.url":              "RABBITMQ_URL",
	"rabbitmq.queue":            "RABBITMQ_QUEUE",
	"r2.account_id":             "CLOUDFLARE_ACCOUNT_ID",
	"r2.bucket":                 "R2_BUCKET_NAME",
	"r2.access_key_id":          "R2_ACCESS_KEY_ID",
	"r2.secret_access_key":      "R2_SECRET_ACCESS_KEY",
	"r2.public_url":             "R2_PUBLIC_URL",
	"log.file":                  "LOG_FILE",
	"rate_limit.requests":       "RATE_LIMIT_REQUESTS",
	"rate_limit.window":         "RATE_LIMIT_WINDOW",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.frontend_url", "http://localhost:5173")
	v.SetDefault("server.request_timeout", 2*time.Minute)
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.temperature", 0.5)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("generation.chunk_size", 1000)
	v.SetDefault("generation.chunk_attempts", 3)
	v.SetDefault("auth.token_ttl", 30*24*time.Hour)
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("rabbitmq.queue", "quiz.events")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", time.Minute)
}

// Load reads .env (if present), an optional config.yaml from path, and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
		log.Println("WARN: .env file not found. Relying on system environment variables.")
	}

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// The Gemini key doubles as the model key when Gemini is the provider.
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == ProviderGemini {
		cfg.LLM.APIKey = cfg.LLM.VisionAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown LLM provider %q (want gemini or openai)", c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("an API key for the %s provider must be set", c.LLM.Provider)
	}
	if c.Generation.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}
	return nil
}

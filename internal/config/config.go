package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "TASTEBOARD"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultDatabaseDriver     = "postgres"
	defaultDatabaseDSN        = "host=localhost user=tasteboard dbname=tasteboard sslmode=disable"
	defaultRedisAddress       = "localhost:6379"
	defaultLogLevel           = "info"
	defaultAccessTokenTTL     = 30 * time.Minute
	defaultRefreshTokenTTL    = 24 * time.Hour
	defaultWorkerConcurrency  = 4
	defaultOAuthCallbackURL   = "http://localhost:8080/auth/google/callback"
	defaultFrontendBoardURL   = "http://localhost:5173/board"
	defaultOpenAIChatModel    = "gpt-4o-2024-08-06"
	defaultOpenAICompareModel = "gpt-3.5-turbo"
	defaultOpenAIImageModel   = "dall-e-2"
)

// AppConfig captures runtime configuration for the API server and worker.
type AppConfig struct {
	HTTPAddress        string
	DatabaseDriver     string
	DatabaseDSN        string
	RedisAddress       string
	RedisPassword      string
	SigningSecret      string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	YouTubeAPIKey      string
	GoogleClientID     string
	GoogleClientSecret string
	OAuthCallbackURL   string
	FrontendBoardURL   string
	OpenAIAPIKey       string
	OpenAIChatModel    string
	OpenAICompareModel string
	OpenAIImageModel   string
	StorageBucket      string
	StorageCredsFile   string
	WorkerConcurrency  int
	LogLevel           string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("database.driver", defaultDatabaseDriver)
	configViper.SetDefault("database.dsn", defaultDatabaseDSN)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("token.access_ttl_minutes", int(defaultAccessTokenTTL.Minutes()))
	configViper.SetDefault("token.refresh_ttl_minutes", int(defaultRefreshTokenTTL.Minutes()))
	configViper.SetDefault("worker.concurrency", defaultWorkerConcurrency)
	configViper.SetDefault("google.callback_url", defaultOAuthCallbackURL)
	configViper.SetDefault("frontend.board_url", defaultFrontendBoardURL)
	configViper.SetDefault("openai.chat_model", defaultOpenAIChatModel)
	configViper.SetDefault("openai.compare_model", defaultOpenAICompareModel)
	configViper.SetDefault("openai.image_model", defaultOpenAIImageModel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		DatabaseDriver:     configViper.GetString("database.driver"),
		DatabaseDSN:        configViper.GetString("database.dsn"),
		RedisAddress:       configViper.GetString("redis.address"),
		RedisPassword:      configViper.GetString("redis.password"),
		SigningSecret:      configViper.GetString("auth.signing_secret"),
		AccessTokenTTL:     time.Duration(configViper.GetInt("token.access_ttl_minutes")) * time.Minute,
		RefreshTokenTTL:    time.Duration(configViper.GetInt("token.refresh_ttl_minutes")) * time.Minute,
		YouTubeAPIKey:      configViper.GetString("youtube.api_key"),
		GoogleClientID:     configViper.GetString("google.client_id"),
		GoogleClientSecret: configViper.GetString("google.client_secret"),
		OAuthCallbackURL:   configViper.GetString("google.callback_url"),
		FrontendBoardURL:   configViper.GetString("frontend.board_url"),
		OpenAIAPIKey:       configViper.GetString("openai.api_key"),
		OpenAIChatModel:    configViper.GetString("openai.chat_model"),
		OpenAICompareModel: configViper.GetString("openai.compare_model"),
		OpenAIImageModel:   configViper.GetString("openai.image_model"),
		StorageBucket:      configViper.GetString("storage.bucket"),
		StorageCredsFile:   configViper.GetString("storage.credentials_file"),
		WorkerConcurrency:  configViper.GetInt("worker.concurrency"),
		LogLevel:           configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.SigningSecret) == "" {
		return fmt.Errorf("auth.signing_secret is required")
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.DatabaseDriver)
	}
	if strings.TrimSpace(c.RedisAddress) == "" {
		return fmt.Errorf("redis.address is required")
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be positive")
	}
	return nil
}

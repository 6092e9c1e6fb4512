package main

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is read from the environment, optionally seeded from a .env file.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel   string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`

	BackendBaseURL string `envconfig:"SUPPLIERX_BASE_URL" required:"true"`
	BackendToken   string `envconfig:"SUPPLIERX_API_TOKEN"`
	SessionKey     string `envconfig:"SUPPLIERX_SESSION_KEY"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	return &cfg, nil
}

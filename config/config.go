// Package config loads runtime settings from the environment, with optional
// .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/taskpipe/taskpipe/model"
)

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultProvider    = "bedrock"
	DefaultModelID     = "anthropic.claude-3-sonnet-20240229-v1:0"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2048
	DefaultAWSRegion   = "us-east-1"
)

// Config is the process-level configuration resolved from the environment.
type Config struct {
	Provider    string
	ModelID     string
	Temperature float64
	MaxTokens   int

	AWSRegion  string
	AWSProfile string
}

// LoadDotenv loads the given .env files into the process environment without
// overriding variables that are already set. With no arguments it loads
// ".env"; a missing default file is not an error.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load resolves the configuration after applying a .env file if one exists
// in the working directory.
func Load() (Config, error) {
	if err := LoadDotenv(); err != nil {
		return Config{}, err
	}
	return FromEnv(), nil
}

// FromEnv resolves a Config from environment variables, filling defaults for
// anything unset. Malformed numeric values fall back to their defaults.
func FromEnv() Config {
	return Config{
		Provider:    envOr("PROVIDER", DefaultProvider),
		ModelID:     envOr("MODEL_ID", DefaultModelID),
		Temperature: envFloat("TEMPERATURE", DefaultTemperature),
		MaxTokens:   envInt("MAX_TOKENS", DefaultMaxTokens),
		AWSRegion:   envOr("AWS_REGION", DefaultAWSRegion),
		AWSProfile:  os.Getenv("AWS_PROFILE"),
	}
}

// ModelConfig projects the process configuration onto the model parameters a
// pipeline binds at build time.
func (c Config) ModelConfig() model.Config {
	return model.Config{
		Provider:    c.Provider,
		ModelID:     c.ModelID,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
}

// DefaultModelConfig is the model configuration used when nothing about the
// environment is known.
func DefaultModelConfig() model.Config {
	return model.Config{
		Provider:    DefaultProvider,
		ModelID:     DefaultModelID,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

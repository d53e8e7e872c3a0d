// Package config loads application settings from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Rolling buffer settings
	WindowMinutes int `envconfig:"WINDOW_MINUTES" default:"30"`
	ChunkSeconds  int `envconfig:"CHUNK_SECONDS" default:"1"`

	// Audio settings
	SampleRate   int `envconfig:"SAMPLE_RATE" default:"16000"`
	PlaybackRate int `envconfig:"PLAYBACK_RATE" default:"24000"`

	// Analysis settings
	AnalysisModel   string `envconfig:"ANALYSIS_MODEL" default:"gemini-2.5-flash"`
	AnalysisTimeout int    `envconfig:"ANALYSIS_TIMEOUT_SECONDS" default:"60"`

	// Live commentary settings
	LiveURL            string `envconfig:"LIVE_URL" default:"wss://generativelanguage.googleapis.com/ws/live"`
	LiveModel          string `envconfig:"LIVE_MODEL" default:"gemini-2.5-flash-native-audio"`
	TranscriptMaxBytes int    `envconfig:"TRANSCRIPT_MAX_BYTES" default:"8000"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// Parse environment variables into config struct
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if config.WindowMinutes <= 0 {
		return nil, fmt.Errorf("WINDOW_MINUTES must be positive, got %d", config.WindowMinutes)
	}
	if config.ChunkSeconds <= 0 {
		return nil, fmt.Errorf("CHUNK_SECONDS must be positive, got %d", config.ChunkSeconds)
	}

	return &config, nil
}

// Window returns the rolling buffer retention window.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// ChunkInterval returns the capture fragment cadence.
func (c *Config) ChunkInterval() time.Duration {
	return time.Duration(c.ChunkSeconds) * time.Second
}

// AnalysisDeadline returns the per-request analysis timeout.
func (c *Config) AnalysisDeadline() time.Duration {
	return time.Duration(c.AnalysisTimeout) * time.Second
}

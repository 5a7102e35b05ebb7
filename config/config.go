// Package config loads pipeline settings from an optional yaml file
// with environment variable overrides. A .env file is honored when
// present.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the pipeline and CLI.
type Config struct {
	// Capture settings.
	CaptureRate   int `yaml:"capture_rate"`
	CaptureFrames int `yaml:"capture_frames"`

	// Rate conversion target; whisper expects 16000.
	TargetRate int `yaml:"target_rate"`

	// Squelch settings.
	SampleSize    int     `yaml:"sample_size"`
	PrefixSamples int     `yaml:"prefix_samples"`
	SquelchLevel  float64 `yaml:"squelch_level"`
	DetectSeconds int     `yaml:"detect_seconds"`
	Percentile    float64 `yaml:"percentile"`
	Statistic     string  `yaml:"statistic"` // "rms" or "flux"

	// Whisper model path, required by the transcribe command.
	ModelPath string `yaml:"model_path"`

	// Metrics endpoint address; empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// Logging.
	LogLevel string `yaml:"log_level"`
}

// Load builds the configuration from defaults, then the yaml file at
// path (if non-empty), then environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file found, using environment only")
	}

	cfg := &Config{
		CaptureRate:   16000,
		CaptureFrames: 1600,
		TargetRate:    16000,
		SampleSize:    1600,
		PrefixSamples: 4,
		DetectSeconds: 10,
		Percentile:    0.8,
		Statistic:     "rms",
		LogLevel:      "info",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() {
	c.CaptureRate = getIntEnv("STT_CAPTURE_RATE", c.CaptureRate)
	c.CaptureFrames = getIntEnv("STT_CAPTURE_FRAMES", c.CaptureFrames)
	c.TargetRate = getIntEnv("STT_TARGET_RATE", c.TargetRate)
	c.SampleSize = getIntEnv("STT_SAMPLE_SIZE", c.SampleSize)
	c.PrefixSamples = getIntEnv("STT_PREFIX_SAMPLES", c.PrefixSamples)
	c.SquelchLevel = getFloatEnv("STT_SQUELCH_LEVEL", c.SquelchLevel)
	c.DetectSeconds = getIntEnv("STT_DETECT_SECONDS", c.DetectSeconds)
	c.Percentile = getFloatEnv("STT_PERCENTILE", c.Percentile)
	c.Statistic = getEnv("STT_STATISTIC", c.Statistic)
	c.ModelPath = getEnv("STT_MODEL_PATH", c.ModelPath)
	c.MetricsAddr = getEnv("STT_METRICS_ADDR", c.MetricsAddr)
	c.LogLevel = getEnv("STT_LOG_LEVEL", c.LogLevel)
}

func (c *Config) validate() error {
	if c.CaptureRate <= 0 {
		return fmt.Errorf("capture_rate must be positive, got %d", c.CaptureRate)
	}
	if c.TargetRate <= 0 {
		return fmt.Errorf("target_rate must be positive, got %d", c.TargetRate)
	}
	if c.SampleSize <= 0 {
		return fmt.Errorf("sample_size must be positive, got %d", c.SampleSize)
	}
	if c.PrefixSamples <= 0 {
		return fmt.Errorf("prefix_samples must be positive, got %d", c.PrefixSamples)
	}
	if c.Percentile <= 0 || c.Percentile > 1 {
		return fmt.Errorf("percentile must be in (0, 1], got %f", c.Percentile)
	}
	if c.Statistic != "rms" && c.Statistic != "flux" {
		return fmt.Errorf("statistic must be 'rms' or 'flux', got %q", c.Statistic)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return fallback
}

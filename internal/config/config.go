package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	ImaggaBaseURL       string        `yaml:"imagga_base_url"`
	ImaggaAuthorization string        `yaml:"imagga_authorization"`
	ImaggaTimeout       time.Duration `yaml:"imagga_timeout"`
	ImaggaRateLimitRPS  float64       `yaml:"imagga_rate_limit_rps"`
	ImaggaRateBurst     int           `yaml:"imagga_rate_limit_burst"`

	BreakerEnabled      bool          `yaml:"breaker_enabled"`
	BreakerMinRequests  int           `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`

	JPEGQuality       int   `yaml:"jpeg_quality"`
	MaxImageDimension int   `yaml:"max_image_dimension"`
	MaxUploadBytes    int64 `yaml:"max_upload_bytes"`

	APIRateLimitRPS   float64 `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int     `yaml:"api_rate_limit_burst"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// Defaults is the configuration used when neither file nor environment set a value.
func Defaults() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		ImaggaBaseURL:      "http://api.imagga.com/v1",
		ImaggaTimeout:      10 * time.Second,
		ImaggaRateLimitRPS: 0,
		ImaggaRateBurst:    1,

		BreakerEnabled:      true,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.5,
		BreakerOpenTimeout:  30 * time.Second,

		JPEGQuality:       50,
		MaxImageDimension: 2048,
		MaxUploadBytes:    20 << 20,

		APIRateLimitRPS:   5,
		APIRateLimitBurst: 10,

		NATSSubject: "photos.tagged",
	}
}

// Load reads .env (if present), then CONFIG_FILE (if set), then environment
// variables. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	base := Defaults()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		fromFile, err := LoadFile(path, base)
		if err != nil {
			return Config{}, err
		}
		base = fromFile
	}

	cfg := FromEnv(base)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays YAML values from path onto base.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	cfg := base
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto base.
func FromEnv(base Config) Config {
	return Config{
		APIPort:  mustEnv("API_PORT", base.APIPort),
		LogLevel: mustEnv("LOG_LEVEL", base.LogLevel),

		ImaggaBaseURL:       mustEnv("IMAGGA_BASE_URL", base.ImaggaBaseURL),
		ImaggaAuthorization: mustEnv("IMAGGA_AUTHORIZATION", base.ImaggaAuthorization),
		ImaggaTimeout:       mustEnvDuration("IMAGGA_TIMEOUT", base.ImaggaTimeout),
		ImaggaRateLimitRPS:  mustEnvFloat("IMAGGA_RATE_LIMIT_RPS", base.ImaggaRateLimitRPS),
		ImaggaRateBurst:     mustEnvInt("IMAGGA_RATE_LIMIT_BURST", base.ImaggaRateBurst),

		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", base.BreakerEnabled),
		BreakerMinRequests:  mustEnvInt("BREAKER_MIN_REQUESTS", base.BreakerMinRequests),
		BreakerFailureRatio: mustEnvFloat("BREAKER_FAILURE_RATIO", base.BreakerFailureRatio),
		BreakerOpenTimeout:  mustEnvDuration("BREAKER_OPEN_TIMEOUT", base.BreakerOpenTimeout),

		JPEGQuality:       mustEnvInt("JPEG_QUALITY", base.JPEGQuality),
		MaxImageDimension: mustEnvInt("MAX_IMAGE_DIMENSION", base.MaxImageDimension),
		MaxUploadBytes:    int64(mustEnvInt("MAX_UPLOAD_BYTES", int(base.MaxUploadBytes))),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", base.APIRateLimitRPS),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", base.APIRateLimitBurst),

		NATSURL:     mustEnv("NATS_URL", base.NATSURL),
		NATSSubject: mustEnv("NATS_SUBJECT", base.NATSSubject),
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ImaggaAuthorization) == "" {
		return errors.New("config: IMAGGA_AUTHORIZATION is required")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("config: JPEG_QUALITY must be within 1..100, got %d", c.JPEGQuality)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("config: MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
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

func mustEnvFloat(key string, fallback float64) float64 {
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

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("10s") or plain seconds ("10").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	CloudTimeout       time.Duration
	MaxRequestBodySize int64

	// Cloud reasoning service
	GeminiAPIKey string
	GeminiModel  string

	// Facility registry
	RegistryBaseURL  string
	RegistryAPIToken string

	// History
	HistoryDBPath string
	HistoryLimit  int

	// On-device inference
	OCRLanguage          string
	ClassifierModelPath  string
	ClassifierLabelsPath string

	// Image processing
	MaxDimension        int
	BrightnessThreshold float64
	JPEGQuality         int

	// Connectivity
	ConnectivityProbeURL string
	ForceOffline         bool

	// Optional history export
	AzureStorageAccount   string
	AzureStorageKey       string
	AzureHistoryContainer string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// CloudEnabled reports whether a cloud reasoning client can be built
func (c *Config) CloudEnabled() bool {
	return c.GeminiAPIKey != ""
}

// ExportEnabled reports whether Azure history export is configured
func (c *Config) ExportEnabled() bool {
	return c.AzureStorageAccount != "" && c.AzureStorageKey != ""
}

// LoadFromEnv reads configuration from the process environment, after
// loading an optional .env file from the working directory.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "127.0.0.1"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 90*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 60*time.Second),
		CloudTimeout:       parseDurationOrDefault("CLOUD_TIMEOUT", 45*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 20*1024*1024), // 20MB

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),

		RegistryBaseURL:  getEnvOrDefault("REGISTRY_BASE_URL", "https://opensupplyhub.org"),
		RegistryAPIToken: os.Getenv("REGISTRY_API_TOKEN"),

		HistoryDBPath: getEnvOrDefault("HISTORY_DB_PATH", "ecoscan.db"),
		HistoryLimit:  int(parseIntOrDefault("HISTORY_LIMIT", 20)),

		OCRLanguage:          getEnvOrDefault("OCR_LANGUAGE", "eng"),
		ClassifierModelPath:  os.Getenv("CLASSIFIER_MODEL_PATH"),
		ClassifierLabelsPath: os.Getenv("CLASSIFIER_LABELS_PATH"),

		MaxDimension:        int(parseIntOrDefault("IMAGE_MAX_DIMENSION", 1080)),
		BrightnessThreshold: parseFloatOrDefault("IMAGE_BRIGHTNESS_THRESHOLD", 70),
		JPEGQuality:         int(parseIntOrDefault("IMAGE_JPEG_QUALITY", 90)),

		ConnectivityProbeURL: getEnvOrDefault("CONNECTIVITY_PROBE_URL", "https://generativelanguage.googleapis.com"),
		ForceOffline:         parseBoolOrDefault("FORCE_OFFLINE", false),

		AzureStorageAccount:   os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureStorageKey:       os.Getenv("AZURE_STORAGE_KEY"),
		AzureHistoryContainer: getEnvOrDefault("AZURE_HISTORY_CONTAINER", "ecoscan-history"),
	}

	// the local fallback needs part of the analysis budget
	if cfg.CloudTimeout >= cfg.AnalysisTimeout {
		cfg.CloudTimeout = cfg.AnalysisTimeout * 3 / 4
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and URL shapes
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.ImageFetchTimeout <= 0 || c.AnalysisTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			c.RequestTimeout, c.ImageFetchTimeout, c.AnalysisTimeout)
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("HISTORY_LIMIT must be > 0 (got %d)", c.HistoryLimit)
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("IMAGE_MAX_DIMENSION must be > 0 (got %d)", c.MaxDimension)
	}
	if c.BrightnessThreshold < 0 || c.BrightnessThreshold > 255 {
		return fmt.Errorf("IMAGE_BRIGHTNESS_THRESHOLD must be within [0,255] (got %v)", c.BrightnessThreshold)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("IMAGE_JPEG_QUALITY must be within [1,100] (got %d)", c.JPEGQuality)
	}
	for key, raw := range map[string]string{
		"REGISTRY_BASE_URL":      c.RegistryBaseURL,
		"CONNECTIVITY_PROBE_URL": c.ConnectivityProbeURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("invalid %s: %q", key, raw)
		}
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

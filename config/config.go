package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// minPartSize is the smallest part the S3 transfer manager accepts.
const minPartSize = 5 * 1024 * 1024

type Config struct {
	Port            int
	LogLevel        slog.Level
	LogFormat       string
	HTTPTimeout     time.Duration
	ShutdownTimeout time.Duration

	Analysis AnalysisConfig
	Catalog  CatalogConfig
	Mirror   MirrorConfig
	AWS      AWSConfig
}

type AnalysisConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"`
	Features string `yaml:"features"`
	Details  string `yaml:"details"`
}

type CatalogConfig struct {
	URL               string        `yaml:"url"`
	ImageBaseURL      string        `yaml:"image_base_url"`
	MaxPages          int           `yaml:"max_pages"`
	MaxThreadsPerPage int           `yaml:"max_threads_per_page"`
	DisallowedExts    []string      `yaml:"disallowed_exts"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RateInterval      time.Duration `yaml:"rate_interval"`
}

type MirrorConfig struct {
	Bucket         string `yaml:"bucket"`
	BaseURL        string `yaml:"base_url"`
	KeyPrefix      string `yaml:"key_prefix"`
	TempDir        string `yaml:"temp_dir"`
	PartSize       int64  `yaml:"part_size"`
	Concurrency    int    `yaml:"concurrency"`
	EventsQueueURL string `yaml:"events_queue_url"`
}

type AWSConfig struct {
	Region          string `yaml:"region"`
	EndpointURL     string `yaml:"endpoint_url"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Enabled reports whether the mirror endpoint has somewhere to upload to.
func (m MirrorConfig) Enabled() bool {
	return m.Bucket != "" && m.BaseURL != ""
}

// fileConfig mirrors the optional YAML file. Zero values mean "not set".
type fileConfig struct {
	Port            int            `yaml:"port"`
	LogLevel        string         `yaml:"log_level"`
	LogFormat       string         `yaml:"log_format"`
	HTTPTimeout     time.Duration  `yaml:"http_timeout"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	Analysis        AnalysisConfig `yaml:"analysis"`
	Catalog         CatalogConfig  `yaml:"catalog"`
	Mirror          MirrorConfig   `yaml:"mirror"`
	AWS             AWSConfig      `yaml:"aws"`
}

func defaults() fileConfig {
	return fileConfig{
		Port:            3030,
		LogLevel:        "info",
		LogFormat:       "json",
		HTTPTimeout:     30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Analysis: AnalysisConfig{
			Features: "Adult,Categories,Description,Objects",
			Details:  "Celebrities",
		},
		Catalog: CatalogConfig{
			URL:               "https://a.4cdn.org/b/catalog.json",
			ImageBaseURL:      "https://i.4cdn.org/b/",
			MaxPages:          9,
			MaxThreadsPerPage: 14,
			DisallowedExts:    []string{".gif", ".webm"},
			MaxAttempts:       100,
			RateInterval:      time.Second,
		},
		Mirror: MirrorConfig{
			TempDir:     os.TempDir(),
			PartSize:    minPartSize,
			Concurrency: 20,
		},
		AWS: AWSConfig{
			Region: "us-east-1",
		},
	}
}

// Load builds the configuration from, in increasing priority: built-in defaults,
// the YAML file named by RELAY_CONFIG_FILE, and environment variables (a .env
// file in the working directory is loaded into the environment first).
func Load() (*Config, error) {
	_ = godotenv.Load()

	base := defaults()
	if path := os.Getenv("RELAY_CONFIG_FILE"); path != "" {
		if err := mergeFile(&base, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		LogFormat: getEnv("RELAY_LOG_FORMAT", base.LogFormat),
		Analysis: AnalysisConfig{
			Endpoint: strings.TrimRight(getEnv("ANALYSIS_ENDPOINT", base.Analysis.Endpoint), "/"),
			APIKey:   getEnv("ANALYSIS_API_KEY", base.Analysis.APIKey),
			Features: getEnv("ANALYSIS_FEATURES", base.Analysis.Features),
			Details:  getEnv("ANALYSIS_DETAILS", base.Analysis.Details),
		},
		Catalog: CatalogConfig{
			URL:            getEnv("CATALOG_URL", base.Catalog.URL),
			ImageBaseURL:   getEnv("CATALOG_IMAGE_BASE_URL", base.Catalog.ImageBaseURL),
			DisallowedExts: getEnvList("CATALOG_DISALLOWED_EXTS", base.Catalog.DisallowedExts),
		},
		Mirror: MirrorConfig{
			Bucket:         getEnv("MIRROR_BUCKET", base.Mirror.Bucket),
			BaseURL:        strings.TrimRight(getEnv("MIRROR_BASE_URL", base.Mirror.BaseURL), "/"),
			KeyPrefix:      getEnv("MIRROR_KEY_PREFIX", base.Mirror.KeyPrefix),
			TempDir:        getEnv("MIRROR_TEMP_DIR", base.Mirror.TempDir),
			EventsQueueURL: getEnv("MIRROR_EVENTS_QUEUE_URL", base.Mirror.EventsQueueURL),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", base.AWS.Region),
			EndpointURL:     getEnv("AWS_ENDPOINT_URL", base.AWS.EndpointURL),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", base.AWS.AccessKeyID),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", base.AWS.SecretAccessKey),
		},
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", base.Port); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = parseLogLevel(getEnv("RELAY_LOG_LEVEL", base.LogLevel)); err != nil {
		return nil, fmt.Errorf("RELAY_LOG_LEVEL: %w", err)
	}
	if cfg.HTTPTimeout, err = getEnvDuration("RELAY_HTTP_TIMEOUT", base.HTTPTimeout); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("RELAY_SHUTDOWN_TIMEOUT", base.ShutdownTimeout); err != nil {
		return nil, err
	}
	if cfg.Catalog.MaxPages, err = getEnvInt("CATALOG_MAX_PAGES", base.Catalog.MaxPages); err != nil {
		return nil, err
	}
	if cfg.Catalog.MaxThreadsPerPage, err = getEnvInt("CATALOG_MAX_THREADS_PER_PAGE", base.Catalog.MaxThreadsPerPage); err != nil {
		return nil, err
	}
	if cfg.Catalog.MaxAttempts, err = getEnvInt("CATALOG_MAX_ATTEMPTS", base.Catalog.MaxAttempts); err != nil {
		return nil, err
	}
	if cfg.Catalog.RateInterval, err = getEnvDuration("CATALOG_RATE_INTERVAL", base.Catalog.RateInterval); err != nil {
		return nil, err
	}
	partSize, err := getEnvInt("MIRROR_PART_SIZE", int(base.Mirror.PartSize))
	if err != nil {
		return nil, err
	}
	cfg.Mirror.PartSize = int64(partSize)
	if cfg.Mirror.Concurrency, err = getEnvInt("MIRROR_CONCURRENCY", base.Mirror.Concurrency); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analysis.Endpoint == "" {
		return fmt.Errorf("ANALYSIS_ENDPOINT is required")
	}
	if c.Analysis.APIKey == "" {
		return fmt.Errorf("ANALYSIS_API_KEY is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("RELAY_LOG_FORMAT: invalid format %q, allowed: json, text", c.LogFormat)
	}
	if c.Catalog.MaxPages <= 0 || c.Catalog.MaxThreadsPerPage <= 0 {
		return fmt.Errorf("CATALOG_MAX_PAGES and CATALOG_MAX_THREADS_PER_PAGE must be positive")
	}
	if c.Catalog.MaxAttempts <= 0 {
		return fmt.Errorf("CATALOG_MAX_ATTEMPTS must be positive")
	}
	if c.Mirror.PartSize < minPartSize {
		return fmt.Errorf("MIRROR_PART_SIZE must be at least %d bytes", minPartSize)
	}
	if c.Mirror.Concurrency <= 0 {
		return fmt.Errorf("MIRROR_CONCURRENCY must be positive")
	}
	return nil
}

// SetupLogger builds the process logger from the configured level and format.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func mergeFile(base *fileConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&base.LogLevel, file.LogLevel)
	setString(&base.LogFormat, file.LogFormat)
	setString(&base.Analysis.Endpoint, file.Analysis.Endpoint)
	setString(&base.Analysis.APIKey, file.Analysis.APIKey)
	setString(&base.Analysis.Features, file.Analysis.Features)
	setString(&base.Analysis.Details, file.Analysis.Details)
	setString(&base.Catalog.URL, file.Catalog.URL)
	setString(&base.Catalog.ImageBaseURL, file.Catalog.ImageBaseURL)
	setString(&base.Mirror.Bucket, file.Mirror.Bucket)
	setString(&base.Mirror.BaseURL, file.Mirror.BaseURL)
	setString(&base.Mirror.KeyPrefix, file.Mirror.KeyPrefix)
	setString(&base.Mirror.TempDir, file.Mirror.TempDir)
	setString(&base.Mirror.EventsQueueURL, file.Mirror.EventsQueueURL)
	setString(&base.AWS.Region, file.AWS.Region)
	setString(&base.AWS.EndpointURL, file.AWS.EndpointURL)
	setString(&base.AWS.AccessKeyID, file.AWS.AccessKeyID)
	setString(&base.AWS.SecretAccessKey, file.AWS.SecretAccessKey)

	if file.Port > 0 {
		base.Port = file.Port
	}
	if file.HTTPTimeout > 0 {
		base.HTTPTimeout = file.HTTPTimeout
	}
	if file.ShutdownTimeout > 0 {
		base.ShutdownTimeout = file.ShutdownTimeout
	}
	if file.Catalog.MaxPages > 0 {
		base.Catalog.MaxPages = file.Catalog.MaxPages
	}
	if file.Catalog.MaxThreadsPerPage > 0 {
		base.Catalog.MaxThreadsPerPage = file.Catalog.MaxThreadsPerPage
	}
	if len(file.Catalog.DisallowedExts) > 0 {
		base.Catalog.DisallowedExts = file.Catalog.DisallowedExts
	}
	if file.Catalog.MaxAttempts > 0 {
		base.Catalog.MaxAttempts = file.Catalog.MaxAttempts
	}
	if file.Catalog.RateInterval > 0 {
		base.Catalog.RateInterval = file.Catalog.RateInterval
	}
	if file.Mirror.PartSize > 0 {
		base.Mirror.PartSize = file.Mirror.PartSize
	}
	if file.Mirror.Concurrency > 0 {
		base.Mirror.Concurrency = file.Mirror.Concurrency
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q (use Go format: 30s, 1m)", key, value)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid level %q, allowed: debug, info, warn, error", level)
	}
}

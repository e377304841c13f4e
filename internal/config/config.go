package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache backends
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// SourceConfig holds the settings of one content source
type SourceConfig struct {
	Name   string
	Weight int // 0 disables the source
	Domain string
	Cookie string
}

// EnrichmentConfig holds the settings of one enrichment site
type EnrichmentConfig struct {
	Name   string
	Domain string
}

// Config holds all application configuration
type Config struct {
	// Server
	ServerPort string

	// Cache / locks / queue broker
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// HTTP
	HTTPProxyURL    string
	HTTPTimeout     time.Duration
	PolitenessDelay time.Duration

	// Sources, in declaration order
	Sources    []SourceConfig
	Enrichment []EnrichmentConfig

	// Translation
	TranslatorOrder      []string
	TranslatorMaxRetries int
	OllamaURL            string
	OllamaModel          string
	OpenAIURL            string
	OpenAIAPIKey         string
	OpenAIModel          string
	TranslationTarget    string

	// Download
	DownloaderPath     string
	DownloadLockTTL    time.Duration
	DownloadLockWait   time.Duration
	TaskLockTTL        time.Duration
	DownloadMaxRetries int
	DownloadRetryDelay time.Duration
	ProgressInterval   time.Duration
	WorkerConcurrency  int

	// Scheduling / tracing
	ReconcileSchedule string
	TraceSampleRatio  float64

	// Paths
	DataDir        string // $DATA_DIR, default $CONFIG_DIR/data
	DatabaseFile   string // $CONFIG_DIR/nassav.db
	VocabularyFile string // $CONFIG_DIR/vocabulary.txt

	// Logging
	LogLevel  string
	LogFormat string // text or json
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Setup viper FIRST to load .env file
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	setDefaults()

	// NOW read CONFIG_DIR from viper (which has loaded .env file)
	configDir, err := resolveDir(viper.GetString("CONFIG_DIR"), func() (string, error) {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", "nassav"), nil
	})
	if err != nil {
		return nil, err
	}

	dataDir, err := resolveDir(viper.GetString("DATA_DIR"), func() (string, error) {
		return filepath.Join(configDir, "data"), nil
	})
	if err != nil {
		return nil, err
	}

	for _, dir := range []string{configDir, dataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	config := &Config{
		ServerPort: viper.GetString("SERVER_PORT"),

		CacheBackend:  strings.ToLower(viper.GetString("CACHE_BACKEND")),
		RedisAddr:     viper.GetString("REDIS_ADDR"),
		RedisPassword: viper.GetString("REDIS_PASSWORD"),
		RedisDB:       viper.GetInt("REDIS_DB"),

		HTTPProxyURL:    viper.GetString("HTTP_PROXY_URL"),
		HTTPTimeout:     time.Duration(viper.GetInt("HTTP_TIMEOUT_SECONDS")) * time.Second,
		PolitenessDelay: time.Duration(viper.GetInt("POLITENESS_DELAY_MS")) * time.Millisecond,

		Sources:    loadSources(),
		Enrichment: loadEnrichment(),

		TranslatorOrder:      splitList(viper.GetString("TRANSLATOR_ORDER")),
		TranslatorMaxRetries: viper.GetInt("TRANSLATOR_MAX_RETRIES"),
		OllamaURL:            viper.GetString("OLLAMA_URL"),
		OllamaModel:          viper.GetString("OLLAMA_MODEL"),
		OpenAIURL:            viper.GetString("OPENAI_URL"),
		OpenAIAPIKey:         viper.GetString("OPENAI_API_KEY"),
		OpenAIModel:          viper.GetString("OPENAI_MODEL"),
		TranslationTarget:    viper.GetString("TRANSLATION_TARGET"),

		DownloaderPath:     viper.GetString("DOWNLOADER_PATH"),
		DownloadLockTTL:    time.Duration(viper.GetInt("DOWNLOAD_LOCK_TTL_SECONDS")) * time.Second,
		DownloadLockWait:   time.Duration(viper.GetInt("DOWNLOAD_LOCK_WAIT_SECONDS")) * time.Second,
		TaskLockTTL:        time.Duration(viper.GetInt("TASK_LOCK_TTL_SECONDS")) * time.Second,
		DownloadMaxRetries: viper.GetInt("DOWNLOAD_MAX_RETRIES"),
		DownloadRetryDelay: time.Duration(viper.GetInt("DOWNLOAD_RETRY_DELAY_SECONDS")) * time.Second,
		ProgressInterval:   time.Duration(viper.GetInt("PROGRESS_INTERVAL_MS")) * time.Millisecond,
		WorkerConcurrency:  viper.GetInt("WORKER_CONCURRENCY"),

		ReconcileSchedule: viper.GetString("RECONCILE_SCHEDULE"),
		TraceSampleRatio:  viper.GetFloat64("TRACE_SAMPLE_RATIO"),

		DataDir:        dataDir,
		DatabaseFile:   filepath.Join(configDir, "nassav.db"),
		VocabularyFile: filepath.Join(configDir, "vocabulary.txt"),

		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("CACHE_BACKEND", CacheBackendRedis)
	viper.SetDefault("REDIS_ADDR", "127.0.0.1:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	viper.SetDefault("POLITENESS_DELAY_MS", 1000)
	viper.SetDefault("SOURCE_NAMES", "missav,jable,hohoj,memo,kanav")
	viper.SetDefault("ENRICHMENT_NAMES", "javbus,busmirror")
	viper.SetDefault("ENRICHMENT_JAVBUS_DOMAIN", "www.javbus.com")
	viper.SetDefault("ENRICHMENT_BUSMIRROR_DOMAIN", "www.busjav.cfd")
	viper.SetDefault("TRANSLATOR_ORDER", "ollama,openai")
	viper.SetDefault("TRANSLATOR_MAX_RETRIES", 2)
	viper.SetDefault("OLLAMA_URL", "http://127.0.0.1:11434")
	viper.SetDefault("OLLAMA_MODEL", "qwen2.5:7b")
	viper.SetDefault("OPENAI_URL", "https://api.openai.com")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("TRANSLATION_TARGET", "Chinese")
	viper.SetDefault("DOWNLOADER_PATH", "N_m3u8DL-RE")
	viper.SetDefault("DOWNLOAD_LOCK_TTL_SECONDS", 7200)
	viper.SetDefault("DOWNLOAD_LOCK_WAIT_SECONDS", 3600)
	viper.SetDefault("TASK_LOCK_TTL_SECONDS", 7200)
	viper.SetDefault("DOWNLOAD_MAX_RETRIES", 3)
	viper.SetDefault("DOWNLOAD_RETRY_DELAY_SECONDS", 30)
	viper.SetDefault("PROGRESS_INTERVAL_MS", 1000)
	viper.SetDefault("WORKER_CONCURRENCY", 2)
	viper.SetDefault("RECONCILE_SCHEDULE", "0 3 * * *")
	viper.SetDefault("TRACE_SAMPLE_RATIO", 0.0)

	defaultSources := []SourceConfig{
		{Name: "missav", Weight: 50, Domain: "missav.ai"},
		{Name: "jable", Weight: 40, Domain: "jable.tv"},
		{Name: "hohoj", Weight: 30, Domain: "hohoj.tv"},
		{Name: "memo", Weight: 20, Domain: "memojav.com"},
		{Name: "kanav", Weight: 10, Domain: "kanav.ad"},
	}
	for _, s := range defaultSources {
		key := strings.ToUpper(s.Name)
		viper.SetDefault("SOURCE_"+key+"_DOMAIN", s.Domain)
		viper.SetDefault("SOURCE_"+key+"_WEIGHT", s.Weight)
	}
}

func loadSources() []SourceConfig {
	var sources []SourceConfig
	for _, name := range splitList(viper.GetString("SOURCE_NAMES")) {
		key := strings.ToUpper(name)
		sources = append(sources, SourceConfig{
			Name:   name,
			Weight: viper.GetInt("SOURCE_" + key + "_WEIGHT"),
			Domain: viper.GetString("SOURCE_" + key + "_DOMAIN"),
			Cookie: viper.GetString("SOURCE_" + key + "_COOKIE"),
		})
	}
	return sources
}

func loadEnrichment() []EnrichmentConfig {
	var sites []EnrichmentConfig
	for _, name := range splitList(viper.GetString("ENRICHMENT_NAMES")) {
		sites = append(sites, EnrichmentConfig{
			Name:   name,
			Domain: viper.GetString("ENRICHMENT_" + strings.ToUpper(name) + "_DOMAIN"),
		})
	}
	return sites
}

// Validate checks the settings that would make the service unusable
func (c *Config) Validate() error {
	enabled := 0
	for _, s := range c.Sources {
		if s.Weight > 0 {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one source needs SOURCE_<NAME>_WEIGHT > 0")
	}
	if c.CacheBackend != CacheBackendRedis && c.CacheBackend != CacheBackendMemory {
		return fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheBackendRedis, CacheBackendMemory, c.CacheBackend)
	}
	if c.CacheBackend == CacheBackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}
	if c.DownloaderPath == "" {
		return fmt.Errorf("DOWNLOADER_PATH is required")
	}
	return nil
}

// resolveDir turns dir into an absolute path, or computes the fallback when empty
func resolveDir(dir string, fallback func() (string, error)) (string, error) {
	if dir == "" {
		return fallback()
	}
	// Convert relative path to absolute path
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", dir, err)
	}
	return absPath, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/text/language"
)

// Config holds all application configuration, read from environment
// variables with sensible defaults.
//
// Environment Variables:
//
// Catalog (OpenSubtitles):
// - OPENSUBTITLES_API_KEY: API key for the subtitle catalog (required)
// - CATALOG_TIMEOUT: catalog lookup timeout in seconds (default: 10)
// - DOWNLOAD_TIMEOUT: subtitle download timeout in seconds (default: 15)
//
// LLM:
// - LLM_API_KEY: API key for the LLM provider (required)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: model name (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: maximum tokens per response (default: 8000)
// - LLM_TEMPERATURE: sampling temperature (default: 0.3)
// - LLM_APP_NAME: application name for the X-Title header (optional)
//
// Translation:
// - SOURCE_LANGUAGE: source language code (default: en)
// - TARGET_LANGUAGE: target language code (default: he)
// - TARGET_LANG_CODE: protocol language code served to clients (default: heb)
// - CHUNK_THRESHOLD: line count above which input is chunked (default: 1000)
// - BATCH_SIZE: entries per translation batch (default: 100)
// - BATCH_TIMEOUT: per-batch translation timeout in seconds (default: 120)
//
// Server:
// - PORT: listening port (default: 7000)
// - BASE_URL: externally visible base URL (default: http://127.0.0.1:<port>)
//
// Storage:
// - CACHE_DIR: translated subtitle cache directory (default: data/subtitles)
// - HISTORY_DB: request history database path (default: data/history.db)
// - JANITOR_CRON: janitor schedule (default: hourly)
// - HISTORY_KEEP: history rows kept by the janitor (default: 1000)
type Config struct {
	Catalog   CatalogConfig   `json:"catalog"`
	LLM       LLMConfig       `json:"llm"`
	Translate TranslateConfig `json:"translate"`
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
}

// CatalogConfig holds the subtitle catalog configuration
type CatalogConfig struct {
	APIKey          string        `json:"api_key"`
	LookupTimeout   time.Duration `json:"lookup_timeout"`
	DownloadTimeout time.Duration `json:"download_timeout"`
}

// LLMConfig holds the configuration for the LLM client
type LLMConfig struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	AppName     string  `json:"app_name"`
}

// TranslateConfig holds the translation policy
type TranslateConfig struct {
	SourceLanguage language.Tag  `json:"source_language"`
	TargetLanguage language.Tag  `json:"target_language"`
	TargetLangCode string        `json:"target_lang_code"`
	ChunkThreshold int           `json:"chunk_threshold"`
	BatchSize      int           `json:"batch_size"`
	BatchTimeout   time.Duration `json:"batch_timeout"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port    int    `json:"port"`
	BaseURL string `json:"base_url"`
}

// StorageConfig holds cache and history storage configuration
type StorageConfig struct {
	CacheDir    string `json:"cache_dir"`
	HistoryDB   string `json:"history_db"`
	JanitorCron string `json:"janitor_cron"`
	HistoryKeep int    `json:"history_keep"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment
// variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	port := getEnvInt("PORT", 7000)

	sourceLang, err := language.Parse(getEnvString("SOURCE_LANGUAGE", "en"))
	if err != nil {
		return nil, fmt.Errorf("invalid SOURCE_LANGUAGE: %w", err)
	}
	targetLang, err := language.Parse(getEnvString("TARGET_LANGUAGE", "he"))
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_LANGUAGE: %w", err)
	}

	config := &Config{
		Catalog: CatalogConfig{
			APIKey:          getEnvString("OPENSUBTITLES_API_KEY", ""),
			LookupTimeout:   getEnvSeconds("CATALOG_TIMEOUT", 10*time.Second),
			DownloadTimeout: getEnvSeconds("DOWNLOAD_TIMEOUT", 15*time.Second),
		},
		LLM: LLMConfig{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 8000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.3),
			AppName:     getEnvString("LLM_APP_NAME", "stremio-hebrew-subtitles"),
		},
		Translate: TranslateConfig{
			SourceLanguage: sourceLang,
			TargetLanguage: targetLang,
			TargetLangCode: getEnvString("TARGET_LANG_CODE", "heb"),
			ChunkThreshold: getEnvInt("CHUNK_THRESHOLD", 1000),
			BatchSize:      getEnvInt("BATCH_SIZE", 100),
			BatchTimeout:   getEnvSeconds("BATCH_TIMEOUT", 120*time.Second),
		},
		Server: ServerConfig{
			Port:    port,
			BaseURL: getEnvString("BASE_URL", fmt.Sprintf("http://127.0.0.1:%d", port)),
		},
		Storage: StorageConfig{
			CacheDir:    getEnvString("CACHE_DIR", "data/subtitles"),
			HistoryDB:   getEnvString("HISTORY_DB", "data/history.db"),
			JanitorCron: getEnvString("JANITOR_CRON", "0 * * * *"),
			HistoryKeep: getEnvInt("HISTORY_KEEP", 1000),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set. Missing
// credentials are the only startup-fatal configuration conditions.
func (c *Config) validate() error {
	if c.Catalog.APIKey == "" {
		return fmt.Errorf("OPENSUBTITLES_API_KEY is required")
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvSeconds reads an integer number of seconds with default
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil && intValue > 0 {
			return time.Duration(intValue) * time.Second
		}
	}
	return defaultValue
}

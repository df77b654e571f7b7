package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the settings of both the backend server and the sync engine
// used by the CLI. Every key can come from the environment or a .env file.
type Config struct {
	// Server
	AppPort             int    `mapstructure:"APP_PORT"`
	DatabasePath        string `mapstructure:"DATABASE_PATH"`
	BlobPath            string `mapstructure:"BLOB_PATH"`
	RedisAddr           string `mapstructure:"REDIS_ADDR"`
	OllamaURL           string `mapstructure:"OLLAMA_URL"`
	MainModel           string `mapstructure:"MAIN_MODEL"`
	SupportModel        string `mapstructure:"SUPPORT_MODEL"`
	InitialSystemPrompt string `mapstructure:"INITIAL_SYSTEM_PROMPT"`
	LogLevel            string `mapstructure:"LOG_LEVEL"`
	IndexWorkers        int    `mapstructure:"INDEX_WORKERS"`

	// Engine
	APIURL             string        `mapstructure:"API_URL"`
	UploadChunkSize    int64         `mapstructure:"UPLOAD_CHUNK_SIZE"`
	IndexMinBytes      int64         `mapstructure:"INDEX_MIN_BYTES"`
	IndexPollInterval  time.Duration `mapstructure:"INDEX_POLL_INTERVAL"`
	IndexTimeout       time.Duration `mapstructure:"INDEX_TIMEOUT"`
	DuplicateTolerance time.Duration `mapstructure:"DUPLICATE_TOLERANCE"`
	DetectionTimeout   time.Duration `mapstructure:"DETECTION_TIMEOUT"`
	SurfaceCacheSize   int           `mapstructure:"SURFACE_CACHE_SIZE"`
	PageSize           int           `mapstructure:"PAGE_SIZE"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("APP_PORT", 3000)
	viper.SetDefault("DATABASE_PATH", "/data/chatsync.db")
	viper.SetDefault("BLOB_PATH", "/data/blobs")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("OLLAMA_URL", "http://ollama:11434")
	viper.SetDefault("MAIN_MODEL", "llama3")
	viper.SetDefault("SUPPORT_MODEL", "llama3")
	viper.SetDefault("INITIAL_SYSTEM_PROMPT", "You are a helpful assistant.")
	viper.SetDefault("LOG_LEVEL", "INFO")
	viper.SetDefault("INDEX_WORKERS", 2)

	viper.SetDefault("API_URL", "http://localhost:3000/api/v1")
	viper.SetDefault("UPLOAD_CHUNK_SIZE", 5<<20)
	viper.SetDefault("INDEX_MIN_BYTES", 512<<10)
	viper.SetDefault("INDEX_POLL_INTERVAL", "2s")
	viper.SetDefault("INDEX_TIMEOUT", "5m")
	viper.SetDefault("DUPLICATE_TOLERANCE", "10s")
	viper.SetDefault("DETECTION_TIMEOUT", "3s")
	viper.SetDefault("SURFACE_CACHE_SIZE", 256)
	viper.SetDefault("PAGE_SIZE", 50)

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.UploadChunkSize <= 0 {
		return fmt.Errorf("UPLOAD_CHUNK_SIZE must be positive, got %d", c.UploadChunkSize)
	}
	if c.IndexPollInterval <= 0 || c.IndexTimeout <= 0 {
		return fmt.Errorf("INDEX_POLL_INTERVAL and INDEX_TIMEOUT must be positive")
	}
	if c.IndexWorkers < 1 {
		c.IndexWorkers = 1
	}
	return nil
}

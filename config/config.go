package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed      FeedConfig
	Ingestion IngestionConfig
	Scheduler SchedulerConfig
	S3        S3Config
	HTTP      HTTPConfig
	Log       LogConfig

	DatabaseURL string
	DBPath      string
	FeedsDir    string
}

// FeedConfig describes one upstream listing feed and its credentials.
type FeedConfig struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	Scope        string `yaml:"scope"`
	GrantType    string `yaml:"grant_type"`
	PageSize     int    `yaml:"page_size"`
}

type IngestionConfig struct {
	UpsertConcurrency int
	OwnerID           string
	ProxyURL          string
	AuthTimeout       time.Duration
	FeedTimeout       time.Duration
}

type SchedulerConfig struct {
	Cron         string
	PollInterval time.Duration
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type HTTPConfig struct {
	Addr string
}

type LogConfig struct {
	Path     string
	MaxBytes int64
	Backups  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Feed: FeedConfig{
			ID:           getEnv("FEED_ID", "default"),
			URL:          os.Getenv("FEED_URL"),
			TokenURL:     os.Getenv("TOKEN_URL"),
			ClientID:     os.Getenv("FEED_CLIENT_ID"),
			ClientSecret: os.Getenv("FEED_CLIENT_SECRET"),
			Scope:        os.Getenv("FEED_SCOPE"),
			GrantType:    getEnv("FEED_GRANT_TYPE", "client_credentials"),
			PageSize:     getEnvInt("FEED_PAGE_SIZE", 200),
		},
		Ingestion: IngestionConfig{
			UpsertConcurrency: getEnvInt("UPSERT_CONCURRENCY", 4),
			OwnerID:           os.Getenv("INGEST_OWNER_ID"),
			ProxyURL:          os.Getenv("HTTP_PROXY_URL"),
			AuthTimeout:       getEnvDuration("AUTH_TIMEOUT", 30*time.Second),
			FeedTimeout:       getEnvDuration("FEED_TIMEOUT", 60*time.Second),
		},
		Scheduler: SchedulerConfig{
			Cron:         os.Getenv("INGEST_CRON"),
			PollInterval: getEnvDuration("COMMAND_POLL_INTERVAL", 5*time.Second),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Path:     getEnv("LOG_PATH", "feedsync.log"),
			MaxBytes: int64(getEnvInt("LOG_MAX_BYTES", 2*1024*1024)),
			Backups:  getEnvInt("LOG_BACKUPS", 1),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnv("DB_PATH", "feedsync.db"),
		FeedsDir:    getEnv("FEEDS_DIR", "config/feeds"),
	}

	if cfg.Ingestion.UpsertConcurrency < 1 {
		cfg.Ingestion.UpsertConcurrency = 1
	}

	if err := cfg.loadFeedConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFeedConfig overlays the YAML file whose id matches FEED_ID. Empty
// YAML fields keep the environment value.
func (c *Config) loadFeedConfig() error {
	entries, err := os.ReadDir(c.FeedsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(c.FeedsDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		var feed FeedConfig
		if err := yaml.Unmarshal(data, &feed); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if feed.ID != c.Feed.ID {
			continue
		}
		c.Feed.merge(feed)
	}

	return nil
}

func (f *FeedConfig) merge(o FeedConfig) {
	if o.Name != "" {
		f.Name = o.Name
	}
	if o.URL != "" {
		f.URL = o.URL
	}
	if o.TokenURL != "" {
		f.TokenURL = o.TokenURL
	}
	if o.ClientID != "" {
		f.ClientID = o.ClientID
	}
	if o.ClientSecret != "" {
		f.ClientSecret = o.ClientSecret
	}
	if o.Scope != "" {
		f.Scope = o.Scope
	}
	if o.GrantType != "" {
		f.GrantType = o.GrantType
	}
	if o.PageSize > 0 {
		f.PageSize = o.PageSize
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

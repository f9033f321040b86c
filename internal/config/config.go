package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"` // used to build checkStatusUrl in responses
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AMQPConfig struct {
	URL            string        `yaml:"url"`
	WorkQueue      string        `yaml:"work_queue"`
	ResultsQueue   string        `yaml:"results_queue"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	MaxRetries     int           `yaml:"max_retries"` // decode retries before dead-lettering
}

type StoreConfig struct {
	Backend  string         `yaml:"backend"` // memory|redis|postgres
	Redis    RedisConfig    `yaml:"redis"`
	Postgres DatabaseConfig `yaml:"postgres"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type YouTubeConfig struct {
	APIKey      string `yaml:"api_key"`
	MaxVideos   int    `yaml:"max_videos"`   // cap on videos listed per channel
	MaxComments int    `yaml:"max_comments"` // cap on comments fetched per video
}

type AIConfig struct {
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	DefaultModel    string `yaml:"default_model"`
	PromptBudget    int    `yaml:"prompt_budget"`    // max prompt tokens per video
	ConcurrentLimit int    `yaml:"concurrent_limit"` // max concurrent provider calls
}

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	AMQP    AMQPConfig    `yaml:"amqp"`
	Store   StoreConfig   `yaml:"store"`
	YouTube YouTubeConfig `yaml:"youtube"`
	AI      AIConfig      `yaml:"ai"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AMQP.WorkQueue == "" {
		cfg.AMQP.WorkQueue = "video_analysis_queue"
	}
	if cfg.AMQP.ResultsQueue == "" {
		cfg.AMQP.ResultsQueue = "analysis_results_queue"
	}
	if cfg.AMQP.PublishTimeout <= 0 {
		cfg.AMQP.PublishTimeout = 30 * time.Second
	}
	if cfg.AMQP.MaxRetries <= 0 {
		cfg.AMQP.MaxRetries = 3
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "memory"
	}
	if cfg.YouTube.MaxVideos <= 0 {
		cfg.YouTube.MaxVideos = 50
	}
	if cfg.YouTube.MaxComments <= 0 {
		cfg.YouTube.MaxComments = 100
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gpt-4o-mini"
	}
	if cfg.AI.PromptBudget <= 0 {
		cfg.AI.PromptBudget = 6000
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 4
	}

	// Minimal validation
	if cfg.AMQP.URL == "" {
		return nil, errors.New("amqp.url is required")
	}
	switch cfg.Store.Backend {
	case "memory":
	case "redis":
		if cfg.Store.Redis.Addr == "" {
			return nil, errors.New("store.redis.addr is required for the redis backend")
		}
	case "postgres":
		if cfg.Store.Postgres.URL == "" {
			return nil, errors.New("store.postgres.url is required for the postgres backend")
		}
	default:
		return nil, fmt.Errorf("unknown store.backend %q", cfg.Store.Backend)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

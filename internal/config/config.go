package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jaelee191/interview-app-sub001/internal/model"
)

// Config is the root configuration for the analysis pipeline.
type Config struct {
	Database        DatabaseConfig
	Server          ServerConfig
	Dispatcher      DispatcherConfig
	Schedule        ScheduleConfig
	Cache           CacheConfig
	Crawler         CrawlerConfig
	AI              AIConfig
	Broadcast       BroadcastConfig
	Notification    NotificationConfig
	Telemetry       TelemetryConfig
	RedirectPattern string // "{id}" is replaced with the task id
}

// DatabaseConfig points at the SQLite record store.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DispatcherConfig controls queues and the retry policy.
type DispatcherConfig struct {
	Queues      map[string]int // queue name -> worker count
	MaxAttempts int
	BaseDelay   time.Duration
}

// ScheduleConfig controls periodic maintenance jobs. A zero interval disables the entry.
type ScheduleConfig struct {
	CacheSweep     time.Duration
	ScheduledCrawl time.Duration
}

// CacheConfig holds per-class TTLs.
type CacheConfig struct {
	JobPostingTTL time.Duration
	CompanyTTL    time.Duration
}

// CrawlerConfig controls external content fetching.
type CrawlerConfig struct {
	UserAgent  string
	Timeout    time.Duration
	MinDelay   time.Duration // minimum gap between requests to the same host
	MaxRetries int
	Retention  time.Duration // crawled items older than this are purged
	Sources    []SourceConfig
}

// SourceConfig describes a single crawl source.
type SourceConfig struct {
	Name            string   `yaml:"name"`
	URL             string   `yaml:"url"`
	LinkSelector    string   `yaml:"link_selector"`
	MaxItems        int      `yaml:"max_items"`
	Keywords        []string `yaml:"keywords"`
	ExcludeKeywords []string `yaml:"exclude_keywords"`
	Enabled         bool     `yaml:"enabled"`
}

// Source converts the config entry into the crawl model.
func (s SourceConfig) Source() model.Source {
	return model.Source{
		Name:            s.Name,
		URL:             s.URL,
		LinkSelector:    s.LinkSelector,
		MaxItems:        s.MaxItems,
		Keywords:        s.Keywords,
		ExcludeKeywords: s.ExcludeKeywords,
	}
}

// AIConfig controls the LLM-backed analysis engine.
type AIConfig struct {
	Enabled bool
	BaseURL string        // defaults to https://api.openai.com/v1
	Model   string        // e.g. "gpt-4o-mini"
	APIKey  string        // expanded from env var by Load
	Timeout time.Duration // per-request timeout
}

// BroadcastConfig selects the progress transport.
type BroadcastConfig struct {
	Backend     string // "memory" or "postgres"
	PostgresDSN string
	Channel     string // LISTEN/NOTIFY channel
	Buffer      int    // per-subscriber event buffer
}

// NotificationConfig controls where dead-lettered jobs are reported.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled        bool
	ServiceName    string
	MetricInterval time.Duration
}

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultUserAgent       = "Mozilla/5.0 (compatible; interview-app-crawler/1.0)"
	defaultRedirectPattern = "/analyses/{id}"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database        DatabaseConfig      `yaml:"database"`
	Server          rawServerConfig     `yaml:"server"`
	Dispatcher      rawDispatcherConfig `yaml:"dispatcher"`
	Schedule        rawScheduleConfig   `yaml:"schedule"`
	Cache           rawCacheConfig      `yaml:"cache"`
	Crawler         rawCrawlerConfig    `yaml:"crawler"`
	AI              rawAIConfig         `yaml:"ai"`
	Broadcast       rawBroadcastConfig  `yaml:"broadcast"`
	Notification    NotificationConfig  `yaml:"notification"`
	Telemetry       rawTelemetryConfig  `yaml:"telemetry"`
	RedirectPattern string              `yaml:"redirect_pattern"`
}

type rawServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type rawDispatcherConfig struct {
	Queues      map[string]int `yaml:"queues"`
	MaxAttempts int            `yaml:"max_attempts"`
	BaseDelay   string         `yaml:"base_delay"`
}

type rawScheduleConfig struct {
	CacheSweep     string `yaml:"cache_sweep"`
	ScheduledCrawl string `yaml:"scheduled_crawl"`
}

type rawCacheConfig struct {
	JobPostingTTL string `yaml:"job_posting_ttl"`
	CompanyTTL    string `yaml:"company_ttl"`
}

type rawCrawlerConfig struct {
	UserAgent  string         `yaml:"user_agent"`
	Timeout    string         `yaml:"timeout"`
	MinDelay   string         `yaml:"min_delay"`
	MaxRetries *int           `yaml:"max_retries"`
	Retention  string         `yaml:"retention"`
	Sources    []SourceConfig `yaml:"sources"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawBroadcastConfig struct {
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
	Channel     string `yaml:"channel"`
	Buffer      int    `yaml:"buffer"`
}

type rawTelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	MetricInterval string `yaml:"metric_interval"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
// A .env file next to the config is loaded first so ${VARS} in the YAML can come from it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(filepath.Dir(path), ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	d := durations{}

	cfg := &Config{
		Database: raw.Database,
		Server: ServerConfig{
			Addr:            raw.Server.Addr,
			ShutdownTimeout: d.parse("server.shutdown_timeout", raw.Server.ShutdownTimeout, 10*time.Second),
		},
		Dispatcher: DispatcherConfig{
			Queues:      raw.Dispatcher.Queues,
			MaxAttempts: raw.Dispatcher.MaxAttempts,
			BaseDelay:   d.parse("dispatcher.base_delay", raw.Dispatcher.BaseDelay, 5*time.Second),
		},
		Schedule: ScheduleConfig{
			CacheSweep:     d.parse("schedule.cache_sweep", raw.Schedule.CacheSweep, time.Hour),
			ScheduledCrawl: d.parse("schedule.scheduled_crawl", raw.Schedule.ScheduledCrawl, 6*time.Hour),
		},
		Cache: CacheConfig{
			JobPostingTTL: d.parse("cache.job_posting_ttl", raw.Cache.JobPostingTTL, 24*time.Hour),
			CompanyTTL:    d.parse("cache.company_ttl", raw.Cache.CompanyTTL, 7*24*time.Hour),
		},
		Crawler: CrawlerConfig{
			UserAgent:  raw.Crawler.UserAgent,
			Timeout:    d.parse("crawler.timeout", raw.Crawler.Timeout, 15*time.Second),
			MinDelay:   d.parse("crawler.min_delay", raw.Crawler.MinDelay, time.Second),
			MaxRetries: 2,
			Retention:  d.parse("crawler.retention", raw.Crawler.Retention, 30*24*time.Hour),
			Sources:    raw.Crawler.Sources,
		},
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: raw.AI.BaseURL,
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: d.parse("ai.timeout", raw.AI.Timeout, 60*time.Second),
		},
		Broadcast: BroadcastConfig{
			Backend:     raw.Broadcast.Backend,
			PostgresDSN: raw.Broadcast.PostgresDSN,
			Channel:     raw.Broadcast.Channel,
			Buffer:      raw.Broadcast.Buffer,
		},
		Notification: raw.Notification,
		Telemetry: TelemetryConfig{
			Enabled:        raw.Telemetry.Enabled,
			ServiceName:    raw.Telemetry.ServiceName,
			MetricInterval: d.parse("telemetry.metric_interval", raw.Telemetry.MetricInterval, time.Minute),
		},
		RedirectPattern: raw.RedirectPattern,
	}
	if d.err != nil {
		return nil, d.err
	}

	applyDefaults(cfg)
	if raw.Crawler.MaxRetries != nil {
		cfg.Crawler.MaxRetries = *raw.Crawler.MaxRetries
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// durations parses duration strings and keeps the first error.
type durations struct {
	err error
}

func (d *durations) parse(field, value string, def time.Duration) time.Duration {
	if value == "" || d.err != nil {
		return def
	}
	v, err := time.ParseDuration(value)
	if err != nil {
		d.err = fmt.Errorf("parse %s %q: %w", field, value, err)
		return def
	}
	return v
}

func applyDefaults(cfg *Config) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "interview.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Dispatcher.Queues) == 0 {
		cfg.Dispatcher.Queues = map[string]int{"default": 4, "crawling": 2}
	}
	if cfg.Dispatcher.MaxAttempts == 0 {
		cfg.Dispatcher.MaxAttempts = 3
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = defaultUserAgent
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Broadcast.Backend == "" {
		cfg.Broadcast.Backend = "memory"
	}
	if cfg.Broadcast.Channel == "" {
		cfg.Broadcast.Channel = "analysis_progress"
	}
	if cfg.Broadcast.Buffer == 0 {
		cfg.Broadcast.Buffer = 64
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "interview-app"
	}
	if cfg.RedirectPattern == "" {
		cfg.RedirectPattern = defaultRedirectPattern
	}
}

// EnabledSources returns the crawl sources that are switched on.
func (c *Config) EnabledSources() []model.Source {
	var out []model.Source
	for _, s := range c.Crawler.Sources {
		if s.Enabled {
			out = append(out, s.Source())
		}
	}
	return out
}

func validate(cfg *Config) error {
	for name, workers := range cfg.Dispatcher.Queues {
		if workers <= 0 {
			return fmt.Errorf("dispatcher.queues[%q] must have at least one worker, got %d", name, workers)
		}
	}
	for _, q := range []string{"default", "crawling"} {
		if _, ok := cfg.Dispatcher.Queues[q]; !ok {
			return fmt.Errorf("dispatcher.queues must define %q", q)
		}
	}
	if cfg.Dispatcher.MaxAttempts < 1 {
		return fmt.Errorf("dispatcher.max_attempts must be at least 1, got %d", cfg.Dispatcher.MaxAttempts)
	}
	if cfg.Cache.JobPostingTTL <= 0 || cfg.Cache.CompanyTTL <= 0 {
		return fmt.Errorf("cache ttls must be positive")
	}
	if cfg.Crawler.Retention <= 0 {
		return fmt.Errorf("crawler.retention must be positive, got %v", cfg.Crawler.Retention)
	}
	if cfg.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must not be negative, got %d", cfg.Crawler.MaxRetries)
	}

	seen := make(map[string]bool)
	for _, s := range cfg.Crawler.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("crawler.sources entries need a name and url")
		}
		if seen[s.Name] {
			return fmt.Errorf("crawler.sources: duplicate source %q", s.Name)
		}
		seen[s.Name] = true
	}

	switch cfg.Broadcast.Backend {
	case "memory":
	case "postgres":
		if cfg.Broadcast.PostgresDSN == "" {
			return fmt.Errorf("broadcast.postgres_dsn is required when backend is \"postgres\"")
		}
	default:
		return fmt.Errorf("broadcast.backend must be \"memory\" or \"postgres\", got %q", cfg.Broadcast.Backend)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	if !strings.Contains(cfg.RedirectPattern, "{id}") {
		return fmt.Errorf("redirect_pattern must contain {id}, got %q", cfg.RedirectPattern)
	}

	return nil
}

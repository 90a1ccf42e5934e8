// Package config handles loading the pipeline configuration from defaults,
// an optional YAML file and environment variables (populated from .env in main.go).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks a setup problem that must stop the pipeline before it starts.
var ErrConfiguration = errors.New("configuration error")

// Checkpoint backends.
const (
	BackendFile      = "file"
	BackendPostgres  = "postgres"
	BackendSQLServer = "sqlserver"
)

// Config is passed explicitly to every component at construction time.
type Config struct {
	// Local state
	LocalDataDir   string        `yaml:"local_data_dir"`
	DiscoveryFile  string        `yaml:"discovery_file"`
	CheckpointFile string        `yaml:"checkpoint_file"`
	AppListFile    string        `yaml:"app_list_file"`
	LockTTL        time.Duration `yaml:"lock_ttl"`

	// Pacing
	TargetCount         int           `yaml:"target_count"`
	BatchSize           int           `yaml:"batch_size"`
	BatchSleep          time.Duration `yaml:"batch_sleep"`
	RateLimitCooldown   time.Duration `yaml:"rate_limit_cooldown"`
	PageDelay           time.Duration `yaml:"page_delay"`
	StatusRetryDelay    time.Duration `yaml:"status_retry_delay"`
	TransportRetryDelay time.Duration `yaml:"transport_retry_delay"`
	// 0 retries a failing discovery page forever.
	DiscoveryMaxRetries int `yaml:"discovery_max_retries"`
	// 0 disables the shared request budget.
	RequestRPS float64 `yaml:"request_rps"`

	// Storefront
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	AppListTimeout time.Duration `yaml:"app_list_timeout"`
	StoreBaseURL   string        `yaml:"store_base_url"`
	APIBaseURL     string        `yaml:"api_base_url"`
	CountryCode    string        `yaml:"country_code"`
	Language       string        `yaml:"language"`
	UserAgent      string        `yaml:"user_agent"`
	SteamAPIKey    string        `yaml:"-"`

	// Remote sinks
	RemoteBucket    string        `yaml:"remote_bucket"`
	RemotePrefix    string        `yaml:"remote_prefix"`
	RemoteTimeout   time.Duration `yaml:"remote_timeout"`
	ProjectID       string        `yaml:"project_id"`
	MongoURI        string        `yaml:"-"`
	MongoDatabase   string        `yaml:"mongo_database"`
	MongoCollection string        `yaml:"mongo_collection"`
	KafkaBrokers    []string      `yaml:"kafka_brokers"`
	KafkaTopic      string        `yaml:"kafka_topic"`

	// Checkpoint backend
	CheckpointBackend string `yaml:"checkpoint_backend"`
	DatabaseURL       string `yaml:"-"`
	PipelineName      string `yaml:"pipeline_name"`

	LogLevelName string `yaml:"log_level"`
	LogFile      string `yaml:"log_file"`
}

// Default returns the settings the original hourly job ran with.
func Default() *Config {
	return &Config{
		LocalDataDir:   "data",
		DiscoveryFile:  "discovered_ids.json",
		CheckpointFile: "ingest_state.json",
		AppListFile:    "steam_app_list.json",
		LockTTL:        2 * time.Hour,

		TargetCount:         10000,
		BatchSize:           10,
		BatchSleep:          2 * time.Second,
		RateLimitCooldown:   60 * time.Second,
		PageDelay:           1 * time.Second,
		StatusRetryDelay:    2 * time.Second,
		TransportRetryDelay: 5 * time.Second,

		HTTPTimeout:    10 * time.Second,
		AppListTimeout: 30 * time.Second,
		StoreBaseURL:   "https://store.steampowered.com",
		APIBaseURL:     "https://api.steampowered.com",
		CountryCode:    "IN",
		Language:       "english",
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",

		RemoteBucket:    "steampulse-raw-lake",
		RemotePrefix:    "raw_layer",
		RemoteTimeout:   30 * time.Second,
		ProjectID:       "steampulse-data-eng",
		MongoDatabase:   "steampulse",
		MongoCollection: "games",

		CheckpointBackend: BackendFile,
		PipelineName:      "steam-ingest",

		LogLevelName: "info",
	}
}

// LoadConfig layers defaults, the YAML file at path (optional) and the environment.
// A missing file is not an error; an unreadable or invalid one is.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults and environment", slog.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("%w: failed to read config file '%s': %v", ErrConfiguration, path, err)
		case len(data) > 0:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: failed to parse config file '%s': %v", ErrConfiguration, path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LocalDataDir = GetEnvStr("LOCAL_DATA_DIR", c.LocalDataDir)
	c.DiscoveryFile = GetEnvStr("DISCOVERY_FILE", c.DiscoveryFile)
	c.CheckpointFile = GetEnvStr("CHECKPOINT_FILE", c.CheckpointFile)
	c.AppListFile = GetEnvStr("APP_LIST_FILE", c.AppListFile)
	c.LockTTL = GetEnvDuration("LOCK_TTL", c.LockTTL)

	c.TargetCount = GetEnvInt("TARGET_COUNT", c.TargetCount)
	c.BatchSize = GetEnvInt("BATCH_SIZE", c.BatchSize)
	c.BatchSleep = GetEnvDuration("BATCH_SLEEP", c.BatchSleep)
	c.RateLimitCooldown = GetEnvDuration("RATE_LIMIT_COOLDOWN", c.RateLimitCooldown)
	c.PageDelay = GetEnvDuration("PAGE_DELAY", c.PageDelay)
	c.StatusRetryDelay = GetEnvDuration("STATUS_RETRY_DELAY", c.StatusRetryDelay)
	c.TransportRetryDelay = GetEnvDuration("TRANSPORT_RETRY_DELAY", c.TransportRetryDelay)
	c.DiscoveryMaxRetries = GetEnvInt("DISCOVERY_MAX_RETRIES", c.DiscoveryMaxRetries)
	c.RequestRPS = GetEnvFloat("REQUEST_RPS", c.RequestRPS)

	c.HTTPTimeout = GetEnvDuration("HTTP_TIMEOUT", c.HTTPTimeout)
	c.AppListTimeout = GetEnvDuration("APP_LIST_TIMEOUT", c.AppListTimeout)
	c.StoreBaseURL = GetEnvStr("STORE_BASE_URL", c.StoreBaseURL)
	c.APIBaseURL = GetEnvStr("API_BASE_URL", c.APIBaseURL)
	c.CountryCode = GetEnvStr("COUNTRY_CODE", c.CountryCode)
	c.Language = GetEnvStr("LANGUAGE", c.Language)
	c.UserAgent = GetEnvStr("USER_AGENT", c.UserAgent)
	c.SteamAPIKey = GetEnvStr("STEAM_API_KEY", c.SteamAPIKey)

	c.RemoteBucket = GetEnvStr("REMOTE_BUCKET", c.RemoteBucket)
	c.RemotePrefix = GetEnvStr("REMOTE_PREFIX", c.RemotePrefix)
	c.RemoteTimeout = GetEnvDuration("REMOTE_TIMEOUT", c.RemoteTimeout)
	c.ProjectID = GetEnvStr("PROJECT_ID", c.ProjectID)
	c.MongoURI = GetEnvStr("MONGO_CONNECTION_STRING", c.MongoURI)
	c.MongoDatabase = GetEnvStr("MONGO_DATABASE", c.MongoDatabase)
	c.MongoCollection = GetEnvStr("MONGO_COLLECTION", c.MongoCollection)
	c.KafkaBrokers = GetEnvList("KAFKA_BROKERS", c.KafkaBrokers)
	c.KafkaTopic = GetEnvStr("KAFKA_TOPIC", c.KafkaTopic)

	c.CheckpointBackend = strings.ToLower(GetEnvStr("CHECKPOINT_BACKEND", c.CheckpointBackend))
	c.DatabaseURL = GetEnvStr("DATABASE_URL", c.DatabaseURL)
	c.PipelineName = GetEnvStr("PIPELINE_NAME", c.PipelineName)

	c.LogLevelName = GetEnvStr("LOG_LEVEL", c.LogLevelName)
	c.LogFile = GetEnvStr("LOG_FILE", c.LogFile)
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.LocalDataDir) == "" {
		errs = append(errs, errors.New("local_data_dir is required"))
	}
	if c.DiscoveryFile == "" || c.CheckpointFile == "" {
		errs = append(errs, errors.New("discovery_file and checkpoint_file are required"))
	}
	if c.TargetCount <= 0 {
		errs = append(errs, fmt.Errorf("target_count must be positive, got %d", c.TargetCount))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.DiscoveryMaxRetries < 0 {
		errs = append(errs, errors.New("discovery_max_retries cannot be negative"))
	}
	if c.RequestRPS < 0 {
		errs = append(errs, errors.New("request_rps cannot be negative"))
	}
	if c.HTTPTimeout <= 0 || c.AppListTimeout <= 0 {
		errs = append(errs, errors.New("http timeouts must be positive"))
	}
	if c.RemoteTimeout <= 0 {
		errs = append(errs, errors.New("remote_timeout must be positive"))
	}
	if c.KafkaTopic != "" && len(c.KafkaBrokers) == 0 {
		errs = append(errs, errors.New("kafka_topic set without kafka_brokers"))
	}
	if _, ok := parseLogLevel(c.LogLevelName); !ok {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevelName))
	}

	switch c.CheckpointBackend {
	case BackendFile:
	case BackendPostgres, BackendSQLServer:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for checkpoint backend %q", c.CheckpointBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown checkpoint_backend %q", c.CheckpointBackend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}

	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() slog.Level {
	level, _ := parseLogLevel(c.LogLevelName)
	return level
}

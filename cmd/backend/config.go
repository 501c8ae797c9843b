package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/hairizuan-noorazman/testpilot/database"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	LLM       LLMConfig
	Browser   BrowserConfig
	Execution ExecutionConfig
	Analysis  AnalysisConfig
	Storage   StorageConfig
	Results   ResultsConfig
	Database  DatabaseConfig
	Workers   WorkersConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// LLMConfig selects the language model. An empty provider leaves every
// component on its deterministic fallback.
type LLMConfig struct {
	Provider    string
	Region      string
	Model       string
	MaxTokens   int
	Temperature float64
	RateLimit   float64 // requests per second, 0 for unlimited
	Burst       int
}

// BrowserConfig selects the session provider: "local" or "browserbase".
type BrowserConfig struct {
	Provider   string
	BaseURL    string
	APIKey     string
	ProjectID  string
	ConnectURL string
	ExecPath   string
	NoSandbox  bool
}

// ExecutionConfig controls the execution adapter.
type ExecutionConfig struct {
	ScreenshotOnFailure bool
	ArtifactTimeout     time.Duration
	MarkupLimit         int
}

// AnalysisConfig controls page analysis for planning.
type AnalysisConfig struct {
	Live        bool
	Timeout     time.Duration
	SettleDelay time.Duration
}

// StorageConfig holds blob storage configuration.
type StorageConfig struct {
	Type            string // "local" or "s3"
	BaseDir         string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3Prefix        string
	S3PresignExpiry time.Duration
}

// ResultsConfig selects the run record backend: "memory", "redis" or "sql".
type ResultsConfig struct {
	Backend       string
	TTL           time.Duration
	MaxEntries    int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	PurgeInterval time.Duration
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

// WorkersConfig sizes the asynchronous run pool.
type WorkersConfig struct {
	Count     int
	QueueSize int
}

type MetricsConfig struct {
	Namespace string
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.region", "us-east-1")
	v.SetDefault("llm.model", "anthropic.claude-3-5-sonnet-20240620-v1:0")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.rate_limit", 0)
	v.SetDefault("llm.burst", 1)

	v.SetDefault("browser.provider", "local")
	v.SetDefault("browser.base_url", "")
	v.SetDefault("browser.api_key", "")
	v.SetDefault("browser.project_id", "")
	v.SetDefault("browser.connect_url", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.no_sandbox", false)

	v.SetDefault("execution.screenshot_on_failure", true)
	v.SetDefault("execution.artifact_timeout", "10s")
	v.SetDefault("execution.markup_limit", 200000)

	v.SetDefault("analysis.live", true)
	v.SetDefault("analysis.timeout", "3m")
	v.SetDefault("analysis.settle_delay", "2s")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_dir", "./artifacts")
	v.SetDefault("storage.s3_bucket", "")
	v.SetDefault("storage.s3_region", "us-east-1")
	v.SetDefault("storage.s3_endpoint", "")
	v.SetDefault("storage.s3_prefix", "")
	v.SetDefault("storage.s3_presign_expiry", "15m")

	v.SetDefault("results.backend", "memory")
	v.SetDefault("results.ttl", "24h")
	v.SetDefault("results.max_entries", 1000)
	v.SetDefault("results.redis_addr", "localhost:6379")
	v.SetDefault("results.redis_password", "")
	v.SetDefault("results.redis_db", 0)
	v.SetDefault("results.purge_interval", "1h")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "testpilot")
	v.SetDefault("database.path", "./testpilot.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("workers.count", 2)
	v.SetDefault("workers.queue_size", 100)

	v.SetDefault("metrics.namespace", "testpilot")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config

	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetInt("server.port")
	config.Server.ReadTimeout = v.GetDuration("server.read_timeout")
	config.Server.WriteTimeout = v.GetDuration("server.write_timeout")
	config.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")

	config.Log.Level = v.GetString("log.level")
	config.Log.Format = v.GetString("log.format")

	config.LLM.Provider = v.GetString("llm.provider")
	config.LLM.Region = v.GetString("llm.region")
	config.LLM.Model = v.GetString("llm.model")
	config.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	config.LLM.Temperature = v.GetFloat64("llm.temperature")
	config.LLM.RateLimit = v.GetFloat64("llm.rate_limit")
	config.LLM.Burst = v.GetInt("llm.burst")

	config.Browser.Provider = v.GetString("browser.provider")
	config.Browser.BaseURL = v.GetString("browser.base_url")
	config.Browser.APIKey = v.GetString("browser.api_key")
	config.Browser.ProjectID = v.GetString("browser.project_id")
	config.Browser.ConnectURL = v.GetString("browser.connect_url")
	config.Browser.ExecPath = v.GetString("browser.exec_path")
	config.Browser.NoSandbox = v.GetBool("browser.no_sandbox")

	config.Execution.ScreenshotOnFailure = v.GetBool("execution.screenshot_on_failure")
	config.Execution.ArtifactTimeout = v.GetDuration("execution.artifact_timeout")
	config.Execution.MarkupLimit = v.GetInt("execution.markup_limit")

	config.Analysis.Live = v.GetBool("analysis.live")
	config.Analysis.Timeout = v.GetDuration("analysis.timeout")
	config.Analysis.SettleDelay = v.GetDuration("analysis.settle_delay")

	config.Storage.Type = v.GetString("storage.type")
	config.Storage.BaseDir = v.GetString("storage.base_dir")
	config.Storage.S3Bucket = v.GetString("storage.s3_bucket")
	config.Storage.S3Region = v.GetString("storage.s3_region")
	config.Storage.S3Endpoint = v.GetString("storage.s3_endpoint")
	config.Storage.S3Prefix = v.GetString("storage.s3_prefix")
	config.Storage.S3PresignExpiry = v.GetDuration("storage.s3_presign_expiry")

	config.Results.Backend = v.GetString("results.backend")
	config.Results.TTL = v.GetDuration("results.ttl")
	config.Results.MaxEntries = v.GetInt("results.max_entries")
	config.Results.RedisAddr = v.GetString("results.redis_addr")
	config.Results.RedisPassword = v.GetString("results.redis_password")
	config.Results.RedisDB = v.GetInt("results.redis_db")
	config.Results.PurgeInterval = v.GetDuration("results.purge_interval")

	config.Database.Driver = v.GetString("database.driver")
	config.Database.Host = v.GetString("database.host")
	config.Database.Port = v.GetInt("database.port")
	config.Database.User = v.GetString("database.user")
	config.Database.Password = v.GetString("database.password")
	config.Database.Database = v.GetString("database.database")
	config.Database.Path = v.GetString("database.path")
	config.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	config.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")

	config.Workers.Count = v.GetInt("workers.count")
	config.Workers.QueueSize = v.GetInt("workers.queue_size")

	config.Metrics.Namespace = v.GetString("metrics.namespace")

	return &config, nil
}

// databaseConfig converts the database section for the database package.
func (c *Config) databaseConfig() database.Config {
	return database.Config{
		Driver:       c.Database.Driver,
		Host:         c.Database.Host,
		Port:         c.Database.Port,
		User:         c.Database.User,
		Password:     c.Database.Password,
		Database:     c.Database.Database,
		Path:         c.Database.Path,
		MaxOpenConns: c.Database.MaxOpenConns,
		MaxIdleConns: c.Database.MaxIdleConns,
	}
}

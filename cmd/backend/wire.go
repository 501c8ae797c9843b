package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/browser"
	"github.com/hairizuan-noorazman/testpilot/database"
	"github.com/hairizuan-noorazman/testpilot/executor"
	"github.com/hairizuan-noorazman/testpilot/generator"
	"github.com/hairizuan-noorazman/testpilot/healer"
	"github.com/hairizuan-noorazman/testpilot/llm"
	"github.com/hairizuan-noorazman/testpilot/logger"
	"github.com/hairizuan-noorazman/testpilot/metrics"
	"github.com/hairizuan-noorazman/testpilot/pageanalysis"
	"github.com/hairizuan-noorazman/testpilot/planner"
	"github.com/hairizuan-noorazman/testpilot/results"
	"github.com/hairizuan-noorazman/testpilot/storage"
	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/hairizuan-noorazman/testpilot/validator"
	"github.com/hairizuan-noorazman/testpilot/workflow"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// components are the long-lived objects shared by the commands.
type components struct {
	engine            *workflow.Engine
	blobs             storage.BlobStorage
	metrics           *metrics.Collector
	llmConfigured     bool
	browserConfigured bool
}

func newLogger(cfg *Config) logger.Logger {
	return logger.NewLogrusLoggerWithOptions(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

func buildLLM(ctx context.Context, cfg LLMConfig) (llm.Client, bool, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return llm.Unconfigured{}, false, nil
	case "bedrock":
		client, err := llm.NewBedrockClient(ctx, llm.BedrockConfig{
			Region:      cfg.Region,
			ModelID:     cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, false, err
		}
		return llm.RateLimited(client, rate.Limit(cfg.RateLimit), cfg.Burst), true, nil
	}
	return nil, false, fmt.Errorf("%w: unknown provider %q", llm.ErrNotConfigured, cfg.Provider)
}

func buildProvider(cfg BrowserConfig, log logger.Logger) (browser.SessionProvider, bool, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return browser.NewLocalProvider(browser.LocalConfig{
			ExecPath:  cfg.ExecPath,
			NoSandbox: cfg.NoSandbox,
		}, log), true, nil
	case "browserbase":
		return browser.NewHTTPProvider(browser.HTTPProviderConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			ProjectID:  cfg.ProjectID,
			ConnectURL: cfg.ConnectURL,
		}, log), cfg.APIKey != "", nil
	}
	return nil, false, fmt.Errorf("unknown browser provider %q", cfg.Provider)
}

func buildAnalyzer(cfg AnalysisConfig, provider browser.SessionProvider, log logger.Logger) pageanalysis.Analyzer {
	var analyzers []pageanalysis.Analyzer
	if cfg.Live {
		open := func(ctx context.Context, headless bool) (browser.Page, error) {
			return browser.OpenSession(ctx, provider, browser.SessionOptions{
				Browser:  testrun.BrowserChromium,
				Headless: headless,
				Viewport: testrun.Viewport{Width: testrun.DefaultViewportWidth, Height: testrun.DefaultViewportHeight},
			})
		}
		analyzers = append(analyzers, pageanalysis.NewLiveAnalyzer(open, log, pageanalysis.WithSettleDelay(cfg.SettleDelay)))
	}
	analyzers = append(analyzers, pageanalysis.NewStaticAnalyzer(nil, log))
	return pageanalysis.NewChain(log, cfg.Timeout, analyzers...)
}

// buildComponents wires the workflow engine and its collaborators.
func buildComponents(ctx context.Context, cfg *Config, log logger.Logger) (*components, error) {
	collector := metrics.NewCollector(cfg.Metrics.Namespace)

	client, llmConfigured, err := buildLLM(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to configure language model: %w", err)
	}
	if !llmConfigured {
		log.Warn(ctx, "language model not configured, using deterministic fallbacks", nil)
	}

	provider, browserConfigured, err := buildProvider(cfg.Browser, log)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.New(ctx, storage.Config{
		Type:          cfg.Storage.Type,
		BaseDir:       cfg.Storage.BaseDir,
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		Endpoint:      cfg.Storage.S3Endpoint,
		Prefix:        cfg.Storage.S3Prefix,
		PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	analyzer := buildAnalyzer(cfg.Analysis, provider, log)
	engine := workflow.New(
		planner.New(analyzer, llm.Instrumented(client, "planner", collector), log),
		generator.New(llm.Instrumented(client, "generator", collector), log),
		executor.New(provider, blobs, executor.Config{
			ScreenshotOnFailure: cfg.Execution.ScreenshotOnFailure,
			ArtifactTimeout:     cfg.Execution.ArtifactTimeout,
			MarkupLimit:         cfg.Execution.MarkupLimit,
		}, log),
		healer.New(llm.Instrumented(client, "healer", collector), log, healer.WithRecorder(collector)),
		validator.New(llm.Instrumented(client, "validator", collector), log),
		log,
		workflow.WithRecorder(collector),
	)

	return &components{
		engine:            engine,
		blobs:             blobs,
		metrics:           collector,
		llmConfigured:     llmConfigured,
		browserConfigured: browserConfigured,
	}, nil
}

// resultStore is a results.Store with its release hook.
type resultStore struct {
	results.Store
	close func() error
	// sql is set for the sql backend, which needs purging.
	sql *results.SQLStore
}

func buildResultStore(ctx context.Context, cfg *Config, log logger.Logger) (*resultStore, error) {
	switch strings.ToLower(cfg.Results.Backend) {
	case "", "memory":
		return &resultStore{
			Store: results.NewMemoryStore(cfg.Results.MaxEntries, cfg.Results.TTL),
			close: func() error { return nil },
		}, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Results.RedisAddr,
			Password: cfg.Results.RedisPassword,
			DB:       cfg.Results.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return &resultStore{
			Store: results.NewRedisStore(client, cfg.Results.TTL, log),
			close: client.Close,
		}, nil

	case "sql":
		db, err := database.Connect(cfg.databaseConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database instance: %w", err)
		}
		if err := database.RunMigrations(sqlDB, cfg.Database.Driver); err != nil {
			sqlDB.Close()
			return nil, err
		}
		store := results.NewSQLStore(db, log)
		return &resultStore{Store: store, close: sqlDB.Close, sql: store}, nil
	}
	return nil, fmt.Errorf("unknown results backend %q", cfg.Results.Backend)
}

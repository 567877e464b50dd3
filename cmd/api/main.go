package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"

	"gitfolio/config"
	"gitfolio/internal/api"
	"gitfolio/internal/collector"
	"gitfolio/internal/github"
	"gitfolio/internal/scoring"
	"gitfolio/internal/storage"
	"gitfolio/pkg/cache"
	"gitfolio/pkg/logger"
	"gitfolio/pkg/secrets"
	"gitfolio/pkg/telemetry"
)

func main() {
	configPath := flag.String("config", "config/config.json", "Path to configuration file")
	flag.Parse()

	// Load .env if present; environment variables win over the config file
	_ = godotenv.Load()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := logger.Init(logger.Config{
		Level:   cfg.Logging.Level,
		Pretty:  cfg.Logging.Pretty,
		Service: "gitfolio-api",
	}); err != nil {
		logger.Get().Fatal().Err(err).Msg("failed to initialize logger")
	}
	log := logger.Get()

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(telemetry.TracerConfig{
			ServiceName:    "gitfolio-api",
			ExporterType:   cfg.Telemetry.Exporter,
			JaegerEndpoint: cfg.Telemetry.JaegerEndpoint,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
			SamplingRatio:  cfg.Telemetry.SamplingRatio,
		})
		if err != nil {
			log.Warn().Err(err).Msg("tracing disabled")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tp.Shutdown(ctx)
			}()
		}
	}

	// Docker secrets (VAR_FILE) take precedence over config values
	dbSecrets, err := secrets.LoadDatabaseConfig()
	if err == nil && dbSecrets.Password != "" {
		cfg.Database.Host = dbSecrets.Host
		cfg.Database.User = dbSecrets.User
		cfg.Database.Password = dbSecrets.Password
		cfg.Database.Database = dbSecrets.Database
	}
	if gh := secrets.LoadGitHubConfig(); gh.Token != "" {
		cfg.GitHub.Token = gh.Token
	}

	store, err := storage.NewPostgresStore(storage.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		MaxConns: cfg.Database.MaxConnections,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer store.Close()

	var rc *cache.RedisCache
	if cfg.Cache.Enabled {
		rc, err = cache.New(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("cache disabled")
			rc = nil
		} else {
			defer rc.Close()
		}
	}

	ghClient := github.NewClient(github.Config{
		BaseURL:         cfg.GitHub.BaseURL,
		Token:           cfg.GitHub.Token,
		UserAgent:       cfg.GitHub.UserAgent,
		Timeout:         cfg.GitHubTimeout(),
		RequestInterval: time.Duration(cfg.GitHub.RequestIntervalMS) * time.Millisecond,
	})

	server := api.NewServer(api.Config{
		Port:         cfg.Server.Port,
		EnableCORS:   cfg.Server.EnableCORS,
		Seed:         cfg.Server.Seed,
		CacheTTL:     cfg.CacheTTL(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}, store, collector.New(ghClient, log), scoring.NewEngine(), rc, log)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// Package bootstrap provides dependency initialization for the videoseek client.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/avelar/videoseek/internal/backend"
	"github.com/avelar/videoseek/internal/config"
	"github.com/avelar/videoseek/internal/endpoint"
	"github.com/avelar/videoseek/internal/job"
	"github.com/avelar/videoseek/internal/live"
	"github.com/avelar/videoseek/internal/probe"
	"github.com/avelar/videoseek/internal/search"
	"github.com/avelar/videoseek/internal/storage"
	"github.com/avelar/videoseek/internal/upload"
)

// Dependencies holds all initialized dependencies for the client.
type Dependencies struct {
	Registry *endpoint.Registry
	Backend  backend.Client
	Probe    *probe.Probe
	Pipeline *upload.Pipeline
	Poller   *job.Poller
	Search   *search.Client
	Watcher  *live.Watcher
	Spool    *storage.Local
}

// NewDependencies creates and initializes all dependencies for the client.
// The registry is seeded from configuration when an API URL is set; durable
// storage prefers Cloudinary, falls back to S3, and is absent when neither is
// configured.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	registry := endpoint.NewRegistry()
	if cfg.APIURL != "" {
		if err := registry.Set(cfg.APIURL); err != nil {
			return nil, fmt.Errorf("seed endpoint: %w", err)
		}
	}

	client := backend.NewHTTPClient(registry)

	durable, err := initDurable(cfg, logger)
	if err != nil {
		return nil, err
	}

	spool, err := storage.NewLocal(cfg.SpoolDir)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}

	repo := job.NewMemoryRepository()
	poller := job.NewPoller(client, repo, logger, job.WithPollInterval(cfg.PollInterval))

	pipeline := upload.NewPipeline(client, durable, logger,
		upload.WithMaxUploadBytes(cfg.MaxUploadBytes()),
	)

	return &Dependencies{
		Registry: registry,
		Backend:  client,
		Probe:    probe.New(registry, client, logger),
		Pipeline: pipeline,
		Poller:   poller,
		Search:   search.NewClient(client, logger),
		Watcher:  live.NewWatcher(logger, live.WithSpool(spool)),
		Spool:    spool,
	}, nil
}

// initDurable creates the durable-storage provider based on configuration.
// Returns nil when no provider is configured; the pipeline then runs
// processing-leg only.
func initDurable(cfg *config.Config, logger *slog.Logger) (storage.Durable, error) {
	if cfg.CloudinaryEnabled() {
		cld, err := storage.NewCloudinary(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
		if err != nil {
			return nil, fmt.Errorf("create Cloudinary storage: %w", err)
		}
		logger.Info("Cloudinary durable storage configured",
			slog.String("cloud_name", cfg.CloudinaryCloudName),
		)
		return cld, nil
	}

	if cfg.S3Enabled() {
		s3Store, err := storage.NewS3Storage(storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Prefix:          cfg.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 durable storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	logger.Info("no durable storage configured, uploads are processing-leg only")
	return nil, nil
}

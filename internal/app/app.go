// Package app assembles the listing pipeline from configuration. It is
// shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vistahomes/internal/config"
	"vistahomes/internal/repository"
	"vistahomes/internal/service"
	"vistahomes/internal/service/github"
	"vistahomes/internal/service/minio"
	"vistahomes/internal/service/s3"
	"vistahomes/internal/storage"
)

// Files names the env files each component reads its settings from.
type Files struct {
	App    string
	GitHub string
	S3     string
	MinIO  string
}

var DefaultFiles = Files{
	App:    ".app.env",
	GitHub: ".github.env",
	S3:     ".s3.env",
	MinIO:  ".minio.env",
}

// App holds the wired pipeline.
type App struct {
	Config   *config.Config
	Store    storage.ContentStore
	Blobs    storage.BlobStore
	Listings *service.ListingService
	Repo     *repository.ListingRepository
}

// New loads configuration and connects the selected backends.
func New(ctx context.Context, files Files, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := config.NewConfig(files.App)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := OpenStore(cfg, files, logger)
	if err != nil {
		return nil, err
	}
	blobs, err := OpenBlobs(ctx, cfg, files, store)
	if err != nil {
		return nil, err
	}

	repo := repository.NewListingRepository(store, cfg.Store.TargetPath, logger)
	listings := service.NewListingService(
		service.NewNormalizer(time.Now),
		service.NewAttachmentService(blobs, cfg.Store.ImagesPath, logger),
		repo,
		logger,
	)

	logger.Info("listing pipeline ready",
		"store", cfg.Store.Backend,
		"blobs", cfg.Store.BlobBackend,
		"target_path", cfg.Store.TargetPath,
		"images_path", cfg.Store.ImagesPath,
	)

	return &App{
		Config:   cfg,
		Store:    store,
		Blobs:    blobs,
		Listings: listings,
		Repo:     repo,
	}, nil
}

// OpenStore connects the content store holding the collection.
func OpenStore(cfg *config.Config, files Files, logger *slog.Logger) (storage.ContentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store.Backend {
	case config.BackendGitHub:
		ghConfig, err := github.NewConfig(files.GitHub)
		if err != nil {
			return nil, err
		}
		ghConfig.Logger = logger
		client, err := github.NewClient(ghConfig)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendS3:
		s3Config, err := s3.NewConfig(files.S3)
		if err != nil {
			return nil, fmt.Errorf("server misconfigured: %w", err)
		}
		client, err := s3.NewClient(s3Config)
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendMemory:
		logger.Warn("using in-memory store, listings are lost on restart")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenBlobs returns where attachments are written. By default they go to
// the same content store as the collection.
func OpenBlobs(ctx context.Context, cfg *config.Config, files Files, store storage.ContentStore) (storage.BlobStore, error) {
	switch cfg.Store.BlobBackend {
	case config.BlobsStore:
		return storage.NewContentBlobs(store), nil
	case config.BlobsMinIO:
		minioConfig, err := minio.NewConfig(files.MinIO)
		if err != nil {
			return nil, fmt.Errorf("server misconfigured: %w", err)
		}
		blobs, err := minio.New(ctx, minioConfig)
		if err != nil {
			return nil, err
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Store.BlobBackend)
	}
}

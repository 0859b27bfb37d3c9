package backend

import (
	"context"
	"errors"
	"fmt"

	"racevault/internal/adapters"
	"racevault/internal/amqp"
	"racevault/internal/cache"
	"racevault/internal/gateway/memory"
	"racevault/internal/gateway/supabase"
	"racevault/internal/log"
	"racevault/internal/metrics"
	"racevault/internal/objectstore"
	"racevault/internal/storage"
	"racevault/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger  *log.Logger
	metrics *metrics.Metrics
}

func NewFactory(logger *log.Logger, m *metrics.Metrics) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger:  logger.WithComponent(log.ComponentBackend),
		metrics: m,
	}
}

// CreateBackend implements Factory.CreateBackend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		result, err = f.createPostgresBackend(ctx, config)
	case SupabaseBackend:
		result, err = f.createSupabaseBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.wrapCategoryCache(result, config)
	f.attachPublisher(result, config)
	return result, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir)
	objects := memory.NewObjects(config.PublicBaseURL)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{
		Backend: Backend{Gateway: store, Objects: objects, Files: objects.Handler()},
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	files, err := objectstore.NewFilesystem(config.UploadDir, config.PublicBaseURL)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize receipt store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"upload_dir", config.UploadDir)

	return &BackendResult{
		Backend: Backend{Gateway: repo, Objects: files, Files: files.Handler()},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
	}
	files, err := objectstore.NewFilesystem(config.UploadDir, config.PublicBaseURL)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to initialize receipt store: %w", err)
	}

	f.logger.Info("Initialized Postgres backend", "upload_dir", config.UploadDir)

	return &BackendResult{
		Backend: Backend{Gateway: repo, Objects: files, Files: files.Handler()},
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createSupabaseBackend(config Config) (*BackendResult, error) {
	client := supabase.New(config.SupabaseURL, config.SupabaseAnonKey)

	f.logger.Info("Initialized Supabase backend", "url", config.SupabaseURL)

	return &BackendResult{
		Backend: Backend{Gateway: client, Objects: client},
	}, nil
}

// wrapCategoryCache routes category reads through an expiring cache that
// is swept in the background until cleanup.
func (f *DefaultFactory) wrapCategoryCache(result *BackendResult, config Config) {
	if config.CategoryCacheTTL <= 0 {
		return
	}
	cached := adapters.NewCachedGateway(result.Gateway, config.CategoryCacheTTL, f.metrics)
	result.Gateway = cached

	manager := cache.NewManager()
	manager.Register(cached.Categories.Cache())
	manager.StartCleanup(config.CategoryCacheTTL)

	result.Cleanup = chain(func() error {
		manager.Stop()
		return nil
	}, result.Cleanup)
	f.logger.Info("Category cache enabled", "ttl", config.CategoryCacheTTL)
}

// attachPublisher connects to the broker when one is configured. A broker
// that cannot be reached disables publishing instead of failing startup.
func (f *DefaultFactory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without export events", log.FieldError, err)
		return
	}
	result.Publisher = client
	result.Cleanup = chain(client.Close, result.Cleanup)
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
}

// chain runs first then rest, joining their errors.
func chain(first, rest CleanupFunc) CleanupFunc {
	if rest == nil {
		return first
	}
	return func() error {
		return errors.Join(first(), rest())
	}
}

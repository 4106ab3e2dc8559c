// Package backend assembles the roster and report services for the
// configured data backend: an in-memory roster seeded at startup, or a roster
// persisted as SQLite snapshots.
package backend

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"dorm/internal/amqp"
	"dorm/internal/cache"
	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/roster"
	"dorm/internal/services"
	"dorm/internal/storage"
)

// DemoSeed seeds the demo payment history so every start shows the same data.
const DemoSeed uint64 = 2023

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) *DefaultFactory {
	if logger == nil {
		logger = applog.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
		now:    time.Now,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) seedStudents(config Config) ([]core.Student, error) {
	if config.SeedFile != "" {
		students, err := roster.LoadSeedFile(config.SeedFile)
		if err != nil {
			return nil, err
		}
		f.logger.Info("Loaded seed file", "path", config.SeedFile, "students", len(students))
		return students, nil
	}
	return roster.DemoStudents(f.now(), DemoSeed), nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	students, err := f.seedStudents(config)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	store := roster.New(students)

	// Versions restart at zero with every process, so Redis keys are scoped
	// to this process.
	epoch := make([]byte, 6)
	_, _ = rand.Read(epoch)

	result := &BackendResult{}
	publisher := f.connectAMQP(config)
	reportCache, stopCache := f.reportCache(ctx, config, hex.EncodeToString(epoch), result)

	rosterSvc := services.NewRosterService(store, nil, publisher, f.logger)
	result.Roster = rosterSvc
	result.Reports = services.NewReportService(store, reportCache, f.logger)
	result.Cleanup = func() error {
		stopCache()
		return rosterSvc.Close()
	}

	f.logger.Info("Initialized memory backend",
		"students", len(students),
		"amqp_enabled", publisher != nil)
	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	snap, err := repo.LoadSnapshot(ctx)
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		students, seedErr := f.seedStudents(config)
		if seedErr != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to seed SQLite backend: %w", seedErr)
		}
		snap = roster.New(students).Snapshot()
		if err := repo.SaveSnapshot(ctx, snap); err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("failed to persist seed snapshot: %w", err)
		}
		f.logger.Info("Seeded SQLite roster", "students", len(students))
	case err != nil:
		_ = repo.Close()
		return nil, fmt.Errorf("failed to load roster snapshot: %w", err)
	}
	store := roster.FromSnapshot(snap)

	result := &BackendResult{
		Checks: []ReadinessCheck{{Name: "sqlite", Check: repo.Ping}},
	}
	publisher := f.connectAMQP(config)
	// Versions survive restarts, so every instance on the same database can
	// share Redis entries.
	reportCache, stopCache := f.reportCache(ctx, config, "sqlite", result)

	rosterSvc := services.NewRosterService(store, repo, publisher, f.logger)
	result.Roster = rosterSvc
	result.Reports = services.NewReportService(store, reportCache, f.logger)
	result.Cleanup = func() error {
		stopCache()
		return rosterSvc.Close()
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		applog.FieldVersion, snap.Version,
		"amqp_enabled", publisher != nil)
	return result, nil
}

// connectAMQP returns nil when AMQP is not configured or unreachable; the
// dashboard keeps working without events.
func (f *DefaultFactory) connectAMQP(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", applog.FieldError, err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}

// reportCache picks Redis when configured and reachable, otherwise an
// in-process LRU with periodic cleanup. The returned func stops cleanup.
func (f *DefaultFactory) reportCache(ctx context.Context, config Config, epoch string, result *BackendResult) (cache.Cache[core.Report], func()) {
	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = 5 * time.Minute
	}

	if config.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err == nil {
			result.Checks = append(result.Checks, ReadinessCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			})
			f.logger.Info("Using Redis report cache", "addr", config.RedisAddr)
			prefix := "dorm:" + epoch + ":"
			return cache.NewRedisCache[core.Report](client, prefix, ttl, f.logger.Logger), func() { _ = client.Close() }
		}
		f.logger.Warn("Redis unavailable, using in-process report cache", applog.FieldError, err)
	}

	size := config.CacheSize
	if size <= 0 {
		size = 16
	}
	lru := cache.NewLRUCache[core.Report](size, ttl)
	manager := cache.NewManager(f.logger.Logger)
	manager.Register(lru)
	interval := config.CacheCleanup
	if interval <= 0 {
		interval = time.Minute
	}
	manager.StartCleanup(interval)
	return lru, manager.Stop
}

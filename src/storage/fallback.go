package storage

import (
	"context"
	"fmt"
	"time"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/pkg/errors"
)

// Pruner is implemented by stores that support retention cleanup.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// -----------------------------------------------------------------------------

// FallbackCacheStore writes to Primary and drops to Fallback (the local-file
// store) whenever Primary errors. Reads return the fresher of the two rows.
type FallbackCacheStore struct {
	Primary  interfaces.ICacheStore
	Fallback interfaces.ICacheStore
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func (s *FallbackCacheStore) Name() string {
	return fmt.Sprintf("%s+%s", s.Primary.Name(), s.Fallback.Name())
}

// -----------------------------------------------------------------------------

func (s *FallbackCacheStore) Initialize() error {
	if err := s.Fallback.Initialize(); err != nil {
		return err
	}
	return s.Primary.Initialize()
}

// -----------------------------------------------------------------------------

// Get consults both stores. Rows written to Fallback while Primary was down
// stay visible after it recovers: the newer CachedAt wins.
func (s *FallbackCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	rec, found, err := s.Primary.Get(ctx, key)
	if err != nil {
		s.Logger.Warning("%s get failed, using %s: %v", s.Primary.Name(), s.Fallback.Name(), err)
		return s.Fallback.Get(ctx, key)
	}

	fb, fbFound, fbErr := s.Fallback.Get(ctx, key)
	if fbErr != nil {
		s.Logger.Debug("%s get failed: %v", s.Fallback.Name(), fbErr)
		return rec, found, nil
	}
	if fbFound && (!found || fb.CachedAt.After(rec.CachedAt)) {
		return fb, true, nil
	}
	return rec, found, nil
}

// -----------------------------------------------------------------------------

func (s *FallbackCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	err := s.Primary.Put(ctx, rec)
	if err == nil {
		return nil
	}
	s.Logger.Warning("%s put failed, using %s: %v", s.Primary.Name(), s.Fallback.Name(), err)
	return s.Fallback.Put(ctx, rec)
}

// -----------------------------------------------------------------------------

func (s *FallbackCacheStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, st := range []interfaces.ICacheStore{s.Primary, s.Fallback} {
		if p, ok := st.(Pruner); ok {
			n, err := p.Prune(ctx, cutoff)
			if err != nil {
				return total, err
			}
			total += n
		}
	}
	return total, nil
}

// -----------------------------------------------------------------------------

func (s *FallbackCacheStore) Close() error {
	errP := s.Primary.Close()
	errF := s.Fallback.Close()
	if errP != nil {
		return errP
	}
	return errF
}

// -----------------------------------------------------------------------------

// NewCacheStore builds and initializes the configured store. When the primary
// backend cannot be initialized and a fallback directory is configured, the
// local-file store is returned on its own.
func NewCacheStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ICacheStore, error) {
	var primary interfaces.ICacheStore

	switch cfg.Storage.DBType {
	case "postgres":
		pg, err := NewPostgresCacheStore(cfg, log.Named("PostgresCacheStore"))
		if err != nil {
			return nil, err
		}
		primary = pg
	case "redis":
		primary = NewRedisCacheStore(cfg, log.Named("RedisCacheStore"))
	case "file":
		primary = NewFileCacheStore(cfg.Storage.DBPath, log.Named("FileCacheStore"))
	case "memory":
		primary = NewMemoryCacheStore()
	default:
		// Default to SQLite
		primary = NewSQLiteCacheStore(cfg, log.Named("SQLiteCacheStore"))
	}

	if err := primary.Initialize(); err != nil {
		if cfg.Storage.FallbackDir == "" {
			return nil, errors.Wrapf(err, "initialize %s cache store", primary.Name())
		}
		log.Error("Cache store %s unavailable (%v). Falling back to local files in %s", primary.Name(), err, cfg.Storage.FallbackDir)
		fileStore := NewFileCacheStore(cfg.Storage.FallbackDir, log.Named("FileCacheStore"))
		if ferr := fileStore.Initialize(); ferr != nil {
			return nil, errors.Wrap(ferr, "initialize fallback file store")
		}
		return fileStore, nil
	}

	if cfg.Storage.FallbackDir == "" || primary.Name() == "file" || primary.Name() == "memory" {
		return primary, nil
	}

	fileStore := NewFileCacheStore(cfg.Storage.FallbackDir, log.Named("FileCacheStore"))
	if err := fileStore.Initialize(); err != nil {
		log.Warning("Fallback file store disabled: %v", err)
		return primary, nil
	}
	return &FallbackCacheStore{Primary: primary, Fallback: fileStore, Logger: log.Named("FallbackCacheStore")}, nil
}

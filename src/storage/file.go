package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/pkg/errors"
)

// FileCacheStore writes one JSON file per cache key under Dir.
type FileCacheStore struct {
	Dir    string
	Logger *logger.Logger
	mu     sync.Mutex
}

// -----------------------------------------------------------------------------

func NewFileCacheStore(dir string, log *logger.Logger) *FileCacheStore {
	return &FileCacheStore{Dir: dir, Logger: log}
}

// -----------------------------------------------------------------------------

func (f *FileCacheStore) Name() string {
	return "file"
}

// -----------------------------------------------------------------------------

func (f *FileCacheStore) Initialize() error {
	if f.Dir == "" {
		return errors.New("file store directory is empty")
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create cache directory %s", f.Dir)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (f *FileCacheStore) path(key models.MCacheKey) string {
	sum := sha1.Sum([]byte(key.String()))
	return filepath.Join(f.Dir, hex.EncodeToString(sum[:])+".json")
}

// -----------------------------------------------------------------------------

func (f *FileCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return models.MCacheRecord{}, false, nil
	}
	if err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "file get %s", key)
	}

	var rec models.MCacheRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "file get %s: corrupt record", key)
	}
	if rec.Key != key {
		return models.MCacheRecord{}, false, nil
	}
	return rec, true, nil
}

// -----------------------------------------------------------------------------

// Put writes to a temp file and renames it over the target.
func (f *FileCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "file put %s", rec.Key)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.Dir, "rec-*.tmp")
	if err != nil {
		return errors.Wrapf(err, "file put %s", rec.Key)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "file put %s", rec.Key)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "file put %s", rec.Key)
	}
	if err := os.Rename(tmp.Name(), f.path(rec.Key)); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrapf(err, "file put %s", rec.Key)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Prune deletes record files whose modification time is before cutoff.
func (f *FileCacheStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return 0, errors.Wrap(err, "file prune")
	}
	var n int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(f.Dir, e.Name())) == nil {
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func (f *FileCacheStore) Close() error {
	return nil
}

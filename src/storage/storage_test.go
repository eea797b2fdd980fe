package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logger.Logger {
	l := logger.NewLogger(nil, "storage-test")
	l.SetOutput(io.Discard)
	return l
}

func sqliteStore(t *testing.T) *SQLiteCacheStore {
	t.Helper()
	cfg := &models.MConfig{}
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "cache.db")
	s := NewSQLiteCacheStore(cfg, quietLogger())
	require.NoError(t, s.Initialize())
	t.Cleanup(func() { s.Close() })
	return s
}

func fileStore(t *testing.T) *FileCacheStore {
	t.Helper()
	s := NewFileCacheStore(filepath.Join(t.TempDir(), "files"), quietLogger())
	require.NoError(t, s.Initialize())
	return s
}

var testKey = models.MCacheKey{Ticker: "ABC.ST", Timeframe: "1d", Period: "1y", Source: models.SourcePrimary}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, store interfaces.ICacheStore) {
	ctx := context.Background()

	_, found, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	assert.False(t, found)

	first := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)
	require.NoError(t, store.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte(`{"v":1}`), CachedAt: first}))
	require.NoError(t, store.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte(`{"v":2}`), CachedAt: second}))

	rec, found, err := store.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"v":2}`, string(rec.Blob))
	assert.True(t, second.Equal(rec.CachedAt))
	assert.Equal(t, testKey, rec.Key)

	other := testKey
	other.Source = models.SourceSecondary
	require.NoError(t, store.Put(ctx, models.MCacheRecord{Key: other, Blob: []byte(`{"v":3}`), CachedAt: first}))

	rec, found, err = store.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"v":2}`, string(rec.Blob), "a different source must not overwrite")

	rec, found, err = store.Get(ctx, other)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"v":3}`, string(rec.Blob))
}

func TestSQLiteStoreContract(t *testing.T) {
	runStoreContract(t, sqliteStore(t))
}

func TestFileStoreContract(t *testing.T) {
	runStoreContract(t, fileStore(t))
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryCacheStore())
}

func TestSQLiteKeepsSingleRowPerKey(t *testing.T) {
	s := sqliteStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("x"), CachedAt: time.Now()}))
	}
	var n int
	require.NoError(t, s.DB.QueryRow("SELECT COUNT(*) FROM cache_records").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLitePrune(t *testing.T) {
	s := sqliteStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)
	fresh := testKey
	fresh.Ticker = "XYZ.ST"

	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("old"), CachedAt: old}))
	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: fresh, Blob: []byte("new"), CachedAt: time.Now()}))

	n, err := s.Prune(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, found, _ := s.Get(ctx, testKey)
	assert.False(t, found)
	_, found, _ = s.Get(ctx, fresh)
	assert.True(t, found)
}

// brokenStore fails every call, standing in for an unreachable database.
type brokenStore struct{}

func (brokenStore) Name() string      { return "broken" }
func (brokenStore) Initialize() error { return errors.New("down") }
func (brokenStore) Close() error      { return nil }
func (brokenStore) Get(context.Context, models.MCacheKey) (models.MCacheRecord, bool, error) {
	return models.MCacheRecord{}, false, errors.New("down")
}
func (brokenStore) Put(context.Context, models.MCacheRecord) error { return errors.New("down") }

func TestFallbackStoreUsesFiles(t *testing.T) {
	fs := fileStore(t)
	s := &FallbackCacheStore{Primary: brokenStore{}, Fallback: fs, Logger: quietLogger()}
	assert.Equal(t, "broken+file", s.Name())

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("kept"), CachedAt: time.Now()}))

	rec, found, err := s.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "kept", string(rec.Blob))
}

// flakyStore is a memory store that can be switched off.
type flakyStore struct {
	*MemoryCacheStore
	down bool
}

func (f *flakyStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	if f.down {
		return models.MCacheRecord{}, false, errors.New("down")
	}
	return f.MemoryCacheStore.Get(ctx, key)
}

func (f *flakyStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	if f.down {
		return errors.New("down")
	}
	return f.MemoryCacheStore.Put(ctx, rec)
}

func TestFallbackStoreKeepsOutageWritesAfterRecovery(t *testing.T) {
	primary := &flakyStore{MemoryCacheStore: NewMemoryCacheStore()}
	s := &FallbackCacheStore{Primary: primary, Fallback: fileStore(t), Logger: quietLogger()}
	ctx := context.Background()
	before := time.Date(2025, 3, 7, 16, 0, 0, 0, time.UTC)

	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("old"), CachedAt: before}))

	primary.down = true
	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("outage"), CachedAt: before.Add(time.Hour)}))
	primary.down = false

	rec, found, err := s.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "outage", string(rec.Blob))

	// A later write to the recovered primary takes over again.
	require.NoError(t, s.Put(ctx, models.MCacheRecord{Key: testKey, Blob: []byte("new"), CachedAt: before.Add(2 * time.Hour)}))
	rec, found, err = s.Get(ctx, testKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "new", string(rec.Blob))

	other := testKey
	other.Ticker = "XYZ.ST"
	_, found, err = s.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewCacheStoreFallsBackToFiles(t *testing.T) {
	cfg := &models.MConfig{}
	cfg.Storage.DBType = "postgres"
	cfg.Storage.DBConnectionString = "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
	cfg.Storage.FallbackDir = filepath.Join(t.TempDir(), "fallback")

	store, err := NewCacheStore(cfg, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, "file", store.Name())
}

func TestNewCacheStoreWrapsSQLite(t *testing.T) {
	cfg := &models.MConfig{}
	cfg.Storage.DBType = "sqlite"
	cfg.Storage.DBPath = filepath.Join(t.TempDir(), "c.db")
	cfg.Storage.FallbackDir = filepath.Join(t.TempDir(), "fallback")

	store, err := NewCacheStore(cfg, quietLogger())
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, "sqlite+file", store.Name())
	_, ok := store.(Pruner)
	assert.True(t, ok)
}

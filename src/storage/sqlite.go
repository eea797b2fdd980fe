package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type SQLiteCacheStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewSQLiteCacheStore(cfg *models.MConfig, log *logger.Logger) *SQLiteCacheStore {
	return &SQLiteCacheStore{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Name() string {
	return "sqlite"
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Initialize() error {
	dsn := d.Config.Storage.DBPath
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create sqlite directory %s", dir)
		}
	}

	// Open DB
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "ping sqlite")
	}

	// One writer at a time keeps SQLITE_BUSY away from concurrent screeners.
	db.SetMaxOpenConns(1)
	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) createTables() error {
	query := `
		CREATE TABLE IF NOT EXISTS cache_records (
			ticker TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			period TEXT NOT NULL,
			source TEXT NOT NULL,
			blob BLOB NOT NULL,
			cached_at INTEGER NOT NULL,
			PRIMARY KEY (ticker, timeframe, period, source)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return errors.Wrap(err, "create cache_records")
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	if d.DB == nil {
		return models.MCacheRecord{}, false, errors.New("sqlite store is not initialized")
	}

	var (
		blob     []byte
		cachedAt int64
	)
	err := d.DB.QueryRowContext(ctx, `
		SELECT blob, cached_at FROM cache_records
		WHERE ticker = ? AND timeframe = ? AND period = ? AND source = ?
	`, key.Ticker, key.Timeframe, key.Period, string(key.Source)).Scan(&blob, &cachedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.MCacheRecord{}, false, nil
	}
	if err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "sqlite get %s", key)
	}

	return models.MCacheRecord{Key: key, Blob: blob, CachedAt: time.Unix(0, cachedAt).UTC()}, true, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	if d.DB == nil {
		return errors.New("sqlite store is not initialized")
	}

	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO cache_records (ticker, timeframe, period, source, blob, cached_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticker, timeframe, period, source) DO UPDATE SET
			blob = excluded.blob,
			cached_at = excluded.cached_at
	`, rec.Key.Ticker, rec.Key.Timeframe, rec.Key.Period, string(rec.Key.Source), rec.Blob, rec.CachedAt.UnixNano())
	if err != nil {
		return errors.Wrapf(err, "sqlite put %s", rec.Key)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Prune removes rows captured before cutoff.
func (d *SQLiteCacheStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if d.DB == nil {
		return 0, errors.New("sqlite store is not initialized")
	}
	res, err := d.DB.ExecContext(ctx, "DELETE FROM cache_records WHERE cached_at < ?", cutoff.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "sqlite prune")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		d.Logger.Info("Pruned %d cache rows older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *SQLiteCacheStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

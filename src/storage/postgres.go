package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/models"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var schemaNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// -----------------------------------------------------------------------------

type PostgresCacheStore struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

// NewPostgresCacheStore names the schema after the running executable.
func NewPostgresCacheStore(cfg *models.MConfig, log *logger.Logger) (*PostgresCacheStore, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to get executable name: %w", err)
	}
	name := filepath.Base(exe)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	return &PostgresCacheStore{
		Config: cfg,
		Schema: sanitizeSchema(name),
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func sanitizeSchema(name string) string {
	s := schemaNameRe.ReplaceAllString(strings.ToLower(name), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "stock_screener"
	}
	return s
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Name() string {
	return "postgres"
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) table() string {
	return fmt.Sprintf(`"%s"."cache_records"`, d.Schema)
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return errors.Wrap(err, "open postgres")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return errors.Wrap(err, "ping postgres")
	}

	d.DB = db

	// Create Schema
	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return errors.Wrapf(err, "create schema %s", d.Schema)
	}

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			ticker TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			period TEXT NOT NULL,
			source TEXT NOT NULL,
			blob BYTEA NOT NULL,
			cached_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (ticker, timeframe, period, source)
		);
	`, d.table())
	if _, err := d.DB.Exec(query); err != nil {
		return errors.Wrap(err, "create cache_records")
	}

	d.Logger.Info("PostgresCacheStore initialized successfully (Schema: %s)", d.Schema)
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	if d.DB == nil {
		return models.MCacheRecord{}, false, errors.New("postgres store is not initialized")
	}

	var (
		blob     []byte
		cachedAt time.Time
	)
	query := fmt.Sprintf(`
		SELECT blob, cached_at FROM %s
		WHERE ticker = $1 AND timeframe = $2 AND period = $3 AND source = $4
	`, d.table())
	err := d.DB.QueryRowContext(ctx, query, key.Ticker, key.Timeframe, key.Period, string(key.Source)).Scan(&blob, &cachedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return models.MCacheRecord{}, false, nil
	}
	if err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "postgres get %s", key)
	}
	return models.MCacheRecord{Key: key, Blob: blob, CachedAt: cachedAt.UTC()}, true, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	if d.DB == nil {
		return errors.New("postgres store is not initialized")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (ticker, timeframe, period, source, blob, cached_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (ticker, timeframe, period, source) DO UPDATE SET
			blob = EXCLUDED.blob,
			cached_at = EXCLUDED.cached_at
	`, d.table())
	_, err := d.DB.ExecContext(ctx, query, rec.Key.Ticker, rec.Key.Timeframe, rec.Key.Period, string(rec.Key.Source), rec.Blob, rec.CachedAt.UTC())
	if err != nil {
		return errors.Wrapf(err, "postgres put %s", rec.Key)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if d.DB == nil {
		return 0, errors.New("postgres store is not initialized")
	}
	res, err := d.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE cached_at < $1`, d.table()), cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "postgres prune")
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		d.Logger.Info("Pruned %d cache rows older than %s", n, cutoff.Format(time.RFC3339))
	}
	return n, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresCacheStore) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

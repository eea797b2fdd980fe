package storage

import (
	"context"
	"strconv"
	"time"

	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "screener:cache:"

// RedisCacheStore keeps one hash per cache key so several screener processes
// can share a cache.
type RedisCacheStore struct {
	Config *models.MConfig
	Client *redis.Client
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewRedisCacheStore(cfg *models.MConfig, log *logger.Logger) *RedisCacheStore {
	return &RedisCacheStore{Config: cfg, Logger: log}
}

// -----------------------------------------------------------------------------

func (r *RedisCacheStore) Name() string {
	return "redis"
}

// -----------------------------------------------------------------------------

func (r *RedisCacheStore) Initialize() error {
	r.Client = redis.NewClient(&redis.Options{
		Addr:         r.Config.Storage.RedisAddr,
		Password:     r.Config.Storage.RedisPassword,
		DB:           r.Config.Storage.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Client.Ping(ctx).Err(); err != nil {
		r.Client.Close()
		return errors.Wrapf(err, "ping redis %s", r.Config.Storage.RedisAddr)
	}
	r.Logger.Info("RedisCacheStore connected to %s", r.Config.Storage.RedisAddr)
	return nil
}

// -----------------------------------------------------------------------------

func redisKey(key models.MCacheKey) string {
	return redisKeyPrefix + key.String()
}

// -----------------------------------------------------------------------------

func (r *RedisCacheStore) Get(ctx context.Context, key models.MCacheKey) (models.MCacheRecord, bool, error) {
	if r.Client == nil {
		return models.MCacheRecord{}, false, errors.New("redis store is not initialized")
	}

	fields, err := r.Client.HGetAll(ctx, redisKey(key)).Result()
	if err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "redis get %s", key)
	}
	blob, ok := fields["blob"]
	if !ok {
		return models.MCacheRecord{}, false, nil
	}
	nanos, err := strconv.ParseInt(fields["cached_at"], 10, 64)
	if err != nil {
		return models.MCacheRecord{}, false, errors.Wrapf(err, "redis get %s: bad cached_at", key)
	}
	return models.MCacheRecord{Key: key, Blob: []byte(blob), CachedAt: time.Unix(0, nanos).UTC()}, true, nil
}

// -----------------------------------------------------------------------------

// Put replaces both fields in one MULTI/EXEC so readers never see half a row.
func (r *RedisCacheStore) Put(ctx context.Context, rec models.MCacheRecord) error {
	if r.Client == nil {
		return errors.New("redis store is not initialized")
	}

	k := redisKey(rec.Key)
	_, err := r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, "blob", rec.Blob, "cached_at", strconv.FormatInt(rec.CachedAt.UnixNano(), 10))
		if days := r.Config.Storage.RetentionDays; days > 0 {
			pipe.Expire(ctx, k, time.Duration(days)*24*time.Hour)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "redis put %s", rec.Key)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisCacheStore) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

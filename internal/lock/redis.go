package lock

import (
	"context"
	"errors"
	"time"

	"stockledger/internal/config"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisLockTTL   = 10 * time.Second
	redisRetryStep = 50 * time.Millisecond
	redisRetryMax  = 100
)

// RedisLocker は複数プロセスで共有するロック。
type RedisLocker struct {
	client *redislock.Client
	logger *zap.Logger
}

// NewRedisClient は接続確認まで行う。
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func NewRedisLocker(rdb redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb), logger: logger}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lk, err := l.client.Obtain(ctx, "lock:"+key, redisLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(redisRetryStep), redisRetryMax),
	})
	if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil, ErrBusy
	}
	if err != nil {
		return nil, err
	}

	return func() {
		//ctxがキャンセル済みでも解放できるように
		if err := lk.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("redis lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// FromConfig はREDIS_ADDRがあればRedis、無ければプロセス内のロックを返す。
// closeはRedisクライアントを閉じる（ローカルなら何もしない）。
func FromConfig(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (Locker, func() error, error) {
	if cfg.Addr == "" {
		logger.Info("using in-process locker")
		return NewLocalLocker(), func() error { return nil }, nil
	}

	rdb, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis locker", zap.String("addr", cfg.Addr))
	return NewRedisLocker(rdb, logger), rdb.Close, nil
}

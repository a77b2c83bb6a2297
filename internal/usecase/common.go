package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"stockledger/internal/domain/model"
	"stockledger/internal/lock"
	repo "stockledger/internal/repository"

	"go.uber.org/zap"
)

// ロック待ちの上限
const lockWait = 5 * time.Second

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// CLIや内部処理の操作者名
const SystemActor = "system"

// storage系の失敗はここで1回だけログに出す
func storageError(logger *zap.Logger, op string, err error) error {
	logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	return &AppError{Kind: KindStorage, Message: "storage unavailable", Err: err}
}

// ErrNotFoundなら404、それ以外はstorage
func lookupError(logger *zap.Logger, op string, what string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return notFoundError(what)
	}
	return storageError(logger, op, err)
}

// WithinTxの戻り値のうちAppErrorでないもの（commit失敗など）をstorageにそろえる
func txError(logger *zap.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return storageError(logger, op, err)
}

// keysを順に取ってからfnを実行する。取れなければstorage（busy）。
func withLocks(ctx context.Context, locker lock.Locker, logger *zap.Logger, keys []string, fn func() error) error {
	unlocks := make([]func(), 0, len(keys))
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()

	for _, key := range keys {
		lctx, cancel := context.WithTimeout(ctx, lockWait)
		unlock, err := locker.Lock(lctx, key)
		cancel()
		if err != nil {
			logger.Warn("lock not acquired", zap.String("key", key), zap.Error(err))
			return &AppError{Kind: KindStorage, Message: "resource busy, retry later", Err: err}
		}
		unlocks = append(unlocks, unlock)
	}
	return fn()
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func writeAudit(ctx context.Context, r repo.TxRepos, now time.Time, actor string, action model.AuditAction, rt model.AuditResourceType, id int64, before, after any) error {
	if actor == "" {
		actor = SystemActor
	}
	log := model.AuditLog{
		Actor:        actor,
		Action:       action,
		ResourceType: rt,
		ResourceID:   id,
		CreatedAt:    now,
	}
	if before != nil {
		log.BeforeJSON = toJSON(before)
	}
	if after != nil {
		log.AfterJSON = toJSON(after)
	}
	return r.AuditLogs().Create(ctx, log)
}

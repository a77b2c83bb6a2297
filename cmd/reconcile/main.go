package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"stockledger/internal/config"
	"stockledger/internal/infra/db"
	infraRepo "stockledger/internal/infra/repository"
	"stockledger/internal/lock"
	"stockledger/internal/logger"
	"stockledger/internal/usecase"

	"go.uber.org/zap"
)

// 台帳を再生して在庫の現在値と突き合わせる。-rebuild で食い違いを台帳側に合わせる。
func main() {
	stockID := flag.Int64("stock-id", 0, "Optional: check only this stock")
	rebuild := flag.Bool("rebuild", false, "Rewrite drifted stocks from the ledger")
	actor := flag.String("actor", usecase.SystemActor, "Actor recorded in the audit log")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	drifts, err := run(cfg, log, *stockID, *rebuild, *actor)
	if err != nil {
		log.Error("reconcile failed", zap.Error(err))
		os.Exit(1)
	}
	if drifts > 0 && !*rebuild {
		os.Exit(2)
	}
}

func run(cfg config.Config, log *zap.Logger, stockID int64, rebuild bool, actor string) (int, error) {
	ctx := context.Background()

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close(gormDB) }()

	locker, closeLocker, err := lock.FromConfig(ctx, cfg.Redis, log)
	if err != nil {
		return 0, err
	}
	defer func() { _ = closeLocker() }()

	uc := usecase.NewInventoryUsecase(
		infraRepo.NewStockGormRepository(gormDB),
		infraRepo.NewCategoryGormRepository(gormDB),
		infraRepo.NewTransactionGormRepository(gormDB),
		infraRepo.NewTxManagerGorm(gormDB),
		locker,
		usecase.SystemClock{},
		log,
	)

	var target *int64
	if stockID > 0 {
		target = &stockID
	}
	rep, err := uc.Reconcile(ctx, target)
	if err != nil {
		return 0, err
	}
	log.Info("reconcile finished", zap.Int("checked", rep.Checked), zap.Int("drifts", len(rep.Drifts)))

	for _, d := range rep.Drifts {
		fields := []zap.Field{
			zap.Int64("stock_id", d.StockID),
			zap.String("model_name", d.ModelName),
			zap.Int64("recorded_available", d.Recorded.Available),
			zap.Int64("replayed_available", d.Replayed.Available),
		}
		if d.Error != "" {
			fields = append(fields, zap.String("error", d.Error))
		}
		log.Warn("drift", fields...)

		if !rebuild {
			continue
		}
		_, fixed, err := uc.RebuildAvailable(ctx, actor, d.StockID)
		if err != nil {
			//再生できない台帳は手で直す必要があるので次へ
			log.Error("rebuild failed", zap.Int64("stock_id", d.StockID), zap.Error(err))
			continue
		}
		log.Info("rebuilt", zap.Int64("stock_id", d.StockID), zap.Bool("fixed", fixed))
	}
	return len(rep.Drifts), nil
}

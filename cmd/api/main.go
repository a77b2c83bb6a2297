package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"stockledger/internal/config"
	"stockledger/internal/handler"
	"stockledger/internal/infra/db"
	infraRepo "stockledger/internal/infra/repository"
	"stockledger/internal/lock"
	"stockledger/internal/logger"
	"stockledger/internal/server"
	"stockledger/internal/usecase"
	auth "stockledger/internal/usecase/auth_usecase"

	"go.uber.org/zap"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続（プールは1つだけ作って各Repositoryへ渡す）
	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gormDB) }()
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	locker, closeLocker, err := lock.FromConfig(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeLocker() }()

	//Repository
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	marketplaceRepo := infraRepo.NewMarketplaceGormRepository(gormDB)
	stockRepo := infraRepo.NewStockGormRepository(gormDB)
	txRepo := infraRepo.NewTransactionGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	clock := usecase.SystemClock{}

	//管理者ログイン
	hash, err := auth.ResolveAdminPasswordHash(cfg.Auth.AdminPasswordHash, cfg.Auth.AdminPassword, auth.NewBcryptPasswordHasher(0))
	if err != nil {
		return err
	}
	issuer := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	loginUC := auth.NewLoginUsecase(
		auth.Admin{Username: cfg.Auth.AdminUsername, PasswordHash: hash},
		auth.NewBcryptPasswordVerifier(),
		issuer,
		auth.UUIDGenerator{},
		clock,
	)

	//Usecase
	categoryUC := usecase.NewCategoryUsecase(categoryRepo, txManager, locker, clock, log)
	marketplaceUC := usecase.NewMarketplaceUsecase(marketplaceRepo, txManager, locker, clock, log)
	stockUC := usecase.NewStockUsecase(stockRepo, txManager, locker, clock, log)
	inventoryUC := usecase.NewInventoryUsecase(stockRepo, categoryRepo, txRepo, txManager, locker, clock, log)
	auditUC := usecase.NewAuditUsecase(auditRepo, log)

	e := server.New(
		server.Options{
			FEURL:          cfg.FEURL,
			LoginRateLimit: cfg.Auth.LoginRateLimit,
			TokenParser:    issuer,
			Logger:         log,
		},
		server.Handlers{
			Auth:        handler.NewAuthHandler(loginUC, cfg.IsProduction()),
			Health:      handler.NewHealthHandler(sqlDB),
			Category:    handler.NewCategoryHandler(categoryUC),
			Marketplace: handler.NewMarketplaceHandler(marketplaceUC),
			Stock:       handler.NewStockHandler(stockUC),
			Transaction: handler.NewTransactionHandler(inventoryUC),
			Report:      handler.NewReportHandler(inventoryUC),
			Audit:       handler.NewAuditHandler(auditUC),
		},
	)

	return server.Run(ctx, e, ":"+cfg.Port, log)
}

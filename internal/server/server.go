package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stockledger/internal/handler"
	"stockledger/internal/middleware"
	"stockledger/internal/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// main で組み立てたhandler一式
type Handlers struct {
	Auth        *handler.AuthHandler
	Health      *handler.HealthHandler
	Category    *handler.CategoryHandler
	Marketplace *handler.MarketplaceHandler
	Stock       *handler.StockHandler
	Transaction *handler.TransactionHandler
	Report      *handler.ReportHandler
	Audit       *handler.AuditHandler
}

type Options struct {
	FEURL          string
	LoginRateLimit float64 // 1秒あたり（IPごと）
	TokenParser    middleware.TokenParser
	Logger         *zap.Logger
}

// New はmiddlewareとルートを登録したechoを返す。
// /auth/* と /health 以外は認証必須。
func New(opts Options, h Handlers) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validator.New()

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(opts.Logger))
	if opts.FEURL != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{opts.FEURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	h.Health.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e.Group("/auth"), loginLimiter(opts.LoginRateLimit))

	api := e.Group("", middleware.RequireAuth(opts.TokenParser))
	h.Category.RegisterRoutes(api)
	h.Marketplace.RegisterRoutes(api)
	h.Stock.RegisterRoutes(api)
	h.Transaction.RegisterRoutes(api)
	h.Report.RegisterRoutes(api)
	h.Audit.RegisterRoutes(api)

	return e
}

// IPごとのトークンバケット。0以下なら制限しない
func loginLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return nil
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     5,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, handler.ErrorResponse{Error: "too many login attempts"})
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, handler.ErrorResponse{Error: "forbidden"})
		},
	})
}

// Run はctxがキャンセルされるまで待ち受け、その後10秒以内に止める。
func Run(ctx context.Context, e *echo.Echo, addr string, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

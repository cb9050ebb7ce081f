package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-flight-booking/internal/api"
	"github.com/sanosuguru/go-flight-booking/internal/api/handler"
	custommw "github.com/sanosuguru/go-flight-booking/internal/api/middleware"
	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/config"
	"github.com/sanosuguru/go-flight-booking/internal/infrastructure/gateway"
	"github.com/sanosuguru/go-flight-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-flight-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-flight-booking/internal/worker"
)

func main() {
	cfg := config.Load()

	// ロガー初期化
	logger.Set(logger.NewLogger(os.Getenv("APP_ENV")))
	defer logger.Sync()

	// メトリクス初期化
	m := metrics.Init()

	// PostgreSQL接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続に失敗", zap.Error(err))
	}
	defer db.Close()

	// マイグレーション実行
	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーションに失敗", zap.Error(err))
	}

	// Redis接続
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()
	{
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisinfra.Ping(ctx, redisClient); err != nil {
			logger.Fatal("Redis接続に失敗", zap.Error(err))
		}
		cancel()
	}
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	// リポジトリ
	flightRepo := postgres.NewFlightRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	insuranceRepo := postgres.NewInsuranceRepository(db)
	txManager := postgres.NewTxManager(db)

	// 決済署名検証
	if cfg.Payment.AllowSandbox {
		logger.Warn("サンドボックス決済が有効です。本番環境では PAYMENT_ALLOW_SANDBOX=false を設定してください")
	}
	verifier := gateway.NewHMACVerifier(&cfg.Payment)

	// サービス
	flightService := application.NewFlightService(flightRepo, availabilityCache)
	insuranceService := application.NewInsuranceService(insuranceRepo)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, flightRepo, insuranceRepo,
		verifier, nil, lockManager, availabilityCache,
	)

	// 保留予約クリーナー
	cleaner := worker.NewStaleBookingCleaner(bookingService, cfg.Worker.SweepInterval, cfg.Worker.PendingMaxAge)
	cleanerCtx, cleanerCancel := context.WithCancel(context.Background())
	go cleaner.Start(cleanerCtx)

	// Echoセットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	// ハンドラー
	healthHandler := handler.NewHealthHandler()
	flightHandler := handler.NewFlightHandler(flightService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	insuranceHandler := handler.NewInsuranceHandler(insuranceService)

	// ルーティング
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.POST("/flights", flightHandler.Create)
	v1.GET("/flights", flightHandler.List)
	v1.GET("/flights/:id", flightHandler.GetByID)
	v1.PUT("/flights/:id", flightHandler.Update)
	v1.GET("/flights/:id/availability", flightHandler.GetAvailability)

	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings", bookingHandler.GetUserBookings)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.PUT("/bookings/:id/payment", bookingHandler.ApplyPayment)
	v1.POST("/bookings/:id/refund", bookingHandler.Refund)

	v1.POST("/insurances", insuranceHandler.Create)
	v1.GET("/insurances", insuranceHandler.List)
	v1.GET("/insurances/:id", insuranceHandler.GetByID)

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("サーバー起動", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("シャットダウン開始")

	cleanerCancel()
	cleaner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

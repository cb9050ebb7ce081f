package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-flight-booking/internal/api"
	"github.com/sanosuguru/go-flight-booking/internal/api/handler"
	"github.com/sanosuguru/go-flight-booking/internal/api/middleware"
	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/config"
	"github.com/sanosuguru/go-flight-booking/internal/infrastructure/gateway"
	"github.com/sanosuguru/go-flight-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-flight-booking/internal/infrastructure/redis"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

var (
	testServer  *TestServer
	testDB      *sqlx.DB
	redisClient *redis.Client
)

// TestMain はE2Eテストのエントリポイント
// パッケージ全体で1回だけサーバーを組み立てることで高速化
func TestMain(m *testing.M) {
	cfg := config.Load()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		os.Exit(0) // DB未起動時はスキップ
	}
	testDB = db

	if err := postgres.RunMigrations(db.DB, "../migrations"); err != nil {
		db.Close()
		os.Exit(0)
	}

	// Redis接続
	rc := redisinfra.NewClient(&cfg.Redis)
	{
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := redisinfra.Ping(ctx, rc)
		cancel()
		if err != nil {
			db.Close()
			os.Exit(0) // Redis未起動時はスキップ
		}
	}
	redisClient = rc

	// サービス初期化
	lockManager := redisinfra.NewLockManager(redisClient)
	availabilityCache := redisinfra.NewAvailabilityCache(redisClient)

	flightRepo := postgres.NewFlightRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	insuranceRepo := postgres.NewInsuranceRepository(db)
	txManager := postgres.NewTxManager(db)

	verifier := gateway.NewHMACVerifier(&config.PaymentConfig{
		Secret: "e2e-secret", AllowSandbox: true, SandboxPrefix: "pay_",
	})

	flightService := application.NewFlightService(flightRepo, availabilityCache)
	insuranceService := application.NewInsuranceService(insuranceRepo)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, flightRepo, insuranceRepo,
		verifier, nil, lockManager, availabilityCache,
	)

	flightHandler := handler.NewFlightHandler(flightService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	insuranceHandler := handler.NewInsuranceHandler(insuranceService)
	healthHandler := handler.NewHealthHandler()

	// Echo セットアップ
	e := echo.New()
	e.Validator = api.NewValidator()
	middleware.SetupMiddleware(e)

	e.GET("/health", healthHandler.Check)

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

	testServer = &TestServer{Echo: e}

	// テスト実行
	code := m.Run()

	// 最終クリーンアップ
	cleanupTables()
	redisClient.Close()
	db.Close()

	os.Exit(code)
}

// cleanupTables はテーブルをクリーンアップ
func cleanupTables() {
	testDB.Exec("TRUNCATE TABLE bookings, insurances, flights RESTART IDENTITY CASCADE")
	redisClient.FlushDB(context.Background())
}

// getTestServer は共有サーバーを取得（テスト前にテーブルをクリーンアップ）
func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	cleanupTables()
	return testServer
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

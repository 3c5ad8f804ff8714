package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"rtc-api/internal/config"
	"rtc-api/internal/payment"
	"rtc-api/internal/payment/entities"
	paymenthandlers "rtc-api/internal/payment/handlers"
	"rtc-api/internal/simulation"
	"rtc-api/internal/stock"
	stockhandlers "rtc-api/internal/stock/handlers"
)

func main() {
	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	repo, err := newRepository(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	clock := simulation.RealClock{}
	rnd := simulation.RealRand{}

	service := payment.NewPaymentService(repo, clock)
	engine := payment.NewEngine(service, clock, rnd, cfg.Payment.StageDwell, cfg.Payment.FailureRate, slog.Default().Handler())
	stocks := stock.NewRepository(rnd, clock)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc:  func(string) (bool, error) { return true, nil },
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Cache-Control"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	stocksHandler := stockhandlers.NewGetStocksHandler(stocks)
	e.GET("/api/polling/stock", stocksHandler.Handle)
	e.GET("/api/polling/stock/:symbol", stocksHandler.HandleBySymbol)

	createPixPayment := paymenthandlers.NewCreatePaymentHandler(service, entities.TypeSSEPix, "pixKey")
	streamPayment := paymenthandlers.NewStreamPaymentHandler(service, engine)
	e.POST("/api/sse/payment", createPixPayment.Handle)
	e.GET("/api/sse/payment/:id/stream", streamPayment.Handle)

	createCardPayment := paymenthandlers.NewCreatePaymentHandler(service, entities.TypeWebsocketOTP, "cardNumber")
	paymentSocket := paymenthandlers.NewPaymentSocketHandler(engine)
	e.POST("/api/websocket/payment", createCardPayment.Handle)
	e.GET("/api/websocket/payment/:id", paymentSocket.Handle)

	go func() {
		slog.Info("server started", "port", cfg.App.Port)
		if err := e.Start(cfg.App.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e.Shutdown(shutdownCtx)
}

func newRepository(ctx context.Context, cfg *config.Config) (payment.Repository, error) {
	switch cfg.Storage.Backend {
	case "redis":
		return payment.NewPaymentRedisRepository(cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB), nil
	case "sqlite":
		return payment.NewSQLiteRepository(cfg.Storage.SQLitePath)
	case "postgres":
		return payment.NewPaymentPostgresRepository(ctx, cfg.Storage.ConnString)
	default:
		return payment.NewInMemoryRepository(), nil
	}
}

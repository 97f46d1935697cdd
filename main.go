package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prasetyo/car-rental-service/config"
	"github.com/prasetyo/car-rental-service/internal/gateway"
	"github.com/prasetyo/car-rental-service/internal/handler"
	"github.com/prasetyo/car-rental-service/internal/hold"
	"github.com/prasetyo/car-rental-service/internal/middleware"
	"github.com/prasetyo/car-rental-service/internal/repository"
	"github.com/prasetyo/car-rental-service/internal/service"
	"github.com/prasetyo/car-rental-service/internal/worker"
	"github.com/prasetyo/car-rental-service/pkg/database"
	"github.com/prasetyo/car-rental-service/pkg/rabbitmq"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.NewPostgresDB(cfg.DSN())

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer publisher.Close()

	stripeGW := gateway.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	holder := hold.NewRedisHolder(rdb)

	// Repositories
	carRepo := repository.NewCarRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// Services
	bookingSvc := service.NewBookingService(bookingRepo, carRepo, paymentRepo, holder, publisher, cfg.TaxRate, cfg.CheckoutTTL)
	carSvc := service.NewCarService(carRepo, bookingRepo)
	checkoutSvc := service.NewCheckoutService(bookingRepo, paymentRepo, stripeGW,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.CheckoutTTL, cfg.GatewayTimeout)
	reconciler := service.NewReconcileService(bookingRepo, paymentRepo, holder, publisher)

	// Background sweep for stale pending bookings
	go worker.RunExpirySweep(ctx, bookingSvc, cfg.SweepInterval, cfg.CheckoutTTL)

	// Echo
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok", "service": "car-rental-service"})
	})

	handler.NewCarHandler(carSvc, bookingSvc).RegisterRoutes(e.Group("/api/v1/cars"))
	handler.NewWebhookHandler(stripeGW, reconciler).RegisterRoutes(e)

	auth := e.Group("/api/v1/bookings", middleware.JWTAuth(cfg.JWTSecret))
	handler.NewBookingHandler(bookingSvc, checkoutSvc).RegisterRoutes(auth)

	admin := e.Group("/api/v1/admin", middleware.JWTAuth(cfg.JWTSecret), middleware.RequireAdmin())
	handler.NewAdminHandler(bookingSvc, carSvc).RegisterRoutes(admin)

	go func() {
		log.Printf("Car Rental Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

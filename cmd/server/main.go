package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reservation-service/config"
	"reservation-service/internal/api"
	"reservation-service/internal/broker"
	"reservation-service/internal/notify"
	"reservation-service/internal/redisclient"
	"reservation-service/internal/service"
	"reservation-service/internal/store"
	"reservation-service/internal/util"
	"reservation-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting reservation service")

	tp, err := util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	// Redis backs idempotency and job leases only; reservations work without it
	var idempotency service.IdempotencyStore
	var lease worker.LeaseFunc
	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Redis unavailable, running without idempotency and job leases", zap.Error(err))
	} else {
		defer redisClient.Close()
		idempotency = redisClient
		lease = worker.RedisLease(redisClient)
		logger.Info("Redis connected")
	}

	bookingProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicBooking)
	defer bookingProducer.Close()
	eventPublisher := broker.NewEventPublisher(bookingProducer)

	var notifier service.Notifier = notify.NewLogNotifier()
	if cfg.Kafka.TopicNotifications != "" {
		notificationProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
		defer notificationProducer.Close()
		notifier = notify.NewKafkaNotifier(notificationProducer)
	}
	logger.Info("Kafka producers initialized")

	idempotencyTTL := time.Duration(cfg.Reservation.IdempotencyTTLSeconds) * time.Second
	roomService := service.NewRoomBookingService(db, eventPublisher, idempotency, idempotencyTTL)
	ticketService := service.NewTicketBookingService(db, eventPublisher, idempotency, idempotencyTTL,
		service.WithReleasedCancelledSeats(cfg.Reservation.ReleaseCancelledSeats))
	paymentService := service.NewPaymentService(db)
	expiryService := service.NewExpiryService(db, notifier, eventPublisher, service.ExpiryPolicy{
		HotelCancelAfterDays:  cfg.Expiry.HotelCancelAfterDays,
		HotelRemindBeforeDays: cfg.Expiry.HotelRemindBeforeDays,
		TicketExpirationDays:  cfg.Expiry.TicketExpirationDays,
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	paymentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPayment, cfg.Kafka.ConsumerGroup)
	paymentWorker := worker.NewPaymentWorker(paymentConsumer, paymentService)
	go func() {
		if err := paymentWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Payment worker error", zap.Error(err))
		}
	}()

	scheduler := worker.NewExpiryScheduler(expiryService, lease, cfg.Expiry.Cron,
		time.Duration(cfg.Expiry.LeaseSeconds)*time.Second)
	if err := scheduler.Start(workerCtx); err != nil {
		logger.Fatal("Failed to start expiry scheduler", zap.Error(err))
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(roomService, ticketService, paymentService, db)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	scheduler.Stop()
	workerCancel()
	if err := paymentWorker.Stop(); err != nil {
		logger.Error("Error stopping payment worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

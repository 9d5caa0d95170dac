package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments"
	"github.com/salonos/payments/internal/payments/handler"
	"github.com/salonos/payments/internal/payments/repository"
	"github.com/salonos/payments/internal/stripeconnect"
	tenantrepo "github.com/salonos/payments/internal/tenant/repository"
	"github.com/salonos/payments/internal/webhook"
	"github.com/salonos/payments/kafka"
	"github.com/salonos/payments/pkg/database"
	"github.com/salonos/payments/pkg/logger"
	"github.com/salonos/payments/pkg/tracing"
)

func main() {
	// Initialize logger
	serviceName := getEnv("OTEL_SERVICE_NAME", "payments-service")
	isDevelopment := getEnv("ENVIRONMENT", "development") == "development"
	logger.Init(serviceName, isDevelopment)

	logLevel := getEnv("LOG_LEVEL", "info")
	logger.SetLevel(logLevel)

	logger.Logger.Info().
		Str("service", serviceName).
		Str("environment", getEnv("ENVIRONMENT", "development")).
		Str("log_level", logLevel).
		Msg("Starting payments service")

	// Initialize tracer
	tp, err := tracing.InitTracer(serviceName)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to initialize tracer")
	} else {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracing.Shutdown(ctx, tp); err != nil {
				logger.Logger.Error().Err(err).Msg("Failed to shutdown tracer")
			}
		}()
	}

	// Connect to database
	dbConfig := database.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "salondb"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	db, err := database.NewGormConnection(dbConfig)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to get database instance")
	}
	defer sqlDB.Close()

	// Run migrations
	if err := repository.NewGormPaymentRepository(db).AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run payment migrations")
	}
	tenantRepository := tenantrepo.NewGormTenantRepository(db)
	if err := tenantRepository.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run tenant migrations")
	}
	logStore := paymentlog.NewGormStore(db)
	if err := logStore.AutoMigrate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run payment log migrations")
	}

	logger.Logger.Info().Msg("Database initialized successfully")

	// Payment event log: bounded in-memory buffer over a durable store
	paymentLog := paymentlog.New(paymentlog.DefaultCapacity, logStore)

	// Redis for dashboard caching; the service runs without it
	var redisClient *redis.Client
	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       0,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Logger.Warn().Err(err).Msg("Redis unavailable, dashboard caching disabled")
			redisClient = nil
		}
	}

	// Kafka publisher and log-ingestion consumer, optional
	var publisher *kafka.Publisher
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		brokerList := strings.Split(brokers, ",")
		publisher, err = kafka.NewPublisher(brokerList)
		if err != nil {
			logger.Logger.Warn().Err(err).Msg("Kafka unavailable, event publishing disabled")
			publisher = nil
		} else {
			defer publisher.Close()
		}

		startEventConsumer(brokerList, paymentLog)
	}

	// Stripe Connect adapter
	stripeCfg := stripeconnect.DefaultConfig(
		getEnv("STRIPE_CLIENT_ID", ""),
		getEnv("STRIPE_REDIRECT_URL", "http://localhost:8083/api/stripe/callback"),
	)
	if pct := getEnv("STRIPE_APPLICATION_FEE_PCT", ""); pct != "" {
		if parsed, err := decimal.NewFromString(pct); err == nil {
			stripeCfg.ApplicationFeePct = parsed
		}
	}
	stripeClient := stripeconnect.NewLiveClient(getEnv("STRIPE_SECRET_KEY", ""))

	// Initialize handler with Wire DI
	paymentHandler, err := payments.InitializeHandler(db, stripeCfg, stripeClient, paymentLog, redisClient, publisher)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to initialize handler")
	}

	// Stripe webhook receiver, signature-verified before any parsing
	webhookHandler := webhook.NewHandler(
		getEnv("STRIPE_WEBHOOK_SECRET", ""),
		repository.NewGormPaymentRepositoryWithTracing(db),
		tenantRepository,
		paymentLog,
	)

	httpPort := getEnv("HTTP_PORT", "8083")
	startHTTPServer(paymentHandler, webhookHandler, sqlDB, httpPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info().Msg("Shutting down server...")
}

// startEventConsumer ingests published payment events back into the
// payment log so instances see activity from the whole fleet
func startEventConsumer(brokers []string, paymentLog *paymentlog.Log) {
	consumer, err := kafka.NewConsumer(brokers, "payments-monitoring")
	if err != nil {
		logger.Logger.Warn().Err(err).Msg("Kafka consumer unavailable, cross-instance log ingestion disabled")
		return
	}

	ingest := func(category paymentlog.Category, level paymentlog.Level, message string) kafka.EventHandler {
		return func(ctx context.Context, event kafka.PaymentEvent) error {
			paymentID := event.PaymentID
			paymentLog.Append(ctx, paymentlog.Entry{
				TenantID:  event.TenantID,
				Level:     level,
				Category:  category,
				Message:   message,
				PaymentID: &paymentID,
				OrderID:   event.OrderID,
				Amount:    &event.Amount,
				ErrorCode: event.ErrorCode,
			})
			return nil
		}
	}

	consumer.RegisterHandler(kafka.EventTypePaymentCompleted,
		ingest(paymentlog.CategoryPaymentCompleted, paymentlog.LevelInfo, "payment completed (event)"))
	consumer.RegisterHandler(kafka.EventTypePaymentFailed,
		ingest(paymentlog.CategoryPaymentFailed, paymentlog.LevelError, "payment failed (event)"))
	consumer.RegisterHandler(kafka.EventTypePaymentRefunded,
		ingest(paymentlog.CategoryPaymentRefunded, paymentlog.LevelInfo, "payment refunded (event)"))

	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			logger.Logger.Error().Err(err).Msg("Kafka consumer stopped")
		}
	}()
}

func startHTTPServer(paymentHandler *handler.PaymentHandler, webhookHandler *webhook.Handler, db *sql.DB, port string) {
	router := mux.NewRouter()

	handler.RegisterMiddlewares(router)
	paymentHandler.RegisterRoutes(router)
	paymentHandler.RegisterHealthCheck(router, db)

	// Webhooks bypass auth; Stripe signs every delivery
	router.Handle("/webhooks/stripe", webhookHandler).Methods("POST")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	logger.Logger.Info().
		Str("port", port).
		Str("metrics_endpoint", "/metrics").
		Msg("HTTP server started")

	go func() {
		if err := http.ListenAndServe(":"+port, c.Handler(router)); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to start HTTP server")
		}
	}()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/auth"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/config"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/handler"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/infrastructure"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/logging"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/server"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/usecase"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/worker"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.ServiceName)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET не задан")
	}

	tracerCleanup := tracing.InitTracer(
		tracing.TraceConfig{ExporterURL: cfg.ExporterURL, SampleRate: 1.0, Timeout: 5 * time.Second},
		tracing.AppInfo{
			Environment:       cfg.Environment,
			DomainName:        cfg.DomainName,
			ServiceName:       cfg.ServiceName,
			ServiceVersion:    cfg.ServiceVersion,
			ServiceInstanceID: cfg.ServiceInstanceID,
		},
	)
	defer tracerCleanup()

	c, err := worker.Dial(cfg.Temporal, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка подключения к Temporal")
	}
	defer c.Close()

	m := metrics.New()
	tokens := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTExpiry)

	var dedup usecase.Deduplicator
	if cfg.RedisAddr != "" {
		redisDedup := infrastructure.NewRedisDeduplicator(cfg.RedisAddr, cfg.WebhookDedupTTL)
		defer redisDedup.Close()
		dedup = redisDedup
	}

	authUC := usecase.NewAuthUseCase(c, cfg.Temporal.TaskQueue, tokens, m, logger)
	orderUC := usecase.NewOrderUseCase(c, cfg.Temporal.TaskQueue, cfg.OrderWorkflowTTL, m, logger)
	paymentUC := usecase.NewPaymentUseCase(c, infrastructure.NewStripeWebhookParser(cfg.Stripe.WebhookSecret), dedup, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.PaymentEventTopic != "" {
		consumer, err := infrastructure.NewPaymentEventConsumer(cfg.Kafka.Brokers, cfg.Kafka.PaymentEventTopic, cfg.Kafka.ConsumerGroup, paymentUC, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Не удалось создать Kafka-консьюмер")
		}
		defer consumer.Close()
		go consumer.Run(ctx)
	}

	router := handler.NewRouter(
		handler.NewAuthHandler(authUC, logger),
		handler.NewOrderHandler(orderUC, paymentUC, logger),
		tokens,
		m.Handler(),
		logger,
	)
	srv := server.New(cfg.ListenAddress, router)

	go func() {
		logger.Info().Str("address", cfg.ListenAddress).Msgf("Service %s.%s started", cfg.DomainName, cfg.ServiceName)
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Ошибка HTTP-сервера")
		}
	}()

	gracefulShutdown(srv, cancel, logger)
}

// gracefulShutdown останавливает сервер и фоновые обработчики по сигналу
func gracefulShutdown(srv *server.Server, cancel context.CancelFunc, logger zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("Завершаем работу...")
	cancel()

	ctx, stopTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopTimeout()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Сервер остановлен принудительно")
		return
	}
	logger.Info().Msg("Server stopped gracefully")
}

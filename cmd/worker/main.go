package main

import (
	"context"
	"os"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/auth"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/config"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/infrastructure"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/logging"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/worker"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"

	sdkworker "go.temporal.io/sdk/worker"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.ServiceName+"-worker")

	tracerCleanup := tracing.InitTracer(
		tracing.TraceConfig{ExporterURL: cfg.ExporterURL, SampleRate: 1.0, Timeout: 5 * time.Second},
		tracing.AppInfo{
			Environment:       cfg.Environment,
			DomainName:        cfg.DomainName,
			ServiceName:       cfg.ServiceName + "-worker",
			ServiceVersion:    cfg.ServiceVersion,
			ServiceInstanceID: cfg.ServiceInstanceID,
		},
	)
	defer tracerCleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := infrastructure.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Не удалось подключиться к Postgres")
	}
	defer store.Close()

	mailer, err := infrastructure.NewKafkaLoginMailer(cfg.Kafka.Brokers, cfg.Kafka.LoginEmailTopic, cfg.ServiceInstanceID, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Не удалось создать Kafka-продюсер")
	}
	defer mailer.Close()
	if err := mailer.EnsureTopicExists(ctx); err != nil {
		logger.Warn().Err(err).Str("topic", cfg.Kafka.LoginEmailTopic).Msg("Не удалось проверить топик писем")
	}

	c, err := worker.Dial(cfg.Temporal, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Ошибка подключения к Temporal")
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, &workflows.Activities{
		Mailer:   mailer,
		Hasher:   auth.BcryptHasher{Cost: cfg.Auth.BcryptCost},
		Users:    store,
		Orders:   store,
		Payments: store,
		Provider: infrastructure.NewStripeProvider(cfg.Stripe.SecretKey),
	})

	logger.Info().Str("taskQueue", cfg.Temporal.TaskQueue).Msg("Воркер запущен")
	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		logger.Fatal().Err(err).Msg("Ошибка работы воркера")
	}
	logger.Info().Msg("Воркер остановлен")
}

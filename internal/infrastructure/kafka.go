package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// loginEmailMessage заявка сервису уведомлений на письмо с кодом входа
type loginEmailMessage struct {
	MessageID string `json:"messageId"`
	Template  string `json:"template"`
	workflows.LoginEmail
}

// KafkaLoginMailer публикует письма со входом в топик сервиса уведомлений
type KafkaLoginMailer struct {
	client   *kgo.Client
	producer producer
	admin    *kadm.Client
	topic    string
	logger   zerolog.Logger
}

func NewKafkaLoginMailer(brokers []string, topic, clientID string, logger zerolog.Logger) (*KafkaLoginMailer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ClientID(clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("инициализация Kafka-клиента: %w", err)
	}

	m := &KafkaLoginMailer{
		client:   client,
		producer: client,
		admin:    kadm.NewClient(client),
		topic:    topic,
		logger:   logger.With().Str("topic", topic).Logger(),
	}
	if err := m.EnsureTopicExists(context.Background()); err != nil {
		client.Close()
		return nil, err
	}
	return m, nil
}

// EnsureTopicExists создает топик, если его нет
func (m *KafkaLoginMailer) EnsureTopicExists(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	ctx, span := tracing.StartInfrastructure(ctx, "EnsureTopicExists", tracing.SubLayerBroker)
	defer span.End()

	topics, err := m.admin.ListTopics(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("получение списка топиков: %w", mapKafkaError(err))
	}
	if topics.Has(m.topic) {
		span.SetAttributes(attribute.Bool("topic.exists", true))
		return nil
	}

	minISR := "1"
	_, err = m.admin.CreateTopics(ctx, 1, 1, map[string]*string{"min.insync.replicas": &minISR}, m.topic)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("создание топика %s: %w", m.topic, mapKafkaError(err))
	}
	span.SetAttributes(attribute.Bool("topic.created", true))
	m.logger.Info().Msg("Топик создан")
	return nil
}

// SendLoginEmail публикует заявку на письмо. Ключ сообщения: email,
// чтобы письма одному адресату шли по порядку.
func (m *KafkaLoginMailer) SendLoginEmail(ctx context.Context, email workflows.LoginEmail) error {
	ctx, span := tracing.StartInfrastructure(ctx, "PublishLoginEmail", tracing.SubLayerBroker)
	defer span.End()

	data, err := json.Marshal(loginEmailMessage{
		MessageID:  uuid.NewString(),
		Template:   "login-code",
		LoginEmail: email,
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	record := &kgo.Record{
		Topic:   m.topic,
		Key:     []byte(email.Email),
		Value:   data,
		Headers: tracing.InjectTraceContextToKafka(ctx),
	}
	if err := m.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("публикация письма: %w", mapKafkaError(err))
	}

	span.SetAttributes(attribute.String("kafka.topic", m.topic))
	m.logger.Debug().Str("email", email.Email).Msg("Письмо со входом отправлено в Kafka")
	return nil
}

func (m *KafkaLoginMailer) Close() {
	m.client.Close()
}

// mapKafkaError приводит отказ в доступе к domain.ErrUnauthorized: такие ошибки повторять бесполезно
func mapKafkaError(err error) error {
	if errors.Is(err, kerr.TopicAuthorizationFailed) ||
		errors.Is(err, kerr.ClusterAuthorizationFailed) ||
		errors.Is(err, kerr.SaslAuthenticationFailed) {
		return fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return err
}

// PaymentEventHandler доставляет событие платежа в процесс заказа
type PaymentEventHandler interface {
	DeliverPaymentEvent(ctx context.Context, event domain.PaymentWebhookEvent) error
}

// PaymentEventConsumer читает события платежного провайдера, пересланные через Kafka
type PaymentEventConsumer struct {
	client  *kgo.Client
	handler PaymentEventHandler
	logger  zerolog.Logger
}

func NewPaymentEventConsumer(brokers []string, topic, group string, handler PaymentEventHandler, logger zerolog.Logger) (*PaymentEventConsumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("инициализация Kafka-консьюмера: %w", err)
	}
	return &PaymentEventConsumer{
		client:  client,
		handler: handler,
		logger:  logger.With().Str("topic", topic).Str("group", group).Logger(),
	}, nil
}

// Run читает топик до отмены ctx. Смещения фиксируются после обработки пачки.
func (c *PaymentEventConsumer) Run(ctx context.Context) {
	c.logger.Info().Msg("Чтение событий платежей запущено")
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.logger.Info().Msg("Чтение событий платежей остановлено")
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("Ошибка чтения Kafka")
		})

		fetches.EachRecord(func(record *kgo.Record) {
			if err := c.handleRecord(ctx, record); err != nil {
				c.logger.Error().Err(err).Int64("offset", record.Offset).Msg("Ошибка обработки события платежа")
			}
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error().Err(err).Msg("Не удалось зафиксировать смещения")
		}
		c.client.AllowRebalance()
	}
}

func (c *PaymentEventConsumer) handleRecord(ctx context.Context, record *kgo.Record) error {
	links := tracing.ExtractTraceContextFromKafka(ctx, record.Headers)
	ctx, span := tracing.StartInfrastructure(ctx, "ConsumePaymentEvent", tracing.SubLayerBroker, trace.WithLinks(links...))
	defer span.End()

	var event domain.PaymentWebhookEvent
	if err := json.Unmarshal(record.Value, &event); err != nil {
		span.RecordError(err)
		// Битое сообщение повторно не читаем
		c.logger.Warn().Err(err).Int64("offset", record.Offset).Msg("Некорректное событие платежа пропущено")
		return nil
	}
	span.SetAttributes(tracing.PaymentEventAttributes(event)...)

	if err := c.handler.DeliverPaymentEvent(ctx, event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("событие %s: %w", event.ID, err)
	}
	return nil
}

func (c *PaymentEventConsumer) Close() {
	c.client.Close()
}

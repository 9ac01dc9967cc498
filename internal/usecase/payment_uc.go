package usecase

import (
	"context"
	"fmt"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/metrics"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/internal/workflows"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type WebhookParser interface {
	Parse(payload []byte, signature string) (domain.PaymentWebhookEvent, error)
}

// Deduplicator отмечает принятые события. Forget снимает отметку,
// если событие не удалось доставить.
type Deduplicator interface {
	MarkSeen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// PaymentUseCase доставляет события платежного провайдера в процессы заказов
type PaymentUseCase struct {
	client  WorkflowClient
	parser  WebhookParser
	dedup   Deduplicator
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewPaymentUseCase создает фасад вебхуков. dedup может быть nil.
func NewPaymentUseCase(c WorkflowClient, parser WebhookParser, dedup Deduplicator, m *metrics.Metrics, logger zerolog.Logger) *PaymentUseCase {
	return &PaymentUseCase{
		client:  c,
		parser:  parser,
		dedup:   dedup,
		metrics: m,
		logger:  logger.With().Str("component", "payments").Logger(),
	}
}

// HandleWebhook проверяет подпись и доставляет событие. События без нужных
// метаданных и повторы принимаются и отбрасываются.
func (uc *PaymentUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ctx, span := tracing.StartIntegration(ctx, "HandlePaymentWebhook", tracing.SubLayerWebhook)
	defer span.End()

	event, err := uc.parser.Parse(payload, signature)
	if err != nil {
		span.RecordError(err)
		uc.metrics.WebhookRecorded("unknown", "rejected")
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	span.SetAttributes(tracing.PaymentEventAttributes(event)...)

	if !event.Routable() {
		uc.metrics.WebhookRecorded(event.Type, "dropped")
		uc.logger.Debug().Str("eventID", event.ID).Str("eventType", event.Type).Msg("Событие без метаданных заказа отброшено")
		return nil
	}

	if uc.dedup != nil {
		first, err := uc.dedup.MarkSeen(ctx, event.ID)
		if err != nil {
			// без хранилища отметок доставляем как есть: процесс переживет повтор
			uc.logger.Warn().Err(err).Str("eventID", event.ID).Msg("Проверка повтора недоступна")
		} else if !first {
			uc.metrics.WebhookRecorded(event.Type, "duplicate")
			return nil
		}
	}

	if err := uc.DeliverPaymentEvent(ctx, event); err != nil {
		span.RecordError(err)
		if uc.dedup != nil {
			if ferr := uc.dedup.Forget(ctx, event.ID); ferr != nil {
				uc.logger.Error().Err(ferr).Str("eventID", event.ID).Msg("Не удалось снять отметку события")
			}
		}
		return err
	}
	return nil
}

// DeliverPaymentEvent отправляет событие сигналом в процесс заказа по referenceId.
// Если процесса нет, событие отбрасывается.
func (uc *PaymentUseCase) DeliverPaymentEvent(ctx context.Context, event domain.PaymentWebhookEvent) error {
	ctx, span := tracing.StartApplication(ctx, "DeliverPaymentEvent", trace.WithAttributes(tracing.PaymentEventAttributes(event)...))
	defer span.End()

	if !event.Routable() {
		uc.metrics.WebhookRecorded(event.Type, "dropped")
		return nil
	}

	ref := event.Data.Metadata.ReferenceID
	err := uc.client.SignalWorkflow(ctx, workflows.OrderWorkflowID(ref), "", workflows.SignalPaymentWebhookEvent, event)
	if isNotFound(err) {
		uc.metrics.WebhookRecorded(event.Type, "no_workflow")
		uc.logger.Warn().Str("eventID", event.ID).Str("referenceID", ref).Msg("Нет активного процесса заказа, событие отброшено")
		return nil
	}
	if err != nil {
		span.RecordError(err)
		uc.metrics.WebhookRecorded(event.Type, "error")
		return fmt.Errorf("сигнал заказу %s: %w", ref, err)
	}

	uc.metrics.WebhookRecorded(event.Type, "delivered")
	uc.logger.Info().Str("eventID", event.ID).Str("eventType", event.Type).Str("referenceID", ref).Msg("Событие платежа доставлено")
	return nil
}

package tracing

import (
	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/domain"
	"go.opentelemetry.io/otel/attribute"
)

// OrderAttributes формирует список атрибутов заказа для OpenTelemetry
func OrderAttributes(order domain.CreateOrder) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("order.reference_id", order.ReferenceID),
		attribute.Int("order.items", len(order.Items)),
	}
	var quantity int64
	for _, item := range order.Items {
		quantity += item.Quantity
	}
	return append(attrs, attribute.Int64("order.quantity", quantity))
}

// PaymentEventAttributes атрибуты события платежного провайдера
func PaymentEventAttributes(event domain.PaymentWebhookEvent) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("payment.event.id", event.ID),
		attribute.String("payment.event.type", event.Type),
		attribute.String("payment.provider", event.Provider),
		attribute.String("order.reference_id", event.Data.Metadata.ReferenceID),
	}
}

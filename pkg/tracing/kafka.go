package tracing

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var kafkaPropagator = propagation.TraceContext{}

// recordHeaders адаптирует заголовки записи Kafka к propagation.TextMapCarrier
type recordHeaders struct {
	headers *[]kgo.RecordHeader
}

func (c recordHeaders) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c recordHeaders) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c recordHeaders) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// InjectTraceContextToKafka добавляет `traceparent` в заголовки Kafka
func InjectTraceContextToKafka(ctx context.Context) []kgo.RecordHeader {
	headers := []kgo.RecordHeader{}
	kafkaPropagator.Inject(ctx, recordHeaders{headers: &headers})
	return headers
}

// ExtractTraceContextFromKafka извлекает `traceparent` из заголовков Kafka и создаёт `Link` (Consumer)
func ExtractTraceContextFromKafka(ctx context.Context, headers []kgo.RecordHeader) []trace.Link {
	parentCtx := kafkaPropagator.Extract(ctx, recordHeaders{headers: &headers})
	parentSpanCtx := trace.SpanContextFromContext(parentCtx)
	if !parentSpanCtx.IsValid() {
		return nil
	}

	return []trace.Link{{
		SpanContext: parentSpanCtx,
		Attributes: []attribute.KeyValue{
			attribute.String("link.type", "async"),
			attribute.String("link.protocol", "kafka"),
			attribute.String("link.role", "consumer"),
		},
	}}
}

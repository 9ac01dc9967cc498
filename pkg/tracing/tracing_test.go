package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestValidateLayerSubLayer(t *testing.T) {
	require.NoError(t, validateLayerSubLayer(LayerInfrastructure, SubLayerDatabase))
	require.NoError(t, validateLayerSubLayer(LayerIntegration, SubLayerWorkflow))
	require.Error(t, validateLayerSubLayer(LayerApplication, SubLayerDatabase))
	require.Error(t, validateLayerSubLayer(Layer("storage"), SubLayerDatabase))
}

func TestGenerateSpanName(t *testing.T) {
	require.Equal(t, "Business CreateOrder", generateSpanName("CreateOrder", LayerApplication, SubLayerUseCase))
	require.Equal(t, "SQL GetOrder", generateSpanName("GetOrder", LayerInfrastructure, SubLayerDatabase))
	require.Equal(t, "Kafka Publish", generateSpanName("Publish", LayerInfrastructure, SubLayerBroker))
	require.Equal(t, "Webhook Receive", generateSpanName("Receive", LayerIntegration, SubLayerWebhook))
	require.Equal(t, "Handle", generateSpanName("Handle", LayerPresentation, SubLayerHTTP))
}

func TestKafkaTraceContextRoundTrip(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	headers := InjectTraceContextToKafka(ctx)
	require.Len(t, headers, 1)
	require.Equal(t, "traceparent", headers[0].Key)

	links := ExtractTraceContextFromKafka(context.Background(), headers)
	require.Len(t, links, 1)
	require.Equal(t, span.SpanContext().TraceID(), links[0].SpanContext.TraceID())

	require.Nil(t, ExtractTraceContextFromKafka(context.Background(), nil))
}

func TestRunRecordsError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	boom := errors.New("boom")
	err := Run(context.Background(), "GetOrder", LayerInfrastructure, SubLayerDatabase, func(ctx context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "SQL GetOrder", spans[0].Name())
	require.Len(t, spans[0].Events(), 1)

	err = Run(context.Background(), "GetOrder", LayerApplication, SubLayerDatabase, func(ctx context.Context) error { return nil })
	require.Error(t, err)
}

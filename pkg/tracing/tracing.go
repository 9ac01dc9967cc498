package tracing

import (
	"context"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Vasiliy82/ArchiScoper/retailer-checkout"

// tracer берется из глобального провайдера на каждый вызов, до InitTracer спаны уходят в noop
func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// InitTracer настраивает OpenTelemetry Tracer Provider.
// Без адреса экспортера остается noop-провайдер.
func InitTracer(cfg TraceConfig, app AppInfo) func() {
	if cfg.ExporterURL == "" {
		return func() {}
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.ExporterURL), otlptracehttp.WithInsecure()}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracehttp.WithTimeout(cfg.Timeout))
	}
	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		log.Fatalf("Ошибка инициализации OTLP экспортера: %v", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(app.ServiceName),
			semconv.ServiceVersion(app.ServiceVersion),
			semconv.ServiceNamespace(app.DomainName),
			semconv.ServiceInstanceID(app.ServiceInstanceID),
			semconv.DeploymentEnvironment(app.Environment),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	// Завершающий обработчик
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Printf("Ошибка при завершении TracerProvider: %v", err)
		}
	}
}

// WrapHTTPHandler оборачивает HTTP-хендлер в OpenTelemetry middleware
func WrapHTTPHandler(handler http.Handler) http.Handler {
	return otelhttp.NewHandler(handler, "http-server")
}

// StartApplication открывает спан бизнес-логики
func StartApplication(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return start(ctx, operation, LayerApplication, SubLayerUseCase, opts...)
}

// StartActivity открывает спан активности Temporal
func StartActivity(ctx context.Context, operation string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return start(ctx, operation, LayerApplication, SubLayerActivity, opts...)
}

// StartPresentation открывает спан входящего запроса
func StartPresentation(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return start(ctx, operation, LayerPresentation, subLayer, opts...)
}

// StartInfrastructure открывает спан обращения к БД, брокеру или кэшу
func StartInfrastructure(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return start(ctx, operation, LayerInfrastructure, subLayer, opts...)
}

// StartIntegration открывает спан вызова внешнего API
func StartIntegration(ctx context.Context, operation string, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return start(ctx, operation, LayerIntegration, subLayer, opts...)
}

func start(ctx context.Context, operation string, layer Layer, subLayer SubLayer, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if err := validateLayerSubLayer(layer, subLayer); err != nil {
		// некорректная пара слоев не должна ломать вызов, просто помечаем спан
		subLayer = SubLayer("invalid")
	}
	ctx, span := tracer().Start(ctx, generateSpanName(operation, layer, subLayer), opts...)
	span.SetAttributes(layerAttributes(layer, subLayer)...)
	return ctx, span
}

package tracing

import (
	"context"
	"fmt"
	"runtime"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Run выполняет fn внутри спана и записывает ошибку в спан
func Run(ctx context.Context, operation string, layer Layer, subLayer SubLayer, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	// Проверяем слои
	if err := validateLayerSubLayer(layer, subLayer); err != nil {
		return fmt.Errorf("tracing error: %w", err)
	}

	ctx, span := tracer().Start(ctx, generateSpanName(operation, layer, subLayer))
	defer span.End()

	spanAttrs := append(layerAttributes(layer, subLayer), attribute.String("function.name", getCallerFunctionName()))
	span.SetAttributes(append(spanAttrs, attrs...)...)

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func layerAttributes(layer Layer, subLayer SubLayer) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("layer", string(layer)),
		attribute.String("subLayer", string(subLayer)),
	}
}

// Получение имени вызывающей функции
func getCallerFunctionName() string {
	pc, _, _, ok := runtime.Caller(2) // 2 уровня вверх
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	return fn.Name()
}

// Формирование имени спана по шаблону
func generateSpanName(operation string, layer Layer, subLayer SubLayer) string {
	switch {
	case layer == LayerApplication:
		return fmt.Sprintf("Business %s", operation)
	case layer == LayerInfrastructure && subLayer == SubLayerDatabase:
		return fmt.Sprintf("SQL %s", operation)
	case layer == LayerInfrastructure && subLayer == SubLayerCache:
		return fmt.Sprintf("Cache %s", operation)
	case layer == LayerInfrastructure && subLayer == SubLayerBroker:
		return fmt.Sprintf("Kafka %s", operation)
	case layer == LayerIntegration && subLayer == SubLayerThirdParty:
		return fmt.Sprintf("External API %s", operation)
	case layer == LayerIntegration && subLayer == SubLayerWebhook:
		return fmt.Sprintf("Webhook %s", operation)
	}
	return operation
}

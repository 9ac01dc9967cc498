package tracing

import "fmt"

type Layer string
type SubLayer string

const (
	LayerApplication    Layer = "application"
	LayerPresentation   Layer = "presentation"
	LayerInfrastructure Layer = "infrastructure"
	LayerIntegration    Layer = "integration"
)

const (
	SubLayerUseCase   SubLayer = "usecase"
	SubLayerService   SubLayer = "service"
	SubLayerValidator SubLayer = "validator"
	SubLayerActivity  SubLayer = "activity"

	SubLayerDatabase SubLayer = "database"
	SubLayerBroker   SubLayer = "broker"
	SubLayerCache    SubLayer = "cache"
	SubLayerAuth     SubLayer = "auth"
	SubLayerMetrics  SubLayer = "metrics"

	SubLayerHTTP       SubLayer = "http"
	SubLayerGRPC       SubLayer = "grpc"
	SubLayerWebhook    SubLayer = "webhook"
	SubLayerThirdParty SubLayer = "thirdparty"
	SubLayerWorkflow   SubLayer = "workflow"
)

// Допустимые комбинации Layer -> SubLayer
var validSubLayers = map[Layer]map[SubLayer]struct{}{
	LayerApplication:    set(SubLayerUseCase, SubLayerService, SubLayerValidator, SubLayerActivity),
	LayerPresentation:   set(SubLayerHTTP, SubLayerGRPC, SubLayerBroker),
	LayerInfrastructure: set(SubLayerDatabase, SubLayerBroker, SubLayerCache, SubLayerAuth, SubLayerMetrics),
	LayerIntegration:    set(SubLayerHTTP, SubLayerGRPC, SubLayerWebhook, SubLayerThirdParty, SubLayerWorkflow),
}

func set(subLayers ...SubLayer) map[SubLayer]struct{} {
	m := make(map[SubLayer]struct{}, len(subLayers))
	for _, s := range subLayers {
		m[s] = struct{}{}
	}
	return m
}

func validateLayerSubLayer(layer Layer, subLayer SubLayer) error {
	allowed, exists := validSubLayers[layer]
	if !exists {
		return fmt.Errorf("unknown layer: %s", layer)
	}
	if _, ok := allowed[subLayer]; !ok {
		return fmt.Errorf("invalid sublayer %s for layer %s", subLayer, layer)
	}
	return nil
}

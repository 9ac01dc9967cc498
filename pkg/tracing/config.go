package tracing

import "time"

// TraceConfig параметры экспорта спанов. Пустой ExporterURL отключает экспорт.
type TraceConfig struct {
	ExporterURL string
	// SampleRate доля корневых трасс, попадающих в выборку, от 0 до 1
	SampleRate float64
	Timeout    time.Duration
}

// AppInfo описывает процесс в атрибутах ресурса: API и воркер различаются ServiceName
type AppInfo struct {
	Environment       string
	DomainName        string
	ServiceName       string
	ServiceVersion    string
	ServiceInstanceID string
}

// Package telemetry 提供 OpenTelemetry 链路导出
//
// 注册表为每次分发创建 eventbus.notify span；本包把这些 span 通过
// OTLP/HTTP 导出到采集端。未配置端点时返回不导出的 noop 提供者。
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dep2p/go-eventhub/pkg/lib/log"
)

var logger = log.Logger("telemetry")

// Config 链路导出配置
type Config struct {
	// Endpoint OTLP/HTTP 采集端地址（host:port），为空时禁用
	Endpoint string

	// ServiceName 上报的服务名
	ServiceName string

	// ServiceVersion 上报的服务版本
	ServiceVersion string

	// Insecure 使用 HTTP 而不是 HTTPS
	Insecure bool
}

// ShutdownFunc 刷新并关闭导出器
type ShutdownFunc func(ctx context.Context) error

// Init 按配置创建 TracerProvider
//
// 返回的 ShutdownFunc 总是非 nil。
func Init(ctx context.Context, cfg Config) (trace.TracerProvider, ShutdownFunc, error) {
	if cfg.Endpoint == "" {
		return noop.NewTracerProvider(), func(context.Context) error { return nil }, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "eventhub"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(2*time.Second)),
		sdktrace.WithResource(res),
	)
	logger.Info("链路导出已启用", "endpoint", cfg.Endpoint, "service", cfg.ServiceName)

	return tp, tp.Shutdown, nil
}

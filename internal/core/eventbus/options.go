package eventbus

import (
	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"
)

// Option 注册表选项
type Option func(*Registry)

// WithClock 设置时钟，用于按时间过期的订阅
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithFailureHandler 设置投递失败消费者
//
// 默认消费者以 Error 级别记录日志。
func WithFailureHandler(h FailureHandler) Option {
	return func(r *Registry) {
		if h != nil {
			r.onFailure = h
		}
	}
}

// WithMetrics 设置指标
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// WithTracerProvider 设置链路追踪提供者
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Registry) {
		if tp != nil {
			r.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRecentFailures 保留最近 n 个订阅的最后一次投递失败，0 表示关闭
func WithRecentFailures(n int) Option {
	return func(r *Registry) {
		r.recentSize = n
	}
}

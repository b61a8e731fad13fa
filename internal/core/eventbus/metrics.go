package eventbus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-eventhub/pkg/types"
)

// ============================================================================
// Metrics Prometheus 指标
// ============================================================================

const metricsNamespace = "eventhub"

// Metrics 注册表指标
//
// 所有方法对 nil 接收者安全，未启用指标时注册表持有 nil。
type Metrics struct {
	dispatches    *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	subscriptions *prometheus.GaugeVec
	injections    *prometheus.CounterVec
	expirations   *prometheus.CounterVec
}

// NewMetrics 创建指标并注册到 reg
//
// reg 为 nil 时只创建不注册，便于测试直接读取。
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "dispatches_total",
			Help:      "Number of Notify calls per event category.",
		}, []string{"category"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "deliveries_total",
			Help:      "Handler invocations per event category and outcome.",
		}, []string{"category", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one event to all handlers.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"category"}),
		subscriptions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "subscriptions",
			Help:      "Active subscriptions per event category.",
		}, []string{"category"}),
		injections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "injections_total",
			Help:      "Bridging attempts into the external event source.",
		}, []string{"category", "result"}),
		expirations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "eventbus",
			Name:      "expirations_total",
			Help:      "Fluent subscriptions that expired, by reason.",
		}, []string{"reason"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.dispatches, m.deliveries, m.duration, m.subscriptions, m.injections, m.expirations,
		} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeDispatch(cat types.Category, delivered, skipped, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	label := cat.String()
	m.dispatches.WithLabelValues(label).Inc()
	m.deliveries.WithLabelValues(label, "delivered").Add(float64(delivered))
	m.deliveries.WithLabelValues(label, "skipped").Add(float64(skipped))
	m.deliveries.WithLabelValues(label, "failed").Add(float64(failed))
	m.duration.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) setSubscriptions(cat types.Category, n int) {
	if m == nil {
		return
	}
	m.subscriptions.WithLabelValues(cat.String()).Set(float64(n))
}

func (m *Metrics) injection(cat types.Category, result string) {
	if m == nil {
		return
	}
	m.injections.WithLabelValues(cat.String(), result).Inc()
}

func (m *Metrics) expired(reason string) {
	if m == nil {
		return
	}
	m.expirations.WithLabelValues(reason).Inc()
}

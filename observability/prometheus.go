package observability

import (
	"errors"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var _ MetricFactory = (*PrometheusFactory)(nil)

// MoneyBuckets spans 100 to about 26 million minor units, that is 1.00 to
// about 262,000.00 in a two-decimal currency.
var MoneyBuckets = prometheus.ExponentialBuckets(100, 4, 10)

// PrometheusFactory creates Prometheus collectors for MetricsExtension.
// Dotted metric names become underscored; counters get a _total suffix.
type PrometheusFactory struct {
	reg     prometheus.Registerer
	buckets []float64

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
	vecs       map[string]*prometheus.HistogramVec
}

// PrometheusOption configures a PrometheusFactory.
type PrometheusOption func(*PrometheusFactory)

// WithBuckets sets the histogram buckets. The default covers 5ms to about
// 10s in powers of two.
func WithBuckets(buckets []float64) PrometheusOption {
	return func(f *PrometheusFactory) { f.buckets = buckets }
}

// NewPrometheusFactory registers collectors on reg. A nil reg uses
// prometheus.DefaultRegisterer.
func NewPrometheusFactory(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := &PrometheusFactory{
		reg:        reg,
		buckets:    prometheus.ExponentialBuckets(5, 2, 12),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
		vecs:       make(map[string]*prometheus.HistogramVec),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Counter implements MetricFactory.
func (f *PrometheusFactory) Counter(name string) Counter {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.counters[name]; ok {
		return c
	}
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricName(name) + "_total",
		Help: "Count of " + name + " events.",
	})
	c = register(f.reg, c)
	f.counters[name] = c
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()

	if h, ok := f.histograms[name]; ok {
		return h
	}
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Distribution of " + name + ".",
		Buckets: f.buckets,
	})
	h = register(f.reg, h)
	f.histograms[name] = h
	return h
}

// HistogramVec implements MetricFactory.
func (f *PrometheusFactory) HistogramVec(name string, buckets []float64, labels ...string) HistogramVec {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v, ok := f.vecs[name]; ok {
		return histogramVec{v}
	}
	if buckets == nil {
		buckets = f.buckets
	}
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Distribution of " + name + ".",
		Buckets: buckets,
	}, labels)
	v = register(f.reg, v)
	f.vecs[name] = v
	return histogramVec{v}
}

type histogramVec struct{ v *prometheus.HistogramVec }

func (h histogramVec) With(labelValues ...string) Histogram {
	return h.v.WithLabelValues(labelValues...)
}

// register returns the already registered collector when another factory
// on the same registry created it first.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

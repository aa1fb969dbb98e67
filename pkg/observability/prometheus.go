package observability

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics exports Metrics through a Prometheus registry.
// Collectors are created on first use; a metric keeps the label set it was
// first recorded with and later samples with different label keys are dropped.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	labels     map[string][]string
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetrics creates a collector backed by a fresh registry that
// also carries the Go runtime and process collectors.
func NewPrometheusMetrics() *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return &PrometheusMetrics{
		registry:   registry,
		labels:     make(map[string][]string),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusMetrics) Counter(name string, value int64, tags ...Tag) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys, values, ok := p.labelsFor(name, tags)
	if !ok {
		return
	}
	vec, exists := p.counters[name]
	if !exists {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: promName(name), Help: name}, keys)
		if err := p.registry.Register(vec); err != nil {
			return
		}
		p.counters[name] = vec
	}
	vec.WithLabelValues(values...).Add(float64(value))
}

func (p *PrometheusMetrics) Gauge(name string, value float64, tags ...Tag) {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys, values, ok := p.labelsFor(name, tags)
	if !ok {
		return
	}
	vec, exists := p.gauges[name]
	if !exists {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: promName(name), Help: name}, keys)
		if err := p.registry.Register(vec); err != nil {
			return
		}
		p.gauges[name] = vec
	}
	vec.WithLabelValues(values...).Set(value)
}

func (p *PrometheusMetrics) Histogram(name string, value float64, tags ...Tag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observe(name, value, tags)
}

// Timing records the duration in seconds.
func (p *PrometheusMetrics) Timing(name string, duration time.Duration, tags ...Tag) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observe(name+".seconds", duration.Seconds(), tags)
}

func (p *PrometheusMetrics) observe(name string, value float64, tags []Tag) {
	keys, values, ok := p.labelsFor(name, tags)
	if !ok {
		return
	}
	vec, exists := p.histograms[name]
	if !exists {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    promName(name),
			Help:    name,
			Buckets: prometheus.DefBuckets,
		}, keys)
		if err := p.registry.Register(vec); err != nil {
			return
		}
		p.histograms[name] = vec
	}
	vec.WithLabelValues(values...).Observe(value)
}

// labelsFor returns sorted label keys and matching values, pinning the key
// set on first use. Callers hold p.mu.
func (p *PrometheusMetrics) labelsFor(name string, tags []Tag) ([]string, []string, bool) {
	sorted := append([]Tag(nil), tags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	keys := make([]string, len(sorted))
	values := make([]string, len(sorted))
	for i, t := range sorted {
		keys[i] = promName(t.Key)
		values[i] = t.Value
	}

	pinned, seen := p.labels[name]
	if !seen {
		p.labels[name] = keys
		return keys, values, true
	}
	if strings.Join(pinned, ",") != strings.Join(keys, ",") {
		return nil, nil, false
	}
	return keys, values, true
}

func promName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

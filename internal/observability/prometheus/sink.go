// Package prometheus adapts the statsd.Sink vocabulary onto a Prometheus registry.
package prometheus

import (
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/target/surveystats/internal/observability/statsd"
)

// DefaultNamespace prefixes every collector name.
const DefaultNamespace = "surveystats"

// Options configures a Sink.
type Options struct {
	Namespace string
	// Buckets for timing histograms, in seconds. Defaults to prometheus.DefBuckets.
	Buckets []float64
	Logger  *slog.Logger
}

// Sink lazily creates one collector per metric name on a private registry.
// The label set of a collector is fixed by the first emission; later emissions fill
// missing labels with "" and drop unknown ones.
type Sink struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry
	logger    *slog.Logger

	mu         sync.Mutex
	counters   map[string]*labeled[*prometheus.CounterVec]
	gauges     map[string]*labeled[*prometheus.GaugeVec]
	histograms map[string]*labeled[*prometheus.HistogramVec]
}

type labeled[V any] struct {
	vec    V
	labels []string
}

var _ statsd.Sink = (*Sink)(nil)

// NewSink builds a sink with its own registry, pre-loaded with the Go and process collectors.
func NewSink(opts Options) *Sink {
	ns := sanitize(opts.Namespace)
	if ns == "" {
		ns = DefaultNamespace
	}
	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Sink{
		namespace:  ns,
		buckets:    buckets,
		registry:   reg,
		logger:     logger.With("component", "prometheus_sink"),
		counters:   make(map[string]*labeled[*prometheus.CounterVec]),
		gauges:     make(map[string]*labeled[*prometheus.GaugeVec]),
		histograms: make(map[string]*labeled[*prometheus.HistogramVec]),
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (s *Sink) Registry() *prometheus.Registry {
	return s.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}

// Count adds value to a counter named <namespace>_<name>_total.
func (s *Sink) Count(name string, value int64, tags map[string]string) {
	if value < 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: s.namespace,
			Name:      sanitize(name) + "_total",
			Help:      "Count of " + name + " events.",
		}, labels)
		if !s.register(name, vec) {
			return
		}
		c = &labeled[*prometheus.CounterVec]{vec: vec, labels: labels}
		s.counters[name] = c
	}
	c.vec.WithLabelValues(labelValues(c.labels, tags)...).Add(float64(value))
}

// Gauge sets a gauge named <namespace>_<name>.
func (s *Sink) Gauge(name string, value float64, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.gauges[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: s.namespace,
			Name:      sanitize(name),
			Help:      "Current value of " + name + ".",
		}, labels)
		if !s.register(name, vec) {
			return
		}
		g = &labeled[*prometheus.GaugeVec]{vec: vec, labels: labels}
		s.gauges[name] = g
	}
	g.vec.WithLabelValues(labelValues(g.labels, tags)...).Set(value)
}

// Timing observes value in a histogram named <namespace>_<name>_seconds.
func (s *Sink) Timing(name string, value time.Duration, tags map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.histograms[name]
	if !ok {
		labels := labelNames(tags)
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: s.namespace,
			Name:      sanitize(name) + "_seconds",
			Help:      "Duration of " + name + ".",
			Buckets:   s.buckets,
		}, labels)
		if !s.register(name, vec) {
			return
		}
		h = &labeled[*prometheus.HistogramVec]{vec: vec, labels: labels}
		s.histograms[name] = h
	}
	h.vec.WithLabelValues(labelValues(h.labels, tags)...).Observe(value.Seconds())
}

func (s *Sink) register(name string, c prometheus.Collector) bool {
	if err := s.registry.Register(c); err != nil {
		s.logger.Warn("register collector failed", "metric", name, "error", err)
		return false
	}
	return true
}

func labelNames(tags map[string]string) []string {
	names := make([]string, 0, len(tags))
	for _, k := range slices.Sorted(maps.Keys(tags)) {
		if n := sanitize(k); n != "" && !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

func labelValues(names []string, tags map[string]string) []string {
	byName := make(map[string]string, len(tags))
	for k, v := range tags {
		byName[sanitize(k)] = v
	}
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = byName[n]
	}
	return values
}

// sanitize maps a dotted statsd name onto the Prometheus [a-zA-Z0-9_] alphabet.
func sanitize(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
	mapped = strings.Trim(mapped, "_")
	if mapped != "" && mapped[0] >= '0' && mapped[0] <= '9' {
		mapped = "_" + mapped
	}
	return mapped
}

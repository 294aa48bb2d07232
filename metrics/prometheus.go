package metrics

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/UlusTech/nmc/log"
)

// PromReporterCfg configures the prometheus reporter.
type PromReporterCfg struct {
	// Addr is the listen address of the /metrics endpoint, e.g. ":9090".
	Addr string `yaml:"addr" mapstructure:"addr"`
	// Namespace prefixes every exported metric; defaults to "nmc".
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// PromReporter converts facade records into prometheus collectors and
// exposes them over HTTP. Collectors are created lazily on first report,
// keyed by (group, name, sorted label keys).
type PromReporter struct {
	cfg      *PromReporterCfg
	registry *prometheus.Registry
	server   *http.Server

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

var _ Reporter = (*PromReporter)(nil)

// NewPromReporter builds a reporter with its own registry.
func NewPromReporter(cfg *PromReporterCfg) *PromReporter {
	if cfg.Namespace == "" {
		cfg.Namespace = "nmc"
	}
	return &PromReporter{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		counters: map[string]*prometheus.CounterVec{},
		gauges:   map[string]*prometheus.GaugeVec{},
	}
}

// Start serves the /metrics endpoint until Stop is called.
func (p *PromReporter) Start() error {
	if p.cfg.Addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))
	p.server = &http.Server{Addr: p.cfg.Addr, Handler: mux}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Str("addr", p.cfg.Addr).Msg("metrics endpoint failed")
		}
	}()
	log.Info().Str("addr", p.cfg.Addr).Msg("metrics endpoint listening")
	return nil
}

// Stop shuts the endpoint down.
func (p *PromReporter) Stop() {
	if p.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = p.server.Shutdown(ctx)
}

// Report applies one observation to the matching collector.
func (p *PromReporter) Report(r Record) {
	labels := labelKeys(r.Dimensions())
	key := collectorKey(r.Metric(), labels)

	switch r.Metric().Policy() {
	case PolicySum:
		p.counterFor(key, r.Metric(), labels).With(prometheus.Labels(r.Dimensions())).Add(float64(r.Value()))
	case PolicySet:
		p.gaugeFor(key, r.Metric(), labels).With(prometheus.Labels(r.Dimensions())).Set(float64(r.Value()))
	}
}

func (p *PromReporter) counterFor(key string, m Metric, labels []string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[key]; ok {
		return c
	}
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: p.cfg.Namespace,
		Subsystem: sanitize(m.Group()),
		Name:      sanitize(m.Name()),
	}, labels)
	p.registry.MustRegister(c)
	p.counters[key] = c
	return c
}

func (p *PromReporter) gaugeFor(key string, m Metric, labels []string) *prometheus.GaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[key]; ok {
		return g
	}
	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: p.cfg.Namespace,
		Subsystem: sanitize(m.Group()),
		Name:      sanitize(m.Name()),
	}, labels)
	p.registry.MustRegister(g)
	p.gauges[key] = g
	return g
}

func labelKeys(d Dimension) []string {
	if len(d) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collectorKey(m Metric, labels []string) string {
	return m.Group() + "." + m.Name() + "." + strings.Join(labels, ",")
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, ".", "_")
}

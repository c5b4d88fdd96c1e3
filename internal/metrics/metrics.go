package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Provider records tick outcomes. A nil *Provider is valid and records nothing.
type Provider struct {
	ticks         *prometheus.CounterVec
	backendErrors *prometheus.CounterVec
	collectErrors prometheus.Counter
	fitness       prometheus.Gauge
	historyLen    prometheus.Gauge
	tickSeconds   prometheus.Histogram
}

// NewProvider registers the agit metrics. A nil registry disables metrics.
func NewProvider(registry *prometheus.Registry) *Provider {
	if registry == nil {
		return nil
	}

	p := &Provider{
		ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agit_ticks_total",
				Help: "Total number of evaluation ticks by decided action",
			},
			[]string{"action"},
		),
		backendErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agit_backend_errors_total",
				Help: "Total number of failed repository operations by operation",
			},
			[]string{"op"},
		),
		collectErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agit_collect_errors_total",
			Help: "Total number of ticks skipped because change collection failed",
		}),
		fitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agit_fitness_score",
			Help: "Fused fitness of the most recent non-empty change",
		}),
		historyLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agit_history_length",
			Help: "Number of fitness scores in the rolling history",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "agit_tick_duration_seconds",
			Help:    "Wall time of one tick, collection through backend",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(
		p.ticks,
		p.backendErrors,
		p.collectErrors,
		p.fitness,
		p.historyLen,
		p.tickSeconds,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

func (p *Provider) IncrementTick(action string) {
	if p != nil {
		p.ticks.WithLabelValues(action).Inc()
	}
}

func (p *Provider) IncrementBackendError(op string) {
	if p != nil {
		p.backendErrors.WithLabelValues(op).Inc()
	}
}

func (p *Provider) IncrementCollectError() {
	if p != nil {
		p.collectErrors.Inc()
	}
}

// ObserveFitness sets the fitness gauge and the history length.
func (p *Provider) ObserveFitness(score float64, historyLen int) {
	if p != nil {
		p.fitness.Set(score)
		p.historyLen.Set(float64(historyLen))
	}
}

func (p *Provider) ObserveTick(seconds float64) {
	if p != nil {
		p.tickSeconds.Observe(seconds)
	}
}

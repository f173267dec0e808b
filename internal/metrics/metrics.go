// Package metrics holds the Prometheus collectors of the conversion service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docconv/internal/domain"
)

const OutcomeOK = "ok"

// Recorder owns a private registry so that tests and multiple apps in one
// process do not collide on the default one.
type Recorder struct {
	registry    *prometheus.Registry
	conversions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	bytes       *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconv_conversions_total",
			Help: "Conversions by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "docconv_conversion_duration_seconds",
			Help:    "Time spent converting, by tool.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconv_bytes_total",
			Help: "Bytes received and produced, by tool and direction (in|out).",
		}, []string{"tool", "direction"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "docconv_result_cache_hits_total",
			Help: "Responses served from the result cache.",
		}, []string{"tool"}),
	}
	reg.MustRegister(
		r.conversions, r.duration, r.bytes, r.cacheHits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Outcome labels a conversion result: "ok" or the error kind.
func Outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if domain.IsCanceled(err) {
		return "canceled"
	}
	return string(domain.KindOf(err))
}

// ObserveConversion records one dispatcher call.
func (r *Recorder) ObserveConversion(tool string, err error, elapsed time.Duration, bytesIn, bytesOut int) {
	if r == nil {
		return
	}
	r.conversions.WithLabelValues(tool, Outcome(err)).Inc()
	r.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
	r.bytes.WithLabelValues(tool, "in").Add(float64(bytesIn))
	if err == nil {
		r.bytes.WithLabelValues(tool, "out").Add(float64(bytesOut))
	}
}

func (r *Recorder) ObserveCacheHit(tool string) {
	if r == nil {
		return
	}
	r.cacheHits.WithLabelValues(tool).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

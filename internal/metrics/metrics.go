// Package metrics counts pipeline outcomes with Prometheus collectors.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bookshelf"

// Recorder owns a private registry with the bookshelf counters.
// A nil *Recorder discards everything.
type Recorder struct {
	registry       *prometheus.Registry
	sourceRequests *prometheus.CounterVec
	coverLookups   *prometheus.CounterVec
	upserts        *prometheus.CounterVec
}

// NewRecorder creates a Recorder with its counters registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Metadata source lookups by source and outcome.",
		}, []string{"source", "outcome"}),
		coverLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cover_lookups_total",
			Help:      "Cover lookups by outcome.",
		}, []string{"outcome"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "book_upserts_total",
			Help:      "Book upserts by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.sourceRequests, r.coverLookups, r.upserts)
	return r
}

// ObserveSource counts one source lookup.
func (r *Recorder) ObserveSource(source, outcome string) {
	if r == nil {
		return
	}
	r.sourceRequests.WithLabelValues(source, outcome).Inc()
}

// ObserveCover counts one cover lookup.
func (r *Recorder) ObserveCover(outcome string) {
	if r == nil {
		return
	}
	r.coverLookups.WithLabelValues(outcome).Inc()
}

// ObserveUpsert counts one upsert.
func (r *Recorder) ObserveUpsert(outcome string) {
	if r == nil {
		return
	}
	r.upserts.WithLabelValues(outcome).Inc()
}

// Registry exposes the registry for exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// WriteTextfile writes the current values in the text exposition format,
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}

// Package build drives a complete site build: it resolves a rule set against
// the project tree, checks every output destination for collisions, then
// copies, bundles and renders.
package build

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks build activity on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	BuildsTotal        prometheus.Counter
	BuildsFailed       *prometheus.CounterVec
	FilesCopied        prometheus.Counter
	BundlesBuilt       *prometheus.CounterVec
	TransformFallbacks *prometheus.CounterVec
	TransformDuration  *prometheus.HistogramVec
	PagesRendered      prometheus.Counter
	BuildDuration      prometheus.Histogram
	LastBuildEnd       prometheus.Gauge
}

// NewMetrics creates the build metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		BuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "siteforge_builds_total",
			Help: "Total number of site builds started",
		}),
		BuildsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_builds_failed_total",
			Help: "Number of site builds that failed",
		}, []string{"error_type"}),
		FilesCopied: factory.NewCounter(prometheus.CounterOpts{
			Name: "siteforge_files_copied_total",
			Help: "Number of files copied verbatim to the output tree",
		}),
		BundlesBuilt: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_bundles_built_total",
			Help: "Number of bundles written",
		}, []string{"bundle"}),
		TransformFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "siteforge_transform_fallbacks_total",
			Help: "Number of transform failures tolerated by a bundle's fallback policy",
		}, []string{"bundle", "transform"}),
		TransformDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "siteforge_transform_duration_seconds",
			Help:    "Bundle transform stage duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"bundle", "transform"}),
		PagesRendered: factory.NewCounter(prometheus.CounterOpts{
			Name: "siteforge_pages_rendered_total",
			Help: "Number of pages rendered and written",
		}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "siteforge_build_duration_seconds",
			Help:    "Site build duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		LastBuildEnd: factory.NewGauge(prometheus.GaugeOpts{
			Name: "siteforge_last_build_end_timestamp",
			Help: "Unix timestamp of when the last build ended",
		}),
	}
}

// Registry returns the registry holding the build metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the current metrics in the text exposition format.
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}

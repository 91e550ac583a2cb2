package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rws-cli/internal/model"
	"github.com/sells-group/rws-cli/internal/rws"
)

const namespace = "rws"

// Metrics holds the Prometheus collectors for one pipeline run. It implements
// rws.Observer and registers on a private registry so several runs in one
// process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	StageDuration  *prometheus.HistogramVec // labels: stage
	StageFailures  *prometheus.CounterVec   // labels: stage
	Success        prometheus.Gauge
	NationalTotal  prometheus.Gauge
	Zones          prometheus.Gauge
	Dominant       prometheus.Gauge
	Buffers        prometheus.Gauge
	Representative prometheus.Gauge
	Coverage       prometheus.Gauge
	Warnings       *prometheus.CounterVec // labels: kind
	FinishedAt     prometheus.Gauge
}

var _ rws.Observer = (*Metrics)(nil)

// NewMetrics creates the run metrics, labelled with the run name and country.
func NewMetrics(run, country string) *Metrics {
	labels := prometheus.Labels{"run": run, "country": country}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: labels,
		})
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "stage_duration_seconds",
			Help:        "Wall time spent in each pipeline stage.",
			Buckets:     []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			ConstLabels: labels,
		}, []string{"stage"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "stage_failures_total",
			Help:        "Stages that ended in an error.",
			ConstLabels: labels,
		}, []string{"stage"}),
		Success:        gauge("run_success", "1 when the run produced a result, 0 when it failed."),
		NationalTotal:  gauge("national_crop_area", "National crop-area total used as the share denominator."),
		Zones:          gauge("zones", "Climate zones with a crop-area share."),
		Dominant:       gauge("dominant_zones", "Zones whose share exceeded the DCZ threshold."),
		Buffers:        gauge("buffers", "Zone-consistent station buffers built."),
		Representative: gauge("representative_buffers", "Buffers whose share exceeded the RWS threshold."),
		Coverage:       gauge("coverage_percent", "Summed share of the representative buffers."),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "warnings_total",
			Help:        "Non-fatal warnings attached to the result.",
			ConstLabels: labels,
		}, []string{"kind"}),
		FinishedAt: gauge("finished_timestamp_seconds", "Unix time the run finished."),
	}

	m.registry.MustRegister(
		m.StageDuration,
		m.StageFailures,
		m.Success,
		m.NationalTotal,
		m.Zones,
		m.Dominant,
		m.Buffers,
		m.Representative,
		m.Coverage,
		m.Warnings,
		m.FinishedAt,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// StageDone records the duration of one stage.
func (m *Metrics) StageDone(stage rws.Stage, d time.Duration, err error) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	if err != nil {
		m.StageFailures.WithLabelValues(string(stage)).Inc()
	}
}

// RunDone records the outcome of the run.
func (m *Metrics) RunDone(res *model.Result, err error) {
	if err != nil || res == nil {
		m.Success.Set(0)
		return
	}
	m.Success.Set(1)
	m.NationalTotal.Set(res.NationalTotal)
	m.Zones.Set(float64(len(res.Zones)))
	m.Dominant.Set(float64(len(res.Dominant)))
	m.Buffers.Set(float64(res.Buffers))
	m.Representative.Set(float64(len(res.Representative)))
	m.Coverage.Set(res.Coverage)
	for _, w := range res.Warnings {
		m.Warnings.WithLabelValues(string(w.Kind)).Inc()
	}
	if !res.FinishedAt.IsZero() {
		m.FinishedAt.Set(float64(res.FinishedAt.Unix()))
	}
}

// WriteTextfile writes the metrics in the node-exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, m.registry), "monitoring: write metrics to %s", path)
}

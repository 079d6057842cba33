package metrics

import (
	"fmt"
	"strings"

	"github.com/newthinker/archivist/internal/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	filesTotal    *prometheus.CounterVec
	bytesUploaded prometheus.Counter
	runDuration   *prometheus.GaugeVec
	lastRun       *prometheus.GaugeVec
	runFailures   *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
// Runtime collectors are left out since the registry is exported from
// short-lived batch runs.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		Registry: reg,

		filesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archivist_files_total",
				Help: "Files handled per phase and outcome",
			},
			[]string{"phase", "outcome"},
		),

		bytesUploaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "archivist_bytes_uploaded_total",
				Help: "Bytes uploaded by the archive phase",
			},
		),

		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "archivist_run_duration_seconds",
				Help: "Duration of the last run per phase",
			},
			[]string{"phase"},
		),

		lastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "archivist_last_run_timestamp_seconds",
				Help: "Unix time the last run of a phase finished",
			},
			[]string{"phase"},
		),

		runFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archivist_runs_failed_total",
				Help: "Runs that ended with at least one failed file",
			},
			[]string{"phase"},
		),
	}

	reg.MustRegister(r.filesTotal)
	reg.MustRegister(r.bytesUploaded)
	reg.MustRegister(r.runDuration)
	reg.MustRegister(r.lastRun)
	reg.MustRegister(r.runFailures)

	return r
}

// ObserveRun records the counters of a finished run.
func (r *Registry) ObserveRun(s *core.RunSummary) {
	if s == nil {
		return
	}
	phase := string(s.Phase)

	r.filesTotal.WithLabelValues(phase, string(core.OutcomeSucceeded)).Add(float64(s.Succeeded))
	r.filesTotal.WithLabelValues(phase, string(core.OutcomeSkipped)).Add(float64(s.Skipped))
	r.filesTotal.WithLabelValues(phase, string(core.OutcomeFailed)).Add(float64(s.Failed))

	if s.Phase == core.PhaseArchive {
		r.bytesUploaded.Add(float64(s.Bytes))
	}

	r.runDuration.WithLabelValues(phase).Set(s.Duration().Seconds())
	if !s.Finished.IsZero() {
		r.lastRun.WithLabelValues(phase).Set(float64(s.Finished.Unix()))
	}
	if s.Failed > 0 {
		r.runFailures.WithLabelValues(phase).Inc()
	}
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if !strings.HasSuffix(path, ".prom") {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("textfile %s must end in .prom", path))
	}
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// Push sends the registry to a Prometheus pushgateway, grouped by job and
// phase.
func (r *Registry) Push(url, job string, phase core.Phase) error {
	if url == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("pushgateway url is empty"))
	}
	if job == "" {
		job = "archivist"
	}
	err := push.New(url, job).
		Gatherer(r.Registry).
		Grouping("phase", string(phase)).
		Push()
	if err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	return nil
}

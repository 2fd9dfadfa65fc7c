// Package metrics counts CLI activity in a private Prometheus registry and
// renders it for "show cli statistics".
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Command and commit results.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultNoop  = "noop"
)

// Metrics holds the CLI counters. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	commands       *prometheus.CounterVec
	edits          *prometheus.CounterVec
	commits        *prometheus.CounterVec
	commitDuration prometheus.Histogram
}

// New creates the counters in a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holo_cli_commands_total",
			Help: "Commands entered, by result.",
		}, []string{"result"}),
		edits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holo_cli_edits_total",
			Help: "Candidate configuration edits, by operation.",
		}, []string{"operation"}),
		commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "holo_cli_commits_total",
			Help: "Commit attempts, by result.",
		}, []string{"result"}),
		commitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "holo_cli_commit_duration_seconds",
			Help:    "Time spent waiting for the daemon to apply a commit.",
			Buckets: prometheus.ExponentialBuckets(0.005, 4, 7),
		}),
	}
	m.registry.MustRegister(m.commands, m.edits, m.commits, m.commitDuration)
	return m
}

// Register adds another collector to the registry.
func (m *Metrics) Register(c prometheus.Collector) error {
	if m == nil {
		return nil
	}
	return m.registry.Register(c)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// CommandDone counts one dispatched command.
func (m *Metrics) CommandDone(result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(result).Inc()
}

// EditDone counts one applied candidate edit ("set" or "delete").
func (m *Metrics) EditDone(operation string) {
	if m == nil {
		return
	}
	m.edits.WithLabelValues(operation).Inc()
}

// CommitDone counts one commit attempt. The duration is observed only for
// commits that reached the daemon.
func (m *Metrics) CommitDone(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.commits.WithLabelValues(result).Inc()
	if result != ResultNoop {
		m.commitDuration.Observe(d.Seconds())
	}
}

// Write renders every gathered sample, one per line.
func (m *Metrics) Write(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	var b strings.Builder
	for _, mf := range families {
		fmt.Fprintf(&b, "# %s\n", mf.GetHelp())
		for _, metric := range mf.GetMetric() {
			name := mf.GetName() + labelString(metric.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				fmt.Fprintf(&b, "%-60s %g\n", name, metric.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				fmt.Fprintf(&b, "%-60s %g\n", name, metric.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := metric.GetHistogram()
				fmt.Fprintf(&b, "%-60s %d\n", name+"_count", h.GetSampleCount())
				fmt.Fprintf(&b, "%-60s %.3f\n", name+"_sum", h.GetSampleSum())
			}
		}
	}
	_, err = io.WriteString(w, b.String())
	return err
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

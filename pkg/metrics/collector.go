package metrics

import "github.com/prometheus/client_golang/prometheus"

// SessionState is a snapshot of the configuration session.
type SessionState struct {
	Configuring    bool
	Pending        bool
	Depth          int
	HistoryEntries int
	SchemaModules  int
}

// sessionCollector reports session gauges, reading a fresh snapshot on
// each gather.
type sessionCollector struct {
	state func() SessionState

	configuring    *prometheus.Desc
	pending        *prometheus.Desc
	depth          *prometheus.Desc
	historyEntries *prometheus.Desc
	schemaModules  *prometheus.Desc
}

// NewSessionCollector returns a collector for the snapshots produced by
// state. state is called from Gather and must not block on a lock held by
// the caller of Gather.
func NewSessionCollector(state func() SessionState) prometheus.Collector {
	return &sessionCollector{
		state: state,
		configuring: prometheus.NewDesc(
			"holo_cli_configuration_mode",
			"1 while in configuration mode.",
			nil, nil,
		),
		pending: prometheus.NewDesc(
			"holo_cli_candidate_pending",
			"1 when the candidate differs from the running configuration.",
			nil, nil,
		),
		depth: prometheus.NewDesc(
			"holo_cli_context_depth",
			"Number of nested configuration contexts entered.",
			nil, nil,
		),
		historyEntries: prometheus.NewDesc(
			"holo_cli_commit_history_entries",
			"Configurations available to rollback.",
			nil, nil,
		),
		schemaModules: prometheus.NewDesc(
			"holo_cli_schema_modules",
			"YANG modules loaded.",
			nil, nil,
		),
	}
}

func (c *sessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.configuring
	ch <- c.pending
	ch <- c.depth
	ch <- c.historyEntries
	ch <- c.schemaModules
}

func (c *sessionCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.state()
	ch <- prometheus.MustNewConstMetric(c.configuring, prometheus.GaugeValue, boolValue(s.Configuring))
	ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, boolValue(s.Pending))
	ch <- prometheus.MustNewConstMetric(c.depth, prometheus.GaugeValue, float64(s.Depth))
	ch <- prometheus.MustNewConstMetric(c.historyEntries, prometheus.GaugeValue, float64(s.HistoryEntries))
	ch <- prometheus.MustNewConstMetric(c.schemaModules, prometheus.GaugeValue, float64(s.SchemaModules))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

package metrics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.CommandDone(ResultOK)
	m.CommandDone(ResultOK)
	m.CommandDone(ResultError)
	m.EditDone("set")
	m.CommitDone(ResultOK, 20*time.Millisecond)
	m.CommitDone(ResultNoop, 0)

	if got := testutil.ToFloat64(m.commands.WithLabelValues(ResultOK)); got != 2 {
		t.Errorf("ok commands = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.commands.WithLabelValues(ResultError)); got != 1 {
		t.Errorf("error commands = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.edits.WithLabelValues("set")); got != 1 {
		t.Errorf("set edits = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(m.commits); got != 2 {
		t.Errorf("commit series = %d, want 2", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.CommandDone(ResultOK)
	m.EditDone("delete")
	m.CommitDone(ResultError, time.Second)
	if err := m.Write(&bytes.Buffer{}); err != nil {
		t.Errorf("Write on nil: %v", err)
	}
}

func TestWrite(t *testing.T) {
	m := New()
	state := SessionState{Configuring: true, Pending: true, Depth: 2, HistoryEntries: 3, SchemaModules: 4}
	if err := m.Register(NewSessionCollector(func() SessionState { return state })); err != nil {
		t.Fatal(err)
	}
	m.CommandDone(ResultOK)
	m.CommitDone(ResultOK, 10*time.Millisecond)

	var buf bytes.Buffer
	if err := m.Write(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		`holo_cli_commands_total{result="ok"}`,
		`holo_cli_commit_duration_seconds_count`,
		`holo_cli_candidate_pending`,
		`holo_cli_context_depth`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}

	if got := testutil.CollectAndCount(NewSessionCollector(func() SessionState { return state })); got != 5 {
		t.Errorf("session collector series = %d, want 5", got)
	}
}

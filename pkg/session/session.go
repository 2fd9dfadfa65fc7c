// Package session implements the configuration session: operational and
// configuration modes, the nested configuration context, and the
// candidate configuration edited apart from the running one until an
// atomic commit.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/fatihusta/holo-cli/pkg/client"
	"github.com/fatihusta/holo-cli/pkg/config"
	"github.com/fatihusta/holo-cli/pkg/metrics"
	"github.com/fatihusta/holo-cli/pkg/schema"
)

// DefaultHostname is shown in the prompt until the daemon reports one.
const DefaultHostname = "holo"

// historySize bounds the number of commits kept for rollback.
const historySize = 50

// ModeKind is the top-level CLI mode.
type ModeKind int

const (
	ModeOperational ModeKind = iota
	ModeConfigure
)

// CommandMode is the current mode and, in configuration mode, the path
// of the context entered.
type CommandMode struct {
	Kind ModeKind
	Path []config.Step
}

func (m CommandMode) String() string {
	if m.Kind == ModeOperational {
		return "operational"
	}
	if len(m.Path) == 0 {
		return "configure"
	}
	return "configure " + config.PathString(m.Path)
}

// Session holds the mode and both configurations. It is not safe for
// concurrent use; the CLI serializes access.
type Session struct {
	schema   *schema.Context
	client   client.Client
	metrics  *metrics.Metrics
	hostname string

	mode      CommandMode
	running   *config.ConfigTree
	candidate *config.ConfigTree
	commits   *CommitLog
	dirty     bool
}

// Option configures a Session.
type Option func(*Session)

// WithMetrics records edits and commits.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a session in operational mode with an empty running
// configuration.
func New(ctx *schema.Context, c client.Client, opts ...Option) *Session {
	s := &Session{
		schema:   ctx,
		client:   c,
		hostname: DefaultHostname,
		running:  config.New(),
		commits:  newCommitLog(historySize),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Mode returns the current mode. The returned path must not be modified.
func (s *Session) Mode() CommandMode { return s.mode }

// Schema returns the schema context the session edits against.
func (s *Session) Schema() *schema.Context { return s.schema }

// Client returns the daemon client.
func (s *Session) Client() client.Client { return s.client }

// Hostname returns the hostname shown in the prompt.
func (s *Session) Hostname() string { return s.hostname }

// Running returns the cached running configuration.
func (s *Session) Running() *config.ConfigTree { return s.running }

// Candidate returns the candidate configuration, or nil before the first
// "configure".
func (s *Session) Candidate() *config.ConfigTree { return s.candidate }

// Pending reports whether the candidate holds uncommitted changes.
func (s *Session) Pending() bool { return s.dirty }

// Commits returns the commit log of the session.
func (s *Session) Commits() *CommitLog { return s.commits }

// RefreshRunning replaces the cached running configuration with the
// daemon's. On failure the cached copy is kept.
func (s *Session) RefreshRunning(ctx context.Context) error {
	data, err := s.client.GetRunning(ctx)
	if err != nil {
		return fmt.Errorf("get running configuration: %w", err)
	}
	tree, err := config.DecodeJSON(s.schema, data)
	if err != nil {
		return fmt.Errorf("decode running configuration: %w", err)
	}
	s.running = tree
	return nil
}

// EnterConfigure switches to configuration mode at the top level. The
// running configuration is refreshed first; the candidate is seeded from
// it unless it holds uncommitted changes.
func (s *Session) EnterConfigure(ctx context.Context) error {
	if s.mode.Kind == ModeConfigure {
		return fmt.Errorf("already in configuration mode")
	}
	if err := s.RefreshRunning(ctx); err != nil {
		slog.Warn("using cached running configuration", "err", err)
	}
	if s.candidate == nil || !s.dirty {
		s.candidate = s.running.Clone()
		s.dirty = false
	}
	s.mode = CommandMode{Kind: ModeConfigure}
	return nil
}

// ExitConfigure returns to operational mode. The candidate is kept.
func (s *Session) ExitConfigure() {
	s.mode = CommandMode{Kind: ModeOperational}
}

// Exit leaves the innermost context, or configuration mode at the top.
func (s *Session) Exit() {
	if s.mode.Kind != ModeConfigure {
		return
	}
	if len(s.mode.Path) == 0 {
		s.ExitConfigure()
		return
	}
	s.mode.Path = s.mode.Path[:len(s.mode.Path)-1]
}

// Top returns to the top level of configuration mode.
func (s *Session) Top() {
	if s.mode.Kind == ModeConfigure {
		s.mode.Path = nil
	}
}

// EditCandidate applies one configuration command to a copy of the
// candidate and keeps the copy only when the whole edit succeeds.
//
// The data path is the current context followed by the ancestry of node
// below it. args holds the key values of every list entered on the way,
// followed by the leaf value when node is a leaf or leaf-list. A negated
// edit deletes what it addresses; deleting something absent succeeds. A
// non-negated edit of a container or list entry creates it and enters its
// context.
func (s *Session) EditCandidate(negate bool, node schema.Node, args []string) error {
	if s.mode.Kind != ModeConfigure || s.candidate == nil {
		return &EditError{Err: errors.New("not in configuration mode")}
	}

	path, value, hasValue, err := s.resolve(node, args)
	if err != nil {
		return &EditError{Path: config.PathString(path), Err: err}
	}

	if !negate && !hasValue && isValueLeaf(node) {
		return &EditError{Path: config.PathString(path), Err: fmt.Errorf("%s: missing value", node.Name())}
	}

	candidate := s.candidate.Clone()
	op := "set"
	if negate {
		op = "delete"
		err = s.deleteFrom(candidate, path, value, hasValue)
	} else {
		_, err = candidate.Set(path, value)
	}
	if err != nil {
		return &EditError{Path: config.PathString(path), Err: err}
	}

	s.candidate = candidate
	s.dirty = !s.candidate.Equal(s.running)
	s.metrics.EditDone(op)

	if !negate {
		switch node.Kind() {
		case schema.KindContainer, schema.KindList:
			s.mode.Path = path
		}
	}
	return nil
}

// resolve builds the data path of an edit and validates keys and value.
func (s *Session) resolve(node schema.Node, args []string) ([]config.Step, string, bool, error) {
	if node.IsZero() {
		return nil, "", false, errors.New("no schema node")
	}
	if !node.Config() {
		return nil, "", false, fmt.Errorf("%s is not configuration", node.Name())
	}

	path := slices.Clone(s.mode.Path)
	ancestry := node.Ancestry()
	start := 0
	if len(path) > 0 {
		ctxNode := path[len(path)-1].Node
		idx := slices.Index(ancestry, ctxNode)
		if idx < 0 {
			return path, "", false, fmt.Errorf("%s is not below %s", node.Name(), ctxNode.Name())
		}
		start = idx + 1
	}

	rest := args
	for _, sn := range ancestry[start:] {
		step := config.Step{Node: sn}
		if sn.Kind() == schema.KindList {
			keys := sn.Keys()
			if len(rest) < len(keys) {
				if sn == node && len(rest) == 0 {
					// "no <list>" addresses every entry.
					path = append(path, step)
					return path, "", false, nil
				}
				return path, "", false, fmt.Errorf("%s: missing key %s", sn.Name(), strings.Join(keys[len(rest):], " "))
			}
			step.Keys = make([]string, len(keys))
			for i, key := range keys {
				kn, ok := sn.Child(key)
				if !ok {
					return path, "", false, fmt.Errorf("%s: unknown key %s", sn.Name(), key)
				}
				if err := kn.ValidateValue(rest[i]); err != nil {
					return path, "", false, fmt.Errorf("%s %s: %w", sn.Name(), key, err)
				}
				step.Keys[i] = kn.CanonicalValue(rest[i])
			}
			rest = rest[len(keys):]
		}
		path = append(path, step)
	}

	switch node.Kind() {
	case schema.KindLeaf, schema.KindLeafList:
		if node.EmptyType() {
			if len(rest) > 0 {
				return path, "", false, fmt.Errorf("%s takes no value", node.Name())
			}
			return path, "", false, nil
		}
		if len(rest) == 0 {
			return path, "", false, nil
		}
		if len(rest) > 1 {
			return path, "", false, fmt.Errorf("%s: unexpected %q", node.Name(), strings.Join(rest[1:], " "))
		}
		if err := node.ValidateValue(rest[0]); err != nil {
			return path, "", false, fmt.Errorf("%s: %w", node.Name(), err)
		}
		return path, node.CanonicalValue(rest[0]), true, nil
	}
	if len(rest) > 0 {
		return path, "", false, fmt.Errorf("%s: unexpected %q", node.Name(), strings.Join(rest, " "))
	}
	return path, "", false, nil
}

func isValueLeaf(n schema.Node) bool {
	switch n.Kind() {
	case schema.KindLeaf, schema.KindLeafList:
		return !n.EmptyType()
	}
	return false
}

func (s *Session) deleteFrom(t *config.ConfigTree, path []config.Step, value string, hasValue bool) error {
	last := path[len(path)-1]
	if last.Node.Kind() == schema.KindList && len(last.Keys) == 0 {
		return deleteEntries(t, path[:len(path)-1], last.Node)
	}
	if last.Node.Kind() == schema.KindLeaf && hasValue {
		// "no mtu 1500" only removes a matching value.
		if n := t.Find(path); n == nil || n.Value != value {
			return nil
		}
	}
	_, err := t.Delete(path, value)
	return err
}

// deleteEntries removes every entry of a list below parent.
func deleteEntries(t *config.ConfigTree, parent []config.Step, list schema.Node) error {
	children := &t.Children
	if len(parent) > 0 {
		n := t.Find(parent)
		if n == nil {
			return nil
		}
		children = &n.Children
	}
	*children = slices.DeleteFunc(*children, func(n *config.Node) bool { return n.Schema == list })
	return nil
}

// CandidateCommit sends the difference between the running and candidate
// configurations to the daemon as one atomic commit. Nothing to send is a
// successful no-op. On failure both configurations stay as they were.
func (s *Session) CandidateCommit(ctx context.Context, comment string) error {
	if s.candidate == nil {
		return &CommitError{Err: errors.New("no candidate configuration")}
	}
	changes, err := config.Diff(s.running, s.candidate)
	if err != nil {
		return &CommitError{Err: err}
	}
	if len(changes) == 0 {
		s.dirty = false
		s.metrics.CommitDone(metrics.ResultNoop, 0)
		return nil
	}

	start := time.Now()
	if err := s.client.Commit(ctx, changes, comment); err != nil {
		s.metrics.CommitDone(metrics.ResultError, time.Since(start))
		return &CommitError{Err: err}
	}
	s.metrics.CommitDone(metrics.ResultOK, time.Since(start))
	slog.Info("configuration committed", "changes", len(changes), "comment", comment)

	s.commits.record(s.running, changes, comment, time.Now())
	s.running = s.candidate.Clone()
	s.dirty = false
	return nil
}

// CandidateRollback discards uncommitted changes.
func (s *Session) CandidateRollback() {
	s.candidate = s.running.Clone()
	s.dirty = false
}

// Rollback loads a previous configuration into the candidate: 0 is the
// running configuration, n the one replaced by the nth most recent commit.
func (s *Session) Rollback(n int) error {
	if s.mode.Kind != ModeConfigure {
		return errors.New("not in configuration mode")
	}
	if n == 0 {
		s.CandidateRollback()
		return nil
	}
	previous, err := s.commits.Previous(n)
	if err != nil {
		return err
	}
	s.candidate = previous.Clone()
	s.dirty = !s.candidate.Equal(s.running)
	return nil
}

// Merge adds a configuration to the candidate.
func (s *Session) Merge(t *config.ConfigTree) error {
	if s.mode.Kind != ModeConfigure || s.candidate == nil {
		return errors.New("not in configuration mode")
	}
	candidate := s.candidate.Clone()
	candidate.Merge(t)
	s.candidate = candidate
	s.dirty = !s.candidate.Equal(s.running)
	return nil
}

// Validate checks the candidate against schema constraints the CLI can
// verify locally: mandatory leaves of every present container and list
// entry.
func (s *Session) Validate() error {
	if s.candidate == nil {
		return nil
	}
	var errs []error
	s.candidate.Walk(func(path []config.Step, n *config.Node) bool {
		switch n.Kind() {
		case schema.KindContainer, schema.KindList:
		default:
			return false
		}
		for _, child := range n.Schema.Children() {
			if !child.Mandatory() || !child.Config() || child.IsKey() {
				continue
			}
			if n.Child(config.Step{Node: child}) == nil {
				errs = append(errs, fmt.Errorf("%s: missing mandatory %s", config.PathString(path), child.Name()))
			}
		}
		return true
	})
	return errors.Join(errs...)
}

// UpdateHostname reads the hostname from the daemon's running
// configuration. The previous value is kept when none is found.
func (s *Session) UpdateHostname(ctx context.Context) {
	data, err := s.client.GetRunning(ctx)
	if err != nil {
		slog.Debug("hostname not updated", "err", err)
		return
	}
	if name := hostnameFrom(data); name != "" {
		s.hostname = name
	}
}

// hostnameFrom finds system/hostname in JSON_IETF data, preferring the
// ietf-system module.
func hostnameFrom(data []byte) string {
	if h := gjson.GetBytes(data, "ietf-system:system.hostname"); h.Exists() {
		return h.String()
	}
	var name string
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		if strings.HasSuffix(key.String(), ":system") {
			if h := value.Get("hostname"); h.Exists() {
				name = h.String()
				return false
			}
		}
		return true
	})
	return name
}

// SetSchema switches to a reloaded schema. Configurations built against
// the old schema are dropped, so it is only allowed in operational mode
// without pending changes; the running configuration is fetched again.
func (s *Session) SetSchema(ctx context.Context, sc *schema.Context) error {
	if s.mode.Kind != ModeOperational {
		return errors.New("schema can only be reloaded in operational mode")
	}
	if s.dirty {
		return errors.New("uncommitted changes pending, commit or discard them first")
	}
	s.schema = sc
	s.running = config.New()
	s.candidate = nil
	s.commits.reset()
	if err := s.RefreshRunning(ctx); err != nil {
		slog.Warn("running configuration not loaded", "err", err)
	}
	return nil
}

// Prompt renders the prompt for the current mode.
func (s *Session) Prompt() string {
	if s.mode.Kind == ModeOperational {
		return s.hostname + "# "
	}
	if len(s.mode.Path) == 0 {
		return s.hostname + "(config)# "
	}
	last := s.mode.Path[len(s.mode.Path)-1]
	return fmt.Sprintf("%s(config-%s)# ", s.hostname, last.Node.Name())
}

// Pwd renders the current configuration context.
func (s *Session) Pwd() string {
	if len(s.mode.Path) == 0 {
		return "[edit]"
	}
	return "[edit " + config.PathString(s.mode.Path) + "]"
}

// State returns a snapshot for the metrics collector.
func (s *Session) State() metrics.SessionState {
	st := metrics.SessionState{
		Configuring:    s.mode.Kind == ModeConfigure,
		Pending:        s.dirty,
		Depth:          len(s.mode.Path),
		HistoryEntries: s.commits.Len(),
	}
	if s.schema != nil {
		st.SchemaModules = len(s.schema.Modules())
	}
	return st
}

// EditError reports a configuration edit that could not be applied.
type EditError struct {
	Path string
	Err  error
}

func (e *EditError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *EditError) Unwrap() error { return e.Err }

// CommitError reports a failed commit. A rejection by the daemon wraps a
// *client.ValidationError carrying its message.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit failed: " + e.Err.Error() }

func (e *CommitError) Unwrap() error { return e.Err }

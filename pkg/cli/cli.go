// Package cli ties the command tree, the parser and the session together:
// it parses each line entered, runs the matched edit or callback and
// writes the output through pipes and the pager.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/muesli/termenv"

	"github.com/fatihusta/holo-cli/pkg/cmdtree"
	"github.com/fatihusta/holo-cli/pkg/metrics"
	"github.com/fatihusta/holo-cli/pkg/parser"
	"github.com/fatihusta/holo-cli/pkg/schema"
	"github.com/fatihusta/holo-cli/pkg/session"
)

// ErrorKind tells which stage of command processing failed.
type ErrorKind int

const (
	KindParser ErrorKind = iota
	KindEditConfig
	KindCallback
)

// Error is returned by EnterCommand.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// SchemaLoader builds a fresh schema context for "reload schema".
type SchemaLoader func(ctx context.Context) (*schema.Context, error)

// Options configures a CLI.
type Options struct {
	// Out receives command output and Err error messages. Both default to
	// the process's standard streams.
	Out io.Writer
	Err io.Writer

	// Pager pages output longer than the terminal when Out is a terminal.
	Pager bool
	// Colors enables ANSI colors in the prompt and error messages.
	Colors bool

	Metrics *metrics.Metrics
	Loader  SchemaLoader
}

// CLI is the command processor. All methods are safe for concurrent use;
// commands run one at a time.
type CLI struct {
	mu      sync.Mutex
	tree    atomic.Pointer[cmdtree.Tree]
	session *session.Session
	metrics *metrics.Metrics
	loader  SchemaLoader

	callbacks map[cmdtree.CallbackID]Callback

	out, errOut io.Writer
	term        *termenv.Output
	pager       bool

	// state is the session snapshot exported by the metrics collector,
	// refreshed after every command so gathering never takes mu.
	state atomic.Pointer[metrics.SessionState]

	cmdMu     sync.Mutex
	cmdCancel context.CancelFunc
}

// New creates a CLI over the session, building the command tree from the
// session's schema.
func New(s *session.Session, opts Options) *CLI {
	c := &CLI{
		session: s,
		metrics: opts.Metrics,
		loader:  opts.Loader,
		out:     opts.Out,
		errOut:  opts.Err,
		pager:   opts.Pager,
	}
	if c.out == nil {
		c.out = os.Stdout
	}
	if c.errOut == nil {
		c.errOut = os.Stderr
	}
	termOpts := []termenv.OutputOption{}
	if !opts.Colors {
		termOpts = append(termOpts, termenv.WithProfile(termenv.Ascii))
	}
	c.term = termenv.NewOutput(c.errOut, termOpts...)
	c.callbacks = defaultCallbacks()
	c.tree.Store(cmdtree.Build(s.Schema()))
	c.saveState()

	if err := c.metrics.Register(metrics.NewSessionCollector(c.State)); err != nil {
		slog.Warn("session metrics not registered", "err", err)
	}
	return c
}

// Tree returns the current command tree.
func (c *CLI) Tree() *cmdtree.Tree { return c.tree.Load() }

// Session returns the session. Callers must not use it concurrently with
// commands.
func (c *CLI) Session() *session.Session { return c.session }

// State returns the session snapshot taken after the last command.
func (c *CLI) State() metrics.SessionState {
	if st := c.state.Load(); st != nil {
		return *st
	}
	return metrics.SessionState{}
}

func (c *CLI) saveState() {
	st := c.session.State()
	c.state.Store(&st)
}

// Prompt returns the prompt for the current mode.
func (c *CLI) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Prompt()
}

// EnterCommand processes one input line. It reports whether the CLI
// should exit.
func (c *CLI) EnterCommand(ctx context.Context, line string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exit, err := c.enterCommand(ctx, line)
	c.saveState()
	switch {
	case err != nil:
		c.metrics.CommandDone(metrics.ResultError)
	case parser.Normalize(line) != "":
		c.metrics.CommandDone(metrics.ResultOK)
	}
	return exit, err
}

func (c *CLI) enterCommand(ctx context.Context, line string) (bool, error) {
	line = parser.Normalize(line)
	if line == "" {
		return false, nil
	}
	cmdLine, pipes, err := splitPipes(line)
	if err != nil {
		return false, &Error{Kind: KindParser, Err: err}
	}

	var buf bytes.Buffer
	scope := c.tree.Load().Scope(c.session.Mode())
	exit, err := c.execute(ctx, scope, cmdLine, &buf)
	if buf.Len() > 0 {
		if werr := c.writeOutput(buf.Bytes(), pipes); werr != nil && err == nil {
			err = &Error{Kind: KindCallback, Err: werr}
		}
	}
	return exit, err
}

// execute parses line in scope and runs the matched command, writing its
// output to w.
func (c *CLI) execute(ctx context.Context, scope *cmdtree.Node, line string, w io.Writer) (bool, error) {
	tree := c.tree.Load()
	pcmd, err := parser.Parse(scope, line)
	if err != nil {
		return false, &Error{Kind: KindParser, Err: err}
	}
	if pcmd == nil || pcmd.NoOp {
		return false, nil
	}
	node, ok := tree.Lookup(pcmd.TokenID)
	if !ok {
		return false, &Error{Kind: KindParser, Err: fmt.Errorf("unknown command token %d", pcmd.TokenID)}
	}

	switch node.Action.Kind {
	case cmdtree.ActionConfigEdit:
		if err := c.session.EditCandidate(pcmd.Negate, node.Action.Schema, pcmd.Args); err != nil {
			return false, &Error{Kind: KindEditConfig, Err: err}
		}
	case cmdtree.ActionCallback:
		cb, ok := c.callbacks[node.Action.Callback]
		if !ok {
			return false, &Error{Kind: KindCallback, Err: fmt.Errorf("no handler for %s", node.Action.Callback)}
		}
		exit, err := cb(ctx, &Invocation{cli: c, Tree: tree, Session: c.session, Args: pcmd.Args, Out: w})
		if err != nil {
			return exit, &Error{Kind: KindCallback, Err: err}
		}
		return exit, nil
	}
	return false, nil
}

// PrintError writes err as a single "% " line.
func (c *CLI) PrintError(err error) {
	msg := "% " + err.Error()
	var cerr *Error
	if errors.As(err, &cerr) && cerr.Kind == KindParser {
		fmt.Fprintln(c.errOut, c.term.String(msg).Foreground(c.term.Color("3")))
		return
	}
	fmt.Fprintln(c.errOut, c.term.String(msg).Foreground(c.term.Color("1")))
}

// startCmd creates a cancellable context for the current command. endCmd
// must be called when the command finishes.
func (c *CLI) startCmd(parent context.Context) context.Context {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	ctx, cancel := context.WithCancel(parent)
	c.cmdCancel = cancel
	return ctx
}

func (c *CLI) endCmd() {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if c.cmdCancel != nil {
		c.cmdCancel()
		c.cmdCancel = nil
	}
}

// cancelCmd cancels the running command, if any, and reports whether one
// was running.
func (c *CLI) cancelCmd() bool {
	c.cmdMu.Lock()
	defer c.cmdMu.Unlock()
	if c.cmdCancel != nil {
		c.cmdCancel()
		return true
	}
	return false
}

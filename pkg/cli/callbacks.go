package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/fatihusta/holo-cli/pkg/cmdtree"
	"github.com/fatihusta/holo-cli/pkg/config"
	"github.com/fatihusta/holo-cli/pkg/session"
)

// Invocation carries what a callback needs to run.
type Invocation struct {
	cli *CLI

	Tree    *cmdtree.Tree
	Session *session.Session
	// Args holds the parameter values captured by the parser, in order.
	Args []string
	// Out receives the command output.
	Out io.Writer
}

// arg returns the i-th argument, or "" when absent.
func (inv *Invocation) arg(i int) string {
	if i < len(inv.Args) {
		return inv.Args[i]
	}
	return ""
}

// Callback runs a built-in command. It reports whether the CLI should
// exit.
type Callback func(ctx context.Context, inv *Invocation) (bool, error)

func defaultCallbacks() map[cmdtree.CallbackID]Callback {
	return map[cmdtree.CallbackID]Callback{
		cmdtree.CbConfigure:         cmdConfigure,
		cmdtree.CbExitCLI:           cmdExitCLI,
		cmdtree.CbShowRunning:       cmdShowRunning,
		cmdtree.CbShowState:         cmdShowState,
		cmdtree.CbShowYangModules:   cmdShowYangModules,
		cmdtree.CbShowCommitHistory: cmdShowCommitHistory,
		cmdtree.CbShowStatistics:    cmdShowStatistics,
		cmdtree.CbRequest:           cmdRequest,
		cmdtree.CbReloadSchema:      cmdReloadSchema,
		cmdtree.CbExit:              cmdExit,
		cmdtree.CbEnd:               cmdEnd,
		cmdtree.CbTop:               cmdTop,
		cmdtree.CbPwd:               cmdPwd,
		cmdtree.CbCommit:            cmdCommit,
		cmdtree.CbDiscard:           cmdDiscard,
		cmdtree.CbValidate:          cmdValidate,
		cmdtree.CbRollback:          cmdRollback,
		cmdtree.CbLoad:              cmdLoad,
		cmdtree.CbShowCandidate:     cmdShowCandidate,
		cmdtree.CbShowChanges:       cmdShowChanges,
		cmdtree.CbRun:               cmdRun,
	}
}

// ===== operational commands =====

func cmdConfigure(ctx context.Context, inv *Invocation) (bool, error) {
	return false, inv.Session.EnterConfigure(ctx)
}

func cmdExitCLI(ctx context.Context, inv *Invocation) (bool, error) {
	return true, nil
}

func cmdShowRunning(ctx context.Context, inv *Invocation) (bool, error) {
	data, err := inv.Session.Client().GetRunning(ctx)
	if err != nil {
		return false, fmt.Errorf("get running configuration: %w", err)
	}
	running, err := config.DecodeJSON(inv.Session.Schema(), data)
	if err != nil {
		return false, fmt.Errorf("decode running configuration: %w", err)
	}
	return false, render(inv.Out, running, inv.arg(0))
}

func cmdShowState(ctx context.Context, inv *Invocation) (bool, error) {
	data, err := inv.Session.Client().GetState(ctx, inv.arg(0))
	if err != nil {
		return false, err
	}
	return false, writeJSON(inv.Out, data)
}

func cmdShowYangModules(ctx context.Context, inv *Invocation) (bool, error) {
	sc := inv.Session.Schema()
	if sc == nil || len(sc.Modules()) == 0 {
		fmt.Fprintln(inv.Out, "No YANG modules loaded")
		return false, nil
	}
	fmt.Fprintf(inv.Out, "%-32s %-12s %s\n", "Module", "Revision", "Namespace")
	for _, m := range sc.Modules() {
		fmt.Fprintf(inv.Out, "%-32s %-12s %s\n", m.Name, m.Revision, m.Namespace)
	}
	return false, nil
}

func cmdShowCommitHistory(ctx context.Context, inv *Invocation) (bool, error) {
	commits := inv.Session.Commits().Commits()
	if len(commits) == 0 {
		fmt.Fprintln(inv.Out, "No commits in this session")
		return false, nil
	}
	// Rollback numbers count back from the latest commit.
	for i, c := range commits {
		fmt.Fprintf(inv.Out, "%d: commit %d at %s: %s", i+1, c.ID, c.Time.Format("2006-01-02 15:04:05"), c.Summary())
		if c.Comment != "" {
			fmt.Fprintf(inv.Out, " (%s)", c.Comment)
		}
		fmt.Fprintln(inv.Out)
		for _, ch := range c.Changes {
			fmt.Fprintf(inv.Out, "    %s %s\n", ch.Op, ch.Path)
		}
	}
	return false, nil
}

func cmdShowStatistics(ctx context.Context, inv *Invocation) (bool, error) {
	if inv.cli.metrics == nil {
		return false, errors.New("statistics not enabled")
	}
	return false, inv.cli.metrics.Write(inv.Out)
}

func cmdRequest(ctx context.Context, inv *Invocation) (bool, error) {
	name := inv.arg(0)
	var path string
	for _, rpc := range inv.Session.Schema().RPCs() {
		if rpc.Name == name {
			path = "/" + rpc.Module + ":" + rpc.Name
			break
		}
	}
	if path == "" {
		return false, fmt.Errorf("unknown operation: %s", name)
	}
	var input []byte
	if len(inv.Args) > 1 {
		input = []byte(inv.Args[1])
		if !gjson.ValidBytes(input) {
			return false, fmt.Errorf("invalid JSON input: %s", inv.Args[1])
		}
	}
	output, err := inv.Session.Client().Execute(ctx, path, input)
	if err != nil {
		return false, err
	}
	if len(output) > 0 {
		return false, writeJSON(inv.Out, output)
	}
	return false, nil
}

func cmdReloadSchema(ctx context.Context, inv *Invocation) (bool, error) {
	if inv.cli.loader == nil {
		return false, errors.New("schema reload not available")
	}
	sc, err := inv.cli.loader(ctx)
	if err != nil {
		return false, fmt.Errorf("reload schema: %w", err)
	}
	if err := inv.Session.SetSchema(ctx, sc); err != nil {
		return false, err
	}
	inv.cli.tree.Store(cmdtree.Build(sc))
	fmt.Fprintf(inv.Out, "Loaded %d YANG modules\n", len(sc.Modules()))
	return false, nil
}

// ===== configuration commands =====

func cmdExit(ctx context.Context, inv *Invocation) (bool, error) {
	inv.Session.Exit()
	return false, nil
}

func cmdEnd(ctx context.Context, inv *Invocation) (bool, error) {
	inv.Session.ExitConfigure()
	return false, nil
}

func cmdTop(ctx context.Context, inv *Invocation) (bool, error) {
	inv.Session.Top()
	return false, nil
}

func cmdPwd(ctx context.Context, inv *Invocation) (bool, error) {
	fmt.Fprintln(inv.Out, inv.Session.Pwd())
	return false, nil
}

func cmdCommit(ctx context.Context, inv *Invocation) (bool, error) {
	if err := inv.Session.Validate(); err != nil {
		return false, fmt.Errorf("validation failed: %w", err)
	}
	// A commit in flight is not interrupted by Ctrl-C.
	ctx = context.WithoutCancel(ctx)
	if err := inv.Session.CandidateCommit(ctx, inv.arg(0)); err != nil {
		return false, err
	}
	inv.Session.UpdateHostname(ctx)
	return false, nil
}

func cmdDiscard(ctx context.Context, inv *Invocation) (bool, error) {
	inv.Session.CandidateRollback()
	return false, nil
}

func cmdValidate(ctx context.Context, inv *Invocation) (bool, error) {
	if err := inv.Session.Validate(); err != nil {
		return false, err
	}
	fmt.Fprintln(inv.Out, "Candidate configuration is valid")
	return false, nil
}

func cmdRollback(ctx context.Context, inv *Invocation) (bool, error) {
	n, err := strconv.Atoi(inv.arg(0))
	if err != nil {
		return false, err
	}
	return false, inv.Session.Rollback(n)
}

func cmdLoad(ctx context.Context, inv *Invocation) (bool, error) {
	data, err := os.ReadFile(inv.arg(0))
	if err != nil {
		return false, err
	}
	t, err := config.ParseText(inv.Session.Schema(), string(data))
	if err != nil {
		return false, fmt.Errorf("%s: %w", inv.arg(0), err)
	}
	return false, inv.Session.Merge(t)
}

func cmdShowCandidate(ctx context.Context, inv *Invocation) (bool, error) {
	return false, render(inv.Out, inv.Session.Candidate(), inv.arg(0))
}

func cmdShowChanges(ctx context.Context, inv *Invocation) (bool, error) {
	if !inv.Session.Pending() {
		fmt.Fprintln(inv.Out, "No uncommitted changes")
		return false, nil
	}
	_, err := io.WriteString(inv.Out, config.Compare(inv.Session.Running(), inv.Session.Candidate()))
	return false, err
}

// cmdRun runs an operational command from configuration mode.
func cmdRun(ctx context.Context, inv *Invocation) (bool, error) {
	// An operational "exit" only ends the nested command, not the CLI.
	_, err := inv.cli.execute(ctx, inv.Tree.Operational(), inv.arg(0), inv.Out)
	var cerr *Error
	if errors.As(err, &cerr) {
		// Unwrap so the outer dispatch does not nest the classification.
		return false, cerr.Err
	}
	return false, err
}

// render writes a configuration in one of cmdtree.Formats. The default
// is "cmds".
func render(w io.Writer, t *config.ConfigTree, format string) error {
	switch format {
	case "", "cmds":
		_, err := io.WriteString(w, t.FormatCommands())
		return err
	case "text":
		_, err := io.WriteString(w, t.Format())
		return err
	case "json":
		data, err := t.EncodeJSON()
		if err != nil {
			return err
		}
		return writeJSON(w, data)
	case "yaml":
		data, err := t.EncodeYAML()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format: %s", format)
}

// writeJSON writes JSON data indented.
func writeJSON(w io.Writer, data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON from daemon")
	}
	_, err := io.WriteString(w, gjson.GetBytes(data, "@pretty").Raw)
	return err
}

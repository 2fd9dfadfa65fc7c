package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/fatihusta/holo-cli/pkg/cmdtree"
	"github.com/fatihusta/holo-cli/pkg/parser"
	"github.com/fatihusta/holo-cli/pkg/session"
)

// RunInteractive reads commands from the terminal until "exit" or EOF in
// operational mode. historyFile may be empty to disable history.
func (c *CLI) RunInteractive(ctx context.Context, historyFile string) error {
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o700); err != nil {
			slog.Warn("command history disabled", "file", historyFile, "err", err)
			historyFile = ""
		}
	}

	var rl *readline.Instance
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          c.colorPrompt(),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{cli: c, stdout: func() io.Writer { return rl.Stdout() }},
		Listener: readline.FuncListener(func(line []rune, pos int, key rune) ([]rune, int, bool) {
			if key != '?' || pos < 1 || line[pos-1] != '?' {
				return line, pos, false
			}
			text := string(line[:pos-1])
			if strings.Count(text, `"`)%2 == 1 {
				// Inside a quoted string '?' is literal.
				return line, pos, false
			}
			clean := make([]rune, 0, len(line)-1)
			clean = append(clean, line[:pos-1]...)
			clean = append(clean, line[pos:]...)
			candidates := c.help(text)
			if len(candidates) == 0 {
				fmt.Fprintln(rl.Stdout(), "  (no help available)")
			} else {
				cmdtree.WriteHelp(rl.Stdout(), candidates)
			}
			return clean, pos - 1, true
		}),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer rl.Close()

	// The first Ctrl-C cancels a running command; two in a row at the
	// prompt exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go c.watchInterrupts(sigCh, done, rl)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			if errors.Is(err, io.EOF) {
				// Ctrl-D leaves configuration mode first.
				if c.leaveConfigure() {
					rl.SetPrompt(c.colorPrompt())
					continue
				}
				return nil
			}
			return err
		}

		cmdCtx := c.startCmd(ctx)
		exit, err := c.EnterCommand(cmdCtx, line)
		c.endCmd()
		if err != nil && !errors.Is(err, context.Canceled) {
			c.PrintError(err)
		}
		if exit {
			return nil
		}
		rl.SetPrompt(c.colorPrompt())
	}
}

// leaveConfigure exits configuration mode and reports whether the CLI was
// in it.
func (c *CLI) leaveConfigure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session.Mode().Kind != session.ModeConfigure {
		return false
	}
	c.session.ExitConfigure()
	c.saveState()
	return true
}

func (c *CLI) colorPrompt() string {
	return c.term.String(c.Prompt()).Bold().String()
}

// help returns the "?" candidates for the text typed so far.
func (c *CLI) help(text string) []cmdtree.Candidate {
	if cands, _, ok := completePipe(text); ok {
		return cands
	}
	words, partial := parser.SplitPartial(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	tree := c.tree.Load()
	return tree.Help(tree.Scope(c.session.Mode()), words, partial)
}

// complete returns the TAB candidates and the partial word they replace.
func (c *CLI) complete(text string) ([]cmdtree.Candidate, string) {
	if cands, partial, ok := completePipe(text); ok {
		return cands, partial
	}
	if strings.Count(text, `"`)%2 == 1 {
		return nil, ""
	}
	words, partial := parser.SplitPartial(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	tree := c.tree.Load()
	return tree.Complete(tree.Scope(c.session.Mode()), words, partial), partial
}

// completer implements readline.AutoCompleter.
type completer struct {
	cli    *CLI
	stdout func() io.Writer
}

func (cp *completer) Do(line []rune, pos int) ([][]rune, int) {
	candidates, partial := cp.cli.complete(string(line[:pos]))
	if len(candidates) == 0 {
		return nil, 0
	}
	names := cmdtree.Names(candidates)
	if len(names) == 1 {
		return [][]rune{[]rune(names[0][len(partial):] + " ")}, len([]rune(partial))
	}

	// Several matches: list them above the prompt and extend to the
	// common prefix.
	cmdtree.WriteHelp(cp.stdout(), candidates)
	suffix := cmdtree.CommonPrefix(names)[len(partial):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len([]rune(partial))
}

// prompter is the part of the line editor the interrupt handler drives.
type prompter interface {
	Close() error
	Refresh()
}

// watchInterrupts handles Ctrl-C until done is closed: it cancels the
// running command, or closes the prompt when pressed twice within two
// seconds.
func (c *CLI) watchInterrupts(sigCh <-chan os.Signal, done <-chan struct{}, rl prompter) {
	var lastInterrupt time.Time
	for {
		select {
		case <-done:
			return
		case <-sigCh:
		}
		if c.cancelCmd() {
			fmt.Fprintln(os.Stderr, "\n^C (command cancelled)")
			continue
		}
		now := time.Now()
		if now.Sub(lastInterrupt) < 2*time.Second {
			rl.Close()
			return
		}
		lastInterrupt = now
		fmt.Fprintln(os.Stderr, "\n^C (press again within 2s to exit)")
		rl.Refresh()
	}
}

package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/client"
	"github.com/fatihusta/holo-cli/pkg/schema"
)

// RunCommands runs each command in turn, printing errors and continuing.
// It stops early when a command asks to exit.
func (c *CLI) RunCommands(ctx context.Context, commands []string) {
	for _, cmd := range commands {
		exit, err := c.EnterCommand(ctx, cmd)
		if err != nil {
			c.PrintError(err)
		}
		if exit {
			return
		}
	}
}

// ReadConfigFile replays a file of configuration commands from the top
// of configuration mode and commits the result once. Errors of single
// lines are printed as they would be interactively and skipped; a file
// that cannot be read or a failed commit is returned.
func (c *CLI) ReadConfigFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file path: %w", err)
	}

	c.mu.Lock()
	err = c.session.EnterConfigure(ctx)
	c.saveState()
	c.mu.Unlock()
	if err != nil {
		return err
	}

	lines := 0
	sc := bufio.NewScanner(strings.NewReader(string(data)))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines++
		if _, err := c.EnterCommand(ctx, sc.Text()); err != nil {
			slog.Debug("configuration line failed", "path", path, "line", lines, "err", err)
			c.PrintError(err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.saveState()
	slog.Debug("configuration file replayed", "path", path, "lines", lines)
	return c.session.CandidateCommit(ctx, "Configuration read from "+path)
}

// LoadSchema builds a schema context from the modules the daemon
// advertises, searching dirs for their sources. Modules that cannot be
// loaded are logged and skipped.
func LoadSchema(ctx context.Context, cl client.Client, dirs ...string) (*schema.Context, error) {
	caps, err := cl.Capabilities(ctx)
	if err != nil {
		return nil, err
	}
	sc := schema.NewContext(dirs...)
	loaded := 0
	for _, m := range caps.Modules {
		if err := sc.LoadModule(m.Name); err != nil {
			slog.Warn("YANG module not loaded", "module", m.Name, "revision", m.Revision, "err", err)
			continue
		}
		loaded++
	}
	if err := sc.Finalize(); err != nil {
		slog.Warn("YANG modules skipped", "err", err)
	}
	slog.Debug("schema loaded", "advertised", len(caps.Modules), "loaded", loaded)
	return sc, nil
}

package cli

import (
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/term"
)

// defaultPager is used when $PAGER is unset. -F exits when the output
// fits on one screen.
const defaultPager = "less -FRX"

// writeOutput filters command output and writes it to the output stream,
// through the pager when enabled and the output does not fit the
// terminal.
func (c *CLI) writeOutput(output []byte, pipes []pipe) error {
	text, page := filterOutput(string(output), pipes)
	if text == "" {
		return nil
	}
	if page && c.pager {
		if f, ok := c.out.(*os.File); ok && needsPager(f, text) {
			err := runPager(f, text)
			if err == nil {
				return nil
			}
			slog.Debug("pager failed, writing directly", "err", err)
		}
	}
	_, err := io.WriteString(c.out, text)
	return err
}

// needsPager reports whether f is a terminal too short for text.
func needsPager(f *os.File, text string) bool {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false
	}
	_, height, err := term.GetSize(fd)
	if err != nil || height <= 0 {
		return false
	}
	return strings.Count(text, "\n") >= height
}

func runPager(out *os.File, text string) error {
	cmdline := os.Getenv("PAGER")
	if strings.TrimSpace(cmdline) == "" {
		cmdline = defaultPager
	}
	args := strings.Fields(cmdline)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = out
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

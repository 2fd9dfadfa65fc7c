package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/cmdtree"
	"github.com/fatihusta/holo-cli/pkg/parser"
)

// pipe is one "| filter [arg]" stage applied to command output.
type pipe struct {
	kind string
	re   *regexp.Regexp
	n    int
}

// pipeFilters lists the filters and their descriptions for help.
var pipeFilters = []cmdtree.Candidate{
	{Name: "count", Desc: "Count output lines"},
	{Name: "except", Desc: "Show only lines that do not match a pattern"},
	{Name: "find", Desc: "Show output from the first line matching a pattern"},
	{Name: "last", Desc: "Show the last lines of output only"},
	{Name: "match", Desc: "Show only lines that match a pattern"},
	{Name: "no-more", Desc: "Do not page output"},
}

// splitPipes splits a normalized line at every " | " outside quotes and
// parses the filter stages.
func splitPipes(line string) (string, []pipe, error) {
	parts := splitUnquoted(line, " | ")
	var pipes []pipe
	for _, text := range parts[1:] {
		p, err := parsePipe(strings.TrimSpace(text))
		if err != nil {
			return "", nil, err
		}
		pipes = append(pipes, p)
	}
	return strings.TrimSpace(parts[0]), pipes, nil
}

func parsePipe(text string) (pipe, error) {
	words, err := parser.Tokenize(text)
	if err != nil {
		return pipe{}, err
	}
	if len(words) == 0 {
		return pipe{}, fmt.Errorf("missing filter after '|'")
	}
	var names []string
	for _, f := range pipeFilters {
		if strings.HasPrefix(f.Name, words[0]) {
			names = append(names, f.Name)
		}
	}
	switch len(names) {
	case 0:
		return pipe{}, fmt.Errorf("unknown filter: %s", words[0])
	case 1:
	default:
		return pipe{}, fmt.Errorf("ambiguous filter: %s (%s)", words[0], strings.Join(names, ", "))
	}
	p := pipe{kind: names[0]}
	args := words[1:]

	switch p.kind {
	case "match", "except", "find":
		if len(args) != 1 {
			return pipe{}, fmt.Errorf("%s: expected one pattern", p.kind)
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return pipe{}, fmt.Errorf("%s: %w", p.kind, err)
		}
		p.re = re
	case "last":
		p.n = 10
		if len(args) > 1 {
			return pipe{}, fmt.Errorf("last: expected a line count")
		}
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return pipe{}, fmt.Errorf("last: invalid line count %q", args[0])
			}
			p.n = n
		}
	default:
		if len(args) > 0 {
			return pipe{}, fmt.Errorf("%s: unexpected input: %s", p.kind, strings.Join(args, " "))
		}
	}
	return p, nil
}

// apply filters output lines.
func (p pipe) apply(lines []string) []string {
	switch p.kind {
	case "match":
		var out []string
		for _, l := range lines {
			if p.re.MatchString(l) {
				out = append(out, l)
			}
		}
		return out
	case "except":
		var out []string
		for _, l := range lines {
			if !p.re.MatchString(l) {
				out = append(out, l)
			}
		}
		return out
	case "find":
		for i, l := range lines {
			if p.re.MatchString(l) {
				return lines[i:]
			}
		}
		return nil
	case "count":
		return []string{fmt.Sprintf("Count: %d lines", len(lines))}
	case "last":
		if len(lines) > p.n {
			return lines[len(lines)-p.n:]
		}
	}
	return lines
}

// filterOutput runs output through the pipes. It reports whether paging
// stays enabled.
func filterOutput(output string, pipes []pipe) (string, bool) {
	if len(pipes) == 0 {
		return output, true
	}
	lines := strings.Split(strings.TrimSuffix(output, "\n"), "\n")
	page := true
	for _, p := range pipes {
		if p.kind == "no-more" {
			page = false
		}
		lines = p.apply(lines)
	}
	if len(lines) == 0 {
		return "", page
	}
	return strings.Join(lines, "\n") + "\n", page
}

// splitUnquoted splits s around sep where sep is not inside double quotes.
func splitUnquoted(s, sep string) []string {
	var parts []string
	inQuote, escaped := false, false
	start := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case inQuote && escaped:
			escaped = false
		case inQuote && ch == '\\':
			escaped = true
		case ch == '"':
			inQuote = !inQuote
		case !inQuote && strings.HasPrefix(s[i:], sep):
			parts = append(parts, s[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	return append(parts, s[start:])
}

// completePipe returns filter candidates when text ends inside a pipe
// stage, and whether text is inside one.
func completePipe(text string) ([]cmdtree.Candidate, string, bool) {
	parts := splitUnquoted(text, " |")
	if len(parts) < 2 {
		return nil, "", false
	}
	stage := strings.TrimLeft(parts[len(parts)-1], " ")
	if strings.Contains(stage, " ") {
		// The filter name is complete; its argument is free text.
		return nil, "", true
	}
	return cmdtree.FilterPrefix(pipeFilters, stage), stage, true
}

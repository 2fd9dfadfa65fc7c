// Package parser matches a command line against the command tree: words
// are resolved to keywords (exactly or by unique prefix) or captured as
// parameter values, and the node where the line ends identifies the
// command to run.
package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/cmdtree"
	"github.com/fatihusta/holo-cli/pkg/config"
)

// NegationKeyword negates a configuration command when it is the first
// word of a line.
const NegationKeyword = "no"

// ErrorKind classifies parse failures.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	ErrAmbiguous
	ErrIncomplete
	ErrTrailingInput
	ErrInvalidArgument
	ErrIllegalNegation
	ErrUnterminatedQuote
)

// Error describes why a line could not be parsed.
type Error struct {
	Kind ErrorKind

	// Word is the offending word or text.
	Word string
	// Candidates lists the competing keywords of an ambiguous word.
	Candidates []string
	// Param names the parameter an invalid argument was given for.
	Param string
	// Command is the command matched so far.
	Command string

	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrUnknown:
		return fmt.Sprintf("unknown command: %s", e.Word)
	case ErrAmbiguous:
		return fmt.Sprintf("ambiguous command: %s (%s)", e.Word, strings.Join(e.Candidates, ", "))
	case ErrIncomplete:
		if e.Command == "" {
			return "incomplete command"
		}
		return fmt.Sprintf("incomplete command: %s", e.Command)
	case ErrTrailingInput:
		return fmt.Sprintf("unexpected input: %s", e.Word)
	case ErrInvalidArgument:
		return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Word, e.Err)
	case ErrIllegalNegation:
		return fmt.Sprintf("%q cannot be negated", e.Command)
	case ErrUnterminatedQuote:
		return "unterminated quoted string"
	}
	return "parse error"
}

func (e *Error) Unwrap() error { return e.Err }

// ParsedCommand is the result of a successful parse.
type ParsedCommand struct {
	// TokenID identifies the node the line ended on.
	TokenID cmdtree.ID
	Negate  bool
	// Args holds the parameter values captured on the way, in order.
	Args []string
	// NoOp is set when the line ended on a grouping node without action.
	NoOp bool
}

// Parse matches line against the commands below scope. A line holding no
// command yields a nil ParsedCommand and a nil error.
func Parse(scope *cmdtree.Node, line string) (*ParsedCommand, error) {
	words, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, nil
	}

	cmd := &ParsedCommand{}
	if words[0] == NegationKeyword && scope.Keyword(NegationKeyword) == nil {
		cmd.Negate = true
		words = words[1:]
		if len(words) == 0 {
			return nil, &Error{Kind: ErrIncomplete, Command: NegationKeyword}
		}
	}

	node := scope
	var matched []string
descend:
	for i, w := range words {
		if !node.HasChildren() {
			return nil, &Error{Kind: ErrTrailingInput, Word: strings.Join(words[i:], " "), Command: strings.Join(matched, " ")}
		}
		if kw := node.Keyword(w); kw != nil {
			node = kw
			matched = append(matched, kw.Text)
			continue
		}
		switch m := node.KeywordsWithPrefix(w); len(m) {
		case 1:
			node = m[0]
			matched = append(matched, m[0].Text)
			continue
		case 0:
		default:
			names := make([]string, len(m))
			for j, c := range m {
				names[j] = c.Text
			}
			sort.Strings(names)
			return nil, &Error{Kind: ErrAmbiguous, Word: w, Candidates: names, Command: strings.Join(matched, " ")}
		}

		p := node.ParamChild()
		if p == nil {
			return nil, &Error{Kind: ErrUnknown, Word: w, Command: strings.Join(matched, " ")}
		}
		if p.Param.Type == cmdtree.ParamRest {
			cmd.Args = append(cmd.Args, joinRest(words[i:]))
			node = p
			matched = append(matched, p.Name())
			break descend
		}
		v, err := p.Param.Validate(w)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidArgument, Word: w, Param: p.Param.Name, Command: strings.Join(matched, " "), Err: err}
		}
		cmd.Args = append(cmd.Args, v)
		node = p
		matched = append(matched, p.Name())
	}

	command := strings.Join(matched, " ")
	cmd.TokenID = node.ID
	if node.Action.Kind == cmdtree.ActionNone {
		// Only a built-in keyword with a single child groups commands;
		// schema nodes without an action, like a list key that is not the
		// last one, still need input.
		if node.Kind != cmdtree.KindKeyword || node.FromSchema || len(node.Children()) != 1 || node == scope {
			return nil, &Error{Kind: ErrIncomplete, Command: command}
		}
		if cmd.Negate {
			return nil, &Error{Kind: ErrIllegalNegation, Command: command}
		}
		cmd.NoOp = true
		return cmd, nil
	}
	if cmd.Negate && node.Action.Kind != cmdtree.ActionConfigEdit {
		return nil, &Error{Kind: ErrIllegalNegation, Command: command}
	}
	if !node.Terminal(cmd.Negate) {
		return nil, &Error{Kind: ErrIncomplete, Command: command}
	}
	return cmd, nil
}

// joinRest rebuilds the text captured by a rest-of-line parameter. A
// single word is taken as is; several words are joined with quoting so
// that the text tokenizes back to the same words.
func joinRest(words []string) string {
	if len(words) == 1 {
		return words[0]
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = config.Quote(w)
	}
	return strings.Join(quoted, " ")
}

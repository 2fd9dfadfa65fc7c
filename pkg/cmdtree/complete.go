package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Candidate holds a completion and its description for display.
type Candidate struct {
	Name string
	Desc string
}

// Complete returns the words that may replace partial after words, for
// TAB completion.
func (t *Tree) Complete(scope *Node, words []string, partial string) []Candidate {
	return t.candidates(scope, words, partial, false)
}

// Help returns the candidates shown by "?": completions plus parameter
// placeholders and "<cr>" when the command may end here.
func (t *Tree) Help(scope *Node, words []string, partial string) []Candidate {
	return t.candidates(scope, words, partial, true)
}

func (t *Tree) candidates(scope *Node, words []string, partial string, help bool) []Candidate {
	negate := false
	if len(words) > 0 && words[0] == "no" {
		negate = true
		words = words[1:]
	}

	node := walk(scope, words)
	if node == nil {
		return nil
	}

	var out []Candidate
	if len(words) == 0 && !negate && scope != t.opRoot && strings.HasPrefix("no", partial) {
		out = append(out, Candidate{Name: "no", Desc: "Negate a command or set its defaults"})
	}
	if node.Kind == KindParam && node.Param.Type == ParamRest && len(words) > 0 {
		// Everything after a rest-of-line parameter belongs to it.
		if help {
			out = append(out, Candidate{Name: "<cr>"})
		}
		return out
	}
	for _, c := range node.KeywordsWithPrefix(partial) {
		out = append(out, Candidate{Name: c.Text, Desc: c.Desc})
	}
	if p := node.param; p != nil {
		var choices []Candidate
		for _, v := range p.Param.Choices() {
			choices = append(choices, Candidate{Name: v, Desc: p.Desc})
		}
		out = append(out, FilterPrefix(choices, partial)...)
		if help {
			out = append(out, Candidate{Name: p.Name(), Desc: p.Desc})
		}
	}
	if help && partial == "" && node != scope && node.Terminal(negate) {
		out = append(out, Candidate{Name: "<cr>"})
	}
	return out
}

// walk follows words from scope the way the parser does and returns the
// node reached, or nil when a word matches nothing.
func walk(scope *Node, words []string) *Node {
	node := scope
	for _, w := range words {
		if node.Kind == KindParam && node.Param.Type == ParamRest {
			continue
		}
		if kw := node.Keyword(w); kw != nil {
			node = kw
			continue
		}
		if m := node.KeywordsWithPrefix(w); len(m) == 1 {
			node = m[0]
			continue
		} else if len(m) > 1 {
			return nil
		}
		if node.param == nil {
			return nil
		}
		node = node.param
	}
	return node
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return helpRank(candidates[i].Name) < helpRank(candidates[j].Name) ||
			helpRank(candidates[i].Name) == helpRank(candidates[j].Name) && candidates[i].Name < candidates[j].Name
	})
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// helpRank lists keywords first, then placeholders, then <cr>.
func helpRank(name string) int {
	switch {
	case name == "<cr>":
		return 2
	case strings.HasPrefix(name, "<"):
		return 1
	default:
		return 0
	}
}

// Names returns the candidate names.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// FilterPrefix returns the candidates whose name starts with prefix, in a
// new slice that the caller may sort.
func FilterPrefix(candidates []Candidate, prefix string) []Candidate {
	var result []Candidate
	for _, c := range candidates {
		if strings.HasPrefix(c.Name, prefix) {
			result = append(result, c)
		}
	}
	return result
}

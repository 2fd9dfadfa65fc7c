package config

import (
	"fmt"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// Format renders the tree as hierarchical configuration text.
func (t *ConfigTree) Format() string {
	var b strings.Builder
	if t != nil {
		formatNodes(&b, t.Children, 0)
	}
	return b.String()
}

func formatNodes(b *strings.Builder, nodes []*Node, indent int) {
	prefix := strings.Repeat("    ", indent)
	for _, n := range nodes {
		switch n.Kind() {
		case schema.KindLeaf:
			if n.Schema.EmptyType() {
				fmt.Fprintf(b, "%s%s;\n", prefix, n.Name())
			} else {
				fmt.Fprintf(b, "%s%s %s;\n", prefix, n.Name(), Quote(n.Value))
			}
		case schema.KindLeafList:
			for _, v := range n.Values {
				fmt.Fprintf(b, "%s%s %s;\n", prefix, n.Name(), Quote(v))
			}
		default:
			fmt.Fprintf(b, "%s%s {\n", prefix, stepOf(n))
			formatNodes(b, n.Children, indent+1)
			fmt.Fprintf(b, "%s}\n", prefix)
		}
	}
}

// FormatCommands renders the tree as CLI commands that rebuild it when fed
// line by line in configuration mode at the top level. Every container or
// list entry opens a context that is closed by an explicit "exit".
func (t *ConfigTree) FormatCommands() string {
	var b strings.Builder
	if t != nil {
		formatCommands(&b, t.Children, 0)
	}
	return b.String()
}

func formatCommands(b *strings.Builder, nodes []*Node, depth int) {
	prefix := strings.Repeat(" ", depth)
	for _, n := range nodes {
		for _, line := range leafCommands(n) {
			fmt.Fprintf(b, "%s%s\n", prefix, line)
		}
		if isLeafKind(n) {
			continue
		}
		fmt.Fprintf(b, "%s%s\n", prefix, stepOf(n))
		formatCommands(b, n.Children, depth+1)
		fmt.Fprintf(b, "%s exit\n", prefix)
	}
}

// FormatFlat renders one full-path command per leaf value. Containers and
// list entries without children get a line of their own.
func (t *ConfigTree) FormatFlat() string {
	var b strings.Builder
	t.Walk(func(path []Step, n *Node) bool {
		parent := PathString(path[:len(path)-1])
		if parent != "" {
			parent += " "
		}
		if isLeafKind(n) {
			for _, line := range leafCommands(n) {
				fmt.Fprintf(&b, "%s%s\n", parent, line)
			}
			return false
		}
		if len(n.Children) == 0 {
			fmt.Fprintf(&b, "%s\n", PathString(path))
		}
		return true
	})
	return b.String()
}

func isLeafKind(n *Node) bool {
	k := n.Kind()
	return k == schema.KindLeaf || k == schema.KindLeafList
}

func leafCommands(n *Node) []string {
	switch n.Kind() {
	case schema.KindLeaf:
		if n.Schema.EmptyType() {
			return []string{n.Name()}
		}
		return []string{n.Name() + " " + Quote(n.Value)}
	case schema.KindLeafList:
		lines := make([]string, len(n.Values))
		for i, v := range n.Values {
			lines[i] = n.Name() + " " + Quote(v)
		}
		return lines
	}
	return nil
}

func stepOf(n *Node) Step {
	return Step{Node: n.Schema, Keys: n.Keys}
}

// Quote returns s unchanged when it reads back as a single word, and in
// double quotes with backslash escapes otherwise.
func Quote(s string) string {
	if s != "" && !strings.ContainsFunc(s, func(r rune) bool { return !isWordRune(r) }) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = Quote(s)
	}
	return out
}

package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// Operation is the kind of a configuration change.
type Operation int

const (
	OpUpdate Operation = iota
	OpReplace
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpUpdate:
		return "update"
	case OpReplace:
		return "replace"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Change is one edit needed to turn one configuration into another.
// Path is a gNMI path string with a module-qualified first element
// ("/holo-test:interfaces/interface[name=eth0]/mtu"). Value is the
// JSON_IETF encoded value for updates and replaces.
type Change struct {
	Op    Operation
	Path  string
	Value string
}

func (c Change) String() string {
	if c.Op == OpDelete {
		return fmt.Sprintf("%s %s", c.Op, c.Path)
	}
	return fmt.Sprintf("%s %s %s", c.Op, c.Path, c.Value)
}

// Diff returns the changes that turn from into to: deletions first, then
// updates, each in tree order. Changed leaf-lists are replaced whole.
func Diff(from, to *ConfigTree) ([]Change, error) {
	var a, b []*Node
	if from != nil {
		a = from.Children
	}
	if to != nil {
		b = to.Children
	}
	var dels, upds []Change
	if err := diffNodes(nil, a, b, &dels, &upds); err != nil {
		return nil, err
	}
	return append(dels, upds...), nil
}

func diffNodes(prefix []Step, a, b []*Node, dels, upds *[]Change) error {
	for _, x := range a {
		if findNode(b, stepOf(x)) == nil {
			*dels = append(*dels, Change{Op: OpDelete, Path: XPath(append(prefix, stepOf(x)))})
		}
	}
	for _, y := range b {
		path := append(slices.Clip(prefix), stepOf(y))
		x := findNode(a, stepOf(y))
		if x == nil {
			v, err := EncodeNodeJSON(y)
			if err != nil {
				return err
			}
			*upds = append(*upds, Change{Op: OpUpdate, Path: XPath(path), Value: v})
			continue
		}
		switch y.Kind() {
		case schema.KindLeaf:
			if x.Value != y.Value {
				v, err := EncodeNodeJSON(y)
				if err != nil {
					return err
				}
				*upds = append(*upds, Change{Op: OpUpdate, Path: XPath(path), Value: v})
			}
		case schema.KindLeafList:
			if !slices.Equal(x.Values, y.Values) {
				v, err := EncodeNodeJSON(y)
				if err != nil {
					return err
				}
				*upds = append(*upds, Change{Op: OpReplace, Path: XPath(path), Value: v})
			}
		default:
			if err := diffNodes(path, x.Children, y.Children, dels, upds); err != nil {
				return err
			}
		}
	}
	return nil
}

// XPath renders a data path as a gNMI path string. The first element and
// every element whose module differs from its parent are qualified.
func XPath(path []Step) string {
	var b strings.Builder
	parentModule := ""
	for _, s := range path {
		b.WriteByte('/')
		b.WriteString(memberName(s.Node, parentModule))
		parentModule = s.Node.Module()
		for i, key := range s.Node.Keys() {
			if i >= len(s.Keys) {
				break
			}
			v := s.Keys[i]
			if kn, ok := s.Node.Child(key); ok {
				v = kn.JSONValue(v)
			}
			fmt.Fprintf(&b, "[%s=%s]", key, escapePredicate(v))
		}
	}
	return b.String()
}

func escapePredicate(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `]`, `\]`)
	return r.Replace(v)
}

// Compare renders the differences between two configurations as flat
// commands, "-" for removed lines and "+" for added lines.
func Compare(from, to *ConfigTree) string {
	fromLines := splitLines(from.FormatFlat())
	toLines := splitLines(to.FormatFlat())

	fromSet := make(map[string]bool, len(fromLines))
	for _, line := range fromLines {
		fromSet[line] = true
	}
	toSet := make(map[string]bool, len(toLines))
	for _, line := range toLines {
		toSet[line] = true
	}

	var b strings.Builder
	for _, line := range fromLines {
		if !toSet[line] {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}
	for _, line := range toLines {
		if !fromSet[line] {
			fmt.Fprintf(&b, "+ %s\n", line)
		}
	}
	return b.String()
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

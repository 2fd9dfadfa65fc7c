// Package config implements the configuration data tree edited by the CLI:
// a schema-typed tree with deep copy, path edits, diffing and the text,
// command, JSON_IETF and YAML renderings.
package config

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// Step addresses one data node level: the schema node and, for list
// entries, the key values in key order.
type Step struct {
	Node schema.Node
	Keys []string
}

// canonical returns s with its key values in stored form.
func (s Step) canonical() Step {
	names := s.Node.Keys()
	cloned := false
	for i, v := range s.Keys {
		if i >= len(names) {
			break
		}
		kn, ok := s.Node.Child(names[i])
		if !ok {
			continue
		}
		if c := kn.CanonicalValue(v); c != v {
			if !cloned {
				s.Keys = slices.Clone(s.Keys)
				cloned = true
			}
			s.Keys[i] = c
		}
	}
	return s
}

func (s Step) String() string {
	if len(s.Keys) == 0 {
		return s.Node.Name()
	}
	return s.Node.Name() + " " + strings.Join(quoteAll(s.Keys), " ")
}

// Node is one instance of a schema node in the tree.
type Node struct {
	Schema schema.Node

	// Keys holds the key values of a list entry.
	Keys []string

	// Value holds the value of a leaf ("" for an empty-type leaf).
	Value string

	// Values holds the values of a leaf-list in insertion order.
	Values []string

	// Children are the data nodes below a container or list entry,
	// ordered by schema name and, for list entries, by insertion.
	Children []*Node
}

// Name returns the schema node name.
func (n *Node) Name() string { return n.Schema.Name() }

// Kind returns the schema node classification.
func (n *Node) Kind() schema.Kind { return n.Schema.Kind() }

func (n *Node) matches(s Step) bool {
	return n.Schema == s.Node && slices.Equal(n.Keys, s.Keys)
}

// Child returns the child addressed by s, or nil.
func (n *Node) Child(s Step) *Node {
	return findNode(n.Children, s)
}

// ConfigTree is the root of a configuration.
type ConfigTree struct {
	Children []*Node
}

// New returns an empty configuration tree.
func New() *ConfigTree {
	return &ConfigTree{}
}

// IsEmpty reports whether the tree holds no data.
func (t *ConfigTree) IsEmpty() bool {
	return t == nil || len(t.Children) == 0
}

// Find returns the node addressed by path, or nil.
func (t *ConfigTree) Find(path []Step) *Node {
	if t == nil || len(path) == 0 {
		return nil
	}
	nodes := t.Children
	var cur *Node
	for _, s := range path {
		if cur = findNode(nodes, s); cur == nil {
			return nil
		}
		nodes = cur.Children
	}
	return cur
}

// Set creates the node addressed by path, including missing ancestors.
// For a leaf the value replaces the current one; for a leaf-list it is
// added when not already present. Containers and list entries ignore
// value.
func (t *ConfigTree) Set(path []Step, value string) (*Node, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}

	current := &t.Children
	var n *Node
	for _, s := range path {
		s = s.canonical()
		n = findNode(*current, s)
		if n == nil {
			n = &Node{Schema: s.Node, Keys: append([]string(nil), s.Keys...)}
			*current = insertNode(*current, n)
		}
		current = &n.Children
	}

	value = n.Schema.CanonicalValue(value)
	switch n.Kind() {
	case schema.KindLeaf:
		n.Value = value
	case schema.KindLeafList:
		if !slices.Contains(n.Values, value) {
			n.Values = append(n.Values, value)
		}
	}
	return n, nil
}

// Delete removes the node addressed by path. For a leaf-list and a
// non-empty value only that value is removed (and the leaf-list with it
// once empty). Deleting something absent is not an error; the result
// reports whether anything changed.
func (t *ConfigTree) Delete(path []Step, value string) (bool, error) {
	if err := checkPath(path); err != nil {
		return false, err
	}

	parent := &t.Children
	for _, s := range path[:len(path)-1] {
		n := findNode(*parent, s)
		if n == nil {
			return false, nil
		}
		parent = &n.Children
	}

	last := path[len(path)-1]
	idx := slices.IndexFunc(*parent, func(n *Node) bool { return n.matches(last) })
	if idx < 0 {
		return false, nil
	}
	target := (*parent)[idx]
	if target.Kind() == schema.KindLeafList && value != "" {
		i := slices.Index(target.Values, target.Schema.CanonicalValue(value))
		if i < 0 {
			return false, nil
		}
		target.Values = slices.Delete(target.Values, i, i+1)
		if len(target.Values) > 0 {
			return true, nil
		}
	}
	*parent = slices.Delete(*parent, idx, idx+1)
	return true, nil
}

// Merge copies every node of src into t, overwriting leaf values and
// adding leaf-list values.
func (t *ConfigTree) Merge(src *ConfigTree) {
	if src == nil {
		return
	}
	t.Children = mergeNodes(t.Children, src.Children)
}

func mergeNodes(dst, src []*Node) []*Node {
	for _, s := range src {
		d := findNode(dst, Step{Node: s.Schema, Keys: s.Keys})
		if d == nil {
			dst = insertNode(dst, cloneNode(s))
			continue
		}
		d.Value = s.Value
		for _, v := range s.Values {
			if !slices.Contains(d.Values, v) {
				d.Values = append(d.Values, v)
			}
		}
		d.Children = mergeNodes(d.Children, s.Children)
	}
	return dst
}

// Clone creates a deep copy of the config tree.
func (t *ConfigTree) Clone() *ConfigTree {
	if t == nil {
		return nil
	}
	return &ConfigTree{Children: cloneNodes(t.Children)}
}

func cloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = cloneNode(n)
	}
	return result
}

func cloneNode(n *Node) *Node {
	return &Node{
		Schema:   n.Schema,
		Keys:     append([]string(nil), n.Keys...),
		Value:    n.Value,
		Values:   append([]string(nil), n.Values...),
		Children: cloneNodes(n.Children),
	}
}

// Equal reports whether both trees hold the same data. Leaf-list value
// order is significant.
func (t *ConfigTree) Equal(o *ConfigTree) bool {
	var a, b []*Node
	if t != nil {
		a = t.Children
	}
	if o != nil {
		b = o.Children
	}
	return nodesEqual(a, b)
}

func nodesEqual(a, b []*Node) bool {
	if len(a) != len(b) {
		return false
	}
	for _, x := range a {
		y := findNode(b, Step{Node: x.Schema, Keys: x.Keys})
		if y == nil || x.Value != y.Value || !slices.Equal(x.Values, y.Values) {
			return false
		}
		if !nodesEqual(x.Children, y.Children) {
			return false
		}
	}
	return true
}

// Walk visits every node depth-first with its full path. Returning false
// from fn skips the node's children.
func (t *ConfigTree) Walk(fn func(path []Step, n *Node) bool) {
	if t == nil {
		return
	}
	walkNodes(nil, t.Children, fn)
}

func walkNodes(prefix []Step, nodes []*Node, fn func([]Step, *Node) bool) {
	for _, n := range nodes {
		path := append(slices.Clip(prefix), Step{Node: n.Schema, Keys: n.Keys})
		if fn(path, n) {
			walkNodes(path, n.Children, fn)
		}
	}
}

func findNode(nodes []*Node, s Step) *Node {
	s = s.canonical()
	for _, n := range nodes {
		if n.matches(s) {
			return n
		}
	}
	return nil
}

// insertNode keeps siblings grouped by name in name order; entries of the
// same list stay in insertion order.
func insertNode(nodes []*Node, n *Node) []*Node {
	i := sort.Search(len(nodes), func(i int) bool { return nodes[i].Name() > n.Name() })
	return slices.Insert(nodes, i, n)
}

func checkPath(path []Step) error {
	if len(path) == 0 {
		return fmt.Errorf("empty path")
	}
	var parent schema.Node
	for i, s := range path {
		if s.Node.IsZero() {
			return fmt.Errorf("path element %d has no schema node", i)
		}
		if s.Node.Parent() != parent {
			return fmt.Errorf("%s is not a child of %s", s.Node.Name(), pathString(path[:i]))
		}
		want := 0
		if s.Node.Kind() == schema.KindList {
			want = len(s.Node.Keys())
		}
		if len(s.Keys) != want {
			return fmt.Errorf("%s: expected %d key values, got %d", s.Node.Name(), want, len(s.Keys))
		}
		if i < len(path)-1 {
			switch s.Node.Kind() {
			case schema.KindContainer, schema.KindList:
			default:
				return fmt.Errorf("%s has no children", s.Node.Name())
			}
		}
		parent = s.Node
	}
	return nil
}

func pathString(path []Step) string {
	if len(path) == 0 {
		return "top level"
	}
	return PathString(path)
}

// PathString renders a path the way it is typed on the command line.
func PathString(path []Step) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

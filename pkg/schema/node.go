package schema

import (
	"sort"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
)

// Kind classifies a schema node for command generation and data editing.
type Kind int

const (
	KindUnknown Kind = iota
	KindContainer
	KindList
	KindLeaf
	KindLeafList
)

func (k Kind) String() string {
	switch k {
	case KindContainer:
		return "container"
	case KindList:
		return "list"
	case KindLeaf:
		return "leaf"
	case KindLeafList:
		return "leaf-list"
	default:
		return "unknown"
	}
}

// Node is a reference to one data node of the loaded YANG model.
// The zero value refers to nothing. Nodes are comparable and can be used
// as map keys.
type Node struct {
	e *yang.Entry
}

// IsZero reports whether n refers to no schema node.
func (n Node) IsZero() bool { return n.e == nil }

// Name returns the node identifier without module prefix.
func (n Node) Name() string {
	if n.e == nil {
		return ""
	}
	return n.e.Name
}

// Description returns the YANG description statement, if any.
func (n Node) Description() string {
	if n.e == nil {
		return ""
	}
	return n.e.Description
}

// Kind returns the node classification.
func (n Node) Kind() Kind {
	switch {
	case n.e == nil:
		return KindUnknown
	case n.e.IsLeafList():
		return KindLeafList
	case n.e.IsLeaf():
		return KindLeaf
	case n.e.IsList():
		return KindList
	case n.e.IsContainer():
		return KindContainer
	default:
		return KindUnknown
	}
}

// Config reports whether the node holds configuration (not "config false").
func (n Node) Config() bool {
	return n.e != nil && !n.e.ReadOnly()
}

// Mandatory reports whether the leaf carries "mandatory true".
func (n Node) Mandatory() bool {
	return n.e != nil && n.e.Mandatory == yang.TSTrue
}

// Presence reports whether the node is a presence container.
func (n Node) Presence() bool {
	if n.e == nil {
		return false
	}
	c, ok := n.e.Node.(*yang.Container)
	return ok && c.Presence != nil
}

// Module returns the name of the module that instantiates the node, which
// is the namespace used when the node is qualified in JSON_IETF.
func (n Node) Module() string {
	if n.e == nil {
		return ""
	}
	if m, err := n.e.InstantiatingModule(); err == nil && m != "" {
		return m
	}
	if n.e.Node != nil {
		if root := yang.RootNode(n.e.Node); root != nil {
			return root.Name
		}
	}
	return ""
}

// Parent returns the closest data node ancestor, skipping choice and case
// statements. The zero Node is returned for top-level nodes.
func (n Node) Parent() Node {
	if n.e == nil {
		return Node{}
	}
	for p := n.e.Parent; p != nil; p = p.Parent {
		if p.IsChoice() || p.IsCase() {
			continue
		}
		if p.Parent == nil {
			// Module entry.
			return Node{}
		}
		return Node{e: p}
	}
	return Node{}
}

// Ancestry returns the data node chain from the top-level node down to n.
func (n Node) Ancestry() []Node {
	var chain []Node
	for cur := n; !cur.IsZero(); cur = cur.Parent() {
		chain = append(chain, cur)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Path returns the schema path of the node ("/interfaces/interface/mtu").
func (n Node) Path() string {
	var b strings.Builder
	for _, a := range n.Ancestry() {
		b.WriteByte('/')
		b.WriteString(a.Name())
	}
	return b.String()
}

// Keys returns the key leaf names of a list in declaration order.
func (n Node) Keys() []string {
	if n.e == nil || !n.e.IsList() || n.e.Key == "" {
		return nil
	}
	return strings.Fields(n.e.Key)
}

// IsKey reports whether n is a key leaf of its parent list.
func (n Node) IsKey() bool {
	p := n.Parent()
	if p.Kind() != KindList {
		return false
	}
	for _, k := range p.Keys() {
		if k == n.Name() {
			return true
		}
	}
	return false
}

// Child returns the data child with the given name, looking through
// choice and case statements.
func (n Node) Child(name string) (Node, bool) {
	if n.e == nil {
		return Node{}, false
	}
	return findChild(n.e, name)
}

// Children returns the data children of n in a stable order: list keys
// first (in key order), then the remaining nodes sorted by name.
func (n Node) Children() []Node {
	if n.e == nil {
		return nil
	}
	return orderedChildren(n.e, n.Keys())
}

// Type returns the YANG type of a leaf or leaf-list, or nil.
func (n Node) Type() *yang.YangType {
	if n.e == nil {
		return nil
	}
	return n.e.Type
}

// TypeName returns the name of the leaf type as written in the module.
func (n Node) TypeName() string {
	if t := n.Type(); t != nil {
		return t.Name
	}
	return ""
}

// EmptyType reports whether the leaf has type empty and so carries no value.
func (n Node) EmptyType() bool {
	t := n.Type()
	return t != nil && t.Kind == yang.Yempty
}

// Entry exposes the underlying goyang entry.
func (n Node) Entry() *yang.Entry { return n.e }

func findChild(e *yang.Entry, name string) (Node, bool) {
	if c, ok := e.Dir[name]; ok {
		if c.IsChoice() || c.IsCase() {
			return findChild(c, name)
		}
		return Node{e: c}, true
	}
	for _, c := range e.Dir {
		if c.IsChoice() || c.IsCase() {
			if n, ok := findChild(c, name); ok {
				return n, true
			}
		}
	}
	return Node{}, false
}

func flatten(e *yang.Entry, out map[string]*yang.Entry) {
	for name, c := range e.Dir {
		if c.IsChoice() || c.IsCase() {
			flatten(c, out)
			continue
		}
		if c.RPC != nil || c.Kind == yang.NotificationEntry {
			continue
		}
		out[name] = c
	}
}

func orderedChildren(e *yang.Entry, keys []string) []Node {
	all := make(map[string]*yang.Entry, len(e.Dir))
	flatten(e, all)

	nodes := make([]Node, 0, len(all))
	for _, k := range keys {
		if c, ok := all[k]; ok {
			nodes = append(nodes, Node{e: c})
			delete(all, k)
		}
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		nodes = append(nodes, Node{e: all[name]})
	}
	return nodes
}

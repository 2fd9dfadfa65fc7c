// Package cmdtree defines the command grammar of the CLI: the static
// built-in commands of both modes plus the configuration commands
// generated from the YANG model.
//
// A Tree is built once per schema and never patched; a schema reload
// builds a new Tree.
package cmdtree

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/schema"
	"github.com/fatihusta/holo-cli/pkg/session"
)

// Tree is the complete command grammar.
type Tree struct {
	nodes    []*Node
	opRoot   *Node
	cfgRoot  *Node
	dataRoot *Node

	// contexts maps a container or list schema node to the command node
	// whose children are in scope once that node is entered.
	contexts map[schema.Node]*Node
}

// New returns a tree holding only the built-in commands.
func New() *Tree {
	t := &Tree{contexts: make(map[schema.Node]*Node)}
	t.opRoot = t.newNode(KindKeyword, "")
	t.cfgRoot = t.newNode(KindKeyword, "")
	t.dataRoot = t.newNode(KindKeyword, "")
	if err := t.addCommands(t.opRoot, OperationalCommands()); err != nil {
		panic(err)
	}
	if err := t.addCommands(t.cfgRoot, ConfigCommands()); err != nil {
		panic(err)
	}
	return t
}

// Build returns the full tree for a schema: built-in commands, the
// "request" command for the schema's operations and the generated
// configuration commands.
func Build(ctx *schema.Context) *Tree {
	t := New()
	if ctx == nil {
		return t
	}
	if rpcs := ctx.RPCs(); len(rpcs) > 0 {
		names := make([]string, 0, len(rpcs))
		for _, r := range rpcs {
			names = append(names, r.Name)
		}
		sort.Strings(names)
		if err := t.addCommands(t.opRoot, map[string]*Command{"request": requestCommand(names)}); err != nil {
			slog.Warn("request command not available", "err", err)
		}
	}
	t.ExtendFromSchema(ctx)
	slog.Debug("command tree built", "nodes", len(t.nodes))
	return t
}

// ExtendFromSchema adds the configuration commands for every configurable
// container, list, leaf and leaf-list of the schema. A node that cannot be
// added is logged and its subtree omitted.
func (t *Tree) ExtendFromSchema(ctx *schema.Context) {
	for _, root := range ctx.Roots() {
		if err := t.addSchemaNode(t.dataRoot, root); err != nil {
			slog.Warn("skipping schema subtree", "path", root.Path(), "err", err)
		}
	}
}

func (t *Tree) addSchemaNode(parent *Node, sn schema.Node) error {
	if !sn.Config() || sn.IsKey() {
		return nil
	}

	kw := t.newNode(KindKeyword, sn.Name())
	kw.Desc = firstLine(sn.Description())
	kw.Help = sn.Description()
	kw.FromSchema = true
	kw.Action = ConfigEdit(sn)

	var body *Node
	switch sn.Kind() {
	case schema.KindContainer:
		body = kw

	case schema.KindList:
		kw.NegateOnly = true
		keys := sn.Keys()
		if len(keys) == 0 {
			return fmt.Errorf("keyless list %s is not supported", sn.Name())
		}
		cur := kw
		for i, key := range keys {
			kn, ok := sn.Child(key)
			if !ok {
				return fmt.Errorf("list %s: key leaf %q not found", sn.Name(), key)
			}
			p := t.newNode(KindParam, "")
			p.Param = &Param{Name: key, Type: ParamLeaf, Leaf: kn}
			p.Desc = firstLine(kn.Description())
			p.FromSchema = true
			if i == len(keys)-1 {
				p.Action = ConfigEdit(sn)
			}
			if err := cur.addChild(p); err != nil {
				return err
			}
			cur = p
		}
		body = cur

	case schema.KindLeaf, schema.KindLeafList:
		if sn.EmptyType() {
			return parent.addChild(kw)
		}
		kw.NegateOnly = true
		p := t.newNode(KindParam, "")
		p.Param = &Param{Name: sn.Name(), Type: ParamLeaf, Leaf: sn}
		p.Desc = typeDesc(sn)
		p.FromSchema = true
		p.Action = ConfigEdit(sn)
		if err := kw.addChild(p); err != nil {
			return err
		}
		return parent.addChild(kw)

	default:
		return fmt.Errorf("unsupported schema node kind %s", sn.Kind())
	}

	for _, child := range sn.Children() {
		if err := t.addSchemaNode(body, child); err != nil {
			slog.Warn("skipping schema subtree", "path", child.Path(), "err", err)
		}
	}
	t.contexts[sn] = body
	return parent.addChild(kw)
}

// addCommands adds a literal command table below parent.
func (t *Tree) addCommands(parent *Node, cmds map[string]*Command) error {
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		c := cmds[name]
		var n *Node
		if strings.HasPrefix(name, "<") {
			if c.Param == nil {
				return fmt.Errorf("parameter %s without type", name)
			}
			n = t.newNode(KindParam, "")
			p := *c.Param
			n.Param = &p
		} else {
			n = t.newNode(KindKeyword, name)
		}
		n.Desc = c.Desc
		if c.Callback != "" {
			n.Action = Callback(c.Callback)
		}
		if err := parent.addChild(n); err != nil {
			return err
		}
		if err := t.addCommands(n, c.Children); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) newNode(kind NodeKind, text string) *Node {
	n := &Node{ID: ID(len(t.nodes)), Kind: kind, Text: text}
	t.nodes = append(t.nodes, n)
	return n
}

// Lookup returns the node with the given ID.
func (t *Tree) Lookup(id ID) (*Node, bool) {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Operational returns the root of the operational commands.
func (t *Tree) Operational() *Node { return t.opRoot }

// Scope returns the node whose children are the commands available in
// the given mode. In configuration mode these are the generated commands
// of the current context merged with the configuration built-ins; a
// generated command wins when both define the same keyword.
func (t *Tree) Scope(mode session.CommandMode) *Node {
	if mode.Kind == session.ModeOperational {
		return t.opRoot
	}

	data := t.dataRoot
	if len(mode.Path) > 0 {
		last := mode.Path[len(mode.Path)-1].Node
		n, ok := t.contexts[last]
		if !ok {
			slog.Warn("no command context for schema node", "path", last.Path())
			n = &Node{ID: NoID}
		}
		data = n
	}

	scope := &Node{ID: NoID, Kind: KindKeyword, param: data.param}
	scope.children = append(scope.children, data.children...)
	for _, c := range t.cfgRoot.children {
		if data.Keyword(c.Text) == nil {
			scope.children = append(scope.children, c)
		}
	}
	sort.Slice(scope.children, func(i, j int) bool { return scope.children[i].Text < scope.children[j].Text })
	return scope
}

// Context returns the command node entered for a container or list
// schema node.
func (t *Tree) Context(sn schema.Node) (*Node, bool) {
	n, ok := t.contexts[sn]
	return n, ok
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}

func typeDesc(sn schema.Node) string {
	desc := firstLine(sn.Description())
	if tn := sn.TypeName(); tn != "" {
		if desc == "" {
			return tn
		}
		return desc + " (" + tn + ")"
	}
	return desc
}

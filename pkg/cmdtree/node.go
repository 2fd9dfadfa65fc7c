package cmdtree

import (
	"fmt"
	"net/netip"
	"sort"
	"strconv"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// ID identifies a node of a Tree. It is what the parser reports as the
// matched command token.
type ID int

// NoID is the ID of synthetic nodes that are not part of the tree index.
const NoID ID = -1

// NodeKind distinguishes fixed keywords from value parameters.
type NodeKind int

const (
	KindKeyword NodeKind = iota
	KindParam
)

// ParamType is the value type accepted by a parameter node.
type ParamType int

const (
	ParamString ParamType = iota
	ParamNumber
	ParamEnum
	ParamIPv4
	ParamIPv6
	ParamIP
	ParamBool
	// ParamLeaf values are validated against a schema leaf type.
	ParamLeaf
	// ParamRest captures the remainder of the line as one value.
	ParamRest
)

func (t ParamType) String() string {
	switch t {
	case ParamString:
		return "string"
	case ParamNumber:
		return "number"
	case ParamEnum:
		return "enum"
	case ParamIPv4:
		return "ipv4-address"
	case ParamIPv6:
		return "ipv6-address"
	case ParamIP:
		return "ip-address"
	case ParamBool:
		return "boolean"
	case ParamLeaf:
		return "leaf"
	case ParamRest:
		return "text"
	default:
		return "unknown"
	}
}

// Param describes the value captured by a parameter node.
type Param struct {
	Name string
	Type ParamType

	// Number range, inclusive, when HasRange is set.
	Min, Max int64
	HasRange bool

	// Values lists the accepted words of an enum parameter.
	Values []string

	// Leaf is the schema leaf of a ParamLeaf parameter.
	Leaf schema.Node
}

// Choices returns the closed set of words the parameter accepts, or nil
// when it accepts open-ended values.
func (p *Param) Choices() []string {
	switch p.Type {
	case ParamEnum:
		return p.Values
	case ParamBool:
		return []string{"false", "true"}
	case ParamLeaf:
		return p.Leaf.EnumValues()
	}
	return nil
}

// Validate checks text and returns the value to capture. Parameters with a
// closed set of choices accept a unique prefix of one of them and capture
// the full word.
func (p *Param) Validate(text string) (string, error) {
	if choices := p.Choices(); len(choices) > 0 {
		var matches []string
		for _, c := range choices {
			if c == text {
				return c, nil
			}
			if strings.HasPrefix(c, text) {
				matches = append(matches, c)
			}
		}
		if len(matches) == 1 {
			return matches[0], nil
		}
		if p.Type != ParamLeaf {
			if len(matches) > 1 {
				sort.Strings(matches)
				return "", fmt.Errorf("ambiguous value %q: %s", text, strings.Join(matches, ", "))
			}
			return "", fmt.Errorf("expected one of: %s", strings.Join(choices, ", "))
		}
	}

	switch p.Type {
	case ParamNumber:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid number %q", text)
		}
		if p.HasRange && (n < p.Min || n > p.Max) {
			return "", fmt.Errorf("value %d out of range %d..%d", n, p.Min, p.Max)
		}
	case ParamIPv4:
		if a, err := netip.ParseAddr(text); err != nil || !a.Is4() {
			return "", fmt.Errorf("invalid IPv4 address %q", text)
		}
	case ParamIPv6:
		if a, err := netip.ParseAddr(text); err != nil || !a.Is6() {
			return "", fmt.Errorf("invalid IPv6 address %q", text)
		}
	case ParamIP:
		if _, err := netip.ParseAddr(text); err != nil {
			return "", fmt.Errorf("invalid IP address %q", text)
		}
	case ParamLeaf:
		if err := p.Leaf.ValidateValue(text); err != nil {
			return "", err
		}
	}
	return text, nil
}

// ActionKind is the kind of work bound to a terminal node.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionConfigEdit
	ActionCallback
)

// CallbackID names a handler registered by the dispatcher.
type CallbackID string

// Action is the work bound to a node: an edit of the candidate
// configuration at a schema node, or a registered callback.
type Action struct {
	Kind     ActionKind
	Schema   schema.Node
	Callback CallbackID
}

// ConfigEdit returns an edit action for the schema node.
func ConfigEdit(sn schema.Node) Action {
	return Action{Kind: ActionConfigEdit, Schema: sn}
}

// Callback returns a callback action.
func Callback(id CallbackID) Action {
	return Action{Kind: ActionCallback, Callback: id}
}

// Node is one keyword or parameter of the command grammar.
type Node struct {
	ID    ID
	Kind  NodeKind
	Text  string
	Param *Param
	Desc  string
	Help  string

	Action Action

	// NegateOnly nodes complete a command only when it is negated
	// ("no mtu" deletes the leaf without naming a value).
	NegateOnly bool

	// FromSchema marks nodes generated from the YANG model.
	FromSchema bool

	children []*Node
	param    *Node
}

// Name returns the keyword text, or "<name>" for a parameter.
func (n *Node) Name() string {
	if n.Kind == KindParam {
		return "<" + n.Param.Name + ">"
	}
	return n.Text
}

// Children returns the keyword children followed by the parameter child.
func (n *Node) Children() []*Node {
	out := make([]*Node, 0, len(n.children)+1)
	out = append(out, n.children...)
	if n.param != nil {
		out = append(out, n.param)
	}
	return out
}

// HasChildren reports whether any word can follow this node.
func (n *Node) HasChildren() bool {
	return len(n.children) > 0 || n.param != nil
}

// Keyword returns the keyword child with exactly the given text.
func (n *Node) Keyword(text string) *Node {
	i := sort.Search(len(n.children), func(i int) bool { return n.children[i].Text >= text })
	if i < len(n.children) && n.children[i].Text == text {
		return n.children[i]
	}
	return nil
}

// KeywordsWithPrefix returns the keyword children starting with prefix,
// sorted by text.
func (n *Node) KeywordsWithPrefix(prefix string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if strings.HasPrefix(c.Text, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// ParamChild returns the parameter child, or nil.
func (n *Node) ParamChild() *Node { return n.param }

// Terminal reports whether a command may end at this node.
func (n *Node) Terminal(negate bool) bool {
	if n.Action.Kind == ActionNone {
		return false
	}
	return !n.NegateOnly || negate
}

// addChild inserts c keeping keywords sorted. A node has at most one
// parameter child and sibling keywords are distinct.
func (n *Node) addChild(c *Node) error {
	if c.Kind == KindParam {
		if n.param != nil {
			return fmt.Errorf("%s: duplicate parameter %s", n.Name(), c.Name())
		}
		n.param = c
		return nil
	}
	i := sort.Search(len(n.children), func(i int) bool { return n.children[i].Text >= c.Text })
	if i < len(n.children) && n.children[i].Text == c.Text {
		return fmt.Errorf("%s: duplicate keyword %q", n.Name(), c.Text)
	}
	n.children = append(n.children, nil)
	copy(n.children[i+1:], n.children[i:])
	n.children[i] = c
	return nil
}

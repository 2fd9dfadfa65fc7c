package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/openconfig/goyang/pkg/yang"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// EncodeJSON renders the tree as RFC 7951 (JSON_IETF) data. Top-level
// members and members whose module differs from their parent are
// qualified with the module name.
func (t *ConfigTree) EncodeJSON() ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	obj, err := encodeMembers("{}", t.Children, "")
	if err != nil {
		return nil, err
	}
	return []byte(obj), nil
}

// EncodeNodeJSON renders the value of a single node as it appears in a
// gNMI update at the node's own path: an object for containers and list
// entries, an array for leaf-lists and a scalar for leaves.
func EncodeNodeJSON(n *Node) (string, error) {
	switch n.Kind() {
	case schema.KindLeaf:
		out, err := setScalar("{}", "v", n.Schema, n.Value)
		if err != nil {
			return "", err
		}
		return gjson.Get(out, "v").Raw, nil
	case schema.KindLeafList:
		return encodeLeafList(n)
	case schema.KindList:
		return encodeEntry(n)
	default:
		return encodeMembers("{}", n.Children, n.Schema.Module())
	}
}

func encodeMembers(obj string, nodes []*Node, parentModule string) (string, error) {
	var err error
	for i := 0; i < len(nodes); {
		n := nodes[i]
		key := escapeKey(memberName(n.Schema, parentModule))
		mod := n.Schema.Module()

		switch n.Kind() {
		case schema.KindLeaf:
			obj, err = setScalar(obj, key, n.Schema, n.Value)
			i++
		case schema.KindLeafList:
			var arr string
			if arr, err = encodeLeafList(n); err == nil {
				obj, err = sjson.SetRaw(obj, key, arr)
			}
			i++
		case schema.KindList:
			arr := "[]"
			for ; i < len(nodes) && nodes[i].Schema == n.Schema; i++ {
				var entry string
				if entry, err = encodeEntry(nodes[i]); err != nil {
					return "", err
				}
				if arr, err = sjson.SetRaw(arr, "-1", entry); err != nil {
					return "", err
				}
			}
			obj, err = sjson.SetRaw(obj, key, arr)
		default:
			var inner string
			if inner, err = encodeMembers("{}", n.Children, mod); err == nil {
				obj, err = sjson.SetRaw(obj, key, inner)
			}
			i++
		}
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", n.Name(), err)
		}
	}
	return obj, nil
}

func encodeEntry(n *Node) (string, error) {
	obj := "{}"
	var err error
	for i, key := range n.Schema.Keys() {
		if i >= len(n.Keys) {
			break
		}
		kn, _ := n.Schema.Child(key)
		if obj, err = setScalar(obj, escapeKey(key), kn, n.Keys[i]); err != nil {
			return "", err
		}
	}
	return encodeMembers(obj, n.Children, n.Schema.Module())
}

func encodeLeafList(n *Node) (string, error) {
	arr := "[]"
	var err error
	for _, v := range n.Values {
		if arr, err = setScalar(arr, "-1", n.Schema, v); err != nil {
			return "", err
		}
	}
	return arr, nil
}

// setScalar stores v at path using the RFC 7951 representation of the
// type of sn. sn may be the zero Node, which encodes v as a string.
func setScalar(obj, path string, sn schema.Node, v string) (string, error) {
	switch jsonKind(sn.Type(), v) {
	case gjson.Number, gjson.True, gjson.False:
		return sjson.SetRaw(obj, path, v)
	case gjson.Null:
		return sjson.SetRaw(obj, path, "[null]")
	default:
		return sjson.Set(obj, path, sn.JSONValue(v))
	}
}

// jsonKind selects the JSON representation of a value: 8 to 32 bit
// integers are numbers, booleans are literals, empty is [null] and
// everything else (including 64-bit integers and decimal64) is a string.
func jsonKind(t *yang.YangType, v string) gjson.Type {
	if t == nil {
		return gjson.String
	}
	switch t.Kind {
	case yang.Yint8, yang.Yint16, yang.Yint32, yang.Yuint8, yang.Yuint16, yang.Yuint32:
		return gjson.Number
	case yang.Ybool:
		if v == "true" {
			return gjson.True
		}
		return gjson.False
	case yang.Yempty:
		return gjson.Null
	case yang.Yunion:
		for _, member := range t.Type {
			if schemaValid(member, v) {
				return jsonKind(member, v)
			}
		}
	}
	return gjson.String
}

func schemaValid(t *yang.YangType, v string) bool {
	switch t.Kind {
	case yang.Ybool:
		return v == "true" || v == "false"
	case yang.Yint8, yang.Yint16, yang.Yint32, yang.Yuint8, yang.Yuint16, yang.Yuint32:
		return gjson.Valid(v) && gjson.Parse(v).Type == gjson.Number && !strings.ContainsAny(v, ".eE")
	case yang.Yunion:
		for _, m := range t.Type {
			if schemaValid(m, v) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func memberName(n schema.Node, parentModule string) string {
	if mod := n.Module(); mod != "" && mod != parentModule {
		return mod + ":" + n.Name()
	}
	return n.Name()
}

// escapeKey escapes the characters sjson and gjson treat as path syntax.
func escapeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripPrefix(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// DecodeJSON builds a tree from RFC 7951 (JSON_IETF) data. Members that
// the schema does not know or that are not configuration are skipped.
func DecodeJSON(ctx *schema.Context, data []byte) (*ConfigTree, error) {
	t := New()
	if len(strings.TrimSpace(string(data))) == 0 {
		return t, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("expected JSON object at top level")
	}

	var err error
	root.ForEach(func(key, value gjson.Result) bool {
		sn, ok := ctx.Root(key.String())
		if !ok || !sn.Config() {
			slog.Debug("skipping unknown configuration member", "member", key.String())
			return true
		}
		err = t.decode(nil, sn, value)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (t *ConfigTree) decode(path []Step, sn schema.Node, v gjson.Result) error {
	path = path[:len(path):len(path)]
	switch sn.Kind() {
	case schema.KindLeaf:
		_, err := t.Set(append(path, Step{Node: sn}), scalarText(v))
		return err
	case schema.KindLeafList:
		if !v.IsArray() {
			return fmt.Errorf("%s: expected array", sn.Path())
		}
		var err error
		v.ForEach(func(_, item gjson.Result) bool {
			_, err = t.Set(append(path, Step{Node: sn}), scalarText(item))
			return err == nil
		})
		return err
	case schema.KindContainer:
		if !v.IsObject() {
			return fmt.Errorf("%s: expected object", sn.Path())
		}
		step := append(path, Step{Node: sn})
		if _, err := t.Set(step, ""); err != nil {
			return err
		}
		return t.decodeMembers(step, sn, v, nil)
	case schema.KindList:
		if !v.IsArray() {
			return fmt.Errorf("%s: expected array", sn.Path())
		}
		var err error
		v.ForEach(func(_, entry gjson.Result) bool {
			err = t.decodeEntry(path, sn, entry)
			return err == nil
		})
		return err
	}
	return nil
}

func (t *ConfigTree) decodeEntry(path []Step, sn schema.Node, entry gjson.Result) error {
	step := Step{Node: sn}
	keys := sn.Keys()
	for _, key := range keys {
		kv := member(entry, key)
		if !kv.Exists() {
			return fmt.Errorf("%s: list entry without key %q", sn.Path(), key)
		}
		step.Keys = append(step.Keys, scalarText(kv))
	}
	sub := append(path, step)
	if _, err := t.Set(sub, ""); err != nil {
		return err
	}
	return t.decodeMembers(sub, sn, entry, keys)
}

func (t *ConfigTree) decodeMembers(path []Step, parent schema.Node, obj gjson.Result, skip []string) error {
	var err error
	obj.ForEach(func(key, value gjson.Result) bool {
		name := stripPrefix(key.String())
		for _, k := range skip {
			if k == name {
				return true
			}
		}
		child, ok := parent.Child(name)
		if !ok || !child.Config() {
			slog.Debug("skipping unknown configuration member", "parent", parent.Path(), "member", key.String())
			return true
		}
		err = t.decode(path, child, value)
		return err == nil
	})
	return err
}

// member returns the object member with the given name, qualified or not.
func member(obj gjson.Result, name string) gjson.Result {
	var found gjson.Result
	obj.ForEach(func(key, value gjson.Result) bool {
		if stripPrefix(key.String()) == name {
			found = value
			return false
		}
		return true
	})
	return found
}

func scalarText(v gjson.Result) string {
	switch v.Type {
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Number:
		return v.Raw
	case gjson.String:
		return v.Str
	default:
		// [null] for empty leaves.
		return ""
	}
}

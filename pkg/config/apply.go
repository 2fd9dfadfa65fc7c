package config

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// ParseXPath resolves a gNMI path string as rendered by XPath back into a
// data path. Every list element must carry all of its keys, except that
// the last element may omit them to address the list as a whole.
func ParseXPath(ctx *schema.Context, p string) ([]Step, error) {
	elems, err := splitXPath(p)
	if err != nil {
		return nil, err
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	var path []Step
	var parent schema.Node
	for i, el := range elems {
		var sn schema.Node
		var ok bool
		if i == 0 {
			sn, ok = ctx.Root(el.name)
		} else {
			sn, ok = parent.Child(stripPrefix(el.name))
		}
		if !ok {
			return nil, fmt.Errorf("%s: unknown element %q", p, el.name)
		}
		step := Step{Node: sn}
		if sn.Kind() == schema.KindList && (len(el.keys) > 0 || i < len(elems)-1) {
			for _, key := range sn.Keys() {
				v, ok := el.keys[key]
				if !ok {
					return nil, fmt.Errorf("%s: %s is missing key %q", p, sn.Name(), key)
				}
				step.Keys = append(step.Keys, v)
			}
		} else if len(el.keys) > 0 {
			return nil, fmt.Errorf("%s: %s takes no keys", p, sn.Name())
		}
		path = append(path, step)
		parent = sn
	}
	return path, nil
}

type pathElem struct {
	name string
	keys map[string]string
}

func splitXPath(p string) ([]pathElem, error) {
	var elems []pathElem
	var cur *pathElem
	var name, key, val strings.Builder
	inKey, inVal, escaped := false, false, false

	flush := func() {
		if cur != nil {
			cur.name = name.String()
			elems = append(elems, *cur)
		}
		cur = nil
		name.Reset()
	}

	for _, r := range p {
		switch {
		case inVal:
			switch {
			case escaped:
				val.WriteRune(r)
				escaped = false
			case r == '\\':
				escaped = true
			case r == ']':
				cur.keys[key.String()] = val.String()
				key.Reset()
				val.Reset()
				inVal = false
			default:
				val.WriteRune(r)
			}
		case inKey:
			if r == '=' {
				inKey, inVal = false, true
			} else {
				key.WriteRune(r)
			}
		case r == '/':
			flush()
			cur = &pathElem{keys: map[string]string{}}
		case r == '[':
			if cur == nil {
				return nil, fmt.Errorf("%s: predicate without element", p)
			}
			inKey = true
		default:
			if cur == nil {
				cur = &pathElem{keys: map[string]string{}}
			}
			name.WriteRune(r)
		}
	}
	if inKey || inVal {
		return nil, fmt.Errorf("%s: unterminated predicate", p)
	}
	flush()

	out := elems[:0]
	for _, el := range elems {
		if el.name != "" {
			out = append(out, el)
		}
	}
	return out, nil
}

// Apply performs changes on t in order. Updates merge the JSON_IETF value
// into the addressed node; replaces overwrite it.
func (t *ConfigTree) Apply(ctx *schema.Context, changes []Change) error {
	for _, c := range changes {
		path, err := ParseXPath(ctx, c.Path)
		if err != nil {
			return err
		}
		if c.Op == OpDelete {
			if _, err := t.Delete(path, ""); err != nil {
				return fmt.Errorf("%s: %w", c.Path, err)
			}
			continue
		}
		if c.Op == OpReplace {
			if _, err := t.Delete(path, ""); err != nil {
				return fmt.Errorf("%s: %w", c.Path, err)
			}
		}
		if err := t.applyValue(path, gjson.Parse(c.Value)); err != nil {
			return fmt.Errorf("%s: %w", c.Path, err)
		}
	}
	return nil
}

func (t *ConfigTree) applyValue(path []Step, v gjson.Result) error {
	last := path[len(path)-1]
	parent := path[:len(path)-1]
	sn := last.Node
	switch sn.Kind() {
	case schema.KindList:
		if len(last.Keys) == 0 {
			return t.decode(parent, sn, v)
		}
		if !v.IsObject() {
			return fmt.Errorf("expected object")
		}
		if _, err := t.Set(path, ""); err != nil {
			return err
		}
		return t.decodeMembers(path, sn, v, sn.Keys())
	case schema.KindLeafList:
		if !v.IsArray() {
			_, err := t.Set(path, scalarText(v))
			return err
		}
	}
	return t.decode(parent, sn, v)
}

package config

import (
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

// EncodeYAML renders the tree with the same structure and member names as
// EncodeJSON, in YAML.
func (t *ConfigTree) EncodeYAML() ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	if t != nil {
		yamlMembers(doc, t.Children, "")
	}
	if len(doc.Content) == 0 {
		return []byte("{}\n"), nil
	}
	return yaml.Marshal(doc)
}

func yamlMembers(m *yaml.Node, nodes []*Node, parentModule string) {
	for i := 0; i < len(nodes); {
		n := nodes[i]
		key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: memberName(n.Schema, parentModule)}
		mod := n.Schema.Module()

		var value *yaml.Node
		switch n.Kind() {
		case schema.KindLeaf:
			value = yamlScalar(n.Schema, n.Value)
			i++
		case schema.KindLeafList:
			value = &yaml.Node{Kind: yaml.SequenceNode}
			for _, v := range n.Values {
				value.Content = append(value.Content, yamlScalar(n.Schema, v))
			}
			i++
		case schema.KindList:
			value = &yaml.Node{Kind: yaml.SequenceNode}
			for ; i < len(nodes) && nodes[i].Schema == n.Schema; i++ {
				value.Content = append(value.Content, yamlEntry(nodes[i]))
			}
		default:
			value = &yaml.Node{Kind: yaml.MappingNode}
			yamlMembers(value, n.Children, mod)
			i++
		}
		m.Content = append(m.Content, key, value)
	}
}

func yamlEntry(n *Node) *yaml.Node {
	entry := &yaml.Node{Kind: yaml.MappingNode}
	for i, key := range n.Schema.Keys() {
		if i >= len(n.Keys) {
			break
		}
		kn, _ := n.Schema.Child(key)
		entry.Content = append(entry.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			yamlScalar(kn, n.Keys[i]))
	}
	yamlMembers(entry, n.Children, n.Schema.Module())
	return entry
}

func yamlScalar(sn schema.Node, v string) *yaml.Node {
	switch jsonKind(sn.Type(), v) {
	case gjson.Number:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v}
	case gjson.True, gjson.False:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v}
	case gjson.Null:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	}
}

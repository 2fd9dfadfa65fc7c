package config

import (
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

func TestFormat(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	want := `interfaces {
    interface eth0 {
        description "uplink port";
        ipv4 {
            address 192.0.2.1;
            address 192.0.2.2;
        }
        mtu 1500;
        shutdown;
    }
    interface lo {
    }
}
system {
    hostname router1;
}
`
	if got := tree.Format(); got != want {
		t.Errorf("Format:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatCommands(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	want := `interfaces
 interface eth0
  description "uplink port"
  ipv4
   address 192.0.2.1
   address 192.0.2.2
   exit
  mtu 1500
  shutdown
  exit
 interface lo
  exit
 exit
system
 hostname router1
 exit
`
	if got := tree.FormatCommands(); got != want {
		t.Errorf("FormatCommands:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatFlat(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	want := `interfaces interface eth0 description "uplink port"
interfaces interface eth0 ipv4 address 192.0.2.1
interfaces interface eth0 ipv4 address 192.0.2.2
interfaces interface eth0 mtu 1500
interfaces interface eth0 shutdown
interfaces interface lo
system hostname router1
`
	if got := tree.FormatFlat(); got != want {
		t.Errorf("FormatFlat:\n%s\nwant:\n%s", got, want)
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"eth0", "eth0"},
		{"10.0.0.0/8", "10.0.0.0/8"},
		{"", `""`},
		{"two words", `"two words"`},
		{`say "hi"`, `"say \"hi\""`},
		{"a#b", `"a#b"`},
		{"a|b", `"a|b"`},
	}
	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseTextRoundTrip(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	parsed, err := ParseText(ctx, tree.Format())
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if !parsed.Equal(tree) {
		t.Errorf("round trip differs:\n%s\nwant:\n%s", parsed.Format(), tree.Format())
	}
}

func TestParseTextComments(t *testing.T) {
	ctx := newTestSchema(t)
	text := `# leading comment
system {
    /* block
       comment */
    hostname r2;   ! trailing
}
`
	tree, err := ParseText(ctx, text)
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if n := tree.Find(steps(t, ctx, "system hostname")); n == nil || n.Value != "r2" {
		t.Errorf("hostname = %+v", n)
	}
}

func TestParseTextErrors(t *testing.T) {
	ctx := newTestSchema(t)
	tests := []struct {
		name string
		text string
		line int
	}{
		{"unknown node", "bogus {\n}\n", 1},
		{"bad value", "interfaces {\n    interface eth0 {\n        mtu 10;\n    }\n}\n", 3},
		{"missing semicolon", "system {\n    hostname r1\n}\n", 3},
		{"unclosed block", "system {\n    hostname r1;\n", 3},
		{"stray brace", "}\n", 1},
		{"state node", "state {\n}\n", 1},
		{"unterminated string", "system {\n    contact \"abc\n}\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseText(ctx, tt.text)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.Line != tt.line {
				t.Errorf("line = %d, want %d (%v)", pe.Line, tt.line, pe)
			}
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	data, err := tree.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	if !gjson.ValidBytes(data) {
		t.Fatalf("invalid JSON: %s", data)
	}

	checks := map[string]string{
		`holo-test:system.hostname`:                     `"router1"`,
		`holo-test:interfaces.interface.0.name`:         `"eth0"`,
		`holo-test:interfaces.interface.0.mtu`:          `1500`,
		`holo-test:interfaces.interface.0.shutdown`:     `[null]`,
		`holo-test:interfaces.interface.0.ipv4.address`: `["192.0.2.1","192.0.2.2"]`,
		`holo-test:interfaces.interface.1.name`:         `"lo"`,
	}
	for path, want := range checks {
		if got := gjson.GetBytes(data, path).Raw; got != want {
			t.Errorf("%s = %s, want %s", path, got, want)
		}
	}

	decoded, err := DecodeJSON(ctx, data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if !decoded.Equal(tree) {
		t.Errorf("JSON round trip differs:\n%s\nwant:\n%s", decoded.Format(), tree.Format())
	}
}

func TestDecodeJSON(t *testing.T) {
	ctx := newTestSchema(t)
	data := `{
  "holo-test:routing": {
    "protocol": "holo-test:static",
    "static-route": [
      {"prefix": "10.0.0.0/8", "next-hop": "blackhole", "metric": "10.5"}
    ]
  },
  "holo-test:state": {"uptime": 42},
  "other-module:unknown": {"x": 1}
}`
	tree, err := DecodeJSON(ctx, []byte(data))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if n := tree.Find(steps(t, ctx, "routing static-route=10.0.0.0/8 next-hop")); n == nil || n.Value != "blackhole" {
		t.Errorf("next-hop = %+v", n)
	}
	if n := tree.Find(steps(t, ctx, "routing static-route=10.0.0.0/8 metric")); n == nil || n.Value != "10.5" {
		t.Errorf("metric = %+v", n)
	}
	if tree.Find(steps(t, ctx, "state")) != nil {
		t.Error("state data decoded into configuration")
	}

	if _, err := DecodeJSON(ctx, []byte(`{"holo-test:interfaces":{"interface":[{"mtu":1500}]}}`)); err == nil {
		t.Error("expected error for list entry without key")
	}
	if _, err := DecodeJSON(ctx, []byte(`{not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if tree, err := DecodeJSON(ctx, nil); err != nil || !tree.IsEmpty() {
		t.Errorf("empty input: tree=%v err=%v", tree, err)
	}
}

func TestEncodeYAML(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	data, err := tree.EncodeYAML()
	if err != nil {
		t.Fatalf("EncodeYAML: %v", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("yaml.Unmarshal: %v\n%s", err, data)
	}
	ifs, ok := doc["holo-test:interfaces"].(map[string]any)
	if !ok {
		t.Fatalf("missing interfaces:\n%s", data)
	}
	list, ok := ifs["interface"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("interface list = %v", ifs["interface"])
	}
	eth0 := list[0].(map[string]any)
	if eth0["mtu"] != 1500 {
		t.Errorf("mtu = %v (%T), want int 1500", eth0["mtu"], eth0["mtu"])
	}
	if eth0["name"] != "eth0" {
		t.Errorf("name = %v", eth0["name"])
	}

	empty, err := New().EncodeYAML()
	if err != nil || strings.TrimSpace(string(empty)) != "{}" {
		t.Errorf("empty tree YAML = %q, %v", empty, err)
	}
}

func TestIdentityJSON(t *testing.T) {
	ctx := newTestSchema(t, "holo-test-ospf")

	tree := New()
	mustSet(t, tree, steps(t, ctx, "routing protocol"), "hto:ospfv3")
	mustSet(t, tree, steps(t, ctx, "routing control-plane-protocol=ospfv3,main description"), "backbone")
	mustSet(t, tree, steps(t, ctx, "routing control-plane-protocol=static,main"), "")

	if n := tree.Find(steps(t, ctx, "routing protocol")); n == nil || n.Value != "ospfv3" {
		t.Errorf("stored protocol = %+v, want ospfv3", n)
	}
	if tree.Find(steps(t, ctx, "routing control-plane-protocol=holo-test-ospf:ospfv3,main")) == nil {
		t.Error("qualified key does not find the entry")
	}

	data, err := tree.EncodeJSON()
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	checks := map[string]string{
		`holo-test:routing.protocol`:                      `"holo-test-ospf:ospfv3"`,
		`holo-test:routing.control-plane-protocol.0.type`: `"holo-test-ospf:ospfv3"`,
		`holo-test:routing.control-plane-protocol.1.type`: `"static"`,
	}
	for path, want := range checks {
		if got := gjson.GetBytes(data, path).Raw; got != want {
			t.Errorf("%s = %s, want %s", path, got, want)
		}
	}

	// The daemon may send identities of the leaf's own module qualified.
	daemon := `{"holo-test:routing": {
  "protocol": "holo-test-ospf:ospfv3",
  "control-plane-protocol": [
    {"type": "holo-test-ospf:ospfv3", "name": "main", "description": "backbone"},
    {"type": "holo-test:static", "name": "main"}
  ]
}}`
	decoded, err := DecodeJSON(ctx, []byte(daemon))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if !decoded.Equal(tree) {
		t.Errorf("decoded tree differs:\n%s\nwant:\n%s", decoded.Format(), tree.Format())
	}
	if changes, err := Diff(decoded, tree); err != nil || len(changes) != 0 {
		t.Errorf("Diff = %v, %v, want no changes", changes, err)
	}

	path := XPath(steps(t, ctx, "routing control-plane-protocol=ospfv3,main"))
	if want := "/holo-test:routing/control-plane-protocol[type=holo-test-ospf:ospfv3][name=main]"; path != want {
		t.Errorf("XPath = %s, want %s", path, want)
	}
}

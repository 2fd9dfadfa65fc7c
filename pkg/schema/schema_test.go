package schema

import (
	"os"
	"path/filepath"
	"testing"
)

// newTestContext loads the test module and any extra modules from
// testdata.
func newTestContext(t *testing.T, extra ...string) *Context {
	t.Helper()
	ctx := NewContext("testdata")
	for _, name := range append([]string{"holo-test"}, extra...) {
		if err := ctx.LoadModule(name); err != nil {
			t.Fatalf("LoadModule: %v", err)
		}
	}
	if err := ctx.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return ctx
}

func TestRootsAndModules(t *testing.T) {
	ctx := newTestContext(t)

	var names []string
	for _, r := range ctx.Roots() {
		names = append(names, r.Name())
	}
	want := []string{"interfaces", "routing", "state", "system"}
	if len(names) != len(want) {
		t.Fatalf("roots = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("roots[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	mods := ctx.Modules()
	if len(mods) != 1 {
		t.Fatalf("modules = %d, want 1", len(mods))
	}
	if mods[0].Name != "holo-test" || mods[0].Revision != "2024-01-15" || mods[0].Prefix != "ht" {
		t.Errorf("module info = %+v", mods[0])
	}

	rpcs := ctx.RPCs()
	if len(rpcs) != 1 || rpcs[0].Name != "clear-counters" {
		t.Errorf("rpcs = %+v", rpcs)
	}
}

func TestParseModule(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("testdata", "holo-test.yang"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := NewContext()
	if err := ctx.ParseModule("holo-test", string(src)); err != nil {
		t.Fatalf("ParseModule: %v", err)
	}
	if err := ctx.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, ok := ctx.Root("holo-test:interfaces"); !ok {
		t.Error("prefixed root lookup failed")
	}
	if err := ctx.ParseModule("other", "module other {}"); err == nil {
		t.Error("expected error after Finalize")
	}
}

func TestLoadMissingModule(t *testing.T) {
	ctx := NewContext(t.TempDir())
	if err := ctx.LoadModule("does-not-exist"); err == nil {
		t.Fatal("expected error for missing module")
	}
}

func TestNodeClassification(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		path      string
		kind      Kind
		config    bool
		mandatory bool
		presence  bool
		key       bool
	}{
		{"/system", KindContainer, true, false, false, false},
		{"/system/hostname", KindLeaf, true, false, false, false},
		{"/interfaces/interface", KindList, true, false, false, false},
		{"/interfaces/interface/name", KindLeaf, true, false, false, true},
		{"/interfaces/interface/ipv4", KindContainer, true, false, true, false},
		{"/interfaces/interface/ipv4/address", KindLeafList, true, false, false, false},
		{"/routing/static-route/next-hop", KindLeaf, true, true, false, false},
		{"/state", KindContainer, false, false, false, false},
		{"/state/uptime", KindLeaf, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, ok := ctx.Lookup(tt.path)
			if !ok {
				t.Fatalf("Lookup(%q) failed", tt.path)
			}
			if n.Kind() != tt.kind {
				t.Errorf("Kind = %s, want %s", n.Kind(), tt.kind)
			}
			if n.Config() != tt.config {
				t.Errorf("Config = %v, want %v", n.Config(), tt.config)
			}
			if n.Mandatory() != tt.mandatory {
				t.Errorf("Mandatory = %v, want %v", n.Mandatory(), tt.mandatory)
			}
			if n.Presence() != tt.presence {
				t.Errorf("Presence = %v, want %v", n.Presence(), tt.presence)
			}
			if n.IsKey() != tt.key {
				t.Errorf("IsKey = %v, want %v", n.IsKey(), tt.key)
			}
			if n.Path() != tt.path {
				t.Errorf("Path = %q, want %q", n.Path(), tt.path)
			}
			if n.Module() != "holo-test" {
				t.Errorf("Module = %q", n.Module())
			}
		})
	}
}

func TestLookupWithPredicates(t *testing.T) {
	ctx := newTestContext(t)
	n, ok := ctx.Lookup("/ht:interfaces/interface[name='eth0/1']/mtu")
	if !ok {
		t.Fatal("lookup with predicate failed")
	}
	if n.Name() != "mtu" {
		t.Errorf("Name = %q, want mtu", n.Name())
	}
	if _, ok := ctx.Lookup("/interfaces/nothing"); ok {
		t.Error("expected lookup failure")
	}
	if _, ok := ctx.Lookup(""); ok {
		t.Error("expected lookup failure on empty path")
	}
}

func TestChildrenOrder(t *testing.T) {
	ctx := newTestContext(t)
	list, _ := ctx.Lookup("/interfaces/interface")
	if keys := list.Keys(); len(keys) != 1 || keys[0] != "name" {
		t.Fatalf("Keys = %v", keys)
	}
	children := list.Children()
	if len(children) == 0 || children[0].Name() != "name" {
		t.Fatalf("key must come first: %v", children)
	}
	for i := 2; i < len(children); i++ {
		if children[i-1].Name() > children[i].Name() {
			t.Errorf("children not sorted: %s before %s", children[i-1].Name(), children[i].Name())
		}
	}
	if p := children[0].Parent(); p != list {
		t.Errorf("Parent = %s, want interface", p.Name())
	}
	top, _ := ctx.Lookup("/interfaces")
	if !top.Parent().IsZero() {
		t.Error("top-level node must have zero parent")
	}
}

func TestValidateValue(t *testing.T) {
	ctx := newTestContext(t)

	tests := []struct {
		path  string
		value string
		ok    bool
	}{
		{"/interfaces/interface/mtu", "1500", true},
		{"/interfaces/interface/mtu", "68", true},
		{"/interfaces/interface/mtu", "9000", true},
		{"/interfaces/interface/mtu", "67", false},
		{"/interfaces/interface/mtu", "9001", false},
		{"/interfaces/interface/mtu", "70000", false},
		{"/interfaces/interface/mtu", "abc", false},
		{"/interfaces/interface/mtu", "-1", false},
		{"/interfaces/interface/enabled", "true", true},
		{"/interfaces/interface/enabled", "yes", false},
		{"/interfaces/interface/type", "ethernet", true},
		{"/interfaces/interface/type", "token-ring", false},
		{"/interfaces/interface/shutdown", "", true},
		{"/interfaces/interface/shutdown", "x", false},
		{"/interfaces/interface/ipv4/address", "192.0.2.1", true},
		{"/interfaces/interface/ipv4/address", "192.0.2.256", false},
		{"/interfaces/interface/ipv4/address", "2001:db8::1", false},
		{"/routing/static-route/prefix", "10.0.0.0/8", true},
		{"/routing/static-route/next-hop", "192.0.2.1", true},
		{"/routing/static-route/next-hop", "blackhole", true},
		{"/routing/static-route/next-hop", "nowhere", false},
		{"/routing/static-route/metric", "abc", false},
		{"/routing/protocol", "static", true},
		{"/routing/protocol", "ht:ospfv2", true},
		{"/routing/protocol", "bgp", false},
		{"/system/hostname", "router1", true},
		{"/system/hostname", "-bad", false},
		{"/system/contact", "anything goes", true},
	}
	for _, tt := range tests {
		t.Run(tt.path+"="+tt.value, func(t *testing.T) {
			n, ok := ctx.Lookup(tt.path)
			if !ok {
				t.Fatalf("Lookup(%q) failed", tt.path)
			}
			err := n.ValidateValue(tt.value)
			if tt.ok && err != nil {
				t.Errorf("ValidateValue(%q): %v", tt.value, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("ValidateValue(%q): expected error", tt.value)
			}
		})
	}

	sys, _ := ctx.Lookup("/system")
	if err := sys.ValidateValue("x"); err == nil {
		t.Error("expected error validating a container")
	}
}

func TestEnumValues(t *testing.T) {
	ctx := newTestContext(t)
	n, _ := ctx.Lookup("/interfaces/interface/type")
	vals := n.EnumValues()
	if len(vals) != 2 || vals[0] != "ethernet" || vals[1] != "loopback" {
		t.Errorf("EnumValues = %v", vals)
	}
	b, _ := ctx.Lookup("/interfaces/interface/enabled")
	if vals := b.EnumValues(); len(vals) != 2 {
		t.Errorf("bool EnumValues = %v", vals)
	}
	m, _ := ctx.Lookup("/interfaces/interface/mtu")
	if vals := m.EnumValues(); vals != nil {
		t.Errorf("uint16 EnumValues = %v, want nil", vals)
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/a/b/c", []string{"a", "b", "c"}},
		{"a/b", []string{"a", "b"}},
		{"/a[k='x/y']/b", []string{"a", "b"}},
		{"/", nil},
	}
	for _, tt := range tests {
		got := splitPath(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitPath(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitPath(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}

func TestIdentityForms(t *testing.T) {
	ctx := newTestContext(t, "holo-test-ospf")
	proto, ok := ctx.Lookup("/routing/protocol")
	if !ok {
		t.Fatal("no /routing/protocol")
	}

	tests := []struct {
		in, canonical, json string
		valid               bool
	}{
		{in: "static", canonical: "static", json: "static", valid: true},
		{in: "holo-test:static", canonical: "static", json: "static", valid: true},
		{in: "ht:ospfv2", canonical: "ospfv2", json: "ospfv2", valid: true},
		{in: "ospfv3", canonical: "ospfv3", json: "holo-test-ospf:ospfv3", valid: true},
		{in: "hto:ospfv3", canonical: "ospfv3", json: "holo-test-ospf:ospfv3", valid: true},
		{in: "holo-test-ospf:ospfv3", canonical: "ospfv3", json: "holo-test-ospf:ospfv3", valid: true},
		{in: "holo-test:ospfv3", canonical: "holo-test:ospfv3", valid: false},
	}
	for _, tt := range tests {
		err := proto.ValidateValue(tt.in)
		if (err == nil) != tt.valid {
			t.Errorf("ValidateValue(%q) = %v, want valid %v", tt.in, err, tt.valid)
		}
		if got := proto.CanonicalValue(tt.in); got != tt.canonical {
			t.Errorf("CanonicalValue(%q) = %q, want %q", tt.in, got, tt.canonical)
		}
		if !tt.valid {
			continue
		}
		if got := proto.JSONValue(proto.CanonicalValue(tt.in)); got != tt.json {
			t.Errorf("JSONValue(%q) = %q, want %q", tt.in, got, tt.json)
		}
	}

	// Values of other types pass through.
	mtu, _ := ctx.Lookup("/interfaces/interface/mtu")
	if got := mtu.JSONValue("1500"); got != "1500" {
		t.Errorf("JSONValue(1500) = %q", got)
	}
}

package config

import (
	"strings"
	"testing"

	"github.com/fatihusta/holo-cli/pkg/schema"
)

func newTestSchema(t *testing.T, extra ...string) *schema.Context {
	t.Helper()
	ctx := schema.NewContext("../schema/testdata")
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

// steps resolves a space separated path such as
// "interfaces interface=eth0 mtu" into data path steps.
func steps(t *testing.T, ctx *schema.Context, text string) []Step {
	t.Helper()
	var path []Step
	var parent schema.Node
	for _, word := range strings.Fields(text) {
		name, keys, _ := strings.Cut(word, "=")
		var (
			n  schema.Node
			ok bool
		)
		if parent.IsZero() {
			n, ok = ctx.Root(name)
		} else {
			n, ok = parent.Child(name)
		}
		if !ok {
			t.Fatalf("unknown node %q in %q", name, text)
		}
		s := Step{Node: n}
		if keys != "" {
			s.Keys = strings.Split(keys, ",")
		}
		path = append(path, s)
		parent = n
	}
	return path
}

func mustSet(t *testing.T, tree *ConfigTree, path []Step, value string) {
	t.Helper()
	if _, err := tree.Set(path, value); err != nil {
		t.Fatalf("Set(%s, %q): %v", PathString(path), value, err)
	}
}

func sampleTree(t *testing.T, ctx *schema.Context) *ConfigTree {
	t.Helper()
	tree := New()
	mustSet(t, tree, steps(t, ctx, "system hostname"), "router1")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 mtu"), "1500")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 description"), "uplink port")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 shutdown"), "")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.1")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.2")
	mustSet(t, tree, steps(t, ctx, "interfaces interface=lo"), "")
	return tree
}

func TestSetAndFind(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	n := tree.Find(steps(t, ctx, "interfaces interface=eth0 mtu"))
	if n == nil || n.Value != "1500" {
		t.Fatalf("mtu = %+v", n)
	}
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 mtu"), "9000")
	if n := tree.Find(steps(t, ctx, "interfaces interface=eth0 mtu")); n.Value != "9000" {
		t.Errorf("mtu after overwrite = %q", n.Value)
	}

	addr := tree.Find(steps(t, ctx, "interfaces interface=eth0 ipv4 address"))
	if addr == nil || len(addr.Values) != 2 {
		t.Fatalf("address = %+v", addr)
	}
	mustSet(t, tree, steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.1")
	if len(addr.Values) != 2 {
		t.Errorf("duplicate leaf-list value added: %v", addr.Values)
	}

	ifs := tree.Find(steps(t, ctx, "interfaces"))
	if len(ifs.Children) != 2 || ifs.Children[0].Keys[0] != "eth0" || ifs.Children[1].Keys[0] != "lo" {
		t.Errorf("list entries not in insertion order")
	}
	if tree.Find(steps(t, ctx, "interfaces interface=eth9")) != nil {
		t.Error("found absent entry")
	}
}

func TestSetRejectsMalformedPaths(t *testing.T) {
	ctx := newTestSchema(t)
	tree := New()

	ifs, _ := ctx.Root("interfaces")
	list, _ := ifs.Child("interface")
	mtu, _ := list.Child("mtu")
	sys, _ := ctx.Root("system")

	tests := []struct {
		name string
		path []Step
	}{
		{"empty", nil},
		{"missing key", []Step{{Node: ifs}, {Node: list}}},
		{"extra key", []Step{{Node: ifs, Keys: []string{"x"}}}},
		{"skipped level", []Step{{Node: ifs}, {Node: mtu}}},
		{"wrong parent", []Step{{Node: sys}, {Node: list, Keys: []string{"eth0"}}}},
		{"zero node", []Step{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tree.Set(tt.path, "1"); err == nil {
				t.Error("expected error")
			}
		})
	}
	if !tree.IsEmpty() {
		t.Error("failed Set modified the tree")
	}
}

func TestDelete(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	changed, err := tree.Delete(steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.1")
	if err != nil || !changed {
		t.Fatalf("Delete value: changed=%v err=%v", changed, err)
	}
	addr := tree.Find(steps(t, ctx, "interfaces interface=eth0 ipv4 address"))
	if addr == nil || len(addr.Values) != 1 || addr.Values[0] != "192.0.2.2" {
		t.Fatalf("address = %+v", addr)
	}

	// Removing the last value removes the leaf-list.
	if _, err := tree.Delete(steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.2"); err != nil {
		t.Fatal(err)
	}
	if tree.Find(steps(t, ctx, "interfaces interface=eth0 ipv4 address")) != nil {
		t.Error("empty leaf-list still present")
	}

	if changed, err := tree.Delete(steps(t, ctx, "interfaces interface=eth7"), ""); err != nil || changed {
		t.Errorf("absent delete: changed=%v err=%v", changed, err)
	}
	if changed, err := tree.Delete(steps(t, ctx, "routing static-route=10.0.0.0/8 next-hop"), ""); err != nil || changed {
		t.Errorf("absent nested delete: changed=%v err=%v", changed, err)
	}

	if changed, _ := tree.Delete(steps(t, ctx, "interfaces interface=eth0"), ""); !changed {
		t.Error("entry delete reported no change")
	}
	if tree.Find(steps(t, ctx, "interfaces interface=eth0")) != nil {
		t.Error("entry still present")
	}
}

func TestCloneIsDeep(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)
	clone := tree.Clone()
	if !tree.Equal(clone) {
		t.Fatal("clone differs from original")
	}

	mustSet(t, clone, steps(t, ctx, "interfaces interface=eth0 mtu"), "1400")
	mustSet(t, clone, steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.3")
	if n := tree.Find(steps(t, ctx, "interfaces interface=eth0 mtu")); n.Value != "1500" {
		t.Errorf("original mtu changed to %q", n.Value)
	}
	if n := tree.Find(steps(t, ctx, "interfaces interface=eth0 ipv4 address")); len(n.Values) != 2 {
		t.Errorf("original addresses changed: %v", n.Values)
	}
	if tree.Equal(clone) {
		t.Error("Equal ignores changes")
	}

	var nilTree *ConfigTree
	if nilTree.Clone() != nil {
		t.Error("Clone of nil tree must be nil")
	}
	if !nilTree.Equal(New()) {
		t.Error("nil and empty trees must be equal")
	}
}

func TestMerge(t *testing.T) {
	ctx := newTestSchema(t)
	dst := New()
	mustSet(t, dst, steps(t, ctx, "interfaces interface=eth0 mtu"), "1500")
	mustSet(t, dst, steps(t, ctx, "system contact"), "noc")

	src := New()
	mustSet(t, src, steps(t, ctx, "interfaces interface=eth0 mtu"), "9000")
	mustSet(t, src, steps(t, ctx, "interfaces interface=eth1 enabled"), "true")

	dst.Merge(src)
	if n := dst.Find(steps(t, ctx, "interfaces interface=eth0 mtu")); n.Value != "9000" {
		t.Errorf("mtu = %q, want 9000", n.Value)
	}
	if dst.Find(steps(t, ctx, "interfaces interface=eth1 enabled")) == nil {
		t.Error("merged entry missing")
	}
	if dst.Find(steps(t, ctx, "system contact")) == nil {
		t.Error("existing data lost")
	}
}

package config

import "testing"

func TestParseXPath(t *testing.T) {
	ctx := newTestSchema(t)

	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "/holo-test:interfaces/interface[name=eth0]/mtu", want: "interfaces interface eth0 mtu"},
		{path: "/interfaces/interface[name=a\\]b]", want: "interfaces interface a]b"},
		{path: "/holo-test:routing/static-route[prefix=10.0.0.0/8]/next-hop", want: "routing static-route 10.0.0.0/8 next-hop"},
		{path: "/holo-test:interfaces/interface", want: "interfaces interface"},
		{path: "/holo-test:interfaces/interface/mtu", wantErr: true},
		{path: "/holo-test:interfaces/bogus", wantErr: true},
		{path: "/holo-test:system[name=x]", wantErr: true},
		{path: "/holo-test:interfaces/interface[name=eth0", wantErr: true},
		{path: "/", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := ParseXPath(ctx, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseXPath(%q) = %s, want error", tt.path, PathString(got))
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if s := PathString(got); s != tt.want {
				t.Errorf("ParseXPath(%q) = %s, want %s", tt.path, s, tt.want)
			}
		})
	}
}

func TestApplyDiff(t *testing.T) {
	ctx := newTestSchema(t)
	from := sampleTree(t, ctx)
	to := from.Clone()

	mustSet(t, to, steps(t, ctx, "interfaces interface=eth0 mtu"), "9000")
	mustSet(t, to, steps(t, ctx, "interfaces interface=eth1 description"), "new port")
	mustSet(t, to, steps(t, ctx, "routing static-route=10.0.0.0/8 next-hop"), "192.0.2.254")
	mustSet(t, to, steps(t, ctx, "routing static-route=10.0.0.0/8 metric"), "1.50")
	if _, err := to.Delete(steps(t, ctx, "interfaces interface=eth0 ipv4 address"), "192.0.2.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := to.Delete(steps(t, ctx, "system"), ""); err != nil {
		t.Fatal(err)
	}

	changes, err := Diff(from, to)
	if err != nil {
		t.Fatal(err)
	}
	got := from.Clone()
	if err := got.Apply(ctx, changes); err != nil {
		t.Fatal(err)
	}
	if !got.Equal(to) {
		t.Errorf("applied tree differs:\n%s\nwant:\n%s", got.Format(), to.Format())
	}
}

func TestApplyUpdateMerges(t *testing.T) {
	ctx := newTestSchema(t)
	tree := sampleTree(t, ctx)

	err := tree.Apply(ctx, []Change{
		{Op: OpUpdate, Path: "/holo-test:interfaces/interface[name=eth0]", Value: `{"name":"eth0","enabled":false}`},
	})
	if err != nil {
		t.Fatal(err)
	}
	if n := tree.Find(steps(t, ctx, "interfaces interface=eth0 mtu")); n == nil || n.Value != "1500" {
		t.Errorf("update dropped mtu: %+v", n)
	}
	if n := tree.Find(steps(t, ctx, "interfaces interface=eth0 enabled")); n == nil || n.Value != "false" {
		t.Errorf("enabled = %+v, want false", n)
	}
}

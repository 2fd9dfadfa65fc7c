package settings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissing(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !s.ColorsEnabled() || !s.PagerEnabled() || s.Address != "" {
		t.Errorf("defaults = %+v", s)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `address: https://router1:50051
modules-dir: /usr/share/yang
colors: false
tls:
  ca: /etc/holo/ca.pem
  skip-verify: true
auth:
  username: admin
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Address != "https://router1:50051" || s.ModulesDir != "/usr/share/yang" {
		t.Errorf("settings = %+v", s)
	}
	if s.ColorsEnabled() || !s.PagerEnabled() {
		t.Errorf("colors=%v pager=%v", s.ColorsEnabled(), s.PagerEnabled())
	}
	if s.TLS.CA != "/etc/holo/ca.pem" || !s.TLS.SkipVerify || s.Auth.Username != "admin" {
		t.Errorf("tls=%+v auth=%+v", s.TLS, s.Auth)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("address: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("Load = %v, want parse error naming the file", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	off := false
	in := &Settings{Address: "http://[::1]:50051", Pager: &off, Debug: true}
	if err := Save(in, path); err != nil {
		t.Fatal(err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if out.Address != in.Address || out.PagerEnabled() || !out.Debug {
		t.Errorf("loaded %+v", out)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
}

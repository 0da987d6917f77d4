package scout

import (
	"strings"
	"testing"

	"github.com/matsen/ae/internal/config"
)

func TestExpandHosts(t *testing.T) {
	cfg := config.Default()
	cfg.Hosts = []config.HostEntry{
		{Name: "mantis"},
		{Pattern: "bench{08..10}"},
	}

	hosts, err := ExpandHosts(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"mantis", "bench08", "bench09", "bench10"}
	if len(hosts) != len(want) {
		t.Fatalf("expected %d hosts, got %d", len(want), len(hosts))
	}
	for i, name := range want {
		if hosts[i].Name != name {
			t.Errorf("host %d: expected %s, got %s", i, name, hosts[i].Name)
		}
	}
}

func TestExpandHosts_Default(t *testing.T) {
	cfg := config.Default()
	hosts, err := ExpandHosts(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 1 || !hosts[0].IsLocal() {
		t.Fatalf("expected only the local host, got %+v", hosts)
	}

	cfg.Remote.Host = "bench01"
	cfg.Remote.Dir = "/srv/ae"
	hosts, err = ExpandHosts(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 2 || hosts[1].Name != "bench01" {
		t.Fatalf("expected local and remote host, got %+v", hosts)
	}
}

func TestExpandHosts_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entry   config.HostEntry
		wantMsg string
	}{
		{"empty", config.HostEntry{}, "either 'name' or 'pattern'"},
		{"both", config.HostEntry{Name: "a", Pattern: "b{1..2}"}, "only one of"},
		{"bad pattern", config.HostEntry{Pattern: "bench[1-3]"}, "invalid pattern"},
		{"reversed", config.HostEntry{Pattern: "bench{05..01}"}, "must be <= end"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Hosts = []config.HostEntry{tt.entry}
			_, err := ExpandHosts(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestExpandPattern_Padding(t *testing.T) {
	names, err := expandPattern("node{1..3}")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "node1,node2,node3" {
		t.Errorf("unexpected names %v", names)
	}

	names, err = expandPattern("node{001..002}")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(names, ",") != "node001,node002" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestSSHConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.ProxyJump = "jump.example.org"
	cfg.Remote.ConnectTimeout = 0

	ssh := SSHConfigFrom(cfg)
	if ssh.ProxyJump != "jump.example.org" {
		t.Errorf("expected proxy jump, got %q", ssh.ProxyJump)
	}
	if ssh.ConnectTimeout != 10 {
		t.Errorf("expected default timeout 10, got %d", ssh.ConnectTimeout)
	}
}

func TestFindHost(t *testing.T) {
	hosts := []Host{{Name: LocalHost}, {Name: "bench01"}}
	if got := FindHost(hosts, "bench01"); got.Name != "bench01" {
		t.Errorf("expected bench01, got %+v", got)
	}
	if got := FindHost(hosts, "other"); got.Name != "other" {
		t.Errorf("expected unlisted host, got %+v", got)
	}
}

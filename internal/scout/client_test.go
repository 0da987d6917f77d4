package scout

import (
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestLocalClient_RunCommand(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
	client := LocalClient{}

	out, err := client.RunCommand(Host{Name: LocalHost}, "echo hello; echo oops >&2")
	if err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if !strings.Contains(out, "hello") || !strings.Contains(out, "oops") {
		t.Errorf("expected combined output, got %q", out)
	}

	out, err = client.RunCommand(Host{Name: LocalHost}, "echo partial; exit 3")
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitErr.Status != 3 {
		t.Errorf("expected status 3, got %d", exitErr.Status)
	}
	if !strings.Contains(out, "partial") {
		t.Errorf("expected output despite failure, got %q", out)
	}
}

func TestRouter(t *testing.T) {
	local := &fakeClient{outputs: map[string]string{LocalHost: "local"}}
	remote := &fakeClient{outputs: map[string]string{"bench01": "remote"}}
	created := 0
	router := &Router{
		Local: local,
		NewRemote: func() (Client, error) {
			created++
			return remote, nil
		},
	}
	defer router.Close()

	if out, _ := router.RunCommand(Host{Name: LocalHost}, "x"); out != "local" {
		t.Errorf("expected local output, got %q", out)
	}
	if created != 0 {
		t.Error("remote client should not be created for local commands")
	}
	for i := 0; i < 2; i++ {
		if out, _ := router.RunCommand(Host{Name: "bench01"}, "x"); out != "remote" {
			t.Errorf("expected remote output, got %q", out)
		}
	}
	if created != 1 {
		t.Errorf("expected remote client created once, got %d", created)
	}
}

func TestRouter_NoRemote(t *testing.T) {
	router := &Router{Local: &fakeClient{}}
	if _, err := router.RunCommand(Host{Name: "bench01"}, "x"); err == nil {
		t.Fatal("expected error without a remote client")
	}
}

func TestHost_IsLocal(t *testing.T) {
	if !(Host{}).IsLocal() || !(Host{Name: LocalHost}).IsLocal() {
		t.Error("empty and localhost names should be local")
	}
	if (Host{Name: "bench01"}).IsLocal() {
		t.Error("bench01 should not be local")
	}
}

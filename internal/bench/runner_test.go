package bench

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matsen/ae/internal/scout"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not installed")
	}
}

func TestExecRunner(t *testing.T) {
	requireSh(t)
	dir := t.TempDir()
	var live bytes.Buffer

	out, err := ExecRunner{Live: &live}.Run(context.Background(), dir, []string{"sh", "-c", "touch marker; echo ok; echo warn >&2"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
		t.Errorf("expected command to run in %s: %v", dir, err)
	}
	if strings.TrimSpace(string(out)) != "ok" {
		t.Errorf("expected stdout %q, got %q", "ok", out)
	}
	if strings.Contains(string(out), "warn") {
		t.Error("stderr should not be part of the captured output")
	}
	if !strings.Contains(live.String(), "warn") {
		t.Error("live writer should see stderr")
	}
}

func TestExecRunner_Failure(t *testing.T) {
	requireSh(t)
	_, err := ExecRunner{}.Run(context.Background(), t.TempDir(), []string{"sh", "-c", "echo build failed >&2; exit 2"})
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if runErr.Stderr != "build failed" {
		t.Errorf("expected stderr tail, got %q", runErr.Stderr)
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 2 {
		t.Errorf("expected exit status 2, got %v", err)
	}
}

func TestExecRunner_Cancel(t *testing.T) {
	requireSh(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := ExecRunner{Grace: time.Second}.Run(ctx, t.TempDir(), []string{"sleep", "30"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("cancellation did not stop the command")
	}
}

// recordingClient captures remote commands.
type recordingClient struct {
	command string
	output  string
	err     error
}

func (c *recordingClient) RunCommand(host scout.Host, command string) (string, error) {
	c.command = command
	return c.output, c.err
}

func (c *recordingClient) Close() error { return nil }

func TestRemoteRunner(t *testing.T) {
	client := &recordingClient{output: "BenchmarkEncode/random_8KB-8 1 1 ns/op\n"}
	r := RemoteRunner{Client: client, Host: scout.Host{Name: "bench01"}}

	out, err := r.Run(context.Background(), "/srv/my repo", []string{"go", "test", "-bench", "^Benchmark(Encode|Decode)$"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	want := `cd '/srv/my repo' && go test -bench '^Benchmark(Encode|Decode)$'`
	if client.command != want {
		t.Errorf("command =\n  %s\nwant\n  %s", client.command, want)
	}
	if string(out) != client.output {
		t.Errorf("unexpected output %q", out)
	}
}

func TestRemoteRunner_ExitError(t *testing.T) {
	client := &recordingClient{output: "FAIL\n", err: &scout.ExitError{Host: "bench01", Status: 1}}
	r := RemoteRunner{Client: client, Host: scout.Host{Name: "bench01"}}

	out, err := r.Run(context.Background(), "/srv/ae", []string{"go", "test"})
	var runErr *RunError
	if !errors.As(err, &runErr) {
		t.Fatalf("expected *RunError, got %v", err)
	}
	if string(out) != "FAIL\n" {
		t.Errorf("expected output to be returned, got %q", out)
	}
}

func TestShellQuote(t *testing.T) {
	tests := map[string]string{
		"":               "''",
		"plain":          "plain",
		"-gcflags=-c=1":  "-gcflags=-c=1",
		"-ldflags=-s -w": "'-ldflags=-s -w'",
		"it's":           `'it'\''s'`,
		"^$":             "'^$'",
	}
	for in, want := range tests {
		if got := ShellQuote(in); got != want {
			t.Errorf("ShellQuote(%q) = %s, want %s", in, got, want)
		}
	}
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/git"
	"github.com/matsen/ae/internal/profile"
	"github.com/matsen/ae/internal/workflow"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no results", &workflow.StepError{Step: workflow.StepBenchmark, Err: fmt.Errorf("parse: %w", bench.ErrNoResults)}, ExitDataError},
		{"no logon user", &workflow.StepError{Step: workflow.StepBenchmark, Err: bench.ErrNoLogonUser}, ExitConfigError},
		{"unknown profile", fmt.Errorf("%w: \"fast\"", profile.ErrUnknownProfile), ExitConfigError},
		{"not a repo", git.ErrNotGitRepo, ExitGitError},
		{"stage", &workflow.StepError{Step: workflow.StepStage, Err: errors.New("git add")}, ExitGitError},
		{"commit", &workflow.StepError{Step: workflow.StepCommit, Err: errors.New("git commit")}, ExitGitError},
		{"compare", &workflow.StepError{Step: workflow.StepCompare, Err: errors.New("bad baseline")}, ExitDataError},
		{"benchmark failed", &workflow.StepError{Step: workflow.StepBenchmark, Err: errors.New("exit status 1")}, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildCommand(t *testing.T) {
	release, err := profile.Lookup(profile.NameRelease, nil)
	if err != nil {
		t.Fatal(err)
	}
	got := BuildCommand("/usr/local/go/bin/go", release, "/tmp/out", []string{"./..."})
	want := append(append([]string{"/usr/local/go/bin/go", "build"}, release.Flags()...), "-o", "/tmp/out", "./...")
	if !reflect.DeepEqual(got, want) {
		t.Errorf("BuildCommand() = %v, want %v", got, want)
	}

	got = BuildCommand("go", release, "", []string{"."})
	if got[len(got)-1] != "." || strings.Contains(strings.Join(got, " "), " -o ") {
		t.Errorf("expected no -o without output, got %v", got)
	}
}

func TestEnsureGitignore(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, ".gitignore")
	if err := os.WriteFile(path, []byte("*.test"), 0644); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := ensureGitignore(root, ".aebench/"); err != nil {
			t.Fatalf("ensureGitignore() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "*.test\n.aebench/\n" {
		t.Errorf("unexpected .gitignore: %q", data)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m 30s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestShortSHA(t *testing.T) {
	if got := shortSHA("0123456789abcdef0123"); got != "0123456789ab" {
		t.Errorf("expected 12 characters, got %q", got)
	}
	if got := shortSHA(""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestFormatSummary(t *testing.T) {
	lo, hi := 1.4e-6, 1.6e-6
	got := formatSummary("sec/op", 1.5e-6, &lo, &hi)
	if !strings.Contains(got, "µ") || !strings.Contains(got, " [") || !strings.HasSuffix(got, "]") {
		t.Errorf("unexpected summary %q", got)
	}

	got = formatSummary("sec/op", 1.5e-6, nil, nil)
	if !strings.Contains(got, "µ") || strings.Contains(got, "[") {
		t.Errorf("expected a bare center without bounds, got %q", got)
	}
}

func TestSeriesKey(t *testing.T) {
	tests := []struct {
		name, unit         string
		wantName, wantUnit string
	}{
		{"BenchmarkEncode/random_64KB-8", "sec/op", "BenchmarkEncode/random_64KB-8", "sec/op"},
		{"Encode/random_64KB-8", "ns/op", "BenchmarkEncode/random_64KB-8", "sec/op"},
		{"BenchmarkDecode/random_64KB-8", "MB/s", "BenchmarkDecode/random_64KB-8", "B/s"},
		{"Decode/random_64KB-8", "allocs/op", "BenchmarkDecode/random_64KB-8", "allocs/op"},
	}
	for _, tt := range tests {
		name, unit := seriesKey(tt.name, tt.unit)
		if name != tt.wantName || unit != tt.wantUnit {
			t.Errorf("seriesKey(%q, %q) = %q, %q, want %q, %q",
				tt.name, tt.unit, name, unit, tt.wantName, tt.wantUnit)
		}
	}
}

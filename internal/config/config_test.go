package config

import (
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/matsen/ae/internal/profile"
)

// isolate points the global config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDefault_BenchTimeSplitsWindow(t *testing.T) {
	cfg := Default()
	if got := cfg.BenchTime(); got != 4*time.Second {
		t.Errorf("expected 4s per sample, got %s", got)
	}
	cfg.Bench.MeasurementTime = 30 * time.Second
	cfg.Bench.Samples = 10
	if got := cfg.BenchTime(); got != 3*time.Second {
		t.Errorf("expected 3s per sample, got %s", got)
	}
}

// The default pattern must select the benchmark functions declared in the
// root package, and nothing else there.
func TestDefaultPattern_MatchesDeclaredBenchmarks(t *testing.T) {
	re := regexp.MustCompile(DefaultPattern)

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filepath.Join("..", "..", "bench_test.go"), nil, 0)
	if err != nil {
		t.Fatalf("parsing bench_test.go: %v", err)
	}

	var found []string
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || !strings.HasPrefix(fn.Name.Name, "Benchmark") {
			continue
		}
		found = append(found, fn.Name.Name)
		if !re.MatchString(fn.Name.Name) {
			t.Errorf("pattern %q does not match %s", DefaultPattern, fn.Name.Name)
		}
	}
	if len(found) != 2 {
		t.Errorf("expected 2 benchmark functions, found %v", found)
	}
}

func TestFindRepository(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(ConfigPath(root), []byte("bench:\n  samples: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := FindRepository(nested)
	if err != nil {
		t.Fatalf("FindRepository() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(root)
	gotResolved, _ := filepath.EvalSymlinks(got)
	if gotResolved != want {
		t.Errorf("FindRepository() = %q, want %q", got, root)
	}

	_, err = FindRepository(t.TempDir())
	if !errors.Is(err, ErrNoConfig) {
		t.Errorf("expected ErrNoConfig, got %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bench.Samples != 6 || cfg.Baseline.Path != DefaultBaseline {
		t.Errorf("expected defaults, got %+v", cfg.Bench)
	}
	if got := cfg.BenchTime(); got != 5*time.Second {
		t.Errorf("BenchTime() = %s, want 5s", got)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	content := `bench:
  measurement_time: 40s
  samples: 8
  profile: bench
baseline:
  path: perf/baseline.txt
priority:
  niceness: 0
profiles:
  bench:
    kind: release
    opt_level: 2
    debug: lines
    pgo: auto
    codegen_units: 2
`
	if err := os.WriteFile(ConfigPath(root), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Bench.MeasurementTime != 40*time.Second {
		t.Errorf("MeasurementTime = %s, want 40s", cfg.Bench.MeasurementTime)
	}
	if cfg.Bench.Samples != 8 {
		t.Errorf("Samples = %d, want 8", cfg.Bench.Samples)
	}
	if cfg.Bench.Pattern != DefaultPattern {
		t.Errorf("Pattern = %q, want default", cfg.Bench.Pattern)
	}
	if cfg.Priority.Niceness != 0 {
		t.Errorf("Niceness = %d, want 0", cfg.Priority.Niceness)
	}
	if got := cfg.BaselinePath(root); got != filepath.Join(root, "perf", "baseline.txt") {
		t.Errorf("BaselinePath = %q", got)
	}
	p, err := profile.Lookup(cfg.Bench.Profile, cfg.Profiles)
	if err != nil {
		t.Fatal(err)
	}
	if p.Debug != profile.DebugLines {
		t.Errorf("expected custom profile, got %+v", p)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"bad yaml", "bench: [", "parsing"},
		{"zero samples", "bench:\n  samples: 0\n", "bench.samples"},
		{"niceness range", "priority:\n  niceness: -30\n", "priority.niceness"},
		{"unknown profile", "bench:\n  profile: turbo\n", "unknown build profile"},
		{"inconsistent profile", "profiles:\n  fast:\n    kind: development\n    debug: full\n    pgo: auto\n    codegen_units: 1\n    debug_assertions: true\n", "must disable pgo"},
		{"remote without dir", "remote:\n  host: bench01\n", "remote.dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			root := t.TempDir()
			if err := os.WriteFile(ConfigPath(root), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(root)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %q", tt.wantMsg, err.Error())
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	isolate(t)
	root := t.TempDir()

	cfg := Default()
	cfg.Bench.MeasurementTime = 30 * time.Second
	cfg.Commit.Header = "bench: refresh"
	if err := cfg.Save(root); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Bench.MeasurementTime != 30*time.Second {
		t.Errorf("MeasurementTime = %s, want 30s", loaded.Bench.MeasurementTime)
	}
	if loaded.Commit.Header != "bench: refresh" {
		t.Errorf("Header = %q", loaded.Commit.Header)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got := ExpandPath("~/x/history.db"); got != filepath.Join(home, "x", "history.db") {
		t.Errorf("ExpandPath = %q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("ExpandPath = %q, want /abs", got)
	}
	if got := ExpandPath(""); got != "" {
		t.Errorf("ExpandPath = %q, want empty", got)
	}
}

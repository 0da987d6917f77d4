package bench

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleOutput = `goos: linux
goarch: amd64
pkg: github.com/matsen/ae
cpu: Intel(R) Xeon(R) CPU @ 2.20GHz
BenchmarkEncode/random_64KB-8         	     300	   3970000 ns/op	  16.51 MB/s	    4096 B/op	       2 allocs/op
BenchmarkEncode/random_64KB-8         	     300	   4010000 ns/op	  16.34 MB/s	    4096 B/op	       2 allocs/op
BenchmarkDecode/zeroes_8KB-8          	    5000	    240000 ns/op	  34.13 MB/s	    4096 B/op	       2 allocs/op
this line is noise
PASS
ok  	github.com/matsen/ae	12.345s
`

func TestParseResults(t *testing.T) {
	set, err := ParseResults(strings.NewReader(sampleOutput), "run")
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("expected 3 results, got %d", set.Len())
	}
	if got := set.Config("goos"); got != "linux" {
		t.Errorf("expected goos linux, got %q", got)
	}

	keys, values := set.Series()
	// 2 benchmarks x 4 units.
	if len(keys) != 8 {
		t.Fatalf("expected 8 series, got %d: %v", len(keys), keys)
	}
	first := keys[0]
	if first.Name != "BenchmarkEncode/random_64KB-8" || first.Pkg != "github.com/matsen/ae" {
		t.Errorf("unexpected first key %+v", first)
	}
	if n := len(values[first]); n != 2 {
		t.Errorf("expected 2 samples for %s, got %d", first.Name, n)
	}

	units := make(map[string]bool)
	for _, k := range keys {
		units[k.Unit] = true
	}
	for _, u := range []string{"sec/op", "B/s", "B/op", "allocs/op"} {
		if !units[u] {
			t.Errorf("expected unit %s, got %v", u, units)
		}
	}
	if units["ns/op"] || units["MB/s"] {
		t.Errorf("expected tidied units, got %v", units)
	}
	if got := values[first][0]; got < 3.96e-3 || got > 3.98e-3 {
		t.Errorf("expected 3970000 ns/op as ~3.97e-3 sec/op, got %g", got)
	}
}

func TestParseResults_NoResults(t *testing.T) {
	_, err := ParseResults(strings.NewReader("PASS\nok  \tgithub.com/matsen/ae\t0.01s\n"), "empty")
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("expected ErrNoResults, got %v", err)
	}
}

func TestParseResults_SyntaxErrorsAreWarnings(t *testing.T) {
	input := "BenchmarkEncode/random_8KB-8 100 notanumber ns/op\n" +
		"BenchmarkEncode/random_8KB-8 100 1000 ns/op\n"
	set, err := ParseResults(strings.NewReader(input), "mixed")
	if err != nil {
		t.Fatalf("ParseResults() error = %v", err)
	}
	if set.Len() != 1 {
		t.Errorf("expected 1 result, got %d", set.Len())
	}
	if len(set.Warnings) != 1 || !strings.Contains(set.Warnings[0], "mixed:1") {
		t.Errorf("expected one positioned warning, got %v", set.Warnings)
	}
}

func TestBaselineRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "perf", "bench-baseline.txt")

	set, err := ParseResults(strings.NewReader(sampleOutput), "run")
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteBaseline(path, set); err != nil {
		t.Fatalf("WriteBaseline() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{"goos: linux", "pkg: github.com/matsen/ae", "BenchmarkDecode/zeroes_8KB-8", "ns/op"} {
		if !strings.Contains(text, want) {
			t.Errorf("baseline missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "noise") || strings.Contains(text, "PASS") {
		t.Errorf("baseline should hold only results:\n%s", text)
	}

	back, exists, err := ReadBaseline(path)
	if err != nil {
		t.Fatalf("ReadBaseline() error = %v", err)
	}
	if !exists {
		t.Error("expected baseline to exist")
	}
	_, want := set.Series()
	_, got := back.Series()
	if len(got) != len(want) {
		t.Fatalf("expected %d series, got %d", len(want), len(got))
	}
	for k, vs := range want {
		if len(got[k]) != len(vs) {
			t.Errorf("%v: expected %d values, got %d", k, len(vs), len(got[k]))
		}
	}

	// No temp files are left beside the baseline.
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the baseline in its directory, got %d entries", len(entries))
	}
}

func TestWriteBaseline_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench-baseline.txt")
	if err := os.WriteFile(path, []byte("stale\n"), 0644); err != nil {
		t.Fatal(err)
	}

	set, err := ParseResults(strings.NewReader("BenchmarkEncode/zeroes_8KB-8 10 5 ns/op\n"), "run")
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteBaseline(path, set); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "stale") {
		t.Errorf("expected baseline to be replaced, got %q", data)
	}
}

func TestReadBaseline_Missing(t *testing.T) {
	set, exists, err := ReadBaseline(filepath.Join(t.TempDir(), "nope.txt"))
	if err != nil {
		t.Fatalf("ReadBaseline() error = %v", err)
	}
	if exists {
		t.Error("expected exists=false")
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d results", set.Len())
	}
}

func TestParseBaseline_Empty(t *testing.T) {
	set, err := ParseBaseline(nil, "HEAD:bench-baseline.txt")
	if err != nil {
		t.Fatalf("ParseBaseline() error = %v", err)
	}
	if set.Len() != 0 {
		t.Errorf("expected empty set, got %d", set.Len())
	}
}

package bench

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/perf/benchfmt"
)

// ErrNoResults is returned when benchmark output holds no results, usually
// because the pattern matched nothing or the build failed.
var ErrNoResults = errors.New("no benchmark results")

// benchPrefix is stripped by benchfmt and restored in series names.
const benchPrefix = "Benchmark"

// Key identifies one measured series: a benchmark in a package, in one unit.
type Key struct {
	Pkg  string `json:"pkg,omitempty"`
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Set is a parsed collection of benchmark results.
type Set struct {
	Results  []*benchfmt.Result
	Warnings []string // syntax errors skipped while parsing
}

// ParseResults reads Go benchmark format from r. name labels positions in
// warnings. Malformed lines are collected as warnings, not errors.
func ParseResults(r io.Reader, name string) (*Set, error) {
	set := &Set{}
	reader := benchfmt.NewReader(r, name)
	for reader.Scan() {
		switch rec := reader.Result().(type) {
		case *benchfmt.Result:
			// The reader reuses its Result between calls.
			set.Results = append(set.Results, rec.Clone())
		case *benchfmt.SyntaxError:
			set.Warnings = append(set.Warnings, rec.Error())
		}
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	if len(set.Results) == 0 {
		return set, fmt.Errorf("%w in %s", ErrNoResults, name)
	}
	return set, nil
}

// Len returns the number of result lines.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Results)
}

// Series groups measurements by key. Keys are returned in order of first
// appearance. Names carry the Benchmark prefix as go test prints them;
// units are benchfmt's tidied forms, so ns/op is reported in sec/op and
// MB/s in B/s.
func (s *Set) Series() ([]Key, map[Key][]float64) {
	if s == nil {
		return nil, nil
	}
	var keys []Key
	values := make(map[Key][]float64)
	for _, res := range s.Results {
		pkg := res.GetConfig("pkg")
		name := benchPrefix + string(res.Name.Full())
		for _, v := range res.Values {
			k := Key{Pkg: pkg, Name: name, Unit: v.Unit}
			if _, ok := values[k]; !ok {
				keys = append(keys, k)
			}
			values[k] = append(values[k], v.Value)
		}
	}
	return keys, values
}

// Config returns the value of a configuration key on the first result
// that carries it, such as "goos" or "cpu".
func (s *Set) Config(key string) string {
	if s == nil {
		return ""
	}
	for _, res := range s.Results {
		if v := res.GetConfig(key); v != "" {
			return v
		}
	}
	return ""
}

// WriteTo writes the set in Go benchmark format.
func (s *Set) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	bw := benchfmt.NewWriter(cw)
	for _, res := range s.Results {
		if err := bw.Write(res); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// Bytes renders the set in Go benchmark format.
func (s *Set) Bytes() []byte {
	var buf bytes.Buffer
	s.WriteTo(&buf)
	return buf.Bytes()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// ReadBaseline reads the baseline file at path. A missing file yields an
// empty set and exists=false.
func ReadBaseline(path string) (set *Set, exists bool, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Set{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("opening baseline: %w", err)
	}
	defer f.Close()

	set, err = ParseResults(f, path)
	if errors.Is(err, ErrNoResults) {
		return set, true, nil
	}
	if err != nil {
		return nil, true, err
	}
	return set, true, nil
}

// ParseBaseline parses baseline content from memory, for example a file
// read at an older commit. Empty content yields an empty set.
func ParseBaseline(data []byte, name string) (*Set, error) {
	set, err := ParseResults(bytes.NewReader(data), name)
	if errors.Is(err, ErrNoResults) {
		return set, nil
	}
	return set, err
}

// WriteBaseline replaces the baseline at path with set. The file is written
// next to its destination and renamed into place.
func WriteBaseline(path string, set *Set) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating baseline directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating baseline: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := set.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing baseline: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing baseline: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing baseline: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing baseline: %w", err)
	}
	return nil
}

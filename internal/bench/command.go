// Package bench runs the benchmark suite and reads and writes benchmark
// result sets in the standard Go benchmark format.
package bench

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/matsen/ae/internal/profile"
)

// Spec describes one benchmark invocation.
type Spec struct {
	Packages  []string
	Pattern   string
	BenchTime time.Duration // per sample
	Samples   int
	Benchmem  bool
	Profile   profile.Profile
	ExtraArgs []string
}

// ResolveGo returns the absolute path of the go tool. sudo resets PATH to
// its secure_path, which often does not include the Go installation.
func ResolveGo() (string, error) {
	path, err := exec.LookPath("go")
	if err != nil {
		return "", fmt.Errorf("locating go toolchain: %w", err)
	}
	return path, nil
}

// Command builds the go test argv for spec. goBin is the go tool to invoke.
func Command(goBin string, spec Spec) []string {
	argv := []string{
		goBin, "test",
		"-run", "^$",
		"-bench", spec.Pattern,
		"-benchtime", formatBenchTime(spec.BenchTime),
		"-count", fmt.Sprint(spec.Samples),
	}
	if spec.Benchmem {
		argv = append(argv, "-benchmem")
	}
	argv = append(argv, spec.Profile.Flags()...)
	argv = append(argv, spec.ExtraArgs...)
	argv = append(argv, spec.Packages...)
	return argv
}

// formatBenchTime renders a duration the way -benchtime parses it, without
// the trailing zero units time.Duration.String adds ("4s", not "4.000s").
func formatBenchTime(d time.Duration) string {
	if d <= 0 {
		return "1x"
	}
	if d%time.Second == 0 {
		return fmt.Sprintf("%ds", d/time.Second)
	}
	if d%time.Millisecond == 0 {
		return fmt.Sprintf("%dms", d/time.Millisecond)
	}
	return d.String()
}

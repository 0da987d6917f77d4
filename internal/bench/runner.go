package bench

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/matsen/ae/internal/scout"
)

// Runner executes a benchmark command and returns its standard output.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string) ([]byte, error)
}

// RunError reports a benchmark command that failed.
type RunError struct {
	Argv   []string
	Stderr string // tail of the error output
	Err    error
}

func (e *RunError) Error() string {
	msg := fmt.Sprintf("running %s: %v", strings.Join(e.Argv, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RunError) Unwrap() error { return e.Err }

// stderrTail is how much error output a RunError keeps.
const stderrTail = 2048

// ExecRunner runs commands on this machine.
type ExecRunner struct {
	Live  io.Writer     // optional; receives output as it is produced
	Grace time.Duration // time between interrupt and kill on cancellation
}

// Run starts argv in dir. On cancellation the child gets an interrupt so
// sudo can forward it, and is killed after the grace period.
func (r ExecRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.Live != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.Live)
		cmd.Stderr = io.MultiWriter(&stderr, r.Live)
	}
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.Grace
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = 10 * time.Second
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.Bytes(), &RunError{Argv: argv, Stderr: tail(stderr.String(), stderrTail), Err: err}
	}
	return stdout.Bytes(), nil
}

// RemoteRunner runs commands on another host over SSH. dir is a directory
// on that host.
type RemoteRunner struct {
	Client scout.Client
	Host   scout.Host
	Live   io.Writer
}

// Run executes "cd dir && argv" on the remote host. Output arrives when the
// command finishes.
func (r RemoteRunner) Run(ctx context.Context, dir string, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	command := "cd " + ShellQuote(dir) + " && " + ShellJoin(argv)
	out, err := r.Client.RunCommand(r.Host, command)
	if r.Live != nil {
		io.WriteString(r.Live, out)
	}
	if err != nil {
		var exitErr *scout.ExitError
		if errors.As(err, &exitErr) {
			return []byte(out), &RunError{Argv: argv, Stderr: tail(out, stderrTail), Err: err}
		}
		return nil, &RunError{Argv: argv, Err: err}
	}
	return []byte(out), nil
}

// ShellJoin quotes each argument for a POSIX shell.
func ShellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = ShellQuote(a)
	}
	return strings.Join(quoted, " ")
}

// ShellQuote quotes s for a POSIX shell when it contains anything beyond a
// conservative set of safe characters.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.ContainsRune("-_./=:,+@%", c)) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}

// Package workflow runs the benchmark suite, compares the results with the
// committed baseline, replaces the baseline, and commits it.
package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/compare"
	"github.com/matsen/ae/internal/config"
	"github.com/matsen/ae/internal/git"
	"github.com/matsen/ae/internal/history"
	"github.com/matsen/ae/internal/profile"
	"github.com/matsen/ae/internal/scout"
)

// Step identifies a stage of the pipeline.
type Step int

const (
	StepQuiet Step = iota
	StepBenchmark
	StepMessage
	StepCompare
	StepBaseline
	StepStage
	StepCommit
	StepHistory
)

var stepNames = map[Step]string{
	StepQuiet:     "wait for quiet host",
	StepBenchmark: "run benchmarks",
	StepMessage:   "prepare commit message",
	StepCompare:   "compare with baseline",
	StepBaseline:  "write baseline",
	StepStage:     "stage baseline",
	StepCommit:    "commit baseline",
	StepHistory:   "record history",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step %d", int(s))
}

// StepError reports the step at which the pipeline stopped.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// writeComparison appends the formatted report to the commit message.
func writeComparison(w io.Writer, report *compare.Report) error {
	if err := report.Format(w); err != nil {
		return fail(StepCompare, fmt.Errorf("formatting comparison: %w", err))
	}
	return nil
}

func fail(step Step, err error) error {
	return &StepError{Step: step, Err: err}
}

// Options configures one run.
type Options struct {
	Root     string // git repository holding the baseline
	Dir      string // where the benchmarks run; defaults to Root
	Config   *config.Config
	Profile  profile.Profile
	GoBin    string // go tool; defaults to "go"
	NoCommit bool   // stop after writing the baseline
}

// Deps are the collaborators a run uses.
type Deps struct {
	Runner  bench.Runner
	Scout   scout.Client // nil skips waiting for a quiet host
	Host    scout.Host   // host the benchmarks run on
	History *history.DB  // nil skips recording
	Logger  *slog.Logger
	Now     func() time.Time
}

// Result describes a finished run.
type Result struct {
	Command      []string        `json:"command"`
	BaselinePath string          `json:"baseline"`
	HadBaseline  bool            `json:"had_baseline"`
	Results      int             `json:"results"`
	Report       *compare.Report `json:"report"`
	Commit       string          `json:"commit,omitempty"`
	RunID        int64           `json:"run_id,omitempty"`
	Warnings     []string        `json:"warnings,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	Duration     time.Duration   `json:"duration"`
}

// Run executes the pipeline. Failures are returned as *StepError, and no
// step after a failed one runs.
func Run(ctx context.Context, opts Options, deps Deps) (*Result, error) {
	cfg := opts.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	dir := opts.Dir
	if dir == "" {
		dir = opts.Root
	}
	goBin := opts.GoBin
	if goBin == "" {
		goBin = "go"
	}

	res := &Result{
		BaselinePath: cfg.BaselinePath(opts.Root),
		StartedAt:    now(),
	}

	if cfg.Quiet.MaxLoad > 0 && deps.Scout != nil {
		logger.Info("waiting for quiet host", "host", deps.Host.Name, "max_load", cfg.Quiet.MaxLoad)
		_, err := scout.WaitQuiet(ctx, deps.Scout, deps.Host, scout.WaitOptions{
			MaxLoad:  cfg.Quiet.MaxLoad,
			Interval: cfg.Quiet.PollInterval,
			Timeout:  cfg.Quiet.Timeout,
		}, logger)
		if err != nil {
			return nil, fail(StepQuiet, err)
		}
	}

	// Step 1: run the benchmarks under raised priority.
	argv := bench.Command(goBin, bench.Spec{
		Packages:  cfg.Bench.Packages,
		Pattern:   cfg.Bench.Pattern,
		BenchTime: cfg.BenchTime(),
		Samples:   cfg.Bench.Samples,
		Benchmem:  cfg.Bench.Benchmem,
		Profile:   opts.Profile,
		ExtraArgs: cfg.Bench.ExtraArgs,
	})
	priority := bench.Priority{
		Niceness: cfg.Priority.Niceness,
		Sudo:     cfg.Priority.Sudo,
		User:     cfg.Priority.User,
	}
	wrapped, err := priority.Wrap(argv)
	if err != nil {
		return nil, fail(StepBenchmark, err)
	}
	res.Command = wrapped

	logger.Info("running benchmarks", "profile", opts.Profile.Name, "samples", cfg.Bench.Samples,
		"benchtime", cfg.BenchTime(), "niceness", cfg.Priority.Niceness, "dir", dir)
	out, err := deps.Runner.Run(ctx, dir, wrapped)
	if err != nil {
		return nil, fail(StepBenchmark, err)
	}
	fresh, err := bench.ParseResults(bytes.NewReader(out), "benchmark output")
	if err != nil {
		return nil, fail(StepBenchmark, err)
	}
	res.Results = fresh.Len()
	res.Warnings = append(res.Warnings, fresh.Warnings...)
	for _, w := range fresh.Warnings {
		logger.Warn("malformed benchmark line", "detail", w)
	}

	// Step 2: the commit message starts with a fixed header.
	msg, err := os.CreateTemp("", "aebench-msg-*.txt")
	if err != nil {
		return nil, fail(StepMessage, err)
	}
	defer os.Remove(msg.Name())
	defer msg.Close()
	if _, err := fmt.Fprintf(msg, "%s\n\n", cfg.Commit.Header); err != nil {
		return nil, fail(StepMessage, err)
	}

	// Step 3: compare against the previous baseline.
	old, exists, err := bench.ReadBaseline(res.BaselinePath)
	if err != nil {
		return nil, fail(StepCompare, err)
	}
	res.HadBaseline = exists
	if !exists {
		logger.Info("no previous baseline", "path", res.BaselinePath)
	}
	res.Report = compare.Compare(old, fresh, cfg.Bench.Alpha)
	if err := writeComparison(msg, res.Report); err != nil {
		return nil, err
	}

	// Step 4: the fresh results become the baseline.
	if err := bench.WriteBaseline(res.BaselinePath, fresh); err != nil {
		return nil, fail(StepBaseline, err)
	}
	logger.Info("baseline written", "path", res.BaselinePath, "results", fresh.Len())

	if opts.NoCommit {
		res.Duration = now().Sub(res.StartedAt)
		return res, nil
	}

	// Step 5: stage.
	rel, err := filepath.Rel(opts.Root, res.BaselinePath)
	if err != nil {
		return nil, fail(StepStage, err)
	}
	if err := git.Add(opts.Root, rel); err != nil {
		return nil, fail(StepStage, err)
	}

	// Step 6: commit with the message file; the deferred remove cleans up.
	if err := msg.Close(); err != nil {
		return nil, fail(StepCommit, err)
	}
	sha, err := git.Commit(opts.Root, msg.Name(), cfg.Commit.AllowEmpty)
	if err != nil {
		return nil, fail(StepCommit, err)
	}
	res.Commit = sha
	logger.Info("baseline committed", "commit", sha)

	res.Duration = now().Sub(res.StartedAt)

	// Step 7: history is best effort.
	if deps.History != nil {
		id, err := deps.History.RecordRun(history.Run{
			StartedAt:       res.StartedAt,
			FinishedAt:      res.StartedAt.Add(res.Duration),
			Commit:          sha,
			Profile:         opts.Profile.Name,
			MeasurementTime: cfg.Bench.MeasurementTime,
			Samples:         cfg.Bench.Samples,
			Baseline:        rel,
			Host:            hostName(deps.Host),
		}, fresh)
		if err != nil {
			err = fail(StepHistory, err)
			logger.Warn("recording history failed", "error", err)
			res.Warnings = append(res.Warnings, err.Error())
		} else {
			res.RunID = id
		}
	}

	return res, nil
}

func hostName(h scout.Host) string {
	if h.IsLocal() {
		if name, err := os.Hostname(); err == nil {
			return name
		}
		return scout.LocalHost
	}
	return h.Name
}

// IsStep reports whether err stopped the pipeline at step.
func IsStep(err error, step Step) bool {
	var se *StepError
	return errors.As(err, &se) && se.Step == step
}

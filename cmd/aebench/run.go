package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/compare"
	"github.com/matsen/ae/internal/config"
	"github.com/matsen/ae/internal/git"
	"github.com/matsen/ae/internal/history"
	"github.com/matsen/ae/internal/profile"
	"github.com/matsen/ae/internal/scout"
	"github.com/matsen/ae/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	runMeasurementTime  time.Duration
	runSamples          int
	runProfile          string
	runNiceness         int
	runNoCommit         bool
	runFailOnRegression float64
	runMaxLoad          float64
	runLocal            bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run benchmarks, update the baseline, and commit it",
	Long: `Run the benchmark suite and commit the results as the new baseline.

Steps:
  1. run go test -bench at raised priority (sudo -n, never prompts)
  2. start the commit message with the configured header
  3. compare the results with the current baseline
  4. overwrite the baseline with the new results
  5. git add the baseline
  6. git commit with the comparison as the message body

With quiet.max_load set, the run first waits for the host's load average
to drop. With remote.host set, benchmarks run on that host over SSH in
remote.dir, and the baseline is written and committed locally.`,
	Args: cobra.NoArgs,
	RunE: runRunE,
}

func init() {
	f := runCmd.Flags()
	f.DurationVar(&runMeasurementTime, "measurement-time", 0, "Total sampling time per benchmark (overrides bench.measurement_time)")
	f.IntVar(&runSamples, "samples", 0, "Samples per benchmark (overrides bench.samples)")
	f.StringVar(&runProfile, "profile", "", "Build profile (overrides bench.profile)")
	f.IntVar(&runNiceness, "niceness", 0, "Scheduling niceness, -20..19 (overrides priority.niceness)")
	f.BoolVar(&runNoCommit, "no-commit", false, "Write the baseline but do not stage or commit it")
	f.Float64Var(&runFailOnRegression, "fail-on-regression", 0, "Exit 4 if any significant regression exceeds this percentage")
	f.Float64Var(&runMaxLoad, "max-load", 0, "Wait until the 1-minute load average is below this (overrides quiet.max_load)")
	f.BoolVar(&runLocal, "local", false, "Run locally even when remote.host is configured")
	rootCmd.AddCommand(runCmd)
}

// RunResponse is the JSON output of the run command.
type RunResponse struct {
	*workflow.Result
	Regressions []compare.Regression `json:"regressions,omitempty"`
}

func runRunE(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	if !git.IsGitRepo(repoRoot) {
		exitWithError(ExitGitError, "%s is not in a git repository", repoRoot)
	}
	cfg := mustLoadConfig(repoRoot)

	flags := cmd.Flags()
	if flags.Changed("measurement-time") {
		cfg.Bench.MeasurementTime = runMeasurementTime
	}
	if flags.Changed("samples") {
		cfg.Bench.Samples = runSamples
	}
	if flags.Changed("profile") {
		cfg.Bench.Profile = runProfile
	}
	if flags.Changed("niceness") {
		cfg.Priority.Niceness = runNiceness
	}
	if flags.Changed("max-load") {
		cfg.Quiet.MaxLoad = runMaxLoad
	}
	if runLocal {
		cfg.Remote = config.RemoteConfig{}
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	prof, err := profile.Lookup(cfg.Bench.Profile, cfg.Profiles)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Benchmark output streams to stderr in human mode so stdout stays clean.
	var live io.Writer
	if humanOutput {
		live = os.Stderr
	}

	router := &scout.Router{
		Local: scout.LocalClient{Ctx: ctx},
		NewRemote: func() (scout.Client, error) {
			return scout.NewSSHClient(scout.SSHConfigFrom(cfg))
		},
	}
	defer router.Close()

	opts := workflow.Options{
		Root:     repoRoot,
		Config:   cfg,
		Profile:  prof,
		NoCommit: runNoCommit,
	}
	deps := workflow.Deps{
		Scout:  router,
		Logger: slog.Default(),
	}

	if cfg.Remote.Host != "" {
		deps.Host = scout.Host{Name: cfg.Remote.Host}
		deps.Runner = bench.RemoteRunner{Client: router, Host: deps.Host, Live: live}
		opts.Dir = cfg.Remote.Dir
		opts.GoBin = "go"
	} else {
		goBin, err := bench.ResolveGo()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		deps.Host = scout.Host{Name: scout.LocalHost}
		deps.Runner = bench.ExecRunner{Live: live}
		opts.GoBin = goBin
	}

	if cfg.History.Enabled {
		db, err := history.OpenDB(cfg.HistoryPath(repoRoot))
		if err != nil {
			slog.Warn("history disabled for this run", "error", err)
		} else {
			defer db.Close()
			deps.History = db
		}
	}

	res, err := workflow.Run(ctx, opts, deps)
	if err != nil {
		exitWithError(exitCodeFor(err), "%v", err)
	}

	resp := RunResponse{Result: res}
	if flags.Changed("fail-on-regression") {
		resp.Regressions = res.Report.Regressions(runFailOnRegression)
	}

	if humanOutput {
		printRunHuman(res, resp.Regressions)
	} else if err := outputJSON(resp); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}

	if len(resp.Regressions) > 0 {
		os.Exit(ExitRegression)
	}
	return nil
}

func printRunHuman(res *workflow.Result, regressions []compare.Regression) {
	outputHuman("%s\n", res.Report.String())
	outputHuman("%d results in %s, baseline %s\n", res.Results, formatDuration(res.Duration), res.BaselinePath)
	if res.Commit != "" {
		outputHuman("Committed %s\n", shortSHA(res.Commit))
	} else {
		outputHuman("Baseline not committed (--no-commit)\n")
	}
	for _, w := range res.Warnings {
		outputHuman("warning: %s\n", w)
	}
	for _, r := range regressions {
		outputHuman("regression: %s %s %s (%.1f%% worse)\n", r.Name, r.Unit, r.Delta, r.Pct)
	}
	if len(regressions) > 0 {
		fmt.Fprintf(os.Stderr, "error: %d significant regression(s)\n", len(regressions))
	}
}

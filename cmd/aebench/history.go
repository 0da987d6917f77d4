package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/matsen/ae/internal/history"
	"github.com/spf13/cobra"
	"golang.org/x/perf/benchunit"
)

var (
	historyLimit int
	historyBench string
	historyUnit  string
)

var historyCmd = &cobra.Command{
	Use:   "history [RUN_ID]",
	Short: "Show recorded benchmark runs",
	Long: `Show runs recorded in the history database.

Usage:
  aebench history                                 # recent runs
  aebench history 12                              # summaries of run 12
  aebench history --bench BenchmarkEncode/x-8     # one benchmark across runs

Benchmark names are matched with their GOMAXPROCS suffix (-8); the
Benchmark prefix may be left off. Units are stored in benchfmt's tidied
form, so ns/op is recorded as sec/op and MB/s as B/s; --unit accepts
either spelling.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs (0 for all)")
	historyCmd.Flags().StringVar(&historyBench, "bench", "", "Show the trend of one benchmark (full name)")
	historyCmd.Flags().StringVar(&historyUnit, "unit", "sec/op", "Unit for --bench")
	rootCmd.AddCommand(historyCmd)
}

// RunDetailResponse is the JSON output for a single run.
type RunDetailResponse struct {
	Run       history.Run       `json:"run"`
	Summaries []history.Summary `json:"summaries"`
}

// TrendResponse is the JSON output for --bench.
type TrendResponse struct {
	Name   string               `json:"name"`
	Unit   string               `json:"unit"`
	Points []history.TrendPoint `json:"points"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	db, err := history.OpenDB(cfg.HistoryPath(repoRoot))
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	defer db.Close()

	switch {
	case len(args) == 1:
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			exitWithError(ExitError, "invalid run ID %q", args[0])
		}
		showRun(db, id)
	case historyBench != "":
		historyBench, historyUnit = seriesKey(historyBench, historyUnit)
		showTrend(db)
	default:
		listRuns(db)
	}
	return nil
}

func listRuns(db *history.DB) {
	runs, err := db.ListRuns(historyLimit)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if !humanOutput {
		if runs == nil {
			runs = []history.Run{}
		}
		if err := outputJSON(runs); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded")
		return
	}
	fmt.Printf("%-5s  %-16s  %-12s  %-8s  %7s  %s\n", "ID", "STARTED", "COMMIT", "PROFILE", "RESULTS", "HOST")
	for _, r := range runs {
		fmt.Printf("%-5d  %-16s  %-12s  %-8s  %7d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), shortSHA(r.Commit), r.Profile, r.Results, r.Host)
	}
}

func showRun(db *history.DB, id int64) {
	run, err := db.GetRun(id)
	if err != nil {
		code := ExitDataError
		if errors.Is(err, history.ErrRunNotFound) {
			code = ExitError
		}
		exitWithError(code, "%v", err)
	}
	sums, err := db.RunResults(id)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if !humanOutput {
		if sums == nil {
			sums = []history.Summary{}
		}
		if err := outputJSON(RunDetailResponse{Run: run, Summaries: sums}); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return
	}

	fmt.Printf("Run %d  %s  commit %s  profile %s  host %s\n",
		run.ID, run.StartedAt.Local().Format("2006-01-02 15:04:05"), shortSHA(run.Commit), run.Profile, run.Host)
	if run.CPU != "" {
		fmt.Printf("cpu: %s\n", run.CPU)
	}
	fmt.Println()
	for _, s := range sums {
		fmt.Printf("%-40s  %s\n", s.Name, formatSummary(s.Unit, s.Center, s.Lo, s.Hi))
	}
}

// seriesKey maps a benchmark name and unit as a user types them to the
// form recorded in history.
func seriesKey(name, unit string) (string, string) {
	if !strings.HasPrefix(name, "Benchmark") {
		name = "Benchmark" + name
	}
	_, unit = benchunit.Tidy(1, unit)
	return name, unit
}

func showTrend(db *history.DB) {
	points, err := db.Trend(historyBench, historyUnit, historyLimit)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}

	if !humanOutput {
		if points == nil {
			points = []history.TrendPoint{}
		}
		if err := outputJSON(TrendResponse{Name: historyBench, Unit: historyUnit, Points: points}); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return
	}

	if len(points) == 0 {
		fmt.Printf("No history for %s (%s)\n", historyBench, historyUnit)
		return
	}
	fmt.Printf("%s (%s)\n", historyBench, historyUnit)
	for _, p := range points {
		fmt.Printf("%-5d  %-16s  %-12s  %s\n",
			p.RunID, p.StartedAt.Local().Format("2006-01-02 15:04"), shortSHA(p.Commit), formatSummary(historyUnit, p.Center, p.Lo, p.Hi))
	}
}

// formatSummary renders a center value with its range in the unit's scale.
// The range is left off when the bounds are unknown.
func formatSummary(unit string, center float64, lo, hi *float64) string {
	vals := []float64{center}
	if lo != nil && hi != nil {
		vals = append(vals, *lo, *hi)
	}
	scaler := benchunit.CommonScale(vals, benchunit.ClassOf(unit))
	if len(vals) == 1 {
		return scaler.Format(center)
	}
	var sb strings.Builder
	sb.WriteString(scaler.Format(center))
	sb.WriteString(" [")
	sb.WriteString(scaler.Format(*lo))
	sb.WriteString(", ")
	sb.WriteString(scaler.Format(*hi))
	sb.WriteString("]")
	return sb.String()
}

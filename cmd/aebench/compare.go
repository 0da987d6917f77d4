package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/compare"
	"github.com/matsen/ae/internal/config"
	"github.com/matsen/ae/internal/git"
	"github.com/spf13/cobra"
)

var compareRev string

var compareCmd = &cobra.Command{
	Use:   "compare [OLD NEW]",
	Short: "Compare two sets of benchmark results",
	Long: `Compare benchmark results without running anything.

Usage:
  aebench compare OLD NEW        # two files in go test -bench format
  aebench compare --rev HEAD~3   # baseline at a revision vs. the working tree
  aebench compare                # the last two committed baselines`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected 0 or 2 arguments, got %d", len(args))
		}
		return nil
	},
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVar(&compareRev, "rev", "", "Compare the baseline at this revision with the working tree")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	var old, fresh *bench.Set
	alpha := 0.0

	if len(args) == 2 {
		if compareRev != "" {
			exitWithError(ExitError, "--rev cannot be combined with file arguments")
		}
		old = mustReadResults(args[0])
		fresh = mustReadResults(args[1])
		if root, err := config.FindRepository(getStartingDirectory()); err == nil {
			alpha = mustLoadConfig(root).Bench.Alpha
		}
	} else {
		repoRoot := mustFindRepository()
		cfg := mustLoadConfig(repoRoot)
		alpha = cfg.Bench.Alpha
		old, fresh = mustLoadRevisions(repoRoot, cfg.BaselinePath(repoRoot))
	}

	if alpha == 0 {
		alpha = config.Default().Bench.Alpha
	}
	report := compare.Compare(old, fresh, alpha)

	if humanOutput {
		fmt.Print(report.String())
		return nil
	}
	if err := outputJSON(report); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
	return nil
}

// mustReadResults parses a results file, exiting on error.
func mustReadResults(path string) *bench.Set {
	data, err := os.ReadFile(path)
	if err != nil {
		exitWithError(ExitDataError, "reading %s: %v", path, err)
	}
	set, err := bench.ParseBaseline(data, path)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	return set
}

// mustLoadRevisions returns the old and new sides for --rev or for the last
// two baseline commits.
func mustLoadRevisions(repoRoot, baselinePath string) (*bench.Set, *bench.Set) {
	if !git.IsGitRepo(repoRoot) {
		exitWithError(ExitGitError, "%s is not in a git repository", repoRoot)
	}
	rel, err := filepath.Rel(repoRoot, baselinePath)
	if err != nil {
		exitWithError(ExitConfigError, "baseline %s is outside %s", baselinePath, repoRoot)
	}

	if compareRev != "" {
		old := mustBaselineAt(repoRoot, compareRev, rel)
		fresh, exists, err := bench.ReadBaseline(baselinePath)
		if err != nil {
			exitWithError(ExitDataError, "%v", err)
		}
		if !exists {
			exitWithError(ExitDataError, "no baseline at %s", baselinePath)
		}
		return old, fresh
	}

	commits, err := git.BaselineLog(repoRoot, rel, 2)
	if err != nil {
		exitWithError(ExitGitError, "%v", err)
	}
	if len(commits) < 2 {
		exitWithError(ExitDataError, "need two commits touching %s, found %d", rel, len(commits))
	}
	return mustBaselineAt(repoRoot, commits[1].SHA, rel), mustBaselineAt(repoRoot, commits[0].SHA, rel)
}

func mustBaselineAt(repoRoot, rev, rel string) *bench.Set {
	data, err := git.FileAtCommit(repoRoot, rev, rel)
	if err != nil {
		code := ExitGitError
		if errors.Is(err, git.ErrFileNotAtCommit) {
			code = ExitDataError
		}
		exitWithError(code, "%v", err)
	}
	set, err := bench.ParseBaseline(data, rel+"@"+rev)
	if err != nil {
		exitWithError(ExitDataError, "%v", err)
	}
	return set
}

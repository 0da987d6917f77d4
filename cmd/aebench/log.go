package main

import (
	"fmt"
	"path/filepath"

	"github.com/matsen/ae/internal/git"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "List commits that updated the baseline",
	Args:  cobra.NoArgs,
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 10, "Maximum number of commits (0 for all)")
	rootCmd.AddCommand(logCmd)
}

// LogResponse is the JSON output of the log command.
type LogResponse struct {
	Baseline string           `json:"baseline"`
	Commits  []git.CommitInfo `json:"commits"`
}

func runLog(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	if !git.IsGitRepo(repoRoot) {
		exitWithError(ExitGitError, "%s is not in a git repository", repoRoot)
	}
	cfg := mustLoadConfig(repoRoot)

	rel, err := filepath.Rel(repoRoot, cfg.BaselinePath(repoRoot))
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	commits, err := git.BaselineLog(repoRoot, rel, logLimit)
	if err != nil {
		exitWithError(ExitGitError, "%v", err)
	}

	if humanOutput {
		if len(commits) == 0 {
			fmt.Printf("No commits touch %s\n", rel)
			return nil
		}
		for _, c := range commits {
			fmt.Printf("%s  %s  %s\n", shortSHA(c.SHA), c.Date.Local().Format("2006-01-02 15:04"), c.Subject)
		}
		return nil
	}

	if commits == nil {
		commits = []git.CommitInfo{}
	}
	if err := outputJSON(LogResponse{Baseline: rel, Commits: commits}); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
	return nil
}

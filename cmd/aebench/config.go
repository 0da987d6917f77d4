package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matsen/ae/internal/config"
	"github.com/matsen/ae/internal/git"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after defaults, the global config, .aebench.yml,
.env, and AEBENCH_* environment variables have been applied.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default .aebench.yml at the repository root",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing .aebench.yml")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		exitWithError(ExitError, "encoding config: %v", err)
	}
	if humanOutput {
		fmt.Printf("# root: %s\n%s", repoRoot, data)
		return nil
	}

	// Round-trip through YAML so JSON keys and durations match the file format.
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		exitWithError(ExitError, "encoding config: %v", err)
	}
	doc["root"] = repoRoot
	if err := outputJSON(doc); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	start := getStartingDirectory()
	root, err := git.FindRepoRoot(start)
	if err != nil {
		exitWithError(ExitGitError, "%s is not in a git repository", start)
	}

	path := config.ConfigPath(root)
	if config.IsRepository(root) && !configInitForce {
		exitWithError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
	}
	if err := config.Default().Save(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if err := ensureGitignore(root, config.StateDir+"/"); err != nil {
		exitWithError(ExitError, "updating .gitignore: %v", err)
	}

	if humanOutput {
		fmt.Printf("Wrote %s\n", path)
		return nil
	}
	return outputJSON(StatusResponse{Status: "created", Path: path})
}

// ensureGitignore appends entry to root/.gitignore unless a line already matches.
func ensureGitignore(root, entry string) error {
	path := filepath.Join(root, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == entry {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		entry = "\n" + entry
	}
	_, err = fmt.Fprintln(f, entry)
	return err
}

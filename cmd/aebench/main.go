// Package main provides the aebench CLI entry point.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/matsen/ae/internal/config"
	"github.com/matsen/ae/internal/git"
	"github.com/matsen/ae/internal/logging"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput  bool
	logLevelFlag string
	configFlag   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors is set, so cobra errors (bad flags, missing args) are printed here.
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "aebench",
	Short: "Benchmark the ae coder and commit the results as a baseline",
	Long: `aebench runs the arithmetic coder benchmarks at raised scheduling
priority, compares the results with the committed baseline, replaces the
baseline, and commits it with the comparison as the commit message.

Configuration is read from .aebench.yml at the repository root, the global
config at $XDG_CONFIG_HOME/aebench/config.yml, a .env file, and AEBENCH_*
environment variables. All commands output JSON by default; use --human
for tables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logLevelFlag
		if level == "" {
			level = os.Getenv(config.EnvLogLevel)
		}
		logging.Init(humanOutput, logging.ParseLevel(level))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to a config file (default: .aebench.yml at the repository root)")
	rootCmd.Version = Version
}

// getStartingDirectory returns the directory to start searching for a repository.
// AEBENCH_ROOT wins over the current working directory.
func getStartingDirectory() string {
	if root := os.Getenv(config.EnvRoot); root != "" {
		return config.ExpandPath(root)
	}
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	return cwd
}

// mustFindRepository returns the directory holding .aebench.yml, or the git
// repository root when there is no config file.
func mustFindRepository() string {
	start := getStartingDirectory()

	root, err := config.FindRepository(start)
	if err == nil {
		return root
	}
	if !errors.Is(err, config.ErrNoConfig) {
		exitWithError(ExitConfigError, "%v", err)
	}

	root, err = git.FindRepoRoot(start)
	if err != nil {
		exitWithError(ExitConfigError, "no %s found and %s is not in a git repository\n\nRun 'aebench config init' in your repository.", config.ConfigFile, start)
	}
	return root
}

// mustLoadConfig loads configuration with .env and environment overrides, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	if err := config.LoadDotEnv(repoRoot); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	var cfg *config.Config
	var err error
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load(repoRoot)
	}
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		exitWithError(ExitConfigError, "applying environment: %v", err)
	}

	// The config file's level applies unless a flag or the environment set one.
	if logLevelFlag == "" && os.Getenv(config.EnvLogLevel) == "" && cfg.LogLevel != "" {
		logging.Init(humanOutput, logging.ParseLevel(cfg.LogLevel))
	}
	slog.Debug("configuration loaded", "root", repoRoot, "profile", cfg.Bench.Profile)
	return cfg
}

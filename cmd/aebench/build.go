package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/matsen/ae/internal/bench"
	"github.com/matsen/ae/internal/profile"
	"github.com/spf13/cobra"
)

var (
	buildProfile string
	buildOutput  string
)

var buildCmd = &cobra.Command{
	Use:   "build [PACKAGES...]",
	Short: "Build packages with a build profile's flags",
	Long: `Run go build with the compiler, linker, and tag settings of a profile.

Packages default to bench.packages. The profile defaults to bench.profile.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildProfile, "profile", "", "Build profile (default: bench.profile)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output file or directory")
	rootCmd.AddCommand(buildCmd)
}

// BuildResponse is the JSON output of the build command.
type BuildResponse struct {
	Profile string   `json:"profile"`
	Command []string `json:"command"`
}

// BuildCommand returns the go build invocation for a profile.
func BuildCommand(goBin string, p profile.Profile, output string, pkgs []string) []string {
	argv := []string{goBin, "build"}
	argv = append(argv, p.Flags()...)
	if output != "" {
		argv = append(argv, "-o", output)
	}
	return append(argv, pkgs...)
}

func runBuild(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	name := cfg.Bench.Profile
	if buildProfile != "" {
		name = buildProfile
	}
	p, err := profile.Lookup(name, cfg.Profiles)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	pkgs := args
	if len(pkgs) == 0 {
		pkgs = cfg.Bench.Packages
	}
	output := buildOutput
	if output != "" && !filepath.IsAbs(output) {
		cwd, err := os.Getwd()
		if err != nil {
			exitWithError(ExitError, "getting current directory: %v", err)
		}
		output = filepath.Join(cwd, output)
	}

	goBin, err := bench.ResolveGo()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	argv := BuildCommand(goBin, p, output, pkgs)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := (bench.ExecRunner{Live: os.Stderr}).Run(ctx, repoRoot, argv); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Built with profile %s\n", p.Name)
		return nil
	}
	if err := outputJSON(BuildResponse{Profile: p.Name, Command: argv}); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
	return nil
}

package main

import (
	"fmt"
	"strings"

	"github.com/matsen/ae/internal/profile"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [NAME]",
	Short: "List build profiles or show one profile's flags",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProfiles,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
}

// ProfileResponse describes one profile and the go flags it renders to.
type ProfileResponse struct {
	profile.Profile
	Flags []string `json:"flags"`
	Valid bool     `json:"valid"`
	Issue string   `json:"issue,omitempty"`
}

func describeProfile(p profile.Profile) ProfileResponse {
	resp := ProfileResponse{Profile: p, Flags: p.Flags(), Valid: true}
	if resp.Flags == nil {
		resp.Flags = []string{}
	}
	if err := p.Validate(); err != nil {
		resp.Valid = false
		resp.Issue = err.Error()
	}
	return resp
}

func runProfiles(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	if len(args) == 1 {
		p, err := profile.Lookup(args[0], cfg.Profiles)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		resp := describeProfile(p)
		if humanOutput {
			printProfile(resp, cfg.Bench.Profile)
		} else if err := outputJSON(resp); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return nil
	}

	names := profile.Names(cfg.Profiles)
	merged := profile.Merge(cfg.Profiles)
	resps := make([]ProfileResponse, 0, len(names))
	for _, name := range names {
		resps = append(resps, describeProfile(merged[name]))
	}

	if !humanOutput {
		if err := outputJSON(resps); err != nil {
			exitWithError(ExitError, "encoding JSON: %v", err)
		}
		return nil
	}
	for _, r := range resps {
		printProfile(r, cfg.Bench.Profile)
	}
	return nil
}

func printProfile(r ProfileResponse, current string) {
	marker := " "
	if r.Name == current {
		marker = "*"
	}
	fmt.Printf("%s %-13s %-11s %s\n", marker, r.Name, r.Kind, strings.Join(r.Flags, " "))
	if !r.Valid {
		fmt.Printf("    invalid: %s\n", r.Issue)
	}
}

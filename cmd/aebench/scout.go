package main

import (
	"fmt"

	"github.com/matsen/ae/internal/scout"
	"github.com/spf13/cobra"
)

var scoutHostFlag string

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Check load on benchmark hosts",
	Long: `Check CPU, memory, load, and the busiest users on benchmark hosts.

Hosts come from the hosts list in .aebench.yml (names or patterns like
bench{01..04}). Without a list, the local machine and remote.host are
checked. Remote hosts are reached over SSH in parallel.`,
	Args: cobra.NoArgs,
	RunE: runScout,
}

func init() {
	scoutCmd.Flags().StringVar(&scoutHostFlag, "host", "", "Check a specific host by name")
	rootCmd.AddCommand(scoutCmd)
}

func runScout(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)

	hosts, err := scout.ExpandHosts(cfg)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	// Hosts outside the configured list can still be checked by name.
	if scoutHostFlag != "" {
		hosts = []scout.Host{scout.FindHost(hosts, scoutHostFlag)}
	}

	router := &scout.Router{
		Local: scout.LocalClient{Ctx: cmd.Context()},
		NewRemote: func() (scout.Client, error) {
			return scout.NewSSHClient(scout.SSHConfigFrom(cfg))
		},
	}
	defer router.Close()

	result := scout.CheckAllHosts(router, hosts)

	if humanOutput {
		fmt.Print(scout.FormatTable(result))
		return nil
	}
	if err := outputJSON(result); err != nil {
		exitWithError(ExitError, "encoding JSON: %v", err)
	}
	return nil
}

// Command controller runs the agentmesh orchestration controller: it
// serves GitHub and Alertmanager webhooks, drives the PR label state
// machine, and dispatches healer remediations.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	kubeconfig  string
	metricsAddr string
	dryRun      bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "controller",
		Short:         "agentmesh orchestration controller",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to the controller config file")
	cmd.PersistentFlags().StringVar(&kubeconfig, "kubeconfig", "", "path to a kubeconfig file; empty uses in-cluster config")
	cmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "address the metrics and webhook HTTP server listens on, overrides config")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "log intended mutations instead of performing them")

	return cmd
}

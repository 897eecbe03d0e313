package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkpilot",
	Short: "LinkPilot - Career Platform Automation Agent",
	Long: `LinkPilot automates routine activity on a career networking platform:
profile analysis, feed engagement and guided job applications, all gated
by daily quotas and driven by cron schedules.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(interactiveCmd)
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// interactiveCmd represents the interactive command
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Run LinkPilot with an interactive menu",
	Long: `Start an interactive session for driving automation tasks by hand.
Useful for first runs and for checking quota and history state.`,
	Run: interactiveHandler,
}

func interactiveHandler(cmd *cobra.Command, args []string) {
	auto, log, ctx, cleanup := runSetup()
	defer cleanup()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println()
		fmt.Println("LinkPilot")
		fmt.Println("  1) Run daily routine")
		fmt.Println("  2) Analyze profile")
		fmt.Println("  3) Apply to a job URL")
		fmt.Println("  4) Engagement round")
		fmt.Println("  5) Quota summary")
		fmt.Println("  6) Application history")
		fmt.Println("  7) Next scheduled runs")
		fmt.Println("  q) Quit")
		fmt.Print("> ")

		if !scanner.Scan() {
			return
		}
		choice := strings.TrimSpace(scanner.Text())

		switch choice {
		case "1":
			summary, err := auto.RunDaily(ctx)
			if err != nil {
				log.Error("Daily routine failed", err)
				continue
			}
			fmt.Println(summary.Text())
		case "2":
			report, err := auto.RunAnalyze(ctx)
			if err != nil {
				log.Error("Profile analysis failed", err)
				continue
			}
			fmt.Printf("Report written to %s\n", report.Path)
		case "3":
			fmt.Print("Job URL: ")
			if !scanner.Scan() {
				return
			}
			jobURL := strings.TrimSpace(scanner.Text())
			if jobURL == "" {
				continue
			}
			result, err := auto.RunApply(ctx, jobURL)
			if err != nil {
				log.Error("Application failed", err)
				continue
			}
			fmt.Printf("Outcome: %s\n", result.Outcome)
			for _, step := range result.Steps {
				fmt.Printf("  - %s\n", step)
			}
		case "4":
			summary, err := auto.RunEngagement(ctx)
			if err != nil {
				log.Error("Engagement round failed", err)
				continue
			}
			fmt.Printf("Likes: %d, Comments: %d, Connections: %d\n",
				summary.Likes, summary.Comments, summary.Connections)
		case "5":
			date, counts := auto.Ledger().Summary()
			fmt.Printf("Quota for %s:\n", date)
			printSortedCounts(counts)
		case "6":
			fmt.Printf("Records: %d\n", auto.History().Len())
			stats := auto.History().Stats()
			for outcome, n := range stats {
				fmt.Printf("  %s: %d\n", outcome, n)
			}
		case "7":
			for name, next := range auto.Scheduler().NextRuns() {
				fmt.Printf("  %s: %s\n", name, next.Format("2006-01-02 15:04"))
			}
		case "q", "quit", "exit":
			return
		default:
			fmt.Println("Unknown choice")
		}
	}
}

func init() {
	interactiveCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	interactiveCmd.Flags().StringVarP(&runLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}

func printSortedCounts(counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %d\n", k, counts[k])
	}
}

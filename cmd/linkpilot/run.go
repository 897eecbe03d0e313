package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aatumaykin/linkpilot/internal/automation"
	"github.com/aatumaykin/linkpilot/internal/browser"
	"github.com/aatumaykin/linkpilot/internal/config"
	"github.com/aatumaykin/linkpilot/internal/constants"
	"github.com/aatumaykin/linkpilot/internal/logger"
	"github.com/spf13/cobra"
)

var (
	runConfigPath string
	runLogLevel   string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single automation task and exit",
	Long: `Run one automation task immediately, outside the scheduler.
Quota limits and application history still apply.`,
}

// runDailyCmd represents the run daily command
var runDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Run the full daily routine once",
	Run: func(cmd *cobra.Command, args []string) {
		auto, log, ctx, cleanup := runSetup()
		defer cleanup()

		summary, err := auto.RunDaily(ctx)
		if err != nil {
			log.Error("Daily routine failed", err)
			os.Exit(1)
		}
		fmt.Println(summary.Text())
	},
}

// runAnalyzeCmd represents the run analyze command
var runAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze the profile and write a report",
	Run: func(cmd *cobra.Command, args []string) {
		auto, log, ctx, cleanup := runSetup()
		defer cleanup()

		report, err := auto.RunAnalyze(ctx)
		if err != nil {
			log.Error("Profile analysis failed", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", report.Path)
	},
}

// runApplyCmd represents the run apply command
var runApplyCmd = &cobra.Command{
	Use:   "apply <job-url>",
	Short: "Apply to a single job posting",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		auto, log, ctx, cleanup := runSetup()
		defer cleanup()

		result, err := auto.RunApply(ctx, args[0])
		if err != nil {
			log.Error("Application failed", err)
			os.Exit(1)
		}
		fmt.Printf("Outcome: %s\n", result.Outcome)
		if result.Detail != "" {
			fmt.Printf("Detail: %s\n", result.Detail)
		}
		for _, step := range result.Steps {
			fmt.Printf("  - %s\n", step)
		}
	},
}

// runEngageCmd represents the run engage command
var runEngageCmd = &cobra.Command{
	Use:   "engage",
	Short: "Run one feed engagement round",
	Run: func(cmd *cobra.Command, args []string) {
		auto, log, ctx, cleanup := runSetup()
		defer cleanup()

		summary, err := auto.RunEngagement(ctx)
		if err != nil {
			log.Error("Engagement round failed", err)
			os.Exit(1)
		}
		fmt.Printf("Likes: %d, Comments: %d, Connections: %d\n",
			summary.Likes, summary.Comments, summary.Connections)
		for _, e := range summary.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	},
}

// runSetup loads config, builds the automation graph and wires signal
// handling. The returned cleanup closes the browser driver.
func runSetup() (*automation.Automation, *logger.Logger, context.Context, func()) {
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		fmt.Printf("❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	configPath := runConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if runLogLevel != "" {
		cfg.Logging.Level = runLogLevel
	}

	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Printf("❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	driver, err := browser.NewPlaywrightDriver(cfg.Platform.TimeoutMs)
	if err != nil {
		log.Error("Failed to initialize browser driver", err)
		os.Exit(1)
	}

	auto, err := automation.New(cfg, driver, log)
	if err != nil {
		log.Error("Failed to initialize automation", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cleanup := func() {
		cancel()
		if err := auto.Close(); err != nil {
			log.Error("Failed to close automation", err)
		}
	}
	return auto, log, ctx, cleanup
}

func init() {
	runCmd.PersistentFlags().StringVarP(&runConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	runCmd.PersistentFlags().StringVarP(&runLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")

	runCmd.AddCommand(runDailyCmd)
	runCmd.AddCommand(runAnalyzeCmd)
	runCmd.AddCommand(runApplyCmd)
	runCmd.AddCommand(runEngageCmd)
}

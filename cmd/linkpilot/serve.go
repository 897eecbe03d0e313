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
	serveConfigPath string
	serveLogLevel   string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LinkPilot scheduler (main command)",
	Long: `Start LinkPilot with the specified configuration and run scheduled
automation tasks until interrupted. Tasks missed while the process was
down are caught up within the configured window.

The serve command is the main entry point for running LinkPilot.`,
	Run: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) {
	// Load .env file if it exists
	if err := config.LoadEnvOptional(constants.DefaultEnvPath); err != nil {
		fmt.Printf("❌ Failed to load .env file: %v\n", err)
		os.Exit(1)
	}

	// Determine config path
	configPath := serveConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level if flag is set
	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	// Validate configuration
	if errors := cfg.Validate(); len(errors) > 0 {
		fmt.Printf("❌ Configuration validation failed:\n")
		for _, e := range errors {
			fmt.Printf("  - %v\n", e)
		}
		os.Exit(1)
	}

	// Initialize logger
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

	// Log startup information
	log.Info("🚀 Starting LinkPilot",
		logger.Field{Key: "version", Value: Version},
		logger.Field{Key: "git_commit", Value: GitCommit},
		logger.Field{Key: "config", Value: configPath},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "platform", Value: cfg.Platform.BaseURL},
		logger.Field{Key: "safe_mode", Value: cfg.Automation.SafeMode},
		logger.Field{Key: "dry_run", Value: cfg.Automation.DryRun},
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Initialize browser driver
	log.Info("🌐 Initializing browser driver",
		logger.Field{Key: "headless", Value: cfg.Platform.Headless})
	driver, err := browser.NewPlaywrightDriver(cfg.Platform.TimeoutMs)
	if err != nil {
		log.Error("Failed to initialize browser driver", err)
		os.Exit(1)
	}

	// Build the automation graph
	auto, err := automation.New(cfg, driver, log)
	if err != nil {
		log.Error("Failed to initialize automation", err)
		os.Exit(1)
	}

	// Run the scheduler loop until a shutdown signal arrives
	errChan := make(chan error, 1)
	go func() {
		errChan <- auto.Serve(ctx)
	}()

	log.Info("✅ LinkPilot is running")

	select {
	case sig := <-sigChan:
		log.Info("⏳ Received shutdown signal",
			logger.Field{Key: "signal", Value: sig.String()})
	case err := <-errChan:
		if err != nil {
			log.Error("Scheduler stopped", err)
			cancel()
			if closeErr := auto.Close(); closeErr != nil {
				log.Error("Failed to close automation", closeErr)
			}
			os.Exit(1)
		}
	}

	// Graceful shutdown
	log.Info("🛑 Shutting down LinkPilot...")
	cancel()
	<-errChan

	if err := auto.Close(); err != nil {
		log.Error("Failed to close automation", err)
	}

	log.Info("👋 LinkPilot stopped gracefully")
	os.Exit(0)
}

func init() {
	serveCmd.Flags().StringVarP(&serveConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}

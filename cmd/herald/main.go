package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/herald/internal/app"
	"github.com/ternarybob/herald/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serveMode    = flag.Bool("serve", false, "Run on the configured cron schedule instead of once")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Herald version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Initialize logger
	// 3. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("herald.toml"); err == nil {
			configFiles = append(configFiles, "herald.toml")
		} else if _, err := os.Stat("deployments/local/herald.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/herald.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Str("environment", config.Environment).
		Str("recipient", config.Report.Recipient).
		Msg("Application configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	if !*serveMode {
		if err := application.Run(ctx, time.Now()); err != nil {
			logger.Fatal().Err(err).Msg("Report run failed")
			os.Exit(1)
		}
		logger.Info().Msg("Run complete")
		return
	}

	serve(ctx, application)
}

// serve runs the reporting pipeline on the configured cron schedule until
// interrupted.
func serve(ctx context.Context, application *app.App) {
	scheduler := cron.New()

	_, err := scheduler.AddFunc(config.Schedule.Cron, func() {
		runCtx, runCancel := context.WithTimeout(ctx, 30*time.Minute)
		defer runCancel()

		if err := application.Run(runCtx, time.Now()); err != nil {
			logger.Error().Err(err).Msg("Scheduled run failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("cron", config.Schedule.Cron).Msg("Invalid cron expression")
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info().
		Str("cron", config.Schedule.Cron).
		Msg("Scheduler started - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")

	// Let an in-flight run finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("Timed out waiting for in-flight run")
	}

	logger.Info().Msg("Scheduler stopped")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/mockapp"
	"github.com/ternarybob/authflow/internal/runner"
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
	configFiles  configPaths
	baseURL      = flag.String("base-url", "", "Target base URL (overrides config)")
	suite        = flag.String("suite", "", "Suites to run: ui, api or all (overrides config)")
	filter       = flag.String("run", "", "Only run scenarios whose full name matches this regexp")
	parallelism  = flag.Int("parallel", 0, "Scenarios run concurrently (overrides config)")
	schedule     = flag.String("schedule", "", "Cron schedule for repeated runs, e.g. \"@every 15m\"")
	headless     = flag.Bool("headless", true, "Run Chrome headless (overrides config when set)")
	mock         = flag.Bool("mock", false, "Start the bundled stand-in application and test against it")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Authflow version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("authflow.toml"); err == nil {
			configFiles = append(configFiles, "authflow.toml")
		}
	}

	// 1. Load configuration (defaults -> files -> env)
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		arbor.NewLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(2)
	}

	// 2. Apply command-line flag overrides (highest priority)
	common.ApplyFlagOverrides(config, *baseURL, *parallelism, suitesFlag(*suite), *filter, *schedule)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			config.Browser.Headless = *headless
		case "mock":
			config.Mock.Enabled = *mock
		}
	})

	if err := config.Validate(); err != nil {
		arbor.NewLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(2)
	}

	common.InstallCrashHandler(config.Output.ResultsDir)

	// 3. Initialize logger, 4. print banner
	logger := common.InitLogger(config)
	common.PrintBanner(config, logger)

	code := run(config, logger)
	os.Exit(code)
}

// run wraps execute so a panic leaves a crash file before the process exits
func run(config *common.Config, logger arbor.ILogger) int {
	defer common.RecoverWithCrashFile()
	return execute(config, logger)
}

// execute runs the suites and returns the process exit code:
// 0 all passed, 1 a scenario or check failed, 2 the run could not complete
func execute(config *common.Config, logger arbor.ILogger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Mock.Enabled {
		app, err := startMock(config, logger)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to start stand-in application")
			return 2
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Stand-in application shutdown failed")
			}
		}()
	}

	if config.Runner.Schedule != "" {
		return runScheduled(ctx, config, logger)
	}

	report, err := runOnce(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Run aborted")
		return 2
	}
	if !report.OK() {
		return 1
	}
	return 0
}

// suitesFlag expands the -suite value
func suitesFlag(value string) []string {
	switch value {
	case "":
		return nil
	case "all":
		return []string{"ui", "api"}
	default:
		return []string{value}
	}
}

// startMock serves the stand-in application and points the target at it
func startMock(config *common.Config, logger arbor.ILogger) (*mockapp.Server, error) {
	mockConfig := mockapp.ConfigFromCommon(config.Mock)

	// Seed the same admin the scenarios log in with unless one is configured
	admin := fixtures.FromEnv()
	if mockConfig.AdminEmail == "" {
		mockConfig.AdminEmail = admin.Email
	}
	if mockConfig.AdminPassword == "" {
		mockConfig.AdminPassword = admin.Password
	}

	app, err := mockapp.New(mockConfig, logger)
	if err != nil {
		return nil, err
	}

	url, err := app.Start()
	if err != nil {
		return nil, err
	}

	config.Target.BaseURL = url
	config.Target.APIURL = ""
	return app, nil
}

// runScheduled repeats runs until interrupted
func runScheduled(ctx context.Context, config *common.Config, logger arbor.ILogger) int {
	scheduler := runner.NewScheduler(func(jobCtx context.Context) {
		if _, err := runOnce(jobCtx, config, logger); err != nil {
			logger.Error().Err(err).Msg("Scheduled run aborted")
		}
	}, logger)

	if err := scheduler.Start(config.Runner.Schedule); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return 2
	}

	logger.Info().
		Str("schedule", config.Runner.Schedule).
		Str("next", scheduler.Next().Format(time.RFC3339)).
		Msg("Waiting for scheduled runs - Press Ctrl+C to stop")

	// First run starts immediately rather than one interval in
	scheduler.RunNow()

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received")
	scheduler.Stop(30 * time.Second)
	return 0
}

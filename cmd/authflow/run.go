package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/apicheck"
	"github.com/ternarybob/authflow/internal/browser"
	"github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/internal/fixtures"
	"github.com/ternarybob/authflow/internal/models"
	"github.com/ternarybob/authflow/internal/preflight"
	"github.com/ternarybob/authflow/internal/runner"
	"github.com/ternarybob/authflow/internal/scenario"
)

// runOnce executes the selected suites and writes the run report. The error
// is reserved for conditions that stop the run as a whole.
func runOnce(ctx context.Context, config *common.Config, logger arbor.ILogger) (*models.Report, error) {
	contract, err := scenario.NewContract(config.Contract)
	if err != nil {
		return nil, fmt.Errorf("invalid UI contract: %w", err)
	}

	admin := fixtures.FromEnv()
	invalid := fixtures.Invalid()

	logger.Debug().Str("admin", admin.String()).Msg("Resolved fixtures")

	var catalog *scenario.Catalog
	var launcher *browser.Launcher
	if config.HasSuite("ui") {
		catalog, err = scenario.DefaultCatalog(contract, admin, invalid, scenario.TimeoutsFromConfig(config.Timeouts)).
			Filter(config.Runner.Filter)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario filter: %w", err)
		}
		if catalog.Len() == 0 {
			logger.Warn().Str("filter", config.Runner.Filter).Msg("No scenarios match the filter")
		} else {
			launcher, err = startLauncher(ctx, config, contract, logger)
			if err != nil {
				return nil, err
			}
			defer launcher.Close()
		}
	}

	r := runner.New(runner.ConfigFromCommon(config), runner.LauncherFactory{Launcher: launcher}, logger)
	report := r.NewReport()

	if launcher != nil {
		r.RunCatalog(ctx, report, catalog)
	}

	if config.HasSuite("api") {
		client := apicheck.NewClient(config.APIBaseURL(), 30*time.Second, logger)
		report.Add(apicheck.NewSuite(client, admin, invalid, logger).Run(ctx)...)
	}

	report.Finish()

	if err := runner.WriteReport(report); err != nil {
		logger.Error().Err(err).Msg("Failed to write report")
	}

	logger.Info().
		Str("run_id", report.RunID).
		Int("passed", report.Passed).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Int64("duration_ms", report.DurationMs).
		Str("results", report.Dir).
		Msg("Run complete")

	return report, nil
}

// startLauncher runs preflight and starts Chrome for the ui suite
func startLauncher(ctx context.Context, config *common.Config, contract scenario.Contract, logger arbor.ILogger) (*browser.Launcher, error) {
	if config.Runner.Preflight {
		findings, err := preflight.Check(ctx, nil, config.Target.BaseURL, contract)
		if err != nil {
			return nil, fmt.Errorf("preflight failed: %w", err)
		}
		findings.Log(logger)
	}

	browserConfig := browser.ConfigFromCommon(config)
	path, ok := browser.FindChrome(browserConfig.ExecPath)
	if !ok {
		return nil, fmt.Errorf("no Chrome or Chromium binary found; set browser.exec_path or AUTHFLOW_CHROME_PATH")
	}
	browserConfig.ExecPath = path

	launcher := browser.NewLauncher(browserConfig, logger)
	if err := launcher.Start(); err != nil {
		return nil, err
	}
	return launcher, nil
}

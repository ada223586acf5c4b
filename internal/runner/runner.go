// Package runner executes a scenario catalog against a target, one isolated
// browser context per scenario, and records the results.
package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/internal/models"
	"github.com/ternarybob/authflow/internal/scenario"
)

// Config controls scenario execution
type Config struct {
	BaseURL             string
	Parallelism         int
	StepsPerSecond      float64 // 0 = unlimited
	ScenarioTimeout     time.Duration
	ResultsDir          string
	ScreenshotOnFailure bool
	Options             scenario.Options
}

// ConfigFromCommon maps validated suite configuration onto runner options
func ConfigFromCommon(cfg *common.Config) Config {
	return Config{
		BaseURL:             cfg.Target.BaseURL,
		Parallelism:         cfg.Runner.Parallelism,
		StepsPerSecond:      cfg.Runner.StepsPerSecond,
		ScenarioTimeout:     common.MustDuration(cfg.Timeouts.Scenario),
		ResultsDir:          cfg.Output.ResultsDir,
		ScreenshotOnFailure: cfg.Output.ScreenshotOnFailure,
		Options:             scenario.OptionsFromConfig(cfg.Timeouts),
	}
}

// Runner executes catalogs. It is safe to reuse across runs.
type Runner struct {
	config  Config
	factory SessionFactory
	logger  arbor.ILogger
	limiter *rate.Limiter
}

// New creates a runner. A nil limiter is used when StepsPerSecond is zero.
func New(config Config, factory SessionFactory, logger arbor.ILogger) *Runner {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	if config.ScenarioTimeout <= 0 {
		config.ScenarioTimeout = 60 * time.Second
	}
	if config.ResultsDir == "" {
		config.ResultsDir = "./results"
	}

	r := &Runner{
		config:  config,
		factory: factory,
		logger:  logger,
	}
	if config.StepsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(config.StepsPerSecond), 1)
	}
	return r
}

// NewReport starts a report for one run under the results directory
func (r *Runner) NewReport() *models.Report {
	report := models.NewReport(uuid.NewString(), r.config.BaseURL)
	report.Dir = filepath.Join(r.config.ResultsDir,
		fmt.Sprintf("%s_%s", report.StartedAt.Format("2006-01-02_15-04-05"), report.RunID[:8]))
	return report
}

// Run executes catalog, writes report.json and test.log, and returns the report.
// Results keep catalog order regardless of parallelism.
func (r *Runner) Run(ctx context.Context, catalog *scenario.Catalog) (*models.Report, error) {
	report := r.NewReport()
	r.RunCatalog(ctx, report, catalog)
	report.Finish()

	if err := WriteReport(report); err != nil {
		return report, err
	}
	return report, nil
}

// RunCatalog executes every scenario and appends the results to report
func (r *Runner) RunCatalog(ctx context.Context, report *models.Report, catalog *scenario.Catalog) {
	scenarios := catalog.Scenarios()
	results := make([]*models.Result, len(scenarios))

	workers := r.config.Parallelism
	if workers > len(scenarios) {
		workers = len(scenarios)
	}

	r.logger.Info().
		Str("run_id", report.RunID).
		Str("target", r.config.BaseURL).
		Int("scenarios", len(scenarios)).
		Int("parallelism", workers).
		Msg("Running scenarios")

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.runScenario(ctx, report.Dir, i, scenarios[i])
			}
		}()
	}

	for i := range scenarios {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	report.Add(results...)
}

func (r *Runner) runScenario(ctx context.Context, runDir string, index int, sc *scenario.Scenario) (result *models.Result) {
	result = &models.Result{
		Suite:     sc.Suite,
		Name:      sc.Name,
		StartedAt: time.Now(),
	}
	logger := r.logger.WithCorrelationId(uuid.NewString())

	defer func() {
		if rec := recover(); rec != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error().
				Str("scenario", sc.FullName()).
				Str("panic", fmt.Sprintf("%v", rec)).
				Str("stack", string(buf[:n])).
				Msg("Recovered from panic in scenario")
			result.Status = models.StatusFailed
			result.Error = fmt.Sprintf("panic: %v", rec)
		}
		result.Finish()
		r.logResult(logger, result)
	}()

	if ctx.Err() != nil {
		result.Status = models.StatusSkipped
		result.Error = "run cancelled"
		return result
	}

	page, err := r.factory.NewSession(r.config.BaseURL, logger)
	if err != nil {
		result.Status = models.StatusFailed
		result.Error = err.Error()
		return result
	}
	defer page.Close()

	scCtx, cancel := context.WithTimeout(ctx, r.config.ScenarioTimeout)
	defer cancel()

	opts := r.config.Options
	opts.BeforeStep = func(ctx context.Context, i int, step scenario.Step) error {
		if r.limiter != nil {
			return r.limiter.Wait(ctx)
		}
		return nil
	}
	opts.AfterStep = func(i int, step scenario.Step, elapsed time.Duration, err error) {
		sr := models.StepResult{
			Index:      i + 1,
			Step:       step.String(),
			Status:     models.StatusPassed,
			DurationMs: elapsed.Milliseconds(),
		}
		if err != nil {
			sr.Status = models.StatusFailed
			sr.Error = err.Error()
		}
		result.Steps = append(result.Steps, sr)

		logger.Debug().
			Str("scenario", sc.FullName()).
			Int("step", i+1).
			Str("action", step.String()).
			Dur("elapsed", elapsed).
			Bool("ok", err == nil).
			Msg("Step finished")
	}

	err = sc.Execute(scCtx, page, opts)
	if err == nil {
		result.Status = models.StatusPassed
		return result
	}

	result.Status = models.StatusFailed
	result.Error = describeFailure(err, ctx, scCtx, r.config.ScenarioTimeout)

	var stepErr *scenario.StepError
	if errors.As(err, &stepErr) {
		result.FailedStep = stepErr.Index + 1
	}

	result.Console = page.ConsoleLog()

	if r.config.ScreenshotOnFailure {
		path := filepath.Join(runDir, "screenshots", fmt.Sprintf("%02d_%s.png", index+1, slug(sc.Name)))
		shotCtx, shotCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer shotCancel()
		if err := page.Screenshot(shotCtx, path); err != nil {
			logger.Warn().Err(err).Str("scenario", sc.FullName()).Msg("Failed to capture failure screenshot")
		} else {
			result.Screenshot = path
		}
	}

	return result
}

// describeFailure notes when the whole-scenario bound, not a step bound, ended the run
func describeFailure(err error, parent, scenarioCtx context.Context, bound time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil && scenarioCtx.Err() != nil {
		return fmt.Sprintf("scenario exceeded %s: %v", bound, err)
	}
	return err.Error()
}

func (r *Runner) logResult(logger arbor.ILogger, result *models.Result) {
	switch result.Status {
	case models.StatusPassed:
		logger.Info().
			Str("scenario", result.FullName()).
			Dur("duration", result.Duration).
			Msg("PASS")
	case models.StatusSkipped:
		logger.Warn().
			Str("scenario", result.FullName()).
			Str("reason", result.Error).
			Msg("SKIP")
	default:
		logger.Error().
			Str("scenario", result.FullName()).
			Int("failed_step", result.FailedStep).
			Str("error", result.Error).
			Str("screenshot", result.Screenshot).
			Dur("duration", result.Duration).
			Msg("FAIL")
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns a scenario name into a file-name fragment
func slug(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(s, "_")
}

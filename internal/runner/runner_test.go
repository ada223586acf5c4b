package runner

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/models"
	"github.com/ternarybob/authflow/internal/scenario"
)

// fakePage serves paths verbatim; "/slow" holds navigation for a while
type fakePage struct {
	mu      sync.Mutex
	path    string
	closed  bool
	factory *fakeFactory
}

func (p *fakePage) Navigate(ctx context.Context, path string) error {
	if path == "/panic" {
		panic("navigation exploded")
	}
	if path == "/slow" {
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.path = path
	return nil
}

func (p *fakePage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return "http://app.test" + p.path, nil
}

func (p *fakePage) Visible(ctx context.Context, loc scenario.Locator) (bool, error) {
	return false, nil
}

func (p *fakePage) Fill(ctx context.Context, loc scenario.Locator, value string) error {
	return scenario.ErrNotFound
}

func (p *fakePage) Click(ctx context.Context, loc scenario.Locator) error {
	return scenario.ErrNotFound
}

func (p *fakePage) Screenshot(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("png"), 0644)
}

func (p *fakePage) ConsoleLog() []string {
	return []string{"[log] page loaded"}
}

func (p *fakePage) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	atomic.AddInt32(&p.factory.open, -1)
}

type fakeFactory struct {
	mu      sync.Mutex
	pages   []*fakePage
	fail    bool
	open    int32
	maxOpen int32
}

func (f *fakeFactory) NewSession(baseURL string, logger arbor.ILogger) (Page, error) {
	if f.fail {
		return nil, errors.New("browser not started")
	}
	n := atomic.AddInt32(&f.open, 1)
	for {
		max := atomic.LoadInt32(&f.maxOpen)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxOpen, max, n) {
			break
		}
	}

	page := &fakePage{path: "about:blank", factory: f}
	f.mu.Lock()
	f.pages = append(f.pages, page)
	f.mu.Unlock()
	return page, nil
}

func testConfig(t *testing.T) Config {
	return Config{
		BaseURL:             "http://app.test",
		Parallelism:         3,
		ScenarioTimeout:     2 * time.Second,
		ResultsDir:          t.TempDir(),
		ScreenshotOnFailure: true,
		Options: scenario.Options{
			ExpectTimeout: 100 * time.Millisecond,
			ActionTimeout: 100 * time.Millisecond,
			PollInterval:  5 * time.Millisecond,
		},
	}
}

func goTo(suite, name, path string) *scenario.Scenario {
	return &scenario.Scenario{
		Suite: suite,
		Name:  name,
		Steps: []scenario.Step{
			scenario.Navigate(path),
			scenario.ExpectURL(scenario.MustPattern("/ok"), 0),
		},
	}
}

func TestRun_PreservesOrderAndIsolatesFailures(t *testing.T) {
	factory := &fakeFactory{}
	r := New(testConfig(t), factory, arbor.NewLogger())

	catalog := scenario.NewCatalog(
		goTo("Suite", "first passes", "/slow/ok"),
		goTo("Suite", "second fails", "/nope"),
		goTo("Suite", "third passes", "/ok"),
		goTo("Suite", "fourth passes", "/slow/ok"),
	)

	report, err := r.Run(context.Background(), catalog)
	require.NoError(t, err)

	require.Len(t, report.Results, 4)
	assert.Equal(t, "first passes", report.Results[0].Name)
	assert.Equal(t, "second fails", report.Results[1].Name)
	assert.Equal(t, "third passes", report.Results[2].Name)
	assert.Equal(t, "fourth passes", report.Results[3].Name)

	assert.Equal(t, models.StatusPassed, report.Results[0].Status)
	assert.Equal(t, models.StatusFailed, report.Results[1].Status)
	assert.Equal(t, models.StatusPassed, report.Results[2].Status)
	assert.Equal(t, models.StatusPassed, report.Results[3].Status)
	assert.Equal(t, 3, report.Passed)
	assert.Equal(t, 1, report.Failed)

	failed := report.Results[1]
	assert.Equal(t, 2, failed.FailedStep)
	assert.Contains(t, failed.Error, "timed out")
	assert.Equal(t, []string{"[log] page loaded"}, failed.Console)
	require.Len(t, failed.Steps, 2)
	assert.Equal(t, models.StatusPassed, failed.Steps[0].Status)
	assert.Equal(t, models.StatusFailed, failed.Steps[1].Status)

	assert.Equal(t, filepath.Join(report.Dir, "screenshots", "02_second_fails.png"), failed.Screenshot)
	assert.FileExists(t, failed.Screenshot)

	// Every scenario got its own page and every page was closed
	require.Len(t, factory.pages, 4)
	for _, p := range factory.pages {
		assert.True(t, p.closed)
	}
	assert.LessOrEqual(t, factory.maxOpen, int32(3))
}

func TestRun_WritesReportFiles(t *testing.T) {
	r := New(testConfig(t), &fakeFactory{}, arbor.NewLogger())

	report, err := r.Run(context.Background(), scenario.NewCatalog(goTo("Suite", "passes", "/ok")))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(report.Dir, "report.json"))
	require.NoError(t, err)

	var decoded models.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.RunID, decoded.RunID)
	assert.Equal(t, 1, decoded.Passed)

	log, err := os.ReadFile(filepath.Join(report.Dir, "test.log"))
	require.NoError(t, err)
	assert.Contains(t, string(log), "[PASSED] Suite > passes")
	assert.Contains(t, string(log), "1 passed, 0 failed, 0 skipped")
}

func TestRun_SessionFailureFailsScenario(t *testing.T) {
	r := New(testConfig(t), &fakeFactory{fail: true}, arbor.NewLogger())

	report, err := r.Run(context.Background(), scenario.NewCatalog(goTo("Suite", "no browser", "/ok")))
	require.NoError(t, err)

	require.Len(t, report.Results, 1)
	assert.Equal(t, models.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "browser not started")
	assert.Zero(t, report.Results[0].FailedStep)
}

func TestRun_PanicIsContained(t *testing.T) {
	r := New(testConfig(t), &fakeFactory{}, arbor.NewLogger())

	report, err := r.Run(context.Background(), scenario.NewCatalog(
		goTo("Suite", "panics", "/panic"),
		goTo("Suite", "still runs", "/ok"),
	))
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "navigation exploded")
	assert.Equal(t, models.StatusPassed, report.Results[1].Status)
}

func TestRun_ScenarioTimeout(t *testing.T) {
	config := testConfig(t)
	config.ScenarioTimeout = 20 * time.Millisecond
	r := New(config, &fakeFactory{}, arbor.NewLogger())

	report, err := r.Run(context.Background(), scenario.NewCatalog(goTo("Suite", "too slow", "/slow")))
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, report.Results[0].Status)
	assert.Contains(t, report.Results[0].Error, "scenario exceeded 20ms")
}

func TestRun_CancelledRunSkips(t *testing.T) {
	r := New(testConfig(t), &fakeFactory{}, arbor.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx, scenario.NewCatalog(goTo("Suite", "never starts", "/ok")))
	require.NoError(t, err)
	assert.Equal(t, models.StatusSkipped, report.Results[0].Status)
	assert.Equal(t, 1, report.Skipped)
}

func TestRun_StepPacing(t *testing.T) {
	config := testConfig(t)
	config.Parallelism = 1
	config.StepsPerSecond = 20
	r := New(config, &fakeFactory{}, arbor.NewLogger())

	start := time.Now()
	_, err := r.Run(context.Background(), scenario.NewCatalog(
		goTo("Suite", "a", "/ok"),
		goTo("Suite", "b", "/ok"),
	))
	require.NoError(t, err)

	// Four steps at 20/s with a burst of one take at least 150ms
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "should_show_error_on_invalid_credentials", slug("should show error on invalid credentials"))
	assert.Equal(t, "a_b", slug("  A / B  "))
}

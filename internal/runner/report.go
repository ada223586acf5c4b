package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/authflow/internal/models"
)

const (
	reportFile = "report.json"
	logFile    = "test.log"
)

// WriteReport saves report.json and a readable test.log into the run directory
func WriteReport(report *models.Report) error {
	if report.Dir == "" {
		return fmt.Errorf("report has no output directory")
	}
	if err := os.MkdirAll(report.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(report.Dir, reportFile), data, 0644); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	if err := os.WriteFile(filepath.Join(report.Dir, logFile), []byte(FormatLog(report)), 0644); err != nil {
		return fmt.Errorf("failed to save test log: %w", err)
	}

	return nil
}

// FormatLog renders the report as plain text, one line per result
func FormatLog(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run:     %s\n", report.RunID)
	fmt.Fprintf(&b, "Target:  %s\n", report.Target)
	fmt.Fprintf(&b, "Started: %s\n\n", report.StartedAt.Format("2006-01-02 15:04:05"))

	for _, result := range report.Results {
		fmt.Fprintf(&b, "[%s] %s (%dms)\n", strings.ToUpper(string(result.Status)), result.FullName(), result.DurationMs)
		if result.Error != "" {
			fmt.Fprintf(&b, "    error: %s\n", result.Error)
		}
		if result.Screenshot != "" {
			fmt.Fprintf(&b, "    screenshot: %s\n", result.Screenshot)
		}
		for _, line := range result.Console {
			fmt.Fprintf(&b, "    console: %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\n%d passed, %d failed, %d skipped (%dms)\n",
		report.Passed, report.Failed, report.Skipped, report.DurationMs)

	return b.String()
}

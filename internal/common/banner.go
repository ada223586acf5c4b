package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the resolved target
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.PrintSimple("Authflow", GetVersion())

	logger.Info().
		Str("target", config.Target.BaseURL).
		Str("api", config.APIBaseURL()).
		Strs("suites", config.Runner.Suites).
		Int("parallelism", config.Runner.Parallelism).
		Bool("headless", config.Browser.Headless).
		Msg("Authflow configuration")
}

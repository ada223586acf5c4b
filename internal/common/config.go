package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the suite configuration
type Config struct {
	Target   TargetConfig   `toml:"target"`
	Browser  BrowserConfig  `toml:"browser"`
	Runner   RunnerConfig   `toml:"runner"`
	Timeouts TimeoutsConfig `toml:"timeouts"`
	Contract ContractConfig `toml:"contract"`
	Output   OutputConfig   `toml:"output"`
	Logging  LoggingConfig  `toml:"logging"`
	Mock     MockConfig     `toml:"mock"`
}

// TargetConfig identifies the application under test
type TargetConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"` // e.g. "http://localhost:3008"
	APIURL  string `toml:"api_url" validate:"omitempty,url"` // API base URL, defaults to base_url
}

// BrowserConfig controls the Chrome instance launched for a run
type BrowserConfig struct {
	Headless     bool   `toml:"headless"`
	DisableGPU   bool   `toml:"disable_gpu"`
	NoSandbox    bool   `toml:"no_sandbox"`
	WindowWidth  int    `toml:"window_width" validate:"gte=320"`
	WindowHeight int    `toml:"window_height" validate:"gte=240"`
	UserAgent    string `toml:"user_agent"`
	ExecPath     string `toml:"exec_path"` // Chrome binary, empty = auto-detect
}

type RunnerConfig struct {
	Parallelism    int      `toml:"parallelism" validate:"gte=1,lte=32"` // Scenarios executed concurrently
	StepsPerSecond float64  `toml:"steps_per_second" validate:"gte=0"`   // Step pacing, 0 = unlimited
	Suites         []string `toml:"suites" validate:"dive,oneof=ui api"`
	Filter         string   `toml:"filter"`   // Regexp on scenario names
	Schedule       string   `toml:"schedule"` // Cron spec for repeated runs, empty = run once
	Preflight      bool     `toml:"preflight"`
}

// TimeoutsConfig holds duration strings ("5s", "1m")
type TimeoutsConfig struct {
	Expect       string `toml:"expect"`        // Default assertion timeout
	Redirect     string `toml:"redirect"`      // Unauthenticated redirect assertion
	Login        string `toml:"login"`         // Post-login dashboard redirect assertion
	Visible      string `toml:"visible"`       // Post-action visibility assertions
	Action       string `toml:"action"`        // Fill/click actionability wait
	Navigation   string `toml:"navigation"`    // Page navigation
	Scenario     string `toml:"scenario"`      // Whole scenario bound
	PollInterval string `toml:"poll_interval"` // Assertion polling interval
}

// ContractConfig is the UI contract consumed from the application under test.
// Patterns are case-insensitive regular expressions.
type ContractConfig struct {
	LoginPath     string `toml:"login_path" validate:"startswith=/"`
	RegisterPath  string `toml:"register_path" validate:"startswith=/"`
	DashboardPath string `toml:"dashboard_path" validate:"startswith=/"`
	RootPath      string `toml:"root_path" validate:"startswith=/"`
	EmailLabel    string `toml:"email_label" validate:"required"`
	PasswordLabel string `toml:"password_label" validate:"required"`
	SubmitName    string `toml:"submit_name" validate:"required"`
	RegisterName  string `toml:"register_name" validate:"required"`
	Heading       string `toml:"heading" validate:"required"`
	ErrorText     string `toml:"error_text" validate:"required"`
	DashboardText string `toml:"dashboard_text" validate:"required"`
	LoginURL      string `toml:"login_url" validate:"required"`
	RegisterURL   string `toml:"register_url" validate:"required"`
	DashboardURL  string `toml:"dashboard_url" validate:"required"`
}

type OutputConfig struct {
	ResultsDir          string `toml:"results_dir" validate:"required"`
	ScreenshotOnFailure bool   `toml:"screenshot_on_failure"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"`
	Output []string `toml:"output" validate:"dive,oneof=stdout console file"`
	File   string   `toml:"file"` // Log file path when "file" output is enabled
}

// MockConfig controls the bundled stand-in application
type MockConfig struct {
	Enabled       bool   `toml:"enabled"`
	Host          string `toml:"host"`
	Port          int    `toml:"port" validate:"gte=0,lte=65535"`
	JWTSecret     string `toml:"jwt_secret"`
	AdminEmail    string `toml:"admin_email"`    // Empty = TEST_ADMIN_EMAIL or its default
	AdminPassword string `toml:"admin_password"` // Empty = TEST_ADMIN_PASSWORD or its default
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseURL: "http://localhost:3008",
		},
		Browser: BrowserConfig{
			Headless:     true,
			DisableGPU:   true,
			NoSandbox:    false,
			WindowWidth:  1920,
			WindowHeight: 1080,
		},
		Runner: RunnerConfig{
			Parallelism:    2,
			StepsPerSecond: 0,
			Suites:         []string{"ui"},
			Preflight:      true,
		},
		Timeouts: TimeoutsConfig{
			Expect:       "5s",
			Redirect:     "5s",
			Login:        "10s",
			Visible:      "5s",
			Action:       "10s",
			Navigation:   "30s",
			Scenario:     "60s",
			PollInterval: "100ms",
		},
		Contract: ContractConfig{
			LoginPath:     "/login",
			RegisterPath:  "/register",
			DashboardPath: "/dashboard",
			RootPath:      "/",
			EmailLabel:    "email",
			PasswordLabel: "mật khẩu",
			SubmitName:    "đăng nhập",
			RegisterName:  "đăng ký",
			Heading:       "family network",
			ErrorText:     "invalid|thất bại|sai",
			DashboardText: "dashboard|admin|family",
			LoginURL:      `/login`,
			RegisterURL:   `/register`,
			DashboardURL:  `/dashboard`,
		},
		Output: OutputConfig{
			ResultsDir:          "./results",
			ScreenshotOnFailure: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Mock: MockConfig{
			Host:      "127.0.0.1",
			Port:      3008,
			JWTSecret: "authflow-mock-secret",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// {NAME} references in string values are resolved from the environment.
// Later files override earlier ones; CLI flags are applied afterwards by ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	if err := ReplaceInStruct(config, EnvironmentMap(), nil); err != nil {
		return nil, err
	}
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// TEST_SERVER_URL is kept for compatibility with go test suites
	if baseURL := os.Getenv("TEST_SERVER_URL"); baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if baseURL := os.Getenv("AUTHFLOW_BASE_URL"); baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if apiURL := os.Getenv("API_BASE_URL"); apiURL != "" {
		config.Target.APIURL = apiURL
	}

	if headless := os.Getenv("AUTHFLOW_HEADLESS"); headless != "" {
		if b, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = b
		}
	}
	if execPath := os.Getenv("AUTHFLOW_CHROME_PATH"); execPath != "" {
		config.Browser.ExecPath = execPath
	}
	if noSandbox := os.Getenv("AUTHFLOW_NO_SANDBOX"); noSandbox != "" {
		if b, err := strconv.ParseBool(noSandbox); err == nil {
			config.Browser.NoSandbox = b
		}
	}

	if parallelism := os.Getenv("AUTHFLOW_PARALLELISM"); parallelism != "" {
		if p, err := strconv.Atoi(parallelism); err == nil {
			config.Runner.Parallelism = p
		}
	}
	if suites := os.Getenv("AUTHFLOW_SUITES"); suites != "" {
		config.Runner.Suites = splitString(suites, ",")
	}

	if resultsDir := os.Getenv("AUTHFLOW_RESULTS_DIR"); resultsDir != "" {
		config.Output.ResultsDir = resultsDir
	}

	if level := os.Getenv("AUTHFLOW_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if output := os.Getenv("AUTHFLOW_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitString(output, ",")
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Zero values leave the config untouched.
func ApplyFlagOverrides(config *Config, baseURL string, parallelism int, suites []string, filter, schedule string) {
	if baseURL != "" {
		config.Target.BaseURL = baseURL
	}
	if parallelism > 0 {
		config.Runner.Parallelism = parallelism
	}
	if len(suites) > 0 {
		config.Runner.Suites = suites
	}
	if filter != "" {
		config.Runner.Filter = filter
	}
	if schedule != "" {
		config.Runner.Schedule = schedule
	}
}

// Validate checks struct constraints, duration strings and the cron schedule
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"timeouts.expect":        c.Timeouts.Expect,
		"timeouts.redirect":      c.Timeouts.Redirect,
		"timeouts.login":         c.Timeouts.Login,
		"timeouts.visible":       c.Timeouts.Visible,
		"timeouts.action":        c.Timeouts.Action,
		"timeouts.navigation":    c.Timeouts.Navigation,
		"timeouts.scenario":      c.Timeouts.Scenario,
		"timeouts.poll_interval": c.Timeouts.PollInterval,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %q: %w", key, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("duration for %s must be positive, got %s", key, value)
		}
	}

	if err := ValidateSchedule(c.Runner.Schedule); err != nil {
		return err
	}

	return nil
}

// ValidateSchedule checks a cron spec accepted by the run scheduler. Empty is valid.
func ValidateSchedule(schedule string) error {
	if schedule == "" {
		return nil
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	return nil
}

// APIBaseURL returns the API base URL, falling back to the target base URL
func (c *Config) APIBaseURL() string {
	if c.Target.APIURL != "" {
		return strings.TrimRight(c.Target.APIURL, "/")
	}
	return strings.TrimRight(c.Target.BaseURL, "/")
}

// HasSuite reports whether the named suite is selected
func (c *Config) HasSuite(name string) bool {
	for _, s := range c.Runner.Suites {
		if s == name {
			return true
		}
	}
	return false
}

// MustDuration parses a duration string validated by Validate
func MustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(fmt.Sprintf("duration %q not validated: %v", value, err))
	}
	return d
}

func splitString(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

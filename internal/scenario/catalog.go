package scenario

import (
	"time"

	"github.com/ternarybob/authflow/internal/common"
	"github.com/ternarybob/authflow/internal/fixtures"
)

// Suite names
const (
	SuiteAuthFlow  = "Auth flow"
	SuiteLoginPage = "Login page"
)

// Scenario names, stable across runs
const (
	RedirectToLogin     = "should redirect to login when accessing protected route"
	PersistSession      = "should persist session after login"
	DashboardContent    = "should show dashboard content after login"
	DisplayLoginForm    = "should display login form"
	NavigateToRegister  = "should navigate to register"
	LoginValid          = "should login with valid credentials"
	LoginInvalidShowErr = "should show error on invalid credentials"
)

// Contract is the UI contract consumed from the application under test
type Contract struct {
	LoginPath     string
	RegisterPath  string
	DashboardPath string
	RootPath      string

	EmailLabel    Pattern
	PasswordLabel Pattern
	SubmitButton  Pattern
	RegisterLink  Pattern
	Heading       Pattern
	ErrorText     Pattern
	DashboardText Pattern

	LoginURL     Pattern
	RegisterURL  Pattern
	DashboardURL Pattern
}

// NewContract compiles the configured contract patterns
func NewContract(cfg common.ContractConfig) (Contract, error) {
	c := Contract{
		LoginPath:     cfg.LoginPath,
		RegisterPath:  cfg.RegisterPath,
		DashboardPath: cfg.DashboardPath,
		RootPath:      cfg.RootPath,
	}

	compile := []struct {
		dst *Pattern
		src string
	}{
		{&c.EmailLabel, cfg.EmailLabel},
		{&c.PasswordLabel, cfg.PasswordLabel},
		{&c.SubmitButton, cfg.SubmitName},
		{&c.RegisterLink, cfg.RegisterName},
		{&c.Heading, cfg.Heading},
		{&c.ErrorText, cfg.ErrorText},
		{&c.DashboardText, cfg.DashboardText},
		{&c.LoginURL, cfg.LoginURL},
		{&c.RegisterURL, cfg.RegisterURL},
		{&c.DashboardURL, cfg.DashboardURL},
	}
	for _, p := range compile {
		pattern, err := NewPattern(p.src)
		if err != nil {
			return Contract{}, err
		}
		*p.dst = pattern
	}

	return c, nil
}

// MustDefaultContract is the contract of the Family Network application. It
// panics if the built-in defaults fail to compile.
func MustDefaultContract() Contract {
	c, err := NewContract(common.NewDefaultConfig().Contract)
	if err != nil {
		panic(err)
	}
	return c
}

// Timeouts are the explicit assertion bounds used by the catalog
type Timeouts struct {
	Redirect time.Duration // unauthenticated access -> login
	Login    time.Duration // submit -> dashboard
	Visible  time.Duration // content/error text after an action
}

// DefaultTimeouts are the catalog bounds used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Redirect: 5 * time.Second,
		Login:    10 * time.Second,
		Visible:  5 * time.Second,
	}
}

// TimeoutsFromConfig reads the catalog bounds from validated configuration
func TimeoutsFromConfig(cfg common.TimeoutsConfig) Timeouts {
	return Timeouts{
		Redirect: common.MustDuration(cfg.Redirect),
		Login:    common.MustDuration(cfg.Login),
		Visible:  common.MustDuration(cfg.Visible),
	}
}

// OptionsFromConfig reads step wait bounds from validated configuration
func OptionsFromConfig(cfg common.TimeoutsConfig) Options {
	return Options{
		ExpectTimeout:     common.MustDuration(cfg.Expect),
		ActionTimeout:     common.MustDuration(cfg.Action),
		NavigationTimeout: common.MustDuration(cfg.Navigation),
		PollInterval:      common.MustDuration(cfg.PollInterval),
	}
}

// LoginSteps fills the login form with creds and submits it
func (c Contract) LoginSteps(creds fixtures.Credentials) []Step {
	return []Step{
		Navigate(c.LoginPath),
		Fill(ByLabel(c.EmailLabel), creds.Email),
		FillSecret(ByLabel(c.PasswordLabel), creds.Password),
		Click(ByRole(RoleButton, c.SubmitButton)),
	}
}

// DefaultCatalog builds the seven auth-flow scenarios in their canonical order
func DefaultCatalog(c Contract, admin, invalid fixtures.Credentials, t Timeouts) *Catalog {
	steps := func(groups ...[]Step) []Step {
		var out []Step
		for _, g := range groups {
			out = append(out, g...)
		}
		return out
	}

	return NewCatalog(
		&Scenario{
			Suite: SuiteAuthFlow,
			Name:  RedirectToLogin,
			Steps: []Step{
				Navigate(c.DashboardPath),
				ExpectURL(c.LoginURL, t.Redirect),
			},
		},
		&Scenario{
			Suite: SuiteAuthFlow,
			Name:  PersistSession,
			Steps: steps(
				c.LoginSteps(admin),
				[]Step{
					ExpectURL(c.DashboardURL, t.Login),
					Navigate(c.RootPath),
					ExpectNoURL(c.LoginURL, 0),
				},
			),
		},
		&Scenario{
			Suite: SuiteAuthFlow,
			Name:  DashboardContent,
			Steps: steps(
				c.LoginSteps(admin),
				[]Step{
					ExpectURL(c.DashboardURL, t.Login),
					ExpectVisible(ByText(c.DashboardText), t.Visible),
				},
			),
		},
		&Scenario{
			Suite: SuiteLoginPage,
			Name:  DisplayLoginForm,
			Steps: []Step{
				Navigate(c.LoginPath),
				ExpectVisible(ByRole(RoleHeading, c.Heading), 0),
				ExpectVisible(ByLabel(c.EmailLabel), 0),
				ExpectVisible(ByLabel(c.PasswordLabel), 0),
				ExpectVisible(ByRole(RoleButton, c.SubmitButton), 0),
			},
		},
		&Scenario{
			Suite: SuiteLoginPage,
			Name:  NavigateToRegister,
			Steps: []Step{
				Navigate(c.LoginPath),
				Click(ByRole(RoleLink, c.RegisterLink)),
				ExpectURL(c.RegisterURL, 0),
			},
		},
		&Scenario{
			Suite: SuiteLoginPage,
			Name:  LoginValid,
			Steps: steps(
				c.LoginSteps(admin),
				[]Step{ExpectURL(c.DashboardURL, t.Login)},
			),
		},
		&Scenario{
			Suite: SuiteLoginPage,
			Name:  LoginInvalidShowErr,
			Steps: steps(
				c.LoginSteps(invalid),
				[]Step{
					ExpectVisible(ByText(c.ErrorText), t.Visible),
					ExpectNoURL(c.DashboardURL, 0),
				},
			),
		},
	)
}

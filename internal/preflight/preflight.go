// Package preflight checks that the target serves a login page before the
// browser suites start. Missing markup is reported, not fatal: a client-side
// rendered page may only produce it after scripts run.
package preflight

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/authflow/internal/scenario"
)

// Findings describes what the login page served
type Findings struct {
	URL             string
	Reachable       bool
	Status          int
	Title           string
	MissingContract []string
}

// OK reports whether every contract element was found in the served markup
func (f *Findings) OK() bool {
	return f.Reachable && len(f.MissingContract) == 0
}

// Check fetches the login page and looks for the contract elements.
// An unreachable target or a non-2xx status is an error.
func Check(ctx context.Context, client *http.Client, baseURL string, contract scenario.Contract) (*Findings, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	target := strings.TrimRight(baseURL, "/") + contract.LoginPath
	findings := &Findings{URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return findings, fmt.Errorf("invalid target %s: %w", target, err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := client.Do(req)
	if err != nil {
		return findings, fmt.Errorf("target unreachable at %s: %w", target, err)
	}
	defer resp.Body.Close()

	findings.Reachable = true
	findings.Status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return findings, fmt.Errorf("login page %s returned status %d", target, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return findings, fmt.Errorf("failed to parse login page: %w", err)
	}

	findings.Title = strings.TrimSpace(doc.Find("title").First().Text())
	findings.MissingContract = missingContract(doc, contract)

	return findings, nil
}

// Log writes findings at info, or warn when markup is missing
func (f *Findings) Log(logger arbor.ILogger) {
	if len(f.MissingContract) == 0 {
		logger.Info().
			Str("url", f.URL).
			Int("status", f.Status).
			Str("title", f.Title).
			Msg("Preflight passed")
		return
	}
	logger.Warn().
		Str("url", f.URL).
		Int("status", f.Status).
		Strs("missing", f.MissingContract).
		Msg("Login page markup incomplete before scripts run")
}

func missingContract(doc *goquery.Document, c scenario.Contract) []string {
	checks := []struct {
		loc   scenario.Locator
		found bool
	}{
		{loc: scenario.ByRole(scenario.RoleHeading, c.Heading)},
		{loc: scenario.ByLabel(c.EmailLabel)},
		{loc: scenario.ByLabel(c.PasswordLabel)},
		{loc: scenario.ByRole(scenario.RoleButton, c.SubmitButton)},
		{loc: scenario.ByRole(scenario.RoleLink, c.RegisterLink)},
	}

	var missing []string
	for _, check := range checks {
		if !Find(doc, check.loc) {
			missing = append(missing, check.loc.String())
		}
	}
	return missing
}

var roleSelectors = map[scenario.Role]string{
	scenario.RoleButton:  "button, input[type=submit], input[type=button], [role=button]",
	scenario.RoleLink:    "a[href], [role=link]",
	scenario.RoleHeading: "h1, h2, h3, h4, h5, h6, [role=heading]",
	scenario.RoleTextbox: "input:not([type]), input[type=text], input[type=email], input[type=password], textarea, [role=textbox]",
}

// Find reports whether the static markup contains an element for loc
func Find(doc *goquery.Document, loc scenario.Locator) bool {
	switch loc.Kind {
	case scenario.KindLabel:
		return findLabel(doc, loc.Name)
	case scenario.KindRole:
		selector, ok := roleSelectors[loc.Role]
		if !ok {
			selector = fmt.Sprintf("[role=%s]", loc.Role)
		}
		found := false
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = loc.Name.MatchString(accessibleName(s))
			return !found
		})
		return found
	default:
		found := false
		doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if goquery.NodeName(s) == "script" || goquery.NodeName(s) == "style" {
				return true
			}
			found = loc.Name.MatchString(normalize(s.Text()))
			return !found
		})
		return found
	}
}

func findLabel(doc *goquery.Document, name scenario.Pattern) bool {
	found := false
	doc.Find("label").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !name.MatchString(normalize(s.Text())) {
			return true
		}
		if id, ok := s.Attr("for"); ok && id != "" {
			found = doc.Find(fmt.Sprintf(`[id=%q]`, id)).Length() > 0
		} else {
			found = s.Find("input, textarea, select").Length() > 0
		}
		return !found
	})
	if found {
		return true
	}
	doc.Find("[aria-label]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = name.MatchString(normalize(s.AttrOr("aria-label", "")))
		return !found
	})
	return found
}

func accessibleName(s *goquery.Selection) string {
	if label := normalize(s.AttrOr("aria-label", "")); label != "" {
		return label
	}
	if goquery.NodeName(s) == "input" {
		return normalize(s.AttrOr("value", ""))
	}
	return normalize(s.Text())
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package browser

import (
	"os"
	"os/exec"
	"runtime"
)

// FindChrome returns the path of a usable Chrome/Chromium binary. configured
// wins when it exists; otherwise common install locations are searched.
func FindChrome(configured string) (string, bool) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, true
		}
		if p, err := exec.LookPath(configured); err == nil {
			return p, true
		}
		return "", false
	}

	names := []string{
		"headless-shell",
		"chromium",
		"chromium-browser",
		"google-chrome",
		"google-chrome-stable",
		"chrome",
	}
	for _, name := range names {
		if p, err := exec.LookPath(name); err == nil {
			return p, true
		}
	}

	var paths []string
	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}

	return "", false
}

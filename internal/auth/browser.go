package auth

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// OpenBrowser starts a browser on the consent URL and returns without waiting for it.
func OpenBrowser(url string) error {
	name, args, err := launcher(runtime.GOOS, os.Getenv("BROWSER"), url)
	if err != nil {
		return err
	}
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}

// launcher picks the command that opens url. The first entry of a colon-separated
// $BROWSER wins over the platform default.
//
// Consent URLs carry several query parameters, so nothing here may pass the URL
// through a shell that splits on '&'.
func launcher(goos, browser, url string) (string, []string, error) {
	if first, _, _ := strings.Cut(browser, string(os.PathListSeparator)); strings.TrimSpace(first) != "" {
		fields := strings.Fields(first)
		return fields[0], append(fields[1:], url), nil
	}

	switch goos {
	case "darwin":
		return "open", []string{url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	default:
		return "", nil, fmt.Errorf("no browser launcher for %s, set $BROWSER", goos)
	}
}

package browser

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Browser selects the application a URL is opened with.
type Browser string

const (
	Default Browser = "default"
	Chrome  Browser = "chrome"
	Firefox Browser = "firefox"
	Safari  Browser = "safari"
	Edge    Browser = "edge"
)

// ErrUnsupportedBrowser is returned when the platform cannot launch the
// requested browser.
var ErrUnsupportedBrowser = errors.New("browser not supported on this platform")

// Opener launches a URL. Implementations must be safe for concurrent use.
type Opener interface {
	Open(ctx context.Context, url string, browser Browser) error
}

// SystemOpener starts the platform's URL handler without waiting for it to
// exit.
type SystemOpener struct {
	// GOOS defaults to runtime.GOOS.
	GOOS string
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	// Start defaults to starting an exec.Cmd.
	Start func(ctx context.Context, name string, args ...string) error
}

func (o SystemOpener) goos() string {
	if o.GOOS != "" {
		return o.GOOS
	}
	return runtime.GOOS
}

func (o SystemOpener) Open(ctx context.Context, url string, browser Browser) error {
	name, args, err := o.Command(url, browser)
	if err != nil {
		return err
	}
	lookPath := o.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(name)
	if err != nil || strings.TrimSpace(bin) == "" {
		return fmt.Errorf("no opener command found (%s)", name)
	}
	start := o.Start
	if start == nil {
		start = startCommand
	}
	return start(ctx, bin, args...)
}

func startCommand(_ context.Context, name string, args ...string) error {
	// The handler outlives the call, so ctx is not attached.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

var (
	darwinApps = map[Browser]string{
		Chrome:  "Google Chrome",
		Firefox: "Firefox",
		Safari:  "Safari",
		Edge:    "Microsoft Edge",
	}
	linuxBins = map[Browser]string{
		Chrome:  "google-chrome",
		Firefox: "firefox",
		Edge:    "microsoft-edge",
	}
	windowsBins = map[Browser]string{
		Chrome:  "chrome",
		Firefox: "firefox",
		Edge:    "msedge",
	}
)

// Command returns the program and arguments that open url in browser on the
// opener's platform.
func (o SystemOpener) Command(url string, browser Browser) (string, []string, error) {
	if browser == "" {
		browser = Default
	}
	goos := o.goos()
	switch goos {
	case "darwin":
		if browser == Default {
			return "open", []string{url}, nil
		}
		if app, ok := darwinApps[browser]; ok {
			return "open", []string{"-a", app, url}, nil
		}
	case "windows":
		if browser == Default {
			return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
		}
		if bin, ok := windowsBins[browser]; ok {
			return "cmd", []string{"/c", "start", "", bin, url}, nil
		}
	default:
		if browser == Default {
			return "xdg-open", []string{url}, nil
		}
		if bin, ok := linuxBins[browser]; ok {
			return bin, []string{url}, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedBrowser, browser, goos)
}

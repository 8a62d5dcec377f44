// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"prenotabot/internal/browser/stealth"
	"prenotabot/internal/config"
)

// Manager handles the lifecycle of the browser process. All tab contexts are
// derived from its allocator context, so cancelling the manager tears down
// every session.
type Manager struct {
	logger *zap.Logger
	cfg    *config.Config

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// The browser persona applied to every new tab.
	persona stealth.Persona
}

// NewManager launches the browser process and verifies it is responsive.
func NewManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		logger:  logger.Named("browser_manager"),
		cfg:     cfg,
		persona: stealth.PersonaFor(cfg.Booking.Language),
	}

	if err := m.launchBrowser(ctx); err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return m, nil
}

// launchBrowser prepares allocator options and starts the browser process.
func (m *Manager) launchBrowser(ctx context.Context) error {
	m.logger.Info("Initializing browser allocator...",
		zap.String("type", m.cfg.Browser.Type),
		zap.Bool("headless", m.cfg.Browser.Headless),
	)

	opts, err := m.buildAllocatorOptions()
	if err != nil {
		return err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	m.allocatorCtx = allocCtx
	m.allocatorCancel = cancel

	// Probe with a throwaway tab to confirm the browser is alive.
	testCtx, cancelTest := context.WithTimeout(allocCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched successfully and is responsive.")
	return nil
}

// buildAllocatorOptions assembles launch flags for a stealthy, configurable
// browser instance.
func (m *Manager) buildAllocatorOptions() ([]chromedp.ExecAllocatorOption, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		// A false bool flag is dropped from the command line entirely,
		// which cancels the default that reveals automation.
		chromedp.Flag("enable-automation", false),
	)

	execPath, err := resolveExecPath(m.cfg.Browser.Type)
	if err != nil {
		return nil, err
	}
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	opts = append(opts,
		chromedp.Flag("headless", m.cfg.Browser.Headless),
		// navigator.webdriver would give the session away to the bot wall.
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Browser.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.UserAgent(m.persona.UserAgent),
	)

	// A persistent profile keeps the portal's session cookies across runs.
	if m.cfg.Browser.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(m.cfg.Browser.ProfileDir))
	}

	// Custom arguments from the config file.
	for _, arg := range m.cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	return opts, nil
}

// browserBinaries maps the configured browser type to candidate binary names
// per platform. An empty result defers to chromedp's own discovery.
func resolveExecPath(browserType string) (string, error) {
	var candidates []string
	switch browserType {
	case "chrome":
		if runtime.GOOS == "darwin" {
			candidates = []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"}
		} else {
			candidates = []string{"google-chrome", "google-chrome-stable", "chrome"}
		}
	case "chromium":
		candidates = []string{"chromium", "chromium-browser"}
	case "edge":
		if runtime.GOOS == "darwin" {
			candidates = []string{"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"}
		} else {
			candidates = []string{"microsoft-edge", "microsoft-edge-stable", "msedge"}
		}
	default:
		return "", fmt.Errorf("unsupported browser type %q", browserType)
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	// Fall back to chromedp's built-in lookup; it finds a usable Chrome on
	// most hosts even when the configured channel is missing.
	return "", nil
}

// NewDriver opens a fresh tab, applies the stealth persona to it and returns
// a Driver bound to that tab.
func (m *Manager) NewDriver(settleWait time.Duration) (*CDPDriver, error) {
	tabCtx, tabCancel := chromedp.NewContext(m.allocatorCtx)

	if err := chromedp.Run(tabCtx, stealth.Apply(m.persona, m.logger)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to apply stealth persona: %w", err)
	}

	return newCDPDriver(tabCtx, tabCancel, settleWait, m.logger), nil
}

// Shutdown tears down the browser process.
func (m *Manager) Shutdown() {
	m.logger.Info("Shutting down browser.")
	if m.allocatorCancel != nil {
		m.allocatorCancel()
	}
}

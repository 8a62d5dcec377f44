// File: internal/bot/session.go
package bot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"prenotabot/internal/browser"
	"prenotabot/internal/config"
)

// SessionState tracks the login lifecycle. It only moves to StateLoggedIn on
// a verified observation, never on an action's apparent success.
type SessionState int

const (
	StateLoggedOut SessionState = iota
	StateLoggingIn
	StateLoggedIn
)

func (s SessionState) String() string {
	switch s {
	case StateLoggingIn:
		return "logging_in"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "logged_out"
	}
}

// SessionManager owns the login sequence. It holds no state between calls
// beyond the advisory SessionState, carries no internal retry loop, and is
// safe to invoke when already authenticated.
type SessionManager struct {
	drv    browser.Driver
	obs    *Observer
	cfg    *config.Config
	logger *zap.Logger

	state SessionState
}

// NewSessionManager creates the session manager.
func NewSessionManager(drv browser.Driver, obs *Observer, cfg *config.Config, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		drv:    drv,
		obs:    obs,
		cfg:    cfg,
		logger: logger.Named("session"),
	}
}

// State returns the last observed session state.
func (m *SessionManager) State() SessionState { return m.state }

// Login drives one authentication attempt and returns the verified result.
// The boolean is the login observation; the error carries only fatal faults
// (operator closed the browser, run cancelled). Recoverable faults collapse
// into false so the caller applies its single retry policy. Calling Login
// while already authenticated performs no fill or submit.
func (m *SessionManager) Login(ctx context.Context) (bool, error) {
	// 1. Idempotence: never re-submit credentials over a live session.
	cls := m.obs.Classify(ctx)
	if cls.LoggedIn {
		m.state = StateLoggedIn
		return true, nil
	}
	if cls.CaptchaPage {
		m.state = StateLoggedOut
		return false, nil
	}

	m.state = StateLoggingIn
	m.logger.Info("Navigating to login page", zap.String("url", BaseURL))

	// 2. Reach the login resource.
	if err := m.drv.Navigate(ctx, BaseURL, m.cfg.Network.NavigationTimeout); err != nil {
		return m.loginFailed("navigation to login page failed", err)
	}
	if err := m.drv.WaitSettled(ctx, m.cfg.Network.NavigationTimeout); err != nil {
		m.logger.Debug("Login page did not settle in time", zap.Error(err))
	}

	cls = m.obs.Classify(ctx)
	if cls.CaptchaPage {
		// Never fill a captcha page's form.
		m.logger.Warn("Captcha wall encountered on login page")
		m.state = StateLoggedOut
		return false, nil
	}
	// 3. Navigation may have silently restored the session from cookies.
	if cls.LoggedIn {
		m.logger.Info("Session restored from existing cookies")
		m.state = StateLoggedIn
		return true, nil
	}

	// 4. Submit credentials.
	m.logger.Info("Filling credentials", zap.String("email", m.cfg.Credentials.Email))
	if err := m.drv.Fill(ctx, loginEmailSelector, m.cfg.Credentials.Email); err != nil {
		return m.loginFailed("failed to fill email field", err)
	}
	if err := m.drv.Fill(ctx, loginPasswordSelector, m.cfg.Credentials.Password); err != nil {
		return m.loginFailed("failed to fill password field", err)
	}
	if err := m.drv.Click(ctx, loginSubmitSelector); err != nil {
		return m.loginFailed("failed to click login submit", err)
	}
	if err := m.drv.WaitSettled(ctx, m.cfg.Network.NavigationTimeout); err != nil {
		m.logger.Debug("Page did not settle after login submit", zap.Error(err))
	}

	// 5. Only a fresh observation decides the outcome.
	loggedIn := m.obs.Classify(ctx).LoggedIn
	if loggedIn {
		m.state = StateLoggedIn
		m.logger.Info("Login verified")
	} else {
		m.state = StateLoggedOut
		m.logger.Warn("Login not verified after submit")
	}
	return loggedIn, nil
}

// loginFailed resolves a step error: fatal faults propagate, everything else
// is logged and returned as a plain false for the orchestrator to retry.
func (m *SessionManager) loginFailed(msg string, err error) (bool, error) {
	m.state = StateLoggedOut
	if IsFatal(err) {
		return false, fmt.Errorf("%s: %w", msg, err)
	}
	m.logger.Warn(msg, zap.Error(err), zap.Stringer("fault", ClassifyFault(err)))
	return false, nil
}

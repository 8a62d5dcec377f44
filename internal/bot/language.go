// File: internal/bot/language.go
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// EnsureLanguage switches the portal to the configured language when it is
// not already active. One-shot policy: the target link is clicked at most
// once per call and the portal is never switched back; the server tends to
// flip sessions to Italian on its own, and fighting it churns the session.
// Failures are logged and ignored; booking works in either language.
func (m *SessionManager) EnsureLanguage(ctx context.Context) {
	target := langItalianSelector
	other := langEnglishSelector
	if strings.HasPrefix(strings.ToLower(m.cfg.Booking.Language), "en") {
		target, other = other, target
	}

	targetClass, err := m.drv.GetAttribute(ctx, target, "class")
	if err != nil {
		m.logger.Debug("Language anchor not readable, skipping switch", zap.Error(err))
		return
	}
	if strings.Contains(targetClass, "active") {
		return
	}
	// If neither anchor is present we are not on a portal page.
	if otherClass, err := m.drv.GetAttribute(ctx, other, "class"); err != nil || otherClass == "" {
		if targetClass == "" {
			m.logger.Debug("Language anchors not found, skipping switch")
			return
		}
	}

	m.logger.Info("Switching portal language", zap.String("language", m.cfg.Booking.Language))
	if err := m.drv.Click(ctx, target); err != nil {
		m.logger.Warn("Language switch failed", zap.Error(err))
		return
	}
	if err := m.drv.WaitSettled(ctx, m.cfg.Network.NavigationTimeout); err != nil {
		m.logger.Debug("Page did not settle after language switch", zap.Error(err))
	}
}

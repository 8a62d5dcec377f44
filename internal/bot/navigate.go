// File: internal/bot/navigate.go
package bot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prenotabot/internal/browser"
	"prenotabot/internal/config"
)

// OutcomeKind tags the result of one navigation attempt.
type OutcomeKind int

const (
	// OutcomeRetry: the attempt did not land; try again next tick.
	OutcomeRetry OutcomeKind = iota
	// OutcomeSuccess: the booking form or calendar resource was reached.
	OutcomeSuccess
	// OutcomeBlocked: an obstacle that retrying alone cannot clear.
	OutcomeBlocked
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "retry"
	}
}

// Outcome is the transient result of one AdvanceToward attempt. It is
// consumed immediately by the orchestrator and never persisted.
type Outcome struct {
	Kind OutcomeKind
	// Location is the resolved URL on success.
	Location string
	// Reason describes what blocked the attempt.
	Reason string
}

// Navigator drives the session toward the target booking resource.
type Navigator struct {
	drv    browser.Driver
	obs    *Observer
	cfg    *config.Config
	logger *zap.Logger
}

// NewNavigator creates the navigator.
func NewNavigator(drv browser.Driver, obs *Observer, cfg *config.Config, logger *zap.Logger) *Navigator {
	return &Navigator{
		drv:    drv,
		obs:    obs,
		cfg:    cfg,
		logger: logger.Named("navigator"),
	}
}

// AdvanceToward issues one bounded attempt to reach targetURL. Timeouts and
// rejections come back as OutcomeRetry, never as errors; the returned error
// carries only fatal faults.
func (n *Navigator) AdvanceToward(ctx context.Context, targetURL string) (Outcome, error) {
	// Re-navigating a URL we are already on would reset in-progress state
	// (and burn a request against the portal's rate limits).
	if current, err := n.drv.CurrentURL(ctx); err == nil && current == targetURL {
		n.logger.Debug("Already at target, skipping navigation", zap.String("url", targetURL))
		return Outcome{Kind: OutcomeSuccess, Location: current}, nil
	}

	// Rejection popups linger from earlier attempts and swallow clicks.
	n.dismissConfirmDialog(ctx)

	n.logger.Info("Navigating toward target", zap.String("url", targetURL))
	if err := n.drv.Navigate(ctx, targetURL, n.cfg.Network.NavigationTimeout); err != nil {
		if IsFatal(err) {
			return Outcome{}, fmt.Errorf("navigation failed: %w", err)
		}
		n.logger.Warn("Navigation attempt failed", zap.Error(err), zap.Stringer("fault", ClassifyFault(err)))
		return Outcome{Kind: OutcomeRetry, Reason: "navigation error"}, nil
	}

	// The rejection dialog appears asynchronously shortly after some
	// attempts; give it one more brief chance to show up and die.
	n.awaitAndDismissDialog(ctx)

	if err := n.drv.WaitSettled(ctx, n.cfg.Network.NavigationTimeout); err != nil {
		if IsFatal(err) {
			return Outcome{}, fmt.Errorf("settle wait failed: %w", err)
		}
		return Outcome{Kind: OutcomeRetry, Reason: "settle timeout"}, nil
	}

	cls := n.obs.Classify(ctx)
	switch {
	case cls.CaptchaPage:
		return Outcome{Kind: OutcomeBlocked, Reason: "captcha wall"}, nil
	case cls.ErrorPage:
		// The server rejected the attempt, common when a slot closes
		// mid-request.
		n.logger.Info("Server returned error page", zap.String("url", cls.CurrentURL))
		return Outcome{Kind: OutcomeRetry, Reason: "error page"}, nil
	case isBookingFormURL(cls.CurrentURL) || isCalendarURL(cls.CurrentURL):
		return Outcome{Kind: OutcomeSuccess, Location: cls.CurrentURL}, nil
	default:
		return Outcome{Kind: OutcomeRetry, Reason: "target not reached"}, nil
	}
}

// dismissConfirmDialog clicks the jconfirm popup button if it is present.
// Advisory, never load-bearing: all errors are swallowed.
func (n *Navigator) dismissConfirmDialog(ctx context.Context) {
	var visible bool
	script := fmt.Sprintf(`
        (function(sel) {
            const btn = document.querySelector(sel);
            return !!btn && btn.offsetParent !== null;
        })(%q)`, confirmDialogSelector)
	if err := n.drv.Evaluate(ctx, script, &visible); err != nil || !visible {
		return
	}
	if err := n.drv.Click(ctx, confirmDialogSelector); err != nil {
		n.logger.Debug("Confirm dialog dismissal failed", zap.Error(err))
		return
	}
	n.logger.Info("Dismissed confirmation dialog")
}

// awaitAndDismissDialog waits briefly for the asynchronous rejection dialog
// and dismisses it when it shows. A timeout here just means no dialog came.
func (n *Navigator) awaitAndDismissDialog(ctx context.Context) {
	wait := n.cfg.Network.DialogWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	expr := fmt.Sprintf(`!!document.querySelector(%q)`, confirmDialogSelector)
	if err := n.drv.WaitForCondition(ctx, expr, wait); err != nil {
		return
	}
	n.dismissConfirmDialog(ctx)
}

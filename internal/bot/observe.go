// File: internal/bot/observe.go
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"prenotabot/internal/browser"
)

// Classification is the read-only projection of the live page the loop
// trusts. It is recomputed on every tick and never cached: an action's
// apparent success is never taken as evidence of state.
type Classification struct {
	LoggedIn    bool
	ErrorPage   bool
	CaptchaPage bool
	CurrentURL  string
}

// Route is the tagged classification of where the session currently is.
// Route dispatch is matched exhaustively in the orchestrator so a new portal
// route is a compiler-checked addition.
type Route int

const (
	// RouteOther: anywhere that needs login and navigation work.
	RouteOther Route = iota
	// RouteCaptcha: the anti-bot wall. Waited out, never bypassed.
	RouteCaptcha
	// RouteBookingForm: the booking form resource is loaded.
	RouteBookingForm
	// RouteCalendar: the slot calendar. Terminal; a human takes over.
	RouteCalendar
)

func (r Route) String() string {
	switch r {
	case RouteCaptcha:
		return "captcha"
	case RouteBookingForm:
		return "booking_form"
	case RouteCalendar:
		return "calendar"
	default:
		return "other"
	}
}

// Route derives the dispatch route from the classification. The captcha wall
// dominates everything: no other route is actionable while it is up.
func (c Classification) Route() Route {
	switch {
	case c.CaptchaPage:
		return RouteCaptcha
	case isCalendarURL(c.CurrentURL):
		return RouteCalendar
	case isBookingFormURL(c.CurrentURL):
		return RouteBookingForm
	default:
		return RouteOther
	}
}

// Observer derives the classification from the live page. It is strictly
// read-only; it never issues navigations, clicks or fills.
type Observer struct {
	drv    browser.Driver
	logger *zap.Logger
}

// NewObserver creates the page observer.
func NewObserver(drv browser.Driver, logger *zap.Logger) *Observer {
	return &Observer{drv: drv, logger: logger.Named("observer")}
}

// Classify reads the current page state. Every facet tolerates the marker
// being temporarily absent (mid-navigation) by reporting false instead of
// failing: a transient read failure is not evidence of logged-out state, and
// since classification is re-polled every tick, false negatives self-correct.
func (o *Observer) Classify(ctx context.Context) Classification {
	var c Classification

	currentURL, err := o.drv.CurrentURL(ctx)
	if err != nil {
		o.logger.Debug("Could not read current URL", zap.Error(err))
	} else {
		c.CurrentURL = currentURL
	}

	c.CaptchaPage = isCaptchaHost(c.CurrentURL)
	c.ErrorPage = isErrorPath(c.CurrentURL)

	// The captcha interstitial has no portal body markup; skip the read.
	if !c.CaptchaPage {
		bodyClass, err := o.drv.GetAttribute(ctx, "body", "class")
		if err != nil {
			o.logger.Debug("Could not read body class", zap.Error(err))
		} else {
			c.LoggedIn = strings.Contains(bodyClass, loggedInToken)
		}
	}

	return c
}

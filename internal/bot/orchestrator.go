// File: internal/bot/orchestrator.go
// The top-level watch loop. Each tick classifies the observed page state and
// dispatches to exactly one collaborator; every recoverable fault resolves
// into one poll-interval wait followed by a fresh observation.
package bot

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"prenotabot/internal/alert"
	"prenotabot/internal/config"
)

// Classifier yields the page observation the loop trusts.
type Classifier interface {
	Classify(ctx context.Context) Classification
}

// LoginManager owns the idempotent login sequence and the locale ensure.
type LoginManager interface {
	Login(ctx context.Context) (bool, error)
	EnsureLanguage(ctx context.Context)
}

// Advancer drives toward the target booking resource.
type Advancer interface {
	AdvanceToward(ctx context.Context, targetURL string) (Outcome, error)
}

// Filler populates and submits the booking form.
type Filler interface {
	FillAndSubmit(ctx context.Context) (bool, error)
}

// Orchestrator runs the watch loop until the calendar is reached, the
// operator closes the browser, or the run context is cancelled.
type Orchestrator struct {
	cfg        *config.Config
	classifier Classifier
	session    LoginManager
	navigator  Advancer
	filler     Filler
	alerter    alert.Alerter
	logger     *zap.Logger

	// limiter paces the ticks: one per poll interval, applied before every
	// attempt so failure branches cannot hammer the portal.
	limiter *rate.Limiter
}

// NewOrchestrator wires the loop. All collaborators are required.
func NewOrchestrator(
	cfg *config.Config,
	classifier Classifier,
	session LoginManager,
	navigator Advancer,
	filler Filler,
	alerter alert.Alerter,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if cfg == nil || classifier == nil || session == nil || navigator == nil || filler == nil || alerter == nil {
		return nil, fmt.Errorf("cannot initialize orchestrator with nil dependencies")
	}
	runID := uuid.New().String()
	return &Orchestrator{
		cfg:        cfg,
		classifier: classifier,
		session:    session,
		navigator:  navigator,
		filler:     filler,
		alerter:    alerter,
		logger:     logger.Named("orchestrator").With(zap.String("run_id", runID)),
		limiter:    rate.NewLimiter(rate.Every(cfg.Booking.PollInterval), 1),
	}, nil
}

// Run executes the watch loop. It returns nil on terminal success (calendar
// reached, human takes over) and the fatal fault otherwise. Every other
// branch loops indefinitely; the system runs until a human intervenes or the
// process is killed.
func (o *Orchestrator) Run(ctx context.Context) error {
	target := BookingURL(o.cfg.Booking.ServiceID)
	o.logger.Info("Watch loop starting",
		zap.String("target", target),
		zap.Duration("poll_interval", o.cfg.Booking.PollInterval),
	)

	for {
		if err := o.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("watch loop cancelled: %w", err)
		}

		cls := o.classifier.Classify(ctx)
		route := cls.Route()
		o.logger.Debug("Tick",
			zap.Stringer("route", route),
			zap.Bool("logged_in", cls.LoggedIn),
			zap.String("url", cls.CurrentURL),
		)

		switch route {
		case RouteCaptcha:
			// Captcha walls are waited out, never bypassed. Keep nudging
			// the operator; the next tick re-checks.
			o.logger.Warn("Captcha wall up; waiting for it to clear")
			o.alerter.Sound(ctx, o.cfg.Alert.CaptchaBeep)

		case RouteCalendar:
			// Terminal success: the slot calendar is open. Sound the long
			// alert exactly once and hand the live session to the human.
			o.logger.Info("Slot calendar reached, handing over to operator",
				zap.String("url", cls.CurrentURL),
			)
			o.alerter.Sound(ctx, o.cfg.Alert.Duration)
			return nil

		case RouteBookingForm:
			submitted, err := o.filler.FillAndSubmit(ctx)
			if err != nil {
				return o.fatal("form fill", err)
			}
			// Logged only: the next tick re-observes the true page state
			// rather than trusting the return value.
			o.logger.Info("Form pass finished", zap.Bool("submitted", submitted))

		case RouteOther:
			ok, err := o.session.Login(ctx)
			if err != nil {
				return o.fatal("login", err)
			}
			if !ok {
				o.logger.Info("Not authenticated yet; retrying after poll interval")
				continue
			}

			o.session.EnsureLanguage(ctx)

			if cls.CurrentURL == target {
				continue
			}
			outcome, err := o.navigator.AdvanceToward(ctx, target)
			if err != nil {
				return o.fatal("navigation", err)
			}
			switch outcome.Kind {
			case OutcomeSuccess:
				o.logger.Info("Reached target resource", zap.String("location", outcome.Location))
			case OutcomeBlocked:
				o.logger.Warn("Navigation blocked", zap.String("reason", outcome.Reason))
			default:
				o.logger.Info("Navigation attempt did not land; will retry",
					zap.String("reason", outcome.Reason),
				)
			}
		}
	}
}

// fatal logs and wraps a loop-terminating fault.
func (o *Orchestrator) fatal(stage string, err error) error {
	fault := ClassifyFault(err)
	if fault == FaultTargetClosed {
		o.logger.Info("Browser closed by operator; shutting down", zap.String("stage", stage))
	} else {
		o.logger.Error("Watch loop terminating", zap.String("stage", stage), zap.Error(err))
	}
	return fmt.Errorf("%s: %w", stage, err)
}

// File: internal/bot/faults.go
package bot

import (
	"context"
	"errors"
	"strings"

	"prenotabot/internal/browser"
)

// Fault is the classification of everything that can go wrong mid-run. The
// loop treats each kind uniformly: every recoverable fault resolves into one
// poll-interval wait followed by a fresh tick; only FaultTargetClosed ends
// the run.
type Fault int

const (
	FaultNone Fault = iota
	// FaultTimeout: a bounded wait elapsed. Always recoverable.
	FaultTimeout
	// FaultElementNotFound: a selector matched nothing, usually because the
	// page has not settled yet. Recoverable.
	FaultElementNotFound
	// FaultSessionLost: observed logged-out after having been logged-in.
	// Recoverable via re-login on the next tick.
	FaultSessionLost
	// FaultCaptchaBlock: the anti-bot wall is up. Recoverable only by
	// waiting it out.
	FaultCaptchaBlock
	// FaultTargetClosed: the operator closed the browser. Fatal, clean exit.
	FaultTargetClosed
	// FaultCancelled: the run context was cancelled (signal). Fatal.
	FaultCancelled
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultTimeout:
		return "timeout"
	case FaultElementNotFound:
		return "element_not_found"
	case FaultSessionLost:
		return "session_lost"
	case FaultCaptchaBlock:
		return "captcha_block"
	case FaultTargetClosed:
		return "target_closed"
	case FaultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Sentinel faults raised by the components themselves. Driver-level faults
// (timeouts, dead targets) arrive as wrapped errors and are recognized by
// ClassifyFault instead.
var (
	ErrSessionLost  = errors.New("session lost")
	ErrCaptchaBlock = errors.New("captcha wall")
)

// elementNotFoundMarkers are the messages chromedp and the driver produce
// when a selector resolves to nothing.
var elementNotFoundMarkers = []string{
	"could not find node",
	"element not found",
	"waiting for selector",
}

// ClassifyFault maps any error surfaced during a tick onto the taxonomy.
// Unknown errors classify as FaultTimeout: they are treated as transient and
// retried, which is the safe default for a loop whose only real failure mode
// is giving up too early.
func ClassifyFault(err error) Fault {
	if err == nil {
		return FaultNone
	}
	switch {
	case browser.IsTargetClosed(err):
		return FaultTargetClosed
	case errors.Is(err, context.Canceled):
		return FaultCancelled
	case errors.Is(err, ErrCaptchaBlock):
		return FaultCaptchaBlock
	case errors.Is(err, ErrSessionLost):
		return FaultSessionLost
	case errors.Is(err, context.DeadlineExceeded):
		return FaultTimeout
	}
	msg := err.Error()
	for _, marker := range elementNotFoundMarkers {
		if strings.Contains(msg, marker) {
			return FaultElementNotFound
		}
	}
	return FaultTimeout
}

// IsFatal reports whether the fault must terminate the run loop.
func IsFatal(err error) bool {
	switch ClassifyFault(err) {
	case FaultTargetClosed, FaultCancelled:
		return true
	default:
		return false
	}
}

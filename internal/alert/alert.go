// File: internal/alert/alert.go
package alert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"go.uber.org/zap"
)

// Alerter is the notification sink the watch loop escalates through. An
// alert is advisory: implementations must never return an error into the
// loop; failures degrade to a log line.
type Alerter interface {
	// Sound emits an audible alert for roughly the given duration, or until
	// the context is cancelled.
	Sound(ctx context.Context, duration time.Duration)
}

// Speaker plays a repeating system sound through whatever player the host
// provides, falling back to the terminal bell when none works.
type Speaker struct {
	logger *zap.Logger
	// runCommand is swappable for tests.
	runCommand func(ctx context.Context, name string, args ...string) error
}

var _ Alerter = (*Speaker)(nil)

// NewSpeaker creates the platform sound alerter.
func NewSpeaker(logger *zap.Logger) *Speaker {
	return &Speaker{
		logger: logger.Named("alert"),
		runCommand: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Sound plays the alert in roughly one-second pulses until duration elapses
// or ctx is cancelled.
func (s *Speaker) Sound(ctx context.Context, duration time.Duration) {
	if duration <= 0 {
		return
	}
	s.logger.Info("Sounding alert", zap.Duration("duration", duration))

	deadline := time.Now().Add(duration)
	warnedOnce := false
	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return
		}
		if err := s.pulse(ctx); err != nil && !warnedOnce {
			// Degrade to a silent log line, once, and keep pulsing the
			// terminal bell for the remaining duration.
			s.logger.Warn("Audible alert unavailable; falling back to terminal bell", zap.Error(err))
			warnedOnce = true
		}
		wait := time.Second
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// pulse attempts one platform sound; the terminal bell always fires as well
// so a muted host still shows something in the foreground terminal.
func (s *Speaker) pulse(ctx context.Context) error {
	fmt.Fprint(os.Stdout, "\a")

	switch runtime.GOOS {
	case "darwin":
		return s.runCommand(ctx, "afplay", "/System/Library/Sounds/Glass.aiff")
	case "windows":
		return s.runCommand(ctx, "powershell", "-c", "[console]::beep(1000,600)")
	default:
		if err := s.runCommand(ctx, "paplay", "/usr/share/sounds/freedesktop/stereo/complete.oga"); err == nil {
			return nil
		}
		return s.runCommand(ctx, "aplay", "-q", "/usr/share/sounds/alsa/Front_Center.wav")
	}
}

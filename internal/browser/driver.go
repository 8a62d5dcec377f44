// File: internal/browser/driver.go
package browser

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Driver is the narrow surface the watch loop consumes. Every call is
// blocking, context bound and fallible; a bounded wait that elapses surfaces
// as an error wrapping context.DeadlineExceeded. Implementations own the
// underlying session and cookie store exclusively; the core never touches
// browser state except through this interface.
type Driver interface {
	// Navigate loads url and waits for the load event, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// CurrentURL returns the resolved location of the current page.
	CurrentURL(ctx context.Context) (string, error)
	// GetAttribute reads an attribute from the first element matching the
	// CSS selector. A missing element or attribute yields "", not an error.
	GetAttribute(ctx context.Context, selector, name string) (string, error)
	// Click clicks the first visible element matching the selector.
	Click(ctx context.Context, selector string) error
	// Fill replaces the value of an input or textarea and fires the input
	// and change events the page's scripts listen for.
	Fill(ctx context.Context, selector, value string) error
	// SelectOption picks the option with the given value on a select element.
	SelectOption(ctx context.Context, selector, value string) error
	// SetInputFile attaches a local file to a file input.
	SetInputFile(ctx context.Context, selector, path string) error
	// WaitForCondition polls a JavaScript expression until it is truthy or
	// the timeout elapses.
	WaitForCondition(ctx context.Context, expression string, timeout time.Duration) error
	// WaitSettled waits for the document to finish loading and for a short
	// quiet period afterwards, bounded by timeout.
	WaitSettled(ctx context.Context, timeout time.Duration) error
	// Evaluate runs a script in the page and unmarshals the result into out.
	// Pass a nil out to discard the result.
	Evaluate(ctx context.Context, script string, out any) error
	// Screenshot captures the current viewport as PNG for diagnostics.
	Screenshot(ctx context.Context) ([]byte, error)
}

// ErrTargetClosed reports that the browser target went away underneath us,
// which in this application means the operator closed the window. It is the
// one driver fault that must terminate the process (cleanly).
var ErrTargetClosed = errors.New("browser target closed")

// targetClosedMarkers are the substrings chromedp and the CDP transport
// produce when the browser process or tab disappears.
var targetClosedMarkers = []string{
	"target closed",
	"browser closed",
	"websocket: close",
	"use of closed network connection",
	"chrome failed to start",
	"context canceled while waiting for target",
}

// IsTargetClosed reports whether err indicates the operator closed the
// browser rather than an operational fault on the page.
func IsTargetClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTargetClosed) {
		return true
	}
	msg := err.Error()
	for _, marker := range targetClosedMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

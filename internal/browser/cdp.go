// File: internal/browser/cdp.go
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// interactionTimeout bounds the short element-level operations (clicks,
// fills, attribute reads) that should never take long on a settled page.
const interactionTimeout = 10 * time.Second

// CDPDriver implements Driver on top of a single chromedp tab context.
type CDPDriver struct {
	tabCtx     context.Context
	tabCancel  context.CancelFunc
	settleWait time.Duration
	logger     *zap.Logger
}

var _ Driver = (*CDPDriver)(nil)

func newCDPDriver(tabCtx context.Context, tabCancel context.CancelFunc, settleWait time.Duration, logger *zap.Logger) *CDPDriver {
	return &CDPDriver{
		tabCtx:     tabCtx,
		tabCancel:  tabCancel,
		settleWait: settleWait,
		logger:     logger.Named("cdp"),
	}
}

// Close releases the tab. Safe to call more than once.
func (d *CDPDriver) Close() {
	if d.tabCancel != nil {
		d.tabCancel()
	}
}

// run executes chromedp actions under both the tab lifecycle context and the
// caller's operational context, bounded by timeout when one is given.
func (d *CDPDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(d.tabCtx, ctx)
	defer cancel()

	if timeout > 0 {
		var tCancel context.CancelFunc
		opCtx, tCancel = context.WithTimeout(opCtx, timeout)
		defer tCancel()
	}

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}

	// Disambiguate the failure: a dead tab while the caller's context is
	// still live means the operator closed the browser.
	if d.tabCtx.Err() != nil && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", ErrTargetClosed, err)
	}
	if IsTargetClosed(err) {
		return fmt.Errorf("%w: %v", ErrTargetClosed, err)
	}
	if opCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("browser operation timed out after %v: %w", timeout, context.DeadlineExceeded)
	}
	return err
}

func (d *CDPDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	d.logger.Debug("Navigating", zap.String("url", url))
	return d.run(ctx, timeout, chromedp.Navigate(url))
}

func (d *CDPDriver) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := d.run(ctx, interactionTimeout, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

func (d *CDPDriver) GetAttribute(ctx context.Context, selector, name string) (string, error) {
	script := fmt.Sprintf(`
        (function(sel, attr) {
            const el = document.querySelector(sel);
            if (!el) return "";
            return el.getAttribute(attr) || "";
        })(%s, %s)`, jsonEncode(selector), jsonEncode(name))

	var value string
	if err := d.Evaluate(ctx, script, &value); err != nil {
		return "", err
	}
	return value, nil
}

func (d *CDPDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx, interactionTimeout,
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
}

func (d *CDPDriver) Fill(ctx context.Context, selector, value string) error {
	// Set the value through the DOM and fire the events the portal's own
	// validation scripts listen for; a bare attribute write is invisible to
	// them.
	script := fmt.Sprintf(`
        (function(sel, val) {
            const el = document.querySelector(sel);
            if (!el) return false;
            el.focus();
            el.value = val;
            el.dispatchEvent(new Event('input', { bubbles: true }));
            el.dispatchEvent(new Event('change', { bubbles: true }));
            el.blur();
            return true;
        })(%s, %s)`, jsonEncode(selector), jsonEncode(value))

	var ok bool
	if err := d.Evaluate(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("element not found matching selector %q", selector)
	}
	return nil
}

func (d *CDPDriver) SelectOption(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`
        (function(sel, val) {
            const el = document.querySelector(sel);
            if (!el || el.tagName !== 'SELECT') return "no-select";
            const opt = Array.from(el.options).find(o => o.value === val || o.textContent.trim() === val);
            if (!opt) return "no-option";
            el.value = opt.value;
            el.dispatchEvent(new Event('change', { bubbles: true }));
            return "ok";
        })(%s, %s)`, jsonEncode(selector), jsonEncode(value))

	var res string
	if err := d.Evaluate(ctx, script, &res); err != nil {
		return err
	}
	switch res {
	case "ok":
		return nil
	case "no-option":
		return fmt.Errorf("option %q not found in select %q", value, selector)
	default:
		return fmt.Errorf("element not found matching selector %q", selector)
	}
}

func (d *CDPDriver) SetInputFile(ctx context.Context, selector, path string) error {
	return d.run(ctx, interactionTimeout,
		chromedp.SetUploadFiles(selector, []string{path}, chromedp.ByQuery),
	)
}

func (d *CDPDriver) WaitForCondition(ctx context.Context, expression string, timeout time.Duration) error {
	err := d.run(ctx, 0,
		chromedp.Poll(expression, nil, chromedp.WithPollingTimeout(timeout)),
	)
	if errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Errorf("condition %q not met after %v: %w", expression, timeout, context.DeadlineExceeded)
	}
	return err
}

func (d *CDPDriver) WaitSettled(ctx context.Context, timeout time.Duration) error {
	if err := d.WaitForCondition(ctx, `document.readyState === 'complete'`, timeout); err != nil {
		return err
	}
	// Quiet period for late XHR-driven DOM churn after the load event.
	if d.settleWait > 0 {
		return d.run(ctx, timeout, chromedp.Sleep(d.settleWait))
	}
	return nil
}

func (d *CDPDriver) Evaluate(ctx context.Context, script string, out any) error {
	var raw json.RawMessage
	err := d.run(ctx, interactionTimeout,
		chromedp.Evaluate(script, &raw, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
		}),
	)
	if err != nil {
		return err
	}
	if out == nil || len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal evaluation result: %w (payload: %s)", err, string(raw))
	}
	return nil
}

func (d *CDPDriver) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := d.run(ctx, interactionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// jsonEncode safely encodes a value (especially strings) for JS injection.
func jsonEncode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// combineContext creates a context cancelled when either parent is done,
// while preserving the chromedp target values carried by primary.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}

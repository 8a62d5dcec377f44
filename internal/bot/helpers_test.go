// File: internal/bot/helpers_test.go
package bot

import (
	"context"
	"sync"
	"time"

	"prenotabot/internal/config"
)

// testConfig returns a validated-looking config with fast waits. Shared by
// the component tests in this package.
func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Credentials.Email = "user@example.com"
	cfg.Credentials.Password = "hunter2"
	cfg.Booking.Address = "Via Roma 1, Milano"
	cfg.Booking.PollInterval = time.Millisecond
	cfg.Network.NavigationTimeout = 50 * time.Millisecond
	cfg.Network.SettleWait = time.Millisecond
	cfg.Network.DialogWait = time.Millisecond
	cfg.Network.OptionWait = 50 * time.Millisecond
	cfg.Alert.Duration = 5 * time.Millisecond
	cfg.Alert.CaptchaBeep = time.Millisecond
	return cfg
}

// stubDriver is a scriptable in-memory browser.Driver. Zero value behaves
// like a blank, settled page; tests override the hook funcs they care about.
type stubDriver struct {
	mu sync.Mutex

	url    string
	urlErr error

	// attrs maps "selector\x00name" to the attribute value.
	attrs   map[string]string
	attrErr error

	navCalls []string
	navErr   error
	// onNavigate, when set, runs after a successful Navigate and can mutate
	// the stub to simulate the page the navigation lands on.
	onNavigate func(url string)

	clickCalls []string
	clickErr   map[string]error
	// onClick simulates page reactions to a click (e.g. login completing).
	onClick func(selector string)

	fillCalls map[string]string
	fillErr   map[string]error

	selectCalls map[string]string
	selectErr   map[string]error

	fileCalls map[string]string
	fileErr   error

	condErr error
	// onCondition, when set, decides per expression.
	onCondition func(expr string) error

	settleErr   error
	settleCalls int

	// onEvaluate, when set, may write to out. Default leaves out untouched.
	onEvaluate func(script string, out any) error

	screenshots int
}

func (d *stubDriver) setURL(u string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.url = u
}

func (d *stubDriver) setAttr(selector, name, value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attrs == nil {
		d.attrs = map[string]string{}
	}
	d.attrs[selector+"\x00"+name] = value
}

func (d *stubDriver) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	d.mu.Lock()
	d.navCalls = append(d.navCalls, url)
	err := d.navErr
	hook := d.onNavigate
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(url)
	} else {
		d.setURL(url)
	}
	return nil
}

func (d *stubDriver) CurrentURL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.urlErr != nil {
		return "", d.urlErr
	}
	return d.url, nil
}

func (d *stubDriver) GetAttribute(ctx context.Context, selector, name string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attrErr != nil {
		return "", d.attrErr
	}
	return d.attrs[selector+"\x00"+name], nil
}

func (d *stubDriver) Click(ctx context.Context, selector string) error {
	d.mu.Lock()
	d.clickCalls = append(d.clickCalls, selector)
	err := d.clickErr[selector]
	hook := d.onClick
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(selector)
	}
	return nil
}

func (d *stubDriver) Fill(ctx context.Context, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fillCalls == nil {
		d.fillCalls = map[string]string{}
	}
	d.fillCalls[selector] = value
	return d.fillErr[selector]
}

func (d *stubDriver) SelectOption(ctx context.Context, selector, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.selectCalls == nil {
		d.selectCalls = map[string]string{}
	}
	d.selectCalls[selector] = value
	return d.selectErr[selector]
}

func (d *stubDriver) SetInputFile(ctx context.Context, selector, path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fileCalls == nil {
		d.fileCalls = map[string]string{}
	}
	d.fileCalls[selector] = path
	return d.fileErr
}

func (d *stubDriver) WaitForCondition(ctx context.Context, expression string, timeout time.Duration) error {
	d.mu.Lock()
	err := d.condErr
	hook := d.onCondition
	d.mu.Unlock()
	if hook != nil {
		return hook(expression)
	}
	return err
}

func (d *stubDriver) WaitSettled(ctx context.Context, timeout time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.settleCalls++
	return d.settleErr
}

func (d *stubDriver) Evaluate(ctx context.Context, script string, out any) error {
	d.mu.Lock()
	hook := d.onEvaluate
	d.mu.Unlock()
	if hook != nil {
		return hook(script, out)
	}
	return nil
}

func (d *stubDriver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screenshots++
	return []byte("png"), nil
}

func (d *stubDriver) submitClicks(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.clickCalls {
		if c == selector {
			n++
		}
	}
	return n
}

// File: internal/bot/orchestrator_test.go
package bot

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"prenotabot/internal/browser"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- Collaborator stubs ---

// scriptedClassifier replays a fixed sequence of observations, holding the
// final one once the script runs out.
type scriptedClassifier struct {
	mu    sync.Mutex
	seq   []Classification
	calls int
}

func (s *scriptedClassifier) Classify(ctx context.Context) Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.seq) {
		i = len(s.seq) - 1
	}
	s.calls++
	return s.seq[i]
}

func (s *scriptedClassifier) classifyCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubSession struct {
	mu         sync.Mutex
	loginOK    bool
	loginErr   error
	loginCalls int
	langCalls  int
}

func (s *stubSession) Login(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginCalls++
	return s.loginOK, s.loginErr
}

func (s *stubSession) EnsureLanguage(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.langCalls++
}

type stubAdvancer struct {
	mu      sync.Mutex
	outcome Outcome
	err     error
	targets []string
}

func (a *stubAdvancer) AdvanceToward(ctx context.Context, targetURL string) (Outcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = append(a.targets, targetURL)
	return a.outcome, a.err
}

func (a *stubAdvancer) advanceCalls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.targets)
}

type stubFiller struct {
	mu     sync.Mutex
	result bool
	err    error
	calls  int
}

func (f *stubFiller) FillAndSubmit(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type recordingAlerter struct {
	mu    sync.Mutex
	beeps []time.Duration
}

func (r *recordingAlerter) Sound(ctx context.Context, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps = append(r.beeps, duration)
}

func (r *recordingAlerter) sounds() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.beeps...)
}

// --- Page state fixtures ---

func loggedOutHome() Classification {
	return Classification{CurrentURL: BaseURL}
}

func loggedInDashboard() Classification {
	return Classification{LoggedIn: true, CurrentURL: BaseURL + "/UserArea"}
}

func captchaWall() Classification {
	return Classification{CaptchaPage: true, CurrentURL: "https://geo.captcha-delivery.com/captcha/"}
}

func bookingForm(serviceID string) Classification {
	return Classification{LoggedIn: true, CurrentURL: BookingURL(serviceID)}
}

func calendar(serviceID string) Classification {
	return Classification{LoggedIn: true, CurrentURL: BookingURL(serviceID) + "/BookingCalendar"}
}

func newTestOrchestrator(t *testing.T, cls Classifier, session LoginManager, adv Advancer, filler Filler, alerter *recordingAlerter) *Orchestrator {
	t.Helper()
	orch, err := NewOrchestrator(testConfig(), cls, session, adv, filler, alerter, zaptest.NewLogger(t))
	require.NoError(t, err)
	return orch
}

// --- Tests ---

func TestNewOrchestratorRejectsNilDependencies(t *testing.T) {
	t.Parallel()
	_, err := NewOrchestrator(nil, nil, nil, nil, nil, nil, zaptest.NewLogger(t))
	require.Error(t, err)
}

func TestRunTerminalOnCalendar(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{calendar("4996")}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	err := orch.Run(context.Background())
	require.NoError(t, err)

	// Exactly one long alert, then the loop ends: no further ticks, no
	// login, no navigation.
	cfg := testConfig()
	assert.Equal(t, []time.Duration{cfg.Alert.Duration}, alerter.sounds())
	assert.Equal(t, 1, cls.classifyCalls())
	assert.Zero(t, session.loginCalls)
	assert.Zero(t, adv.advanceCalls())
	assert.Zero(t, filler.calls)
}

func TestRunColdStartToHandover(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{
		loggedOutHome(),
		bookingForm("4996"),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{outcome: Outcome{Kind: OutcomeSuccess, Location: BookingURL("4996")}}
	filler := &stubFiller{result: true}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))

	assert.Equal(t, 1, session.loginCalls)
	assert.Equal(t, 1, session.langCalls)
	assert.Equal(t, []string{BookingURL("4996")}, adv.targets)
	assert.Equal(t, 1, filler.calls)
	assert.Len(t, alerter.sounds(), 1)
}

func TestRunCaptchaStall(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{
		captchaWall(),
		captchaWall(),
		captchaWall(),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))

	// While the wall is up the loop only alerts and waits: no login, no
	// navigation, no form work. The alerts stop once the wall clears.
	assert.Zero(t, session.loginCalls)
	assert.Zero(t, adv.advanceCalls())
	assert.Zero(t, filler.calls)

	cfg := testConfig()
	want := []time.Duration{cfg.Alert.CaptchaBeep, cfg.Alert.CaptchaBeep, cfg.Alert.CaptchaBeep, cfg.Alert.Duration}
	assert.Equal(t, want, alerter.sounds())
}

func TestRunNoRedundantNavigation(t *testing.T) {
	t.Parallel()
	// Once the target URL is reached the tick routes to the form filler;
	// the navigator is only invoked from pages away from the target.
	cls := &scriptedClassifier{seq: []Classification{
		loggedInDashboard(),
		bookingForm("4996"),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{outcome: Outcome{Kind: OutcomeSuccess, Location: BookingURL("4996")}}
	filler := &stubFiller{result: true}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))
	assert.Equal(t, 1, adv.advanceCalls())
	assert.Equal(t, 1, filler.calls)
}

func TestRunRetriesWhileLoginFails(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{
		loggedOutHome(),
		loggedOutHome(),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: false}
	adv := &stubAdvancer{}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))

	// Two failed login ticks, no navigation attempted in either.
	assert.Equal(t, 2, session.loginCalls)
	assert.Zero(t, session.langCalls)
	assert.Zero(t, adv.advanceCalls())
}

func TestRunReloginAfterSessionDrop(t *testing.T) {
	t.Parallel()
	// A mid-run logout shows up as a plain portal page without the session
	// marker; the next tick runs the full login sequence again.
	cls := &scriptedClassifier{seq: []Classification{
		loggedInDashboard(),
		loggedOutHome(),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{outcome: Outcome{Kind: OutcomeRetry, Reason: "target not reached"}}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))

	assert.Equal(t, 2, session.loginCalls)
	assert.Equal(t, 2, adv.advanceCalls())
}

func TestRunNavigationRetryDoesNotAlert(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{
		loggedInDashboard(),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{outcome: Outcome{Kind: OutcomeRetry, Reason: "error page"}}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))

	// Rejections are routine; only the terminal alert sounded.
	cfg := testConfig()
	assert.Equal(t, []time.Duration{cfg.Alert.Duration}, alerter.sounds())
}

func TestRunFormResultNotTrusted(t *testing.T) {
	t.Parallel()
	// The filler reports success but the page still shows the form; the
	// loop keeps observing instead of assuming the calendar was reached.
	cls := &scriptedClassifier{seq: []Classification{
		bookingForm("4996"),
		bookingForm("4996"),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{}
	filler := &stubFiller{result: true}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	require.NoError(t, orch.Run(context.Background()))
	assert.Equal(t, 2, filler.calls)
}

func TestRunFatalFromLogin(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{loggedOutHome()}}
	session := &stubSession{loginErr: fmt.Errorf("navigate: %w", browser.ErrTargetClosed)}
	adv := &stubAdvancer{}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, FaultTargetClosed, ClassifyFault(err))
	assert.Empty(t, alerter.sounds())
}

func TestRunFatalFromForm(t *testing.T) {
	t.Parallel()
	cls := &scriptedClassifier{seq: []Classification{bookingForm("4996")}}
	session := &stubSession{loginOK: true}
	adv := &stubAdvancer{}
	filler := &stubFiller{err: fmt.Errorf("fill: %w", browser.ErrTargetClosed)}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)
	err := orch.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, FaultTargetClosed, ClassifyFault(err))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cls := &scriptedClassifier{seq: []Classification{loggedOutHome()}}
	session := &stubSession{loginOK: false}
	adv := &stubAdvancer{}
	filler := &stubFiller{}
	alerter := &recordingAlerter{}

	orch := newTestOrchestrator(t, cls, session, adv, filler, alerter)

	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, FaultCancelled, ClassifyFault(err))
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop on cancellation")
	}
}

func TestRunPacesTicks(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.Booking.PollInterval = 20 * time.Millisecond
	cls := &scriptedClassifier{seq: []Classification{
		loggedOutHome(),
		loggedOutHome(),
		loggedOutHome(),
		calendar("4996"),
	}}
	session := &stubSession{loginOK: false}
	alerter := &recordingAlerter{}

	orch, err := NewOrchestrator(cfg, cls, session, &stubAdvancer{}, &stubFiller{}, alerter, zaptest.NewLogger(t))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, orch.Run(context.Background()))
	// Four ticks with a burst of one: at least three full intervals.
	assert.GreaterOrEqual(t, time.Since(start), 3*cfg.Booking.PollInterval)
}

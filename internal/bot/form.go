// File: internal/bot/form.go
package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"prenotabot/internal/browser"
	"prenotabot/internal/config"
)

// Booking form controls.
const (
	formAddressSelector  = "#Address"
	formUploadSelector   = "#File_0"
	formNotesSelector    = "#BookingNotes"
	formPrivacySelector  = "#PrivacyCheck"
	formTypeDdlSelector  = "#typeofbookingddl"
	formFirstDdlSelector = "#ddls_0"
	formSubmitSelector   = "#btnAvanti"
)

// dynamicDropdowns are populated by the portal's own scripts after the form
// loads; submission before they carry options is silently discarded
// server-side.
var dynamicDropdowns = []string{formTypeDdlSelector, formFirstDdlSelector}

// FieldKind selects the fill action for a form field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldSelect
	FieldFile
	FieldCheckbox
)

// FormField maps a logical field to its control and value source.
type FormField struct {
	Name     string
	Selector string
	Value    string
	Kind     FieldKind
	Required bool
}

// FormFiller populates and submits the booking form. It does not retry:
// a false return hands the decision back to the orchestrator, whose next
// tick re-observes the true page state.
type FormFiller struct {
	drv    browser.Driver
	cfg    *config.Config
	logger *zap.Logger

	// snapshotDir receives diagnostic dumps on dropdown-wait timeouts.
	snapshotDir string
}

// NewFormFiller creates the form filler.
func NewFormFiller(drv browser.Driver, cfg *config.Config, logger *zap.Logger) *FormFiller {
	return &FormFiller{
		drv:         drv,
		cfg:         cfg,
		logger:      logger.Named("form"),
		snapshotDir: "diagnostics",
	}
}

// fields is the fixed field set, resolved against the configuration.
func (f *FormFiller) fields() []FormField {
	return []FormField{
		{Name: "residence_address", Selector: formAddressSelector, Value: f.cfg.Booking.Address, Kind: FieldText, Required: true},
		{Name: "proof_of_residence", Selector: formUploadSelector, Value: f.cfg.Booking.ProofOfResidencePath, Kind: FieldFile, Required: true},
		{Name: "booking_type", Selector: formTypeDdlSelector, Value: f.cfg.Booking.BookingType, Kind: FieldSelect, Required: false},
		{Name: "notes", Selector: formNotesSelector, Value: f.cfg.Booking.Notes, Kind: FieldText, Required: false},
		{Name: "privacy_accepted", Selector: formPrivacySelector, Value: "", Kind: FieldCheckbox, Required: true},
	}
}

// FillAndSubmit populates the booking form and submits it. Precondition: the
// caller has confirmed the form resource is loaded. Returns false without
// submitting when any required field could not be filled; every failure is
// collected first so the operator sees all problems in one log pass. The
// error return carries only fatal faults.
func (f *FormFiller) FillAndSubmit(ctx context.Context) (bool, error) {
	if err := f.waitForDropdowns(ctx); err != nil {
		if IsFatal(err) {
			return false, err
		}
		f.logger.Warn("Dynamic dropdowns never populated; leaving form untouched", zap.Error(err))
		f.captureSnapshot(ctx)
		return false, nil
	}

	var failed []string
	for _, field := range f.fields() {
		if err := f.fillField(ctx, field); err != nil {
			if IsFatal(err) {
				return false, fmt.Errorf("filling %s: %w", field.Name, err)
			}
			if field.Required {
				failed = append(failed, field.Name)
			}
			f.logger.Warn("Field fill failed",
				zap.String("field", field.Name),
				zap.Bool("required", field.Required),
				zap.Error(err),
			)
		}
	}

	if len(failed) > 0 {
		f.logger.Error("Form invalid, refusing to submit", zap.Strings("failed_required_fields", failed))
		return false, nil
	}

	f.logger.Info("All required fields filled, submitting booking form")
	if err := f.drv.Click(ctx, formSubmitSelector); err != nil {
		if IsFatal(err) {
			return false, fmt.Errorf("submitting form: %w", err)
		}
		f.logger.Warn("Submit click failed", zap.Error(err))
		return false, nil
	}
	if err := f.drv.WaitSettled(ctx, f.cfg.Network.NavigationTimeout); err != nil && IsFatal(err) {
		return false, err
	}
	return true, nil
}

// fillField applies one field. A required field with an empty configured
// value (or a missing artifact on disk) fails without touching the form.
func (f *FormFiller) fillField(ctx context.Context, field FormField) error {
	switch field.Kind {
	case FieldCheckbox:
		return f.checkOnce(ctx, field.Selector)
	case FieldFile:
		if field.Value == "" {
			return fmt.Errorf("no file configured")
		}
		if _, err := os.Stat(field.Value); err != nil {
			return fmt.Errorf("artifact missing on disk: %w", err)
		}
		return f.drv.SetInputFile(ctx, field.Selector, field.Value)
	case FieldSelect:
		if field.Value == "" {
			if field.Required {
				return fmt.Errorf("no value configured")
			}
			return nil
		}
		return f.drv.SelectOption(ctx, field.Selector, field.Value)
	default:
		if field.Value == "" {
			if field.Required {
				return fmt.Errorf("no value configured")
			}
			return nil
		}
		return f.drv.Fill(ctx, field.Selector, field.Value)
	}
}

// checkOnce ticks a checkbox only if it is not already checked, so a re-fill
// after a partial failure cannot untick it.
func (f *FormFiller) checkOnce(ctx context.Context, selector string) error {
	checked, err := f.drv.GetAttribute(ctx, selector, "checked")
	if err != nil {
		return err
	}
	if checked != "" {
		return nil
	}
	return f.drv.Click(ctx, selector)
}

// waitForDropdowns blocks until every dynamic dropdown reports at least one
// option, bounded by the configured option wait.
func (f *FormFiller) waitForDropdowns(ctx context.Context) error {
	for _, sel := range dynamicDropdowns {
		expr := fmt.Sprintf(`
            (function(sel) {
                const el = document.querySelector(sel);
                return !!el && el.options.length > 0;
            })(%q)`, sel)
		if err := f.drv.WaitForCondition(ctx, expr, f.cfg.Network.OptionWait); err != nil {
			return fmt.Errorf("dropdown %s: %w", sel, err)
		}
	}
	return nil
}

// captureSnapshot dumps a screenshot for operator debugging. Best effort;
// a no-op from the state machine's perspective.
func (f *FormFiller) captureSnapshot(ctx context.Context) {
	png, err := f.drv.Screenshot(ctx)
	if err != nil {
		f.logger.Debug("Diagnostic screenshot failed", zap.Error(err))
		return
	}
	if err := os.MkdirAll(f.snapshotDir, 0o755); err != nil {
		f.logger.Debug("Could not create snapshot dir", zap.Error(err))
		return
	}
	name := filepath.Join(f.snapshotDir, fmt.Sprintf("form-%s.png", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(name, png, 0o644); err != nil {
		f.logger.Debug("Could not write snapshot", zap.Error(err))
		return
	}
	f.logger.Info("Diagnostic snapshot captured", zap.String("path", name))
}

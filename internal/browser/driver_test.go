// File: internal/browser/driver_test.go
package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTargetClosed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", ErrTargetClosed, true},
		{"wrapped sentinel", fmt.Errorf("click: %w", ErrTargetClosed), true},
		{"chromedp target closed", errors.New("chromedp: target closed"), true},
		{"browser closed", errors.New("browser closed before run"), true},
		{"websocket close", errors.New("websocket: close 1006 (abnormal closure)"), true},
		{"dead transport", errors.New("write: use of closed network connection"), true},
		{"launch failure", errors.New("chrome failed to start:"), true},
		{"cancelled waiting for target", errors.New("context canceled while waiting for target"), true},
		{"plain timeout", context.DeadlineExceeded, false},
		{"plain cancel", context.Canceled, false},
		{"unrelated error", errors.New("could not find node"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsTargetClosed(tt.err))
		})
	}
}

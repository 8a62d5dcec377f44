// File: internal/bot/routes_test.go
package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "https://prenotami.esteri.it/Services/Booking/4996", BookingURL("4996"))
}

func TestIsCaptchaHost(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		url  string
		want bool
	}{
		{"vendor apex", "https://captcha-delivery.com/captcha/?initialCid=abc", true},
		{"vendor subdomain", "https://geo.captcha-delivery.com/captcha/", true},
		{"portal", "https://prenotami.esteri.it/Services", false},
		{"lookalike host", "https://notcaptcha-delivery.com/", false},
		{"vendor mentioned in query only", "https://prenotami.esteri.it/?next=captcha-delivery.com", false},
		{"relative url", "/Services/Booking/4996", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, isCaptchaHost(tt.url))
		})
	}
}

func TestRoutePredicates(t *testing.T) {
	t.Parallel()

	base := "https://prenotami.esteri.it"

	assert.True(t, isErrorPath(base+"/Home/Error?code=500"))
	assert.False(t, isErrorPath(base+"/Services"))

	assert.True(t, isBookingFormURL(base+"/Services/Booking/4996"))
	assert.False(t, isBookingFormURL(base+"/Services"))
	// The calendar keeps the booking path but is its own route.
	assert.False(t, isBookingFormURL(base+"/Services/Booking/4996/BookingCalendar"))

	assert.True(t, isCalendarURL(base+"/Services/Booking/4996/BookingCalendar"))
	assert.True(t, isCalendarURL(base+"/BookingCalendar?selected=2026-09-01"))
	assert.False(t, isCalendarURL(base+"/Services/Booking/4996"))
}

func TestClassificationRoute(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cls  Classification
		want Route
	}{
		{"captcha dominates everything", Classification{CaptchaPage: true, CurrentURL: BookingURL("4996")}, RouteCaptcha},
		{"calendar", Classification{LoggedIn: true, CurrentURL: BookingURL("4996") + "/BookingCalendar"}, RouteCalendar},
		{"booking form", Classification{LoggedIn: true, CurrentURL: BookingURL("4996")}, RouteBookingForm},
		{"dashboard", Classification{LoggedIn: true, CurrentURL: BaseURL + "/UserArea"}, RouteOther},
		{"blank page", Classification{}, RouteOther},
		{"error page routes as other", Classification{ErrorPage: true, CurrentURL: BaseURL + "/Home/Error"}, RouteOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cls.Route())
		})
	}
}

func TestRouteString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "captcha", RouteCaptcha.String())
	assert.Equal(t, "booking_form", RouteBookingForm.String())
	assert.Equal(t, "calendar", RouteCalendar.String())
	assert.Equal(t, "other", RouteOther.String())
}

// File: internal/bot/routes.go
package bot

import (
	"net/url"
	"strings"
)

// Portal locations and page markers. Everything the loop decides on is
// derived from these; a portal-side rename is a one-line change here.
const (
	// BaseURL is the booking portal root; it doubles as the login page.
	BaseURL = "https://prenotami.esteri.it"

	// loggedInToken appears in the body element's class attribute while the
	// session is authenticated.
	loggedInToken = "loggedin"

	// errorPathMarker shows up in the URL path when the server rejects a
	// booking attempt (typically a slot closing mid-request).
	errorPathMarker = "/Home/Error"

	// captchaHostSuffix is the anti-bot vendor domain the portal's WAF
	// interstitial resolves to.
	captchaHostSuffix = "captcha-delivery.com"

	// bookingPathPrefix is the path of the booking form resource.
	bookingPathPrefix = "/Services/Booking/"

	// calendarPathMarker identifies the slot calendar, the handover point.
	calendarPathMarker = "/BookingCalendar"
)

// Login page form controls.
const (
	loginEmailSelector    = "#login-email"
	loginPasswordSelector = "#login-password"
	loginSubmitSelector   = "#login-form button[type='submit']"
)

// confirmDialogSelector is the jconfirm popup button that sporadically
// appears after rejected booking attempts.
const confirmDialogSelector = ".jconfirm-buttons button.btn.btn-blue"

// Language switch anchors; the active one carries the "active" class.
const (
	langEnglishSelector = "a[href*='/Language/ChangeLanguage?lang=2']"
	langItalianSelector = "a[href*='/Language/ChangeLanguage?lang=1']"
)

// BookingURL returns the booking form resource for a service id.
func BookingURL(serviceID string) string {
	return BaseURL + bookingPathPrefix + serviceID
}

// isCaptchaHost reports whether rawURL resolves to the anti-bot vendor.
func isCaptchaHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == captchaHostSuffix || strings.HasSuffix(host, "."+captchaHostSuffix)
}

// isErrorPath reports whether rawURL carries the server's error marker.
func isErrorPath(rawURL string) bool {
	return strings.Contains(rawURL, errorPathMarker)
}

// isBookingFormURL reports whether rawURL is the booking form resource.
func isBookingFormURL(rawURL string) bool {
	return strings.Contains(rawURL, bookingPathPrefix) && !isCalendarURL(rawURL)
}

// isCalendarURL reports whether rawURL is the slot calendar.
func isCalendarURL(rawURL string) bool {
	return strings.Contains(rawURL, calendarPathMarker)
}

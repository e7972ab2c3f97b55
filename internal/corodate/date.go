// Package corodate formats the RFC 1123 timestamps used in the Date and
// Expires response headers. spec.md names these as an external
// date-formatting collaborator; they must be exactly 29 bytes.
package corodate

import "time"

// Layout is the RFC 1123 layout used for Date/Expires headers, always
// rendered in GMT and always exactly 29 bytes long.
const Layout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Length is the fixed byte length of a value formatted with Layout.
const Length = 29

// Format renders t in RFC 1123 GMT form.
func Format(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Now renders the current time in RFC 1123 GMT form.
func Now() string {
	return Format(time.Now())
}

// Expires renders a time d in the future in RFC 1123 GMT form.
func Expires(d time.Duration) string {
	return Format(time.Now().Add(d))
}

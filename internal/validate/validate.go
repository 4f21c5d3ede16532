// Package validate holds the pure field validators shared by the wizard
// steps. Structural DTO validation on the HTTP surface uses
// go-playground/validator; these functions cover the domain rules that
// struct tags cannot express.
package validate

import (
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// International format with optional +, 7-15 digits, spaces and dashes tolerated.
	phoneRe  = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,17}[0-9]$`)
	postalRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 \-]{2,9}$`)
)

// Email reports whether s looks like a deliverable email address.
func Email(s string) bool {
	return emailRe.MatchString(strings.TrimSpace(s))
}

// Phone reports whether s is a plausible international phone number.
func Phone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// PostalCode reports whether s is a plausible postal code. The EU side uses
// many national formats, so this is deliberately permissive.
func PostalCode(s string) bool {
	return postalRe.MatchString(strings.TrimSpace(s))
}

// NotBlank reports whether s contains any non-whitespace content.
func NotBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Positive reports whether v is strictly greater than zero.
func Positive(v float64) bool {
	return v > 0
}

// PositiveInt reports whether v is strictly greater than zero.
func PositiveInt(v int) bool {
	return v > 0
}

// Parcel physical limits, in cm and kg. Anything outside these bounds is a
// data entry error rather than a real parcel.
const (
	DimensionMinCM = 1
	DimensionMaxCM = 400
	WeightMinKG    = 0.1
	WeightMaxKG    = 1000
)

// Dimension reports whether a single parcel dimension in cm is within the
// accepted range.
func Dimension(cm float64) bool {
	return cm >= DimensionMinCM && cm <= DimensionMaxCM
}

// Weight reports whether a parcel weight in kg is within the accepted range.
func Weight(kg float64) bool {
	return kg >= WeightMinKG && kg <= WeightMaxKG
}

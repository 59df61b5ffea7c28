package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrZipEmpty is returned when the zip code is empty or whitespace-only after trim.
var ErrZipEmpty = errors.New("zip code is required")

// ErrZipFormat is returned when the zip code is not exactly five digits.
var ErrZipFormat = errors.New("zip code must be 5 digits")

// ErrRadiusNotPositive is returned when the radius is zero or negative.
var ErrRadiusNotPositive = errors.New("radius must be positive")

// ErrRadiusTooLarge is returned when the radius exceeds the configured maximum.
var ErrRadiusTooLarge = errors.New("radius too large")

// ValidateZip trims the input and enforces the US 5-digit format. Returns
// the trimmed string. Whether the zip actually exists is the resolver's
// concern, not this function's.
func ValidateZip(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrZipEmpty
	}
	if len(s) != 5 {
		return "", ErrZipFormat
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return "", ErrZipFormat
		}
	}
	return s, nil
}

// ValidateRadius enforces 0 < radiusMiles <= maxMiles. maxMiles <= 0
// disables the upper bound.
func ValidateRadius(radiusMiles, maxMiles float64) error {
	if radiusMiles <= 0 {
		return fmt.Errorf("%w, got %g", ErrRadiusNotPositive, radiusMiles)
	}
	if maxMiles > 0 && radiusMiles > maxMiles {
		return fmt.Errorf("%w: %g exceeds %g miles", ErrRadiusTooLarge, radiusMiles, maxMiles)
	}
	return nil
}

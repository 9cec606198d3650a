package utils

import (
	"fmt"
	"regexp"
	"time"
)

// EIN (12-3456789) or SSN (123-45-6789) shapes; payer tax IDs arrive in
// either format.
var taxIDRegex = regexp.MustCompile(`^\d{2}-\d{7}$|^\d{3}-\d{2}-\d{4}$`)

var controlCharsRegex = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidateTaxID validates a US EIN or SSN formatted tax identifier.
func ValidateTaxID(taxID string) error {
	if !taxIDRegex.MatchString(taxID) {
		return fmt.Errorf("tax ID must be EIN (12-3456789) or SSN (123-45-6789) format: %s", taxID)
	}
	return nil
}

// ValidateTaxYear rejects years outside the plausible filing range.
func ValidateTaxYear(year int) error {
	if year < 2000 || year > time.Now().Year()+1 {
		return fmt.Errorf("tax year out of range: %d", year)
	}
	return nil
}

// SanitizeString removes control characters from user-supplied text before
// it lands in rendered artifacts.
func SanitizeString(s string) string {
	return controlCharsRegex.ReplaceAllString(s, "")
}

package alpr

import (
	"fmt"
	"unicode"
)

// Validator resolves a plate string against a registry. Validation is
// total: unknown or malformed plates resolve to StatusOther with an
// explanatory message, never an error.
type Validator interface {
	Validate(plate string) ValidationResult
}

// RegistryValidator is the built-in registry policy. Jurisdiction is
// inferred from plate length and standing from the final character; a
// real deployment replaces this with a registry API client behind the
// same interface. The mapping is load-bearing for compatibility tests
// and must not be altered in place.
type RegistryValidator struct{}

// NewRegistryValidator returns the built-in registry policy.
func NewRegistryValidator() *RegistryValidator {
	return &RegistryValidator{}
}

// Validate maps a plate string to a ValidationResult. Plates of six
// characters or fewer are treated as EU format, longer ones as US.
// Standing is derived from the final character: a non-digit resolves to
// other, and digits bucket as 7-9 valid, 4-6 expired, 2-3 suspended,
// 0-1 other.
func (rv *RegistryValidator) Validate(plate string) ValidationResult {
	if plate == "" {
		return ValidationResult{
			Status:  StatusOther,
			Details: "empty plate number",
		}
	}

	runes := []rune(plate)

	region := "US"
	if len(runes) <= 6 {
		region = "EU"
	}

	last := runes[len(runes)-1]
	if !unicode.IsDigit(last) {
		return ValidationResult{
			Status:  StatusOther,
			Region:  region,
			Details: fmt.Sprintf("no registry match for plate %s", plate),
		}
	}

	var result ValidationResult
	switch digit := last - '0'; {
	case digit >= 7:
		result = ValidationResult{
			IsValid: true,
			Status:  StatusValid,
			Details: "registration active",
		}
	case digit >= 4:
		result = ValidationResult{
			Status:  StatusExpired,
			Details: "registration expired",
		}
	case digit >= 2:
		result = ValidationResult{
			Status:  StatusSuspended,
			Details: "registration suspended",
		}
	default:
		result = ValidationResult{
			Status:  StatusOther,
			Details: fmt.Sprintf("no registry match for plate %s", plate),
		}
	}

	result.Region = region
	return result
}

package utils

import (
	"errors"
	"regexp"
)

// Stop, route and mode IDs across the subway and both railroads are short
// alphanumerics, sometimes with a platform suffix or a dash.
var validIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

const maxIDLength = 100

// ValidateID validates that an ID is safe and within reasonable limits
func ValidateID(id string) error {
	if id == "" {
		return errors.New("id cannot be empty")
	}

	if len(id) > maxIDLength {
		return errors.New("id too long (max 100 characters)")
	}

	if !validIDPattern.MatchString(id) {
		return errors.New("id contains invalid characters")
	}

	return nil
}

// ValidateIDs checks each named ID and collects failures by field name.
// Empty optional IDs are skipped when optional lists their field.
func ValidateIDs(ids map[string]string, optional ...string) map[string][]string {
	fieldErrors := make(map[string][]string)
	skip := make(map[string]bool, len(optional))
	for _, field := range optional {
		skip[field] = true
	}

	for field, id := range ids {
		if id == "" && skip[field] {
			continue
		}
		if err := ValidateID(id); err != nil {
			fieldErrors[field] = append(fieldErrors[field], err.Error())
		}
	}
	return fieldErrors
}

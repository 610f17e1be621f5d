package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateID validates a record identifier received from a client
// (proposal ids, agent ids).
//
// The rules are conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - Maximum length of 128 characters
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return New(ErrCodeInvalidInput, "id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "id contains invalid control characters")
		}
	}

	return nil
}

// tableNameRegex matches plain lowercase SQL identifiers.
var tableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateTableName validates a table name that will be interpolated into
// a query or used as a collection name. Only plain lowercase identifiers
// are accepted.
func ValidateTableName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidTable, "table name cannot be empty")
	}
	if !tableNameRegex.MatchString(name) {
		return New(ErrCodeInvalidTable, "invalid table name: %q", name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

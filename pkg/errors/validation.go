package errors

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidateSnapshotID checks that id is a canonical UUID as issued by the
// snapshot store. Anything else is rejected before it reaches a backend query.
func ValidateSnapshotID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "snapshot id cannot be empty")
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid snapshot id %q", id)
	}
	if parsed.String() != strings.ToLower(id) {
		return New(ErrCodeInvalidInput, "snapshot id must be in canonical form: %q", id)
	}
	return nil
}

// ValidateOutputPath validates a file path passed for CLI output.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "output path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "output path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output path contains invalid characters")
		}
	}

	return nil
}

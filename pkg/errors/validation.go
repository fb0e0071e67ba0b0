package errors

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxNodeIDLength bounds author-assigned node ids.
const maxNodeIDLength = 128

// ValidateNodeID reports ids that a game runtime is likely to mishandle.
// The dialogue package stores ids as typed and only warns on this error.
//
// The empty id is valid: it marks a node as unaddressable. Non-empty ids
// are reported when they:
//   - Exceed 128 characters
//   - Contain whitespace or control characters
//
// Uniqueness is not checked here; see the dialogue package for duplicate
// detection.
func ValidateNodeID(id string) error {
	if id == "" {
		return nil
	}

	if utf8.RuneCountInString(id) > maxNodeIDLength {
		return New(ErrCodeInvalidNodeID, "node id too long (max %d characters)", maxNodeIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidNodeID, "node id contains invalid control characters")
		}
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidNodeID, "node id contains whitespace: %q", id)
		}
	}

	return nil
}

// ValidateSpeakerName validates a speaker registry key.
// Names must be non-empty, at most 64 characters and free of whitespace.
func ValidateSpeakerName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "speaker name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidConfig, "speaker name too long (max 64 characters)")
	}
	if strings.IndexFunc(name, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return New(ErrCodeInvalidConfig, "speaker name contains invalid characters: %q", name)
	}
	return nil
}

// ValidateExportPath validates a local export destination.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Must not name a directory (trailing separator)
func ValidateExportPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "path must name a file, not a directory")
	}

	return nil
}

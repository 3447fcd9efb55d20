package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateCoordinatePart validates one segment of a Maven coordinate
// (groupId, artifactId, version, type or classifier).
//
// Segments end up in repository paths, so the rules reject anything that
// could escape the repository layout:
//   - No empty segments
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - No whitespace or colons
//   - Maximum length of 256 characters
func ValidateCoordinatePart(kind, value string) error {
	if value == "" {
		return New(ErrCodeInvalidCoordinate, "%s cannot be empty", kind)
	}

	if len(value) > 256 {
		return New(ErrCodeInvalidCoordinate, "%s too long (max 256 characters)", kind)
	}

	for _, r := range value {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidCoordinate, "%s contains invalid characters: %q", kind, value)
		}
	}

	for _, pattern := range []string{"..", "/", "\\", ":"} {
		if strings.Contains(value, pattern) {
			return New(ErrCodeInvalidCoordinate, "%s contains invalid sequence %q: %q", kind, pattern, value)
		}
	}

	return nil
}

// propertyRef matches an uninterpolated Maven property such as ${project.version}.
var propertyRef = regexp.MustCompile(`\$\{[^}]*\}`)

// ValidateVersion validates a concrete (interpolated) artifact version.
// Version ranges ("[1.0,2.0)") and unresolved properties are rejected.
func ValidateVersion(version string) error {
	if err := ValidateCoordinatePart("version", version); err != nil {
		return err
	}
	if propertyRef.MatchString(version) {
		return New(ErrCodeInvalidCoordinate, "version has unresolved property: %q", version)
	}
	if strings.ContainsAny(version, "[](),") {
		return New(ErrCodeUnsupported, "version ranges are not supported: %q", version)
	}
	return nil
}

// ValidatePath validates a file path relative to a repository root.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
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

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// ValidateURL validates a repository URL string.
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

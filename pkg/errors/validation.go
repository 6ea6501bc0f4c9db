package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxResolution bounds the square texture resolution accepted for a bake.
const MaxResolution = 16384

// outputNameRegex matches names safe to embed in image, material and file names.
var outputNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateOutputName validates the base name used for images, materials and files.
// Output names become file name prefixes, so path separators and traversal
// sequences are rejected.
func ValidateOutputName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "output name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidName, "output name too long (max 128 characters)")
	}
	if strings.Contains(name, "..") {
		return New(ErrCodeInvalidName, "output name contains invalid characters: %q", "..")
	}
	if !outputNameRegex.MatchString(name) {
		return New(ErrCodeInvalidName, "invalid output name: %q", name)
	}
	return nil
}

// ValidateObjectName validates a scene object identifier.
//
// Object names come from the scene and are more permissive than output
// names (spaces are common), but control characters and path separators
// would leak into per-object file names in separate mode.
func ValidateObjectName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidName, "object name cannot be empty")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "object name contains invalid control characters")
		}
	}
	if strings.ContainsAny(name, "/\\") {
		return New(ErrCodeInvalidName, "object name cannot contain path separators: %q", name)
	}
	return nil
}

// ValidatePath validates a file system path taken from configuration.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateResolution checks a square texture resolution.
func ValidateResolution(res int) error {
	if res <= 0 {
		return New(ErrCodeInvalidResolution, "resolution must be positive, got %d", res)
	}
	if res > MaxResolution {
		return New(ErrCodeInvalidResolution, "resolution %d exceeds maximum %d", res, MaxResolution)
	}
	return nil
}

package sanitize

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrPathTraversal indicates a path contains or resolves to "..".
	ErrPathTraversal = errors.New("path contains directory traversal")

	// ErrNullByte indicates a path contains a NUL character.
	ErrNullByte = errors.New("path contains a null byte")

	// ErrEmptyPath indicates an empty path was provided.
	ErrEmptyPath = errors.New("path cannot be empty")
)

// ValidatePath rejects empty paths, NUL bytes and ".." segments, and
// returns the cleaned absolute path. With a non-empty allowedRoot the
// path must also resolve inside that directory.
func ValidatePath(path, allowedRoot string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if strings.ContainsRune(path, 0) {
		return "", ErrNullByte
	}
	// Checked on the raw input too: Clean would fold "a/../b" away.
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: contains '..'", ErrPathTraversal)
	}

	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if allowedRoot == "" {
		return absPath, nil
	}

	absRoot, err := filepath.Abs(allowedRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve allowed root: %w", err)
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path escapes %s", ErrPathTraversal, allowedRoot)
	}
	return absPath, nil
}

// SafeBasename returns the base name of a validated path.
// Use it instead of filepath.Base on untrusted input.
func SafeBasename(path string) (string, error) {
	cleanPath, err := ValidatePath(path, "")
	if err != nil {
		return "", err
	}
	base := filepath.Base(cleanPath)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("%w: invalid path base", ErrPathTraversal)
	}
	return base, nil
}

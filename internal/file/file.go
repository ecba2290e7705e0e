package file

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const appDirPerm os.FileMode = 0o750

// EnsureDir creates the directory and its parents if they do not exist.
func EnsureDir(dirPath string) error {
	if dirPath == "" {
		return errors.New("empty dir path")
	}
	if err := os.MkdirAll(dirPath, appDirPerm); err != nil { //nolint:gosec // app-owned download root
		return fmt.Errorf("ensure dir: %w", err)
	}
	return nil
}

// SanitizeName keeps letters, numbers, spaces, hyphens and underscores,
// then trims surrounding whitespace.
func SanitizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// SanitizeOr sanitizes name and returns fallback when nothing is left.
func SanitizeOr(name, fallback string) string {
	if safe := SanitizeName(name); safe != "" {
		return safe
	}
	return fallback
}

package util

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidFileName is returned for names that cannot be stored safely.
var ErrInvalidFileName = errors.New("invalid file name")

const maxFileNameLen = 255

// SanitizeFileName flattens a client-supplied name into a single path segment.
// A "." or ".." path element is rejected as traversal; dots inside an element
// ("report..final.pdf") are kept. Names made only of dots are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })
	for _, part := range parts {
		if part == "." || part == ".." {
			return "", ErrInvalidFileName
		}
	}
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)

	if s == "" || strings.Trim(s, ".") == "" {
		return "", ErrInvalidFileName
	}
	if len(s) > maxFileNameLen {
		return "", ErrInvalidFileName
	}
	return s, nil
}

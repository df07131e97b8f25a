package projectname

import (
	"errors"
	"strings"
	"unicode"
)

var (
	ErrEmpty        = errors.New("project name is required")
	ErrUnsafeChars  = errors.New("project name must not contain slashes, colons or whitespace")
	unsafeSeparator = "/\\:"
)

// Validate reports whether name is usable as a script file stem.
func Validate(name string) error {
	if name == "" {
		return ErrEmpty
	}
	for _, r := range name {
		if strings.ContainsRune(unsafeSeparator, r) || unicode.IsSpace(r) {
			return ErrUnsafeChars
		}
	}
	return nil
}

// Sanitize maps every rune outside [A-Za-z0-9._-] to '_'.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "project"
	}
	return out
}

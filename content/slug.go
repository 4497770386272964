package content

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxSlugLen = 200

// Slugify converts a title into a URL-safe slug. Letters of any script are
// kept (Hangul titles stay Hangul), whitespace becomes a dash and all other
// punctuation is dropped.
func Slugify(s string) string {
	s = strings.ToLower(norm.NFC.String(strings.TrimSpace(s)))
	var b strings.Builder
	dash := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			b.WriteRune(r)
			dash = false
		case r == '-' || unicode.IsSpace(r):
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ValidateSlug reports whether slug can be used as a file base name inside a
// content directory.
func ValidateSlug(slug string) error {
	switch {
	case slug == "":
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	case len(slug) > maxSlugLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidSlug, maxSlugLen)
	case strings.HasPrefix(slug, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidSlug, slug)
	case strings.ContainsAny(slug, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSlug, slug)
	}
	return nil
}

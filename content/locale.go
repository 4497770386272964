package content

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// Locales is the set of languages posts are published in.
type Locales struct {
	supported []string
	def       string
}

// NewLocales builds a locale set. The default must be one of supported.
func NewLocales(supported []string, def string) (Locales, error) {
	if len(supported) == 0 {
		return Locales{}, fmt.Errorf("locales: at least one locale is required")
	}
	out := make([]string, 0, len(supported))
	for _, l := range supported {
		l = strings.ToLower(strings.TrimSpace(l))
		if _, err := language.Parse(l); err != nil {
			return Locales{}, fmt.Errorf("locales: %q: %w", l, err)
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" {
		def = out[0]
	}
	if !slices.Contains(out, def) {
		return Locales{}, fmt.Errorf("locales: default %q is not in %v", def, out)
	}
	return Locales{supported: out, def: def}, nil
}

// All returns the supported locales in configuration order.
func (l Locales) All() []string { return slices.Clone(l.supported) }

// Default returns the fallback locale.
func (l Locales) Default() string { return l.def }

// Supports reports whether locale is configured.
func (l Locales) Supports(locale string) bool {
	return slices.Contains(l.supported, locale)
}

// Resolve returns locale when it is supported and the default otherwise.
func (l Locales) Resolve(locale string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if l.Supports(locale) {
		return locale
	}
	return l.def
}

// LanguageTag maps a locale to a language-REGION tag suitable for RSS
// <language> and html lang attributes, e.g. "ko" -> "ko-KR".
func LanguageTag(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return locale
	}
	base, _ := tag.Base()
	region, conf := tag.Region()
	if conf == language.No {
		return base.String()
	}
	return base.String() + "-" + region.String()
}

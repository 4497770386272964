package blog

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/labstack/echo/v4"

	"github.com/jinukeu/blog/content"
)

// BuildURL joins a base URL with path segments. Segments are escaped, so
// Hangul slugs produce valid links.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// bindValid decodes the JSON body into req and runs its validation rules.
func bindValid(c echo.Context, req validation.Validatable) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return req.Validate()
}

// queryLocale resolves ?locale= for reads: unknown values fall back to the
// default locale.
func (a *App) queryLocale(c echo.Context) string {
	return a.Content.Locales().Resolve(c.QueryParam("locale"))
}

// targetLocale resolves ?locale= for writes. An empty value selects the
// default locale but an unsupported one is rejected.
func (a *App) targetLocale(c echo.Context) (string, error) {
	l := strings.TrimSpace(c.QueryParam("locale"))
	if l == "" {
		return a.Content.Locales().Default(), nil
	}
	if !a.Content.Locales().Supports(l) {
		return "", fmt.Errorf("%w: %q", content.ErrUnsupportedLocale, l)
	}
	return l, nil
}

// cleanFrontmatter trims list fields coming from the editor.
func cleanFrontmatter(fm content.Frontmatter) content.Frontmatter {
	fm.Title = strings.TrimSpace(fm.Title)
	fm.Tags = FilterEmpty(fm.Tags)
	fm.SEOKeywords = FilterEmpty(fm.SEOKeywords)
	fm.MainCategories = FilterEmpty(fm.MainCategories)
	fm.SubCategories = FilterEmpty(fm.SubCategories)
	return fm
}

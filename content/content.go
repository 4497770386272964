// Package content is the file-backed repository behind the blog: published
// posts (one directory per locale), drafts, the draft publish workflow and the
// JSON category store.
//
// Everything lives under a single root directory:
//
//	posts/<locale>/<slug>.md
//	drafts/<slug>.md
//	data/categories.json
//	public/images/{drafts,posts}/<file>
//
// Repository functions never log; they return wrapped errors that callers can
// match with errors.Is against the sentinels below.
package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a post, draft or category does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSlug is returned for slugs that cannot name a file.
	ErrInvalidSlug = errors.New("invalid slug")
	// ErrCategoryExists is returned when a category name is already taken.
	ErrCategoryExists = errors.New("category already exists")
	// ErrUnknownCategory is returned when a document references a category id
	// that is not defined in the category store.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrUnsupportedLocale is returned for locales outside the configured set.
	ErrUnsupportedLocale = errors.New("unsupported locale")
	// ErrInvalidName is returned for blank category names.
	ErrInvalidName = errors.New("invalid category name")
	// ErrInvalidKind is returned for category kinds other than main and sub.
	ErrInvalidKind = errors.New(`invalid category type, use "main" or "sub"`)
	// ErrCorruptCategories is returned when categories.json does not match its schema.
	ErrCorruptCategories = errors.New("categories file is corrupt")
)

// CategoryInUseError reports the documents that still reference a category
// which was asked to be deleted without force.
type CategoryInUseError struct {
	ID     string
	UsedIn []string
}

func (e *CategoryInUseError) Error() string {
	return fmt.Sprintf("category %s is used by %d document(s): %s", e.ID, len(e.UsedIn), strings.Join(e.UsedIn, ", "))
}

// PostMeta is the listing view of a post or draft.
type PostMeta struct {
	Slug           string   `json:"slug"`
	Locale         string   `json:"locale,omitempty"`
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	Excerpt        string   `json:"excerpt"`
	Tags           []string `json:"tags,omitempty"`
	Author         string   `json:"author,omitempty"`
	ReadTime       string   `json:"readTime,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	MainCategories []string `json:"mainCategories,omitempty"`
	SubCategories  []string `json:"subCategories,omitempty"`
	SEOKeywords    []string `json:"seoKeywords,omitempty"`
	// UpdatedAt is only set for drafts (file modification time, RFC3339).
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// Post is a post or draft with its raw markdown body.
type Post struct {
	PostMeta
	Body string `json:"-"`
}

// Source is the editable form of a document: the markdown body and the
// complete frontmatter, unknown keys included.
type Source struct {
	Content     string      `json:"content"`
	Frontmatter Frontmatter `json:"frontmatter"`
}

func metaFrom(slug, locale string, fm Frontmatter) PostMeta {
	return PostMeta{
		Slug:           slug,
		Locale:         locale,
		Title:          fm.Title,
		Date:           fm.Date,
		Excerpt:        fm.Excerpt,
		Tags:           fm.Tags,
		Author:         fm.Author,
		ReadTime:       fm.ReadTime,
		Thumbnail:      fm.Thumbnail,
		MainCategories: fm.MainCategories,
		SubCategories:  fm.SubCategories,
		SEOKeywords:    fm.SEOKeywords,
	}
}

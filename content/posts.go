package content

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ListPosts returns the published posts of locale, newest date first.
func (s *Store) ListPosts(locale string) ([]PostMeta, error) {
	if err := s.checkLocale(locale); err != nil {
		return nil, err
	}
	docs, err := readDocuments(s.postsDir(locale))
	if err != nil {
		return nil, err
	}
	posts := make([]PostMeta, 0, len(docs))
	for _, d := range docs {
		posts = append(posts, metaFrom(d.slug, locale, d.fm))
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Date > posts[j].Date
	})
	return posts, nil
}

// ListAllPosts returns the posts of every locale, grouped in locale order.
func (s *Store) ListAllPosts(ctx context.Context) ([]PostMeta, error) {
	locales := s.locales.All()
	out := make([][]PostMeta, len(locales))
	g, ctx := errgroup.WithContext(ctx)
	for i, l := range locales {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			posts, err := s.ListPosts(l)
			out[i] = posts
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var all []PostMeta
	for _, posts := range out {
		all = append(all, posts...)
	}
	return all, nil
}

// ListSlugs returns the slugs published in locale.
func (s *Store) ListSlugs(locale string) ([]string, error) {
	posts, err := s.ListPosts(locale)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(posts))
	for i, p := range posts {
		slugs[i] = p.Slug
	}
	return slugs, nil
}

// GetPost returns a published post with its markdown body.
func (s *Store) GetPost(slug, locale string) (Post, error) {
	d, err := s.readPost(slug, locale)
	if err != nil {
		return Post{}, err
	}
	return Post{PostMeta: metaFrom(slug, locale, d.fm), Body: d.body}, nil
}

// PostSource returns the editable form of a published post.
func (s *Store) PostSource(slug, locale string) (Source, error) {
	d, err := s.readPost(slug, locale)
	if err != nil {
		return Source{}, err
	}
	return Source{Content: d.body, Frontmatter: d.fm}, nil
}

func (s *Store) readPost(slug, locale string) (document, error) {
	if err := ValidateSlug(slug); err != nil {
		return document{}, err
	}
	if err := s.checkLocale(locale); err != nil {
		return document{}, err
	}
	return readDocument(s.postPath(slug, locale))
}

// SavePost creates or replaces a published post. The locale is implied by
// the directory, so a locale key in fm is dropped.
func (s *Store) SavePost(slug, locale, body string, fm Frontmatter) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := s.checkLocale(locale); err != nil {
		return err
	}
	// Held across validation and write so a concurrent category delete
	// cannot remove a category between the check and the write.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ValidateCategories(fm.MainCategories, fm.SubCategories); err != nil {
		return err
	}
	fm.Locale = ""
	return writeDocument(s.postPath(slug, locale), fm, body)
}

// DeletePost removes a published post. Deleting a missing post is not an error.
func (s *Store) DeletePost(slug, locale string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if err := s.checkLocale(locale); err != nil {
		return err
	}
	return removeIfExists(s.postPath(slug, locale))
}

// AvailableLocales returns the locales in which slug is published.
func (s *Store) AvailableLocales(slug string) ([]string, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	var out []string
	for _, l := range s.locales.All() {
		_, err := os.Stat(s.postPath(slug, l))
		switch {
		case err == nil:
			out = append(out, l)
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) postPath(slug, locale string) string {
	return filepath.Join(s.postsDir(locale), slug+mdExt)
}

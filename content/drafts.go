package content

import (
	"path/filepath"
	"sort"
)

// updatedAtLayout matches JavaScript's Date.toISOString.
const updatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// ListDrafts returns every draft, most recently modified first.
func (s *Store) ListDrafts() ([]PostMeta, error) {
	docs, err := readDocuments(s.draftsDir())
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].modTime.Equal(docs[j].modTime) {
			return docs[i].modTime.After(docs[j].modTime)
		}
		return docs[i].fm.Date > docs[j].fm.Date
	})
	drafts := make([]PostMeta, 0, len(docs))
	for _, d := range docs {
		drafts = append(drafts, draftMeta(d))
	}
	return drafts, nil
}

// GetDraft returns a draft with its markdown body.
func (s *Store) GetDraft(slug string) (Post, error) {
	d, err := s.readDraft(slug)
	if err != nil {
		return Post{}, err
	}
	return Post{PostMeta: draftMeta(d), Body: d.body}, nil
}

// DraftSource returns the editable form of a draft.
func (s *Store) DraftSource(slug string) (Source, error) {
	d, err := s.readDraft(slug)
	if err != nil {
		return Source{}, err
	}
	return Source{Content: d.body, Frontmatter: d.fm}, nil
}

// SaveDraft creates or replaces a draft. fm.Locale, when set, selects the
// locale the draft is published into.
func (s *Store) SaveDraft(slug, body string, fm Frontmatter) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	if fm.Locale != "" {
		if err := s.checkLocale(fm.Locale); err != nil {
			return err
		}
	}
	// Held across validation and write so a concurrent category delete
	// cannot remove a category between the check and the write.
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ValidateCategories(fm.MainCategories, fm.SubCategories); err != nil {
		return err
	}
	return writeDocument(s.draftPath(slug), fm, body)
}

// DeleteDraft removes a draft. Deleting a missing draft is not an error.
func (s *Store) DeleteDraft(slug string) error {
	if err := ValidateSlug(slug); err != nil {
		return err
	}
	return removeIfExists(s.draftPath(slug))
}

func (s *Store) readDraft(slug string) (document, error) {
	if err := ValidateSlug(slug); err != nil {
		return document{}, err
	}
	return readDocument(s.draftPath(slug))
}

func (s *Store) draftPath(slug string) string {
	return filepath.Join(s.draftsDir(), slug+mdExt)
}

func draftMeta(d document) PostMeta {
	m := metaFrom(d.slug, d.fm.Locale, d.fm)
	m.UpdatedAt = d.modTime.UTC().Format(updatedAtLayout)
	return m
}

// draftLocale is the locale a draft publishes into.
func (s *Store) draftLocale(fm Frontmatter) string {
	return s.locales.Resolve(fm.Locale)
}

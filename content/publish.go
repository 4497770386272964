package content

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	draftImagePrefix = "/images/drafts/"
	postImagePrefix  = "/images/posts/"
)

// draftImageRef matches markdown images that point into the draft image dir.
var draftImageRef = regexp.MustCompile(`!\[[^\]]*\]\((/images/drafts/[^)\s]+)`)

// Published describes the outcome of PublishDraft.
type Published struct {
	Slug   string   `json:"slug"`
	Locale string   `json:"locale"`
	Images []string `json:"images,omitempty"`
}

// PublishDraft promotes a draft to a published post. Images referenced from
// /images/drafts/ (in the body or as thumbnail) are moved to /images/posts/,
// keeping their path below the prefix, and the references rewritten. A draft
// image that another draft still references is copied but not removed. The
// post is written before the draft and its images are removed, so a failed
// publish leaves the draft usable.
func (s *Store) PublishDraft(slug string) (Published, error) {
	if err := ValidateSlug(slug); err != nil {
		return Published{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.readDraft(slug)
	if err != nil {
		return Published{}, err
	}
	fm := d.fm
	locale := s.draftLocale(fm)

	var moved []string
	seen := make(map[string]bool)
	relocate := func(ref string) (bool, error) {
		rel, ok := draftImagePath(ref)
		if !ok {
			return false, nil
		}
		if seen[rel] {
			return true, nil
		}
		ok, err := s.copyDraftImage(rel)
		if err != nil {
			return false, fmt.Errorf("publish %s: copy image %s: %w", slug, rel, err)
		}
		if ok {
			seen[rel] = true
			moved = append(moved, rel)
		}
		return ok, nil
	}

	for _, m := range draftImageRef.FindAllStringSubmatch(d.body, -1) {
		if _, err := relocate(m[1]); err != nil {
			return Published{}, err
		}
	}
	body := strings.ReplaceAll(d.body, draftImagePrefix, postImagePrefix)

	if rel, ok := draftImagePath(fm.Thumbnail); ok {
		copied, err := relocate(fm.Thumbnail)
		if err != nil {
			return Published{}, err
		}
		// An earlier publish may already have moved a shared image.
		if copied || s.postImageExists(rel) {
			fm.Thumbnail = postImagePrefix + rel
		}
	}

	fm.Locale = ""
	if err := writeDocument(s.postPath(slug, locale), fm, body); err != nil {
		return Published{}, fmt.Errorf("publish %s: write post: %w", slug, err)
	}
	if err := removeIfExists(d.path); err != nil {
		return Published{}, fmt.Errorf("publish %s: remove draft: %w", slug, err)
	}
	shared, err := s.draftImageRefs(slug)
	if err != nil {
		return Published{}, fmt.Errorf("publish %s: scan drafts: %w", slug, err)
	}
	for _, rel := range moved {
		if shared[rel] {
			continue
		}
		if err := removeIfExists(s.draftImageFile(rel)); err != nil {
			return Published{}, fmt.Errorf("publish %s: remove draft image %s: %w", slug, rel, err)
		}
	}
	return Published{Slug: slug, Locale: locale, Images: moved}, nil
}

// draftImagePath returns the slash separated path of ref below
// /images/drafts/. References that escape the directory are rejected.
func draftImagePath(ref string) (string, bool) {
	if !strings.HasPrefix(ref, draftImagePrefix) {
		return "", false
	}
	rel := path.Clean(strings.TrimPrefix(ref, draftImagePrefix))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return "", false
	}
	return rel, true
}

// draftImageRefs collects the draft images referenced by every draft other
// than skip.
func (s *Store) draftImageRefs(skip string) (map[string]bool, error) {
	docs, err := readDocuments(s.draftsDir())
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool)
	for _, d := range docs {
		if d.slug == skip {
			continue
		}
		for _, m := range draftImageRef.FindAllStringSubmatch(d.body, -1) {
			if rel, ok := draftImagePath(m[1]); ok {
				refs[rel] = true
			}
		}
		if rel, ok := draftImagePath(d.fm.Thumbnail); ok {
			refs[rel] = true
		}
	}
	return refs, nil
}

func (s *Store) draftImageFile(rel string) string {
	return filepath.Join(s.imageDir(draftImagePrefix), filepath.FromSlash(rel))
}

func (s *Store) postImageExists(rel string) bool {
	_, err := os.Stat(filepath.Join(s.imageDir(postImagePrefix), filepath.FromSlash(rel)))
	return err == nil
}

// copyDraftImage copies a draft image into the post image dir. It reports
// false when the draft image does not exist.
func (s *Store) copyDraftImage(rel string) (bool, error) {
	dst := filepath.Join(s.imageDir(postImagePrefix), filepath.FromSlash(rel))
	if err := copyFileAtomic(s.draftImageFile(rel), dst); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

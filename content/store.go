package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	postsDir       = "posts"
	draftsDir      = "drafts"
	dataDir        = "data"
	categoriesFile = "categories.json"
	publicDir      = "public"
	mdExt          = ".md"
)

// Store is the content repository rooted at a directory on disk.
type Store struct {
	root    string
	locales Locales
	now     func() time.Time

	// mu serialises operations that rewrite more than one file: publish,
	// category mutations and forced category removal.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for category ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open returns a Store rooted at root, creating the drafts and draft image
// directories when they are missing.
func Open(root string, locales Locales, opts ...Option) (*Store, error) {
	s := &Store{
		root:    filepath.Clean(root),
		locales: locales,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, dir := range []string{s.draftsDir(), s.imageDir(draftImagePrefix)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("content: create %s: %w", dir, err)
		}
	}
	return s, nil
}

// Root returns the content root directory.
func (s *Store) Root() string { return s.root }

// Locales returns the configured locale set.
func (s *Store) Locales() Locales { return s.locales }

// WatchDirs returns the directories whose changes affect published content
// or categories. Missing post directories are created so they can be watched.
func (s *Store) WatchDirs() ([]string, error) {
	dirs := []string{s.draftsDir(), filepath.Join(s.root, dataDir)}
	for _, l := range s.locales.All() {
		dirs = append(dirs, s.postsDir(l))
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("content: create %s: %w", d, err)
		}
	}
	return dirs, nil
}

func (s *Store) postsDir(locale string) string {
	return filepath.Join(s.root, postsDir, locale)
}

func (s *Store) draftsDir() string {
	return filepath.Join(s.root, draftsDir)
}

func (s *Store) categoriesPath() string {
	return filepath.Join(s.root, dataDir, categoriesFile)
}

// imageDir maps a public URL prefix such as /images/drafts/ to its directory.
func (s *Store) imageDir(urlPrefix string) string {
	return filepath.Join(s.root, publicDir, filepath.FromSlash(strings.Trim(urlPrefix, "/")))
}

func (s *Store) checkLocale(locale string) error {
	if !s.locales.Supports(locale) {
		return fmt.Errorf("%w: %q", ErrUnsupportedLocale, locale)
	}
	return nil
}

// document is one parsed markdown file.
type document struct {
	slug    string
	path    string
	fm      Frontmatter
	body    string
	modTime time.Time
}

func readDocument(path string) (document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return document{}, fmt.Errorf("%s: %w", filepath.Base(path), ErrNotFound)
		}
		return document{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return document{}, err
	}
	fm, body, err := ParseDocument(raw)
	if err != nil {
		return document{}, fmt.Errorf("%s: %w", path, err)
	}
	return document{
		slug:    strings.TrimSuffix(filepath.Base(path), mdExt),
		path:    path,
		fm:      fm,
		body:    body,
		modTime: info.ModTime(),
	}, nil
}

// readDocuments parses every *.md file in dir. A missing dir is empty.
func readDocuments(dir string) ([]document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var docs []document
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, mdExt) || strings.HasPrefix(name, ".") {
			continue
		}
		doc, err := readDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func writeDocument(path string, fm Frontmatter, body string) error {
	data, err := EncodeDocument(fm, body)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes data next to path and renames it into place so a
// reader never observes a half-written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func copyFileAtomic(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// docDir is a directory of documents plus the label used to name its
// entries in category usage reports.
type docDir struct {
	path  string
	label func(slug string) string
}

func (s *Store) documentDirs() []docDir {
	var dirs []docDir
	for _, l := range s.locales.All() {
		dirs = append(dirs, docDir{
			path:  s.postsDir(l),
			label: func(slug string) string { return l + "/" + slug },
		})
	}
	return append(dirs, docDir{
		path:  s.draftsDir(),
		label: func(slug string) string { return "draft: " + slug },
	})
}

// scanDocuments reads every post directory and the drafts directory
// concurrently. Results keep documentDirs order.
func (s *Store) scanDocuments(ctx context.Context) ([][]document, []docDir, error) {
	dirs := s.documentDirs()
	out := make([][]document, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	for i, d := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			docs, err := readDocuments(d.path)
			if err != nil {
				return err
			}
			out[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return out, dirs, nil
}

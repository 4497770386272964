package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind distinguishes top-level (main) and secondary (sub) categories.
type Kind string

const (
	KindMain Kind = "main"
	KindSub  Kind = "sub"
)

// ParseKind validates a category kind coming from a request.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindMain, KindSub:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Category is one entry of the category store.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Categories is the on-disk shape of data/categories.json.
type Categories struct {
	Main []Category `json:"mainCategories"`
	Sub  []Category `json:"subCategories"`
}

func (c *Categories) list(kind Kind) *[]Category {
	if kind == KindMain {
		return &c.Main
	}
	return &c.Sub
}

const categoryListSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "slug"],
    "properties": {
      "id": {"type": "string", "minLength": 1},
      "name": {"type": "string"},
      "slug": {"type": "string"}
    }
  }
}`

var categoriesSchema = jsonschema.MustCompileString("categories.schema.json", `{
  "type": "object",
  "required": ["mainCategories", "subCategories"],
  "properties": {
    "mainCategories": `+categoryListSchema+`,
    "subCategories": `+categoryListSchema+`
  }
}`)

// Categories returns the whole category store.
func (s *Store) Categories() (Categories, error) {
	return s.readCategories()
}

// CategoriesOf returns the categories of one kind.
func (s *Store) CategoriesOf(kind Kind) ([]Category, error) {
	all, err := s.readCategories()
	if err != nil {
		return nil, err
	}
	return *all.list(kind), nil
}

// AddCategory creates a category. Names are unique within a kind.
func (s *Store) AddCategory(kind Kind, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readCategories()
	if err != nil {
		return Category{}, err
	}
	list := all.list(kind)
	if slices.ContainsFunc(*list, func(c Category) bool { return c.Name == name }) {
		return Category{}, fmt.Errorf("%w: %q", ErrCategoryExists, name)
	}
	c := Category{ID: s.newCategoryID(kind, *list), Name: name, Slug: Slugify(name)}
	*list = append(*list, c)
	if err := s.writeCategories(all); err != nil {
		return Category{}, err
	}
	return c, nil
}

// UpdateCategory renames a category and recomputes its slug. The id, and
// so every document reference, is unchanged.
func (s *Store) UpdateCategory(kind Kind, id, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readCategories()
	if err != nil {
		return Category{}, err
	}
	list := *all.list(kind)
	idx := slices.IndexFunc(list, func(c Category) bool { return c.ID == id })
	if idx < 0 {
		return Category{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if slices.ContainsFunc(list, func(c Category) bool { return c.Name == name && c.ID != id }) {
		return Category{}, fmt.Errorf("%w: %q", ErrCategoryExists, name)
	}
	list[idx].Name = name
	list[idx].Slug = Slugify(name)
	if err := s.writeCategories(all); err != nil {
		return Category{}, err
	}
	return list[idx], nil
}

// DeleteCategory removes an unused category. When posts or drafts still
// reference it a *CategoryInUseError is returned and nothing changes.
func (s *Store) DeleteCategory(ctx context.Context, kind Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readCategories()
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(*all.list(kind), func(c Category) bool { return c.ID == id }) {
		return fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	used, err := s.categoryUsage(ctx, kind, id)
	if err != nil {
		return err
	}
	if len(used) > 0 {
		return &CategoryInUseError{ID: id, UsedIn: used}
	}
	return s.removeCategory(all, kind, id)
}

// ForceDeleteCategory strips the category from every post and draft that
// references it, then removes it. It returns the rewritten documents.
func (s *Store) ForceDeleteCategory(ctx context.Context, kind Kind, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.readCategories()
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(*all.list(kind), func(c Category) bool { return c.ID == id }) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	groups, dirs, err := s.scanDocuments(ctx)
	if err != nil {
		return nil, err
	}
	var rewritten []string
	for i, docs := range groups {
		for _, d := range docs {
			ids := d.fm.categories(kind)
			if !slices.Contains(*ids, id) {
				continue
			}
			*ids = slices.DeleteFunc(slices.Clone(*ids), func(v string) bool { return v == id })
			if err := writeDocument(d.path, d.fm, d.body); err != nil {
				return rewritten, fmt.Errorf("remove category %s from %s: %w", id, d.path, err)
			}
			rewritten = append(rewritten, dirs[i].label(d.slug))
		}
	}
	return rewritten, s.removeCategory(all, kind, id)
}

// CategoryUsage lists the documents that reference a category, labelled
// "<locale>/<slug>" for posts and "draft: <slug>" for drafts.
func (s *Store) CategoryUsage(ctx context.Context, kind Kind, id string) ([]string, error) {
	return s.categoryUsage(ctx, kind, id)
}

func (s *Store) categoryUsage(ctx context.Context, kind Kind, id string) ([]string, error) {
	groups, dirs, err := s.scanDocuments(ctx)
	if err != nil {
		return nil, err
	}
	var used []string
	for i, docs := range groups {
		for _, d := range docs {
			if slices.Contains(*d.fm.categories(kind), id) {
				used = append(used, dirs[i].label(d.slug))
			}
		}
	}
	return used, nil
}

// ValidateCategories checks that every id refers to an existing category.
func (s *Store) ValidateCategories(mainIDs, subIDs []string) error {
	if len(mainIDs) == 0 && len(subIDs) == 0 {
		return nil
	}
	all, err := s.readCategories()
	if err != nil {
		return err
	}
	if missing := unknownIDs(mainIDs, all.Main); len(missing) > 0 {
		return fmt.Errorf("%w: main %s", ErrUnknownCategory, strings.Join(missing, ", "))
	}
	if missing := unknownIDs(subIDs, all.Sub); len(missing) > 0 {
		return fmt.Errorf("%w: sub %s", ErrUnknownCategory, strings.Join(missing, ", "))
	}
	return nil
}

func unknownIDs(ids []string, defined []Category) []string {
	var missing []string
	for _, id := range ids {
		if !slices.ContainsFunc(defined, func(c Category) bool { return c.ID == id }) {
			missing = append(missing, id)
		}
	}
	return missing
}

func (s *Store) removeCategory(all Categories, kind Kind, id string) error {
	list := all.list(kind)
	*list = slices.DeleteFunc(*list, func(c Category) bool { return c.ID == id })
	return s.writeCategories(all)
}

// newCategoryID returns "<kind>_<unix millis>", bumped past ids already taken.
func (s *Store) newCategoryID(kind Kind, existing []Category) string {
	ms := s.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s_%d", kind, ms)
		if !slices.ContainsFunc(existing, func(c Category) bool { return c.ID == id }) {
			return id
		}
		ms++
	}
}

// readCategories loads categories.json, creating an empty store when the
// file does not exist yet.
func (s *Store) readCategories() (Categories, error) {
	data, err := os.ReadFile(s.categoriesPath())
	if errors.Is(err, fs.ErrNotExist) {
		empty := Categories{Main: []Category{}, Sub: []Category{}}
		if err := s.writeCategories(empty); err != nil {
			return Categories{}, err
		}
		return empty, nil
	}
	if err != nil {
		return Categories{}, fmt.Errorf("read categories: %w", err)
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Categories{}, fmt.Errorf("%w: %v", ErrCorruptCategories, err)
	}
	if err := categoriesSchema.Validate(raw); err != nil {
		return Categories{}, fmt.Errorf("%w: %v", ErrCorruptCategories, err)
	}
	var c Categories
	if err := json.Unmarshal(data, &c); err != nil {
		return Categories{}, fmt.Errorf("%w: %v", ErrCorruptCategories, err)
	}
	return c, nil
}

func (s *Store) writeCategories(c Categories) error {
	if c.Main == nil {
		c.Main = []Category{}
	}
	if c.Sub == nil {
		c.Sub = []Category{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return err
	}
	if err := writeFileAtomic(s.categoriesPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("write categories: %w", err)
	}
	return nil
}

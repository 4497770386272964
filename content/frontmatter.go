package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML metadata block at the top of every post and draft.
// Keys the blog does not know about are kept in Extra so that rewriting a
// file (category removal, publish) never drops them.
type Frontmatter struct {
	Title          string         `yaml:"title,omitempty"`
	Date           string         `yaml:"date,omitempty"`
	Excerpt        string         `yaml:"excerpt,omitempty"`
	Tags           []string       `yaml:"tags,omitempty"`
	Author         string         `yaml:"author,omitempty"`
	ReadTime       string         `yaml:"readTime,omitempty"`
	Thumbnail      string         `yaml:"thumbnail,omitempty"`
	MainCategories []string       `yaml:"mainCategories,omitempty"`
	SubCategories  []string       `yaml:"subCategories,omitempty"`
	SEOKeywords    []string       `yaml:"seoKeywords,omitempty"`
	Locale         string         `yaml:"locale,omitempty"`
	Extra          map[string]any `yaml:",inline"`
}

// frontmatterJSON mirrors Frontmatter without Extra so the JSON form can
// flatten unknown keys next to the known ones.
type frontmatterJSON struct {
	Title          string   `json:"title,omitempty"`
	Date           string   `json:"date,omitempty"`
	Excerpt        string   `json:"excerpt,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Author         string   `json:"author,omitempty"`
	ReadTime       string   `json:"readTime,omitempty"`
	Thumbnail      string   `json:"thumbnail,omitempty"`
	MainCategories []string `json:"mainCategories,omitempty"`
	SubCategories  []string `json:"subCategories,omitempty"`
	SEOKeywords    []string `json:"seoKeywords,omitempty"`
	Locale         string   `json:"locale,omitempty"`
}

var knownKeys = map[string]struct{}{
	"title": {}, "date": {}, "excerpt": {}, "tags": {}, "author": {}, "readTime": {},
	"thumbnail": {}, "mainCategories": {}, "subCategories": {}, "seoKeywords": {}, "locale": {},
}

// MarshalJSON flattens Extra into the object. Known fields win on conflict.
func (fm Frontmatter) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(frontmatterJSON{
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
		Locale:         fm.Locale,
	})
	if err != nil {
		return nil, err
	}
	if len(fm.Extra) == 0 {
		return known, nil
	}
	merged := make(map[string]any, len(fm.Extra)+len(knownKeys))
	for k, v := range fm.Extra {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		merged[k] = v
	}
	var fields map[string]any
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON accepts the flattened form produced by MarshalJSON.
func (fm *Frontmatter) UnmarshalJSON(data []byte) error {
	var known frontmatterJSON
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	*fm = Frontmatter{
		Title:          known.Title,
		Date:           known.Date,
		Excerpt:        known.Excerpt,
		Tags:           known.Tags,
		Author:         known.Author,
		ReadTime:       known.ReadTime,
		Thumbnail:      known.Thumbnail,
		MainCategories: known.MainCategories,
		SubCategories:  known.SubCategories,
		SEOKeywords:    known.SEOKeywords,
		Locale:         known.Locale,
	}
	for k, v := range all {
		if _, ok := knownKeys[k]; ok {
			continue
		}
		if fm.Extra == nil {
			fm.Extra = make(map[string]any)
		}
		fm.Extra[k] = v
	}
	return nil
}

// ParseDocument splits a markdown file into its frontmatter and body. A file
// without a frontmatter block yields a zero Frontmatter and the whole input.
func ParseDocument(raw []byte) (Frontmatter, string, error) {
	var fm Frontmatter
	body, err := frontmatter.Parse(bytes.NewReader(raw), &fm)
	if err != nil {
		return Frontmatter{}, "", fmt.Errorf("parse frontmatter: %w", err)
	}
	for k, v := range fm.Extra {
		fm.Extra[k] = normalizeValue(v)
	}
	return fm, strings.TrimPrefix(string(body), "\n"), nil
}

// EncodeDocument renders fm and body back into a markdown file.
func EncodeDocument(fm Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	if !fm.isZero() {
		meta, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("encode frontmatter: %w", err)
		}
		buf.WriteString("---\n")
		buf.Write(meta)
		buf.WriteString("---\n")
	}
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func (fm Frontmatter) isZero() bool {
	return fm.Title == "" && fm.Date == "" && fm.Excerpt == "" && len(fm.Tags) == 0 &&
		fm.Author == "" && fm.ReadTime == "" && fm.Thumbnail == "" &&
		len(fm.MainCategories) == 0 && len(fm.SubCategories) == 0 &&
		len(fm.SEOKeywords) == 0 && fm.Locale == "" && len(fm.Extra) == 0
}

// categories returns the id list for kind.
func (fm *Frontmatter) categories(kind Kind) *[]string {
	if kind == KindMain {
		return &fm.MainCategories
	}
	return &fm.SubCategories
}

// normalizeValue turns the map[interface{}]interface{} values produced by
// the YAML decoder into map[string]any so they survive JSON encoding.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = normalizeValue(t[i])
		}
		return t
	default:
		return v
	}
}

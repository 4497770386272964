// Package markdown renders post bodies to HTML with goldmark and extracts a
// table of contents in the same pass.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/jinukeu/blog/content"
)

const (
	wordsPerMinute = 200
	// CJK text has no spaces; roughly this many characters make a "word".
	cjkRunesPerWord = 2
)

// Heading is one table-of-contents entry.
type Heading struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

// Rendered is the output of Render.
type Rendered struct {
	HTML           string    `json:"html"`
	TOC            []Heading `json:"toc"`
	ReadingMinutes int       `json:"readingMinutes"`
}

// Posts are written by the admin, so raw HTML is passed through.
var engine = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// headingIDs generates heading anchors from content.Slugify so Hangul and
// other non-Latin headings keep readable ids. Duplicates get -1, -2, ...
type headingIDs struct {
	used map[string]bool
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{used: make(map[string]bool)}
}

func (s *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	base := content.Slugify(string(value))
	if base == "" {
		base = "heading"
		if kind != ast.KindHeading {
			base = "id"
		}
	}
	id := base
	for i := 1; s.used[id]; i++ {
		id = fmt.Sprintf("%s-%d", base, i)
	}
	s.used[id] = true
	return []byte(id)
}

func (s *headingIDs) Put(value []byte) {
	s.used[string(value)] = true
}

// parseContext is fresh per document so ids are unique within one post only.
func parseContext() parser.ParseOption {
	return parser.WithContext(parser.NewContext(parser.WithIDs(newHeadingIDs())))
}

// Render converts markdown to HTML and collects level 2 and 3 headings.
func Render(src string) (Rendered, error) {
	source := []byte(src)
	doc := engine.Parser().Parse(text.NewReader(source), parseContext())

	var buf bytes.Buffer
	if err := engine.Renderer().Render(&buf, source, doc); err != nil {
		return Rendered{}, fmt.Errorf("markdown render: %w", err)
	}
	return Rendered{
		HTML:           buf.String(),
		TOC:            collectTOC(doc, source),
		ReadingMinutes: readingMinutes(doc, source),
	}, nil
}

// Component returns a templ.Component that writes the rendered HTML of src.
func Component(src string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return engine.Convert([]byte(src), w, parseContext())
	})
}

func collectTOC(doc ast.Node, source []byte) []Heading {
	var toc []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Level < 2 || h.Level > 3 {
			return ast.WalkSkipChildren, nil
		}
		var id string
		if v, ok := h.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		toc = append(toc, Heading{ID: id, Text: plainText(h, source), Level: h.Level})
		return ast.WalkSkipChildren, nil
	})
	return toc
}

// plainText concatenates the text segments below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		case *ast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if s, ok := child.(*ast.Text); ok {
					b.Write(s.Segment.Value(source))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// readingMinutes estimates reading time from the prose of the document.
// Fenced code counts like prose. The result is at least one minute.
func readingMinutes(doc ast.Node, source []byte) int {
	words := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Text:
			words += countWords(t.Segment.Value(source))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := t.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				words += countWords(seg.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	return max(minutes, 1)
}

func countWords(b []byte) int {
	words, cjk := 0, 0
	inWord := false
	for _, r := range string(b) {
		switch {
		case unicode.In(r, unicode.Hangul, unicode.Han, unicode.Hiragana, unicode.Katakana):
			cjk++
			inWord = false
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			inWord = false
		default:
			if !inWord {
				words++
				inWord = true
			}
		}
	}
	return words + cjk/cjkRunesPerWord
}

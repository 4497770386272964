package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestRenderBasicHTML(t *testing.T) {
	r, err := Render("# Title\n\nSome **bold** and *italic* text with `code`.\n")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{
		`<h1 id="title">Title</h1>`,
		"<strong>bold</strong>",
		"<em>italic</em>",
		"<code>code</code>",
	} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("expected %q in output, got %q", want, r.HTML)
		}
	}
}

func TestRenderGFM(t *testing.T) {
	src := "| a | b |\n|---|---|\n| 1 | 2 |\n\n~~gone~~\n\n- [x] done\n"
	r, err := Render(src)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{"<table>", "<del>gone</del>", `type="checkbox"`} {
		if !strings.Contains(r.HTML, want) {
			t.Errorf("expected %q in output, got %q", want, r.HTML)
		}
	}
}

func TestRenderFootnote(t *testing.T) {
	r, err := Render("Claim[^1].\n\n[^1]: Source.\n")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(r.HTML, `class="footnotes"`) {
		t.Errorf("expected footnotes section, got %q", r.HTML)
	}
}

func TestRenderAllowsRawHTML(t *testing.T) {
	r, err := Render("<div class=\"note\">hi</div>\n")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(r.HTML, `<div class="note">hi</div>`) {
		t.Errorf("raw HTML was not passed through: %q", r.HTML)
	}
}

func TestRenderTOC(t *testing.T) {
	src := "# Post\n\n## Setup\n\ntext\n\n### Install `go`\n\n#### Too deep\n\n## 설치 방법\n"
	r, err := Render(src)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(r.TOC) != 3 {
		t.Fatalf("expected 3 headings, got %d: %+v", len(r.TOC), r.TOC)
	}
	if r.TOC[0].ID != "setup" || r.TOC[0].Text != "Setup" || r.TOC[0].Level != 2 {
		t.Errorf("unexpected first heading: %+v", r.TOC[0])
	}
	if r.TOC[1].Text != "Install go" || r.TOC[1].Level != 3 {
		t.Errorf("unexpected second heading: %+v", r.TOC[1])
	}
	if r.TOC[2].Text != "설치 방법" || r.TOC[2].ID != "설치-방법" {
		t.Errorf("unexpected third heading: %+v", r.TOC[2])
	}
	for _, h := range r.TOC {
		if !strings.Contains(r.HTML, `id="`+h.ID+`"`) {
			t.Errorf("heading id %q not present in HTML", h.ID)
		}
	}
}

func TestRenderHangulHeadingIDs(t *testing.T) {
	r, err := Render("## 소개\n\n## 결론\n\n## 결론\n\n## ???\n")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := []string{"소개", "결론", "결론-1", "heading"}
	if len(r.TOC) != len(want) {
		t.Fatalf("expected %d headings, got %+v", len(want), r.TOC)
	}
	for i, id := range want {
		if r.TOC[i].ID != id {
			t.Errorf("heading %d: id = %q, want %q", i, r.TOC[i].ID, id)
		}
		if !strings.Contains(r.HTML, `id="`+id+`"`) {
			t.Errorf("id %q not present in HTML: %s", id, r.HTML)
		}
	}

	// ids restart for every document
	again, err := Render("## 소개\n")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if again.TOC[0].ID != "소개" {
		t.Errorf("second render id = %q, want 소개", again.TOC[0].ID)
	}
}

func TestReadingMinutes(t *testing.T) {
	r, err := Render("short")
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.ReadingMinutes != 1 {
		t.Errorf("expected 1 minute, got %d", r.ReadingMinutes)
	}

	long := strings.Repeat("word ", 450)
	r, err = Render(long)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if r.ReadingMinutes != 3 {
		t.Errorf("expected 3 minutes, got %d", r.ReadingMinutes)
	}
}

func TestCountWords(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"hello world", 2},
		{"hello, world!", 2},
		{"안녕하세요", 2},
		{"", 0},
	}
	for _, tt := range tests {
		if got := countWords([]byte(tt.in)); got != tt.want {
			t.Errorf("countWords(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Component("## Hi\n").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), `<h2 id="hi">Hi</h2>`) {
		t.Errorf("unexpected component output: %q", buf.String())
	}
}

func TestComponentHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	if err := Component("text").Render(ctx, &buf); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

package blog

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinukeu/blog/content"
)

const testPassword = "correct horse"

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func setupTestApp(t *testing.T, mutate func(*Config)) (*App, *apiClient) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		Name:                 "Test Blog",
		URL:                  "https://blog.example.com",
		Description:          "tests",
		ContentDir:           dir,
		AdminPassword:        testPassword,
		SessionSecret:        "0123456789abcdef0123456789abcdef",
		ActivityEnabled:      true,
		ActivityDatabasePath: filepath.Join(dir, "data", "activity.db"),
		MetricsEnabled:       true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	app, err := New(cfg, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, err)

	srv := httptest.NewServer(app.Echo)
	t.Cleanup(func() {
		srv.Close()
		app.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return app, &apiClient{t: t, base: srv.URL, http: &http.Client{Jar: jar}}
}

type apiClient struct {
	t    *testing.T
	base string
	http *http.Client
	csrf string
}

func (c *apiClient) do(method, path string, body any) (int, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.base+path, r)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrf != "" {
		req.Header.Set(csrfHeader, c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp.StatusCode, out
}

func (c *apiClient) fetchCSRF() {
	c.t.Helper()
	code, body := c.do(http.MethodGet, "/api/admin/session", nil)
	require.Equal(c.t, http.StatusOK, code)
	var s struct {
		Authenticated bool   `json:"authenticated"`
		CSRFToken     string `json:"csrfToken"`
	}
	require.NoError(c.t, json.Unmarshal(body, &s))
	require.NotEmpty(c.t, s.CSRFToken)
	c.csrf = s.CSRFToken
}

func (c *apiClient) login() {
	c.t.Helper()
	c.fetchCSRF()
	code, body := c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": testPassword})
	require.Equal(c.t, http.StatusOK, code, string(body))
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

func TestHealthz(t *testing.T) {
	_, c := setupTestApp(t, nil)
	code, body := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", string(body))
}

func TestAdminHiddenWithoutPassword(t *testing.T) {
	_, c := setupTestApp(t, func(cfg *Config) { cfg.AdminPassword = "" })

	for _, path := range []string{"/api/admin/session", "/api/drafts", "/api/posts/x", "/api/admin/activity"} {
		code, _ := c.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
	}
	code, _ := c.do(http.MethodGet, "/api/posts", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminRequiresSession(t *testing.T) {
	_, c := setupTestApp(t, nil)
	code, body := c.do(http.MethodGet, "/api/drafts", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "authentication required", decode[errorBody](t, body).Error)
}

func TestLogin(t *testing.T) {
	_, c := setupTestApp(t, nil)

	code, _ := c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": testPassword})
	assert.Equal(t, http.StatusForbidden, code, "login without csrf token")

	c.fetchCSRF()
	code, _ = c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/api/admin/login", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	c.login()
	code, body := c.do(http.MethodGet, "/api/admin/session", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, decode[map[string]any](t, body)["authenticated"])

	code, _ = c.do(http.MethodPost, "/api/admin/logout", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/drafts", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLoginRateLimited(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.fetchCSRF()
	for i := 0; i < 5; i++ {
		code, _ := c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, _ := c.do(http.MethodPost, "/api/admin/login", map[string]string{"password": testPassword})
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestPostLifecycle(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.login()

	code, body := c.do(http.MethodGet, "/api/posts?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decode[[]content.PostMeta](t, body))

	doc := map[string]any{
		"content":     "## Intro\n\nHello **world**.\n",
		"frontmatter": map[string]any{"title": "Hello", "date": "2024-05-01", "tags": []string{"go", " "}},
	}
	code, body = c.do(http.MethodPut, "/api/posts/hello?locale=en", doc)
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = c.do(http.MethodGet, "/api/posts?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	posts := decode[[]content.PostMeta](t, body)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hello", posts[0].Title)
	assert.Equal(t, []string{"go"}, posts[0].Tags)

	code, body = c.do(http.MethodGet, "/api/posts/hello/html?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	view := decode[PostView](t, body)
	assert.Contains(t, view.HTML, "<strong>world</strong>")
	require.Len(t, view.TOC, 1)
	assert.Equal(t, "intro", view.TOC[0].ID)
	assert.Equal(t, []string{"en"}, view.AvailableLocales)
	assert.Equal(t, 1, view.ReadingMinutes)

	code, body = c.do(http.MethodGet, "/api/posts/hello?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	src := decode[content.Source](t, body)
	assert.Equal(t, "Hello", src.Frontmatter.Title)

	code, _ = c.do(http.MethodDelete, "/api/posts/hello?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = c.do(http.MethodGet, "/api/posts/hello/html?locale=en", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSavePostValidation(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.login()

	code, body := c.do(http.MethodPut, "/api/posts/hello", map[string]any{"content": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, decode[errorBody](t, body).Error, "content is required")

	code, _ = c.do(http.MethodPut, "/api/posts/hello?locale=fr", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPut, "/api/posts/.hidden", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPut, "/api/posts/hello", map[string]any{
		"content":     "x",
		"frontmatter": map[string]any{"mainCategories": []string{"main_missing"}},
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDraftPublishFlow(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.login()

	code, body := c.do(http.MethodPost, "/api/drafts", map[string]any{
		"content":     "Draft body\n",
		"frontmatter": map[string]any{"title": "Hello World", "locale": "en"},
	})
	require.Equal(t, http.StatusCreated, code, string(body))
	assert.Equal(t, "hello-world", decode[map[string]any](t, body)["slug"])

	code, _ = c.do(http.MethodPost, "/api/drafts", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusBadRequest, code, "no slug and no title")

	code, body = c.do(http.MethodGet, "/api/drafts", nil)
	require.Equal(t, http.StatusOK, code)
	drafts := decode[[]content.PostMeta](t, body)
	require.Len(t, drafts, 1)
	assert.Equal(t, "en", drafts[0].Locale)

	code, body = c.do(http.MethodPut, "/api/drafts/hello-world", map[string]any{
		"content":     "Edited body\n",
		"frontmatter": map[string]any{"title": "Hello World", "locale": "en"},
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = c.do(http.MethodGet, "/api/drafts/hello-world", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Edited body\n", decode[content.Source](t, body).Content)

	code, body = c.do(http.MethodPost, "/api/drafts/hello-world/publish", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, "en", decode[map[string]any](t, body)["locale"])

	code, body = c.do(http.MethodGet, "/api/posts?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[[]content.PostMeta](t, body), 1)

	code, _ = c.do(http.MethodPost, "/api/drafts/hello-world/publish", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodGet, "/api/drafts/hello-world", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodDelete, "/api/drafts/hello-world", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestCategoryFlow(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.login()

	code, body := c.do(http.MethodPost, "/api/categories", map[string]string{"type": "main", "name": "Backend"})
	require.Equal(t, http.StatusCreated, code, string(body))
	cat := decode[content.Category](t, body)
	assert.Equal(t, "backend", cat.Slug)

	code, _ = c.do(http.MethodPost, "/api/categories", map[string]string{"type": "main", "name": "Backend"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = c.do(http.MethodPost, "/api/categories", map[string]string{"type": "tag", "name": "X"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = c.do(http.MethodPost, "/api/categories", map[string]string{"type": "sub", "name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = c.do(http.MethodPut, "/api/categories/main/"+cat.ID, map[string]string{"name": "Server"})
	require.Equal(t, http.StatusOK, code, string(body))

	code, _ = c.do(http.MethodPut, "/api/categories/main/main_missing", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = c.do(http.MethodPut, "/api/posts/api-design?locale=ko", map[string]any{
		"content":     "x",
		"frontmatter": map[string]any{"title": "API", "mainCategories": []string{cat.ID}},
	})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = c.do(http.MethodDelete, "/api/categories/main/"+cat.ID, nil)
	require.Equal(t, http.StatusConflict, code)
	inUse := decode[errorBody](t, body)
	assert.Equal(t, []string{"ko/api-design"}, inUse.UsedIn)

	code, body = c.do(http.MethodDelete, "/api/categories/main/"+cat.ID+"?force=true", nil)
	require.Equal(t, http.StatusOK, code, string(body))
	assert.Equal(t, []any{"ko/api-design"}, decode[map[string]any](t, body)["updated"])

	code, body = c.do(http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, code)
	all := decode[content.Categories](t, body)
	assert.Empty(t, all.Main)

	code, _ = c.do(http.MethodDelete, "/api/categories/main/"+cat.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPreview(t *testing.T) {
	_, c := setupTestApp(t, nil)

	code, _ := c.do(http.MethodPost, "/api/admin/preview", map[string]string{"content": "# Hi"})
	assert.Equal(t, http.StatusForbidden, code, "csrf is checked before the session")

	c.login()
	code, body := c.do(http.MethodPost, "/api/admin/preview", map[string]string{"content": "# Hi\n\n| a |\n|---|\n| 1 |"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `<h1 id="hi">Hi</h1>`)
	assert.Contains(t, string(body), "<table>")
}

func TestActivityLog(t *testing.T) {
	_, c := setupTestApp(t, nil)
	c.login()

	code, _ := c.do(http.MethodPost, "/api/categories", map[string]string{"type": "sub", "name": "Go"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = c.do(http.MethodPut, "/api/posts/a?locale=ja", map[string]any{"content": "x"})
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodGet, "/api/admin/activity?limit=10", nil)
	require.Equal(t, http.StatusOK, code)
	var entries []struct {
		Action string `json:"action"`
		Target string `json:"target"`
		Locale string `json:"locale"`
	}
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "post.save", entries[0].Action)
	assert.Equal(t, "a", entries[0].Target)
	assert.Equal(t, "ja", entries[0].Locale)
	assert.Equal(t, "category.create", entries[1].Action)
}

func TestFeedAndSitemap(t *testing.T) {
	app, c := setupTestApp(t, nil)

	sub, err := app.Content.AddCategory(content.KindSub, "Go")
	require.NoError(t, err)
	require.NoError(t, app.Content.SavePost("first", "ko", "본문\n", content.Frontmatter{
		Title: "첫 글", Date: "2024-05-01", Excerpt: "desc", SubCategories: []string{sub.ID},
	}))
	require.NoError(t, app.Content.SavePost("hello", "en", "Body\n", content.Frontmatter{
		Title: "Hello", Date: "2024-04-01",
	}))

	code, body := c.do(http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, code)
	feed := string(body)
	assert.Contains(t, feed, "<language>ko-KR</language>")
	assert.Contains(t, feed, "<category>Go</category>")
	assert.Contains(t, feed, "https://blog.example.com/ko/blog/first")
	assert.NotContains(t, feed, "/en/blog/hello")

	code, body = c.do(http.MethodGet, "/feed.xml?locale=en", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "<language>en-US</language>")
	assert.Contains(t, string(body), "https://blog.example.com/en/blog/hello")

	code, body = c.do(http.MethodGet, "/sitemap.xml", nil)
	require.Equal(t, http.StatusOK, code)
	sitemap := string(body)
	for _, want := range []string{
		"<loc>https://blog.example.com/</loc>",
		"<loc>https://blog.example.com/ja/blog</loc>",
		"https://blog.example.com/ko/blog/first",
		"https://blog.example.com/en/blog/hello",
	} {
		assert.True(t, strings.Contains(sitemap, want), "sitemap missing %s", want)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, c := setupTestApp(t, nil)

	code, _ := c.do(http.MethodGet, "/api/posts", nil)
	require.Equal(t, http.StatusOK, code)

	code, body := c.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "blog_http_request_duration_seconds")
	assert.Contains(t, string(body), "blog_post_cache_lookups_total")
}

func TestMetricsDisabled(t *testing.T) {
	_, c := setupTestApp(t, func(cfg *Config) { cfg.MetricsEnabled = false })
	code, _ := c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	_, c := setupTestApp(t, nil)
	code, body := c.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, decode[errorBody](t, body).Error)
}

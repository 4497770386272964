package blog

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jinukeu/blog/content"
	"github.com/jinukeu/blog/markdown"
)

// PostView is a published post ready for display: metadata, rendered HTML
// and table of contents, plus the locales the same slug exists in.
type PostView struct {
	content.PostMeta
	HTML             string             `json:"html"`
	TOC              []markdown.Heading `json:"toc"`
	ReadingMinutes   int                `json:"readingMinutes"`
	AvailableLocales []string           `json:"availableLocales"`
}

// PostCache is an in-memory cache of post listings per locale and rendered
// posts per locale and slug, expiring after a TTL.
type PostCache struct {
	store   *content.Store
	items   *gocache.Cache
	metrics *Metrics
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s *content.Store, ttl time.Duration, m *Metrics) *PostCache {
	return &PostCache{
		store:   s,
		items:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.items.Flush()
}

// ListPosts returns the published posts of locale, newest first.
func (c *PostCache) ListPosts(locale string) ([]content.PostMeta, error) {
	key := "list:" + locale
	if v, ok := c.items.Get(key); ok {
		c.observe("list", true)
		return v.([]content.PostMeta), nil
	}
	c.observe("list", false)
	posts, err := c.store.ListPosts(locale)
	if err != nil {
		return nil, err
	}
	c.items.SetDefault(key, posts)
	return posts, nil
}

// Post returns the rendered post for slug in locale.
func (c *PostCache) Post(slug, locale string) (PostView, error) {
	key := "post:" + locale + "/" + slug
	if v, ok := c.items.Get(key); ok {
		c.observe("post", true)
		return v.(PostView), nil
	}
	c.observe("post", false)

	post, err := c.store.GetPost(slug, locale)
	if err != nil {
		return PostView{}, err
	}
	rendered, err := markdown.Render(post.Body)
	if err != nil {
		return PostView{}, err
	}
	locales, err := c.store.AvailableLocales(slug)
	if err != nil {
		return PostView{}, err
	}
	view := PostView{
		PostMeta:         post.PostMeta,
		HTML:             rendered.HTML,
		TOC:              rendered.TOC,
		ReadingMinutes:   rendered.ReadingMinutes,
		AvailableLocales: locales,
	}
	c.items.SetDefault(key, view)
	return view, nil
}

func (c *PostCache) observe(kind string, hit bool) {
	if c.metrics != nil {
		c.metrics.observeCache(kind, hit)
	}
}

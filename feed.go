package blog

import (
	"encoding/xml"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jinukeu/blog/content"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	AtomNS  string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	AtomLink      atomLink  `xml:"atom:link"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Description string   `xml:"description"`
	Link        string   `xml:"link"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate,omitempty"`
	Author      string   `xml:"author,omitempty"`
	Categories  []string `xml:"category"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// handleFeed serves the RSS 2.0 feed of one locale.
func (a *App) handleFeed(c echo.Context) error {
	locale := a.queryLocale(c)
	posts, err := a.Cache.ListPosts(locale)
	if err != nil {
		return err
	}
	subNames, err := a.categoryNames(content.KindSub)
	if err != nil {
		return err
	}

	base := a.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		postURL := BuildURL(base, locale, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Description: p.Excerpt,
			Link:        postURL,
			GUID:        rssGUID{IsPermaLink: "true", Value: postURL},
			PubDate:     formatDate(p.Date, time.RFC1123Z),
			Author:      p.Author,
		}
		for _, id := range p.SubCategories {
			item.Categories = append(item.Categories, nameOr(subNames, id))
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version: "2.0",
		AtomNS:  "http://www.w3.org/2005/Atom",
		Channel: rssChannel{
			Title:       a.Config.Name,
			Link:        BuildURL(base, locale),
			Description: a.Config.Description,
			AtomLink: atomLink{
				Href: BuildURL(base, "feed.xml") + "?locale=" + locale,
				Rel:  "self",
				Type: "application/rss+xml",
			},
			Language:      content.LanguageTag(locale),
			LastBuildDate: a.now().UTC().Format(time.RFC1123Z),
			Items:         items,
		},
	}
	return writeXML(c, "application/rss+xml; charset=utf-8", feed)
}

// handleSitemap lists the site root, every locale's post index and every
// published post.
func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Content.ListAllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	base := a.Config.URL
	today := a.now().UTC().Format("2006-01-02")

	urls := []sitemapURL{{Loc: BuildURL(base), LastMod: today, ChangeFreq: "daily", Priority: "1.0"}}
	for _, l := range a.Content.Locales().All() {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, l, "blog"),
			LastMod:    today,
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, p.Locale, "blog", p.Slug),
			LastMod:    formatDate(p.Date, "2006-01-02"),
			ChangeFreq: "weekly",
			Priority:   "0.6",
		})
	}
	return writeXML(c, "application/xml; charset=utf-8", sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}

func writeXML(c echo.Context, contentType string, v any) error {
	c.Response().Header().Set(echo.HeaderContentType, contentType)
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(v)
}

func (a *App) categoryNames(kind content.Kind) (map[string]string, error) {
	cats, err := a.Content.CategoriesOf(kind)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, cat := range cats {
		names[cat.ID] = cat.Name
	}
	return names, nil
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok {
		return n
	}
	return id
}

// formatDate reformats a frontmatter date (YYYY-MM-DD or RFC 3339). Dates
// that do not parse are dropped.
func formatDate(date, layout string) string {
	for _, in := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(in, date); err == nil {
			return t.UTC().Format(layout)
		}
	}
	return ""
}

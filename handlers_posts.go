package blog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jinukeu/blog/activity"
)

func (a *App) handleListPosts(c echo.Context) error {
	posts, err := a.Cache.ListPosts(a.queryLocale(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handlePostHTML(c echo.Context) error {
	post, err := a.Cache.Post(c.Param("slug"), a.queryLocale(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleGetPost(c echo.Context) error {
	src, err := a.Content.PostSource(c.Param("slug"), a.queryLocale(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, src)
}

func (a *App) handleSavePost(c echo.Context) error {
	slug := c.Param("slug")
	locale, err := a.targetLocale(c)
	if err != nil {
		return err
	}
	var req documentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	err = a.Content.SavePost(slug, locale, req.Content, cleanFrontmatter(req.Frontmatter))
	a.Metrics.observeContentOp("post.save", err)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.record(c, activity.Entry{Action: activity.PostSave, Target: slug, Locale: locale})
	return c.JSON(http.StatusOK, map[string]any{"success": true, "slug": slug, "locale": locale})
}

func (a *App) handleDeletePost(c echo.Context) error {
	slug := c.Param("slug")
	locale, err := a.targetLocale(c)
	if err != nil {
		return err
	}
	err = a.Content.DeletePost(slug, locale)
	a.Metrics.observeContentOp("post.delete", err)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.record(c, activity.Entry{Action: activity.PostDelete, Target: slug, Locale: locale})
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

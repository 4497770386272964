package blog

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jinukeu/blog/activity"
	"github.com/jinukeu/blog/content"
)

func (a *App) handleListDrafts(c echo.Context) error {
	drafts, err := a.Content.ListDrafts()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, drafts)
}

func (a *App) handleGetDraft(c echo.Context) error {
	src, err := a.Content.DraftSource(c.Param("slug"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, src)
}

// handleCreateDraft saves a new draft. Without an explicit slug one is
// derived from the title.
func (a *App) handleCreateDraft(c echo.Context) error {
	var req documentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	slug := strings.TrimSpace(req.Slug)
	if slug == "" {
		slug = content.Slugify(req.Frontmatter.Title)
	}
	if slug == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "slug is required; add a title or slug")
	}
	if err := a.saveDraft(c, slug, req); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "slug": slug})
}

func (a *App) handleSaveDraft(c echo.Context) error {
	slug := c.Param("slug")
	var req documentRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if err := a.saveDraft(c, slug, req); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "slug": slug})
}

func (a *App) saveDraft(c echo.Context, slug string, req documentRequest) error {
	fm := cleanFrontmatter(req.Frontmatter)
	err := a.Content.SaveDraft(slug, req.Content, fm)
	a.Metrics.observeContentOp("draft.save", err)
	if err != nil {
		return err
	}
	a.record(c, activity.Entry{Action: activity.DraftSave, Target: slug, Locale: fm.Locale})
	return nil
}

func (a *App) handleDeleteDraft(c echo.Context) error {
	slug := c.Param("slug")
	err := a.Content.DeleteDraft(slug)
	a.Metrics.observeContentOp("draft.delete", err)
	if err != nil {
		return err
	}
	a.record(c, activity.Entry{Action: activity.DraftDelete, Target: slug})
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (a *App) handlePublishDraft(c echo.Context) error {
	slug := c.Param("slug")
	res, err := a.Content.PublishDraft(slug)
	a.Metrics.observeContentOp("draft.publish", err)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.record(c, activity.Entry{
		Action: activity.DraftPublish,
		Target: slug,
		Locale: res.Locale,
		Detail: fmt.Sprintf("%d image(s) moved", len(res.Images)),
	})
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"slug":    res.Slug,
		"locale":  res.Locale,
		"images":  res.Images,
	})
}

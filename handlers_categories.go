package blog

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/jinukeu/blog/activity"
	"github.com/jinukeu/blog/content"
)

func (a *App) handleListCategories(c echo.Context) error {
	all, err := a.Content.Categories()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, all)
}

func (a *App) handleCreateCategory(c echo.Context) error {
	var req createCategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	kind, err := content.ParseKind(req.Type)
	if err != nil {
		return err
	}
	cat, err := a.Content.AddCategory(kind, req.Name)
	a.Metrics.observeContentOp("category.create", err)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.record(c, activity.Entry{Action: activity.CategoryCreate, Target: cat.ID, Detail: cat.Name})
	return c.JSON(http.StatusCreated, cat)
}

func (a *App) handleUpdateCategory(c echo.Context) error {
	kind, err := content.ParseKind(c.Param("type"))
	if err != nil {
		return err
	}
	var req updateCategoryRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	cat, err := a.Content.UpdateCategory(kind, c.Param("id"), req.Name)
	a.Metrics.observeContentOp("category.update", err)
	if err != nil {
		return err
	}
	a.Cache.Invalidate()
	a.record(c, activity.Entry{Action: activity.CategoryUpdate, Target: cat.ID, Detail: cat.Name})
	return c.JSON(http.StatusOK, map[string]any{"success": true, "category": cat})
}

// handleDeleteCategory refuses to delete a category that is still referenced
// unless ?force=true, in which case the references are stripped first.
func (a *App) handleDeleteCategory(c echo.Context) error {
	kind, err := content.ParseKind(c.Param("type"))
	if err != nil {
		return err
	}
	id := c.Param("id")
	force := false
	if v := c.QueryParam("force"); v != "" {
		force, err = strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "force must be true or false")
		}
	}
	ctx := c.Request().Context()

	if !force {
		err := a.Content.DeleteCategory(ctx, kind, id)
		a.Metrics.observeContentOp("category.delete", err)
		if err != nil {
			return err
		}
		a.Cache.Invalidate()
		a.record(c, activity.Entry{Action: activity.CategoryDelete, Target: id})
		return c.JSON(http.StatusOK, map[string]any{"success": true})
	}

	updated, err := a.Content.ForceDeleteCategory(ctx, kind, id)
	a.Metrics.observeContentOp("category.force_delete", err)
	// Documents rewritten before a failure are already on disk.
	a.Cache.Invalidate()
	if err != nil {
		return err
	}
	a.record(c, activity.Entry{
		Action: activity.CategoryForceDelete,
		Target: id,
		Detail: fmt.Sprintf("removed from %d document(s)", len(updated)),
	})
	return c.JSON(http.StatusOK, map[string]any{"success": true, "updated": updated})
}

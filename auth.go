package blog

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jinukeu/blog/activity"
)

func (a *App) handleSession(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"authenticated": IsAdmin(c),
		"csrfToken":     CsrfToken(c),
	})
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := bindValid(c, &req); err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.Config.AdminPassword)) != 1 {
		a.loginLimiter.Record(ip)
		a.Logger.Warn("admin login failed", zap.String("remote_ip", ip))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid password")
	}
	a.loginLimiter.Reset(ip)
	if err := setAdminSession(c, a.now()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearAdminSession(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (a *App) handleActivity(c echo.Context) error {
	if a.Activity == nil {
		return c.JSON(http.StatusOK, []activity.Entry{})
	}
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a number")
		}
		limit = n
	}
	entries, err := a.Activity.Recent(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// record appends to the activity log. Failures are logged and never fail
// the request that triggered them.
func (a *App) record(c echo.Context, e activity.Entry) {
	if a.Activity == nil {
		return
	}
	if err := a.Activity.Record(c.Request().Context(), e); err != nil {
		a.Logger.Warn("activity record failed",
			zap.Error(err),
			zap.String("action", string(e.Action)),
			zap.String("target", e.Target),
		)
	}
}

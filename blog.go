// Package blog serves a file-backed, multi-locale blog over a JSON API.
// Posts are markdown files with YAML frontmatter under posts/<locale>/,
// drafts live under drafts/ until published, and categories are kept in
// data/categories.json. The admin API (editing, drafts, categories) is only
// mounted when an admin password is configured.
package blog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/jinukeu/blog/activity"
	"github.com/jinukeu/blog/content"
)

const (
	shutdownTimeout         = 10 * time.Second
	activityCleanupInterval = 24 * time.Hour
)

// App wires together the content store, cache, handlers and middleware.
type App struct {
	Config   Config
	Echo     *echo.Echo
	Content  *content.Store
	Cache    *PostCache
	Activity *activity.Store // nil when the activity log is disabled
	Metrics  *Metrics
	Logger   *zap.Logger

	loginLimiter *LoginLimiter
	customRoutes []func(*App)
	now          func() time.Time
}

// New opens the content store and activity log and registers all routes.
// The server is not started; call Run.
func New(cfg Config, opts ...Option) (*App, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	locales, err := content.NewLocales(cfg.Locales, cfg.DefaultLocale)
	if err != nil {
		return nil, fmt.Errorf("blog: %w", err)
	}
	store, err := content.Open(cfg.ContentDir, locales, content.WithClock(a.now))
	if err != nil {
		return nil, fmt.Errorf("blog: open content: %w", err)
	}
	a.Content = store
	a.Metrics = NewMetrics()
	a.Cache = NewPostCache(store, cfg.PostCacheTTL, a.Metrics)
	a.loginLimiter = NewLoginLimiter(5, time.Minute)

	if cfg.ActivityEnabled && cfg.AdminEnabled() {
		act, err := activity.NewStore(cfg.ActivityDatabasePath)
		if err != nil {
			a.loginLimiter.Stop()
			return nil, fmt.Errorf("blog: init activity log: %w", err)
		}
		a.Activity = act
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return a, nil
}

// Run starts the content watcher, the activity retention job and the HTTP
// server, and blocks until ctx is cancelled or the server fails. On
// cancellation the server is shut down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.Config.WatchContent {
		dirs, err := a.Content.WatchDirs()
		if err != nil {
			return err
		}
		w, err := NewWatcher(dirs, a.Cache, a.Logger)
		if err != nil {
			return fmt.Errorf("blog: start watcher: %w", err)
		}
		w.Start(ctx)
		defer w.Close()
	}
	if a.Activity != nil {
		stop := a.Activity.StartCleanupScheduler(a.Logger, a.Config.ActivityRetention, activityCleanupInterval)
		defer stop()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Echo.Start(a.Config.Addr)
	}()
	a.Logger.Info("server started",
		zap.String("addr", a.Config.Addr),
		zap.Strings("locales", a.Content.Locales().All()),
		zap.Bool("admin", a.Config.AdminEnabled()),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("blog: shutdown: %w", err)
	}
	return nil
}

// Close releases the activity log and background helpers.
func (a *App) Close() error {
	a.loginLimiter.Stop()
	if a.Activity != nil {
		return a.Activity.Close()
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", handleHealth)
	if a.Config.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	}
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)

	api := e.Group("/api")

	// Public
	api.GET("/posts", a.handleListPosts)
	api.GET("/posts/:slug/html", a.handlePostHTML)
	api.GET("/categories", a.handleListCategories)

	// Session
	api.GET("/admin/session", a.handleSession, a.adminEnabled)
	api.POST("/admin/login", a.handleLogin, a.adminEnabled)
	api.POST("/admin/logout", a.handleLogout, a.adminEnabled)

	// Admin
	admin := []echo.MiddlewareFunc{a.adminEnabled, requireSession}
	api.GET("/admin/activity", a.handleActivity, admin...)
	api.POST("/admin/preview", a.handlePreview, admin...)

	api.GET("/posts/:slug", a.handleGetPost, admin...)
	api.PUT("/posts/:slug", a.handleSavePost, admin...)
	api.DELETE("/posts/:slug", a.handleDeletePost, admin...)

	api.POST("/categories", a.handleCreateCategory, admin...)
	api.PUT("/categories/:type/:id", a.handleUpdateCategory, admin...)
	api.DELETE("/categories/:type/:id", a.handleDeleteCategory, admin...)

	api.GET("/drafts", a.handleListDrafts, admin...)
	api.POST("/drafts", a.handleCreateDraft, admin...)
	api.GET("/drafts/:slug", a.handleGetDraft, admin...)
	api.PUT("/drafts/:slug", a.handleSaveDraft, admin...)
	api.DELETE("/drafts/:slug", a.handleDeleteDraft, admin...)
	api.POST("/drafts/:slug/publish", a.handlePublishDraft, admin...)
}

func handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

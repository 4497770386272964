package blog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds all configuration for a blog server.
type Config struct {
	Name        string `mapstructure:"name"`        // Site name (default "Blog")
	URL         string `mapstructure:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `mapstructure:"description"` // Site description for RSS
	Author      string `mapstructure:"author"`

	Addr       string `mapstructure:"addr"`        // Listen address (default ":3000")
	ContentDir string `mapstructure:"content_dir"` // Content root (default ".")

	Locales       []string `mapstructure:"locales"`        // default ko, en, ja
	DefaultLocale string   `mapstructure:"default_locale"` // default first of Locales

	// AdminPassword enables the admin API. When empty every admin route
	// answers 404, which is how a public deployment runs.
	AdminPassword string `mapstructure:"admin_password"`
	SessionSecret string `mapstructure:"session_secret"` // Required when AdminPassword is set
	CookieSecure  bool   `mapstructure:"cookie_secure"`  // Set true for HTTPS

	PostCacheTTL time.Duration `mapstructure:"post_cache_ttl"` // default 5min
	WatchContent bool          `mapstructure:"watch_content"`

	ActivityEnabled      bool          `mapstructure:"activity_enabled"`
	ActivityDatabasePath string        `mapstructure:"activity_db"`        // default <ContentDir>/data/activity.db
	ActivityRetention    time.Duration `mapstructure:"activity_retention"` // default 90 days

	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	LogDevelopment bool `mapstructure:"log_development"`
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.ContentDir == "" {
		c.ContentDir = "."
	}
	if len(c.Locales) == 0 {
		c.Locales = []string{"ko", "en", "ja"}
	}
	if c.ActivityDatabasePath == "" {
		c.ActivityDatabasePath = filepath.Join(c.ContentDir, "data", "activity.db")
	}
	if c.ActivityRetention == 0 {
		c.ActivityRetention = 90 * 24 * time.Hour
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
}

// AdminEnabled reports whether the admin API is served.
func (c Config) AdminEnabled() bool {
	return c.AdminPassword != ""
}

func (c Config) validate() error {
	if c.AdminEnabled() && c.SessionSecret == "" {
		return errors.New("blog: SessionSecret is required when AdminPassword is set")
	}
	return nil
}

// LoadConfig reads configuration from an optional YAML file and BLOG_*
// environment variables (BLOG_ADMIN_PASSWORD, BLOG_LOCALES=ko,en, ...).
// Environment variables win over the file.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "Blog")
	v.SetDefault("url", "http://localhost:3000")
	v.SetDefault("description", "")
	v.SetDefault("author", "")
	v.SetDefault("addr", ":3000")
	v.SetDefault("content_dir", ".")
	v.SetDefault("locales", []string{"ko", "en", "ja"})
	v.SetDefault("default_locale", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("post_cache_ttl", 5*time.Minute)
	v.SetDefault("watch_content", true)
	v.SetDefault("activity_enabled", true)
	v.SetDefault("activity_db", "")
	v.SetDefault("activity_retention", 90*24*time.Hour)
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_development", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Locales = splitList(cfg.Locales)
	cfg.setDefaults()
	return cfg, nil
}

// splitList flattens comma separated entries so "ko,en" from the
// environment and a YAML list behave the same.
func splitList(vals []string) []string {
	var out []string
	for _, v := range vals {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithClock overrides the time source of the content store.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithLogger sets the logger used by the server. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Logger = l
	}
}

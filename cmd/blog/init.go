package main

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/spf13/cobra"

	"github.com/jinukeu/blog/content"
)

//go:embed all:templates
var templates embed.FS

// scaffoldData holds the template variables passed to every scaffold template.
type scaffoldData struct {
	SiteName      string
	Locale        string
	Locales       []string
	SessionSecret string
	Date          string
}

func initCommand() *cobra.Command {
	var locales []string
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new content directory with a config file and a first post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, args[0], locales)
		},
	}
	cmd.Flags().StringSliceVar(&locales, "locales", []string{"ko", "en", "ja"}, "supported locales, the first is the default")
	return cmd
}

func runInit(cmd *cobra.Command, dir string, localeList []string) error {
	if _, err := os.Stat(filepath.Join(dir, "blog.yaml")); err == nil {
		return fmt.Errorf("%s already contains blog.yaml", dir)
	}
	locales, err := content.NewLocales(localeList, "")
	if err != nil {
		return err
	}
	secret, err := randomSecret()
	if err != nil {
		return err
	}
	data := scaffoldData{
		SiteName:      toTitle(filepath.Base(filepath.Clean(dir))),
		Locale:        locales.Default(),
		Locales:       locales.All(),
		SessionSecret: secret,
		Date:          time.Now().Format("2006-01-02"),
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Creating blog content in %s\n\n", dir)

	store, err := content.Open(dir, locales)
	if err != nil {
		return err
	}
	if _, err := store.WatchDirs(); err != nil {
		return err
	}
	if _, err := store.Categories(); err != nil {
		return err
	}

	funcs := template.FuncMap{"join": strings.Join}
	root := "templates"
	err = fs.WalkDir(templates, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = strings.ReplaceAll(strings.TrimSuffix(rel, ".tmpl"), "_locale_", data.Locale)
		outPath := filepath.Join(dir, rel)
		if _, err := os.Stat(outPath); err == nil {
			fmt.Fprintf(out, "  kept    %s\n", outPath)
			return nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		src, err := templates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		tmpl, err := template.New(filepath.Base(path)).Funcs(funcs).Parse(string(src))
		if err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return err
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		if err := tmpl.Execute(f, data); err != nil {
			return fmt.Errorf("execute template %s: %w", path, err)
		}
		fmt.Fprintf(out, "  created %s\n", outPath)
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Done! Next steps:")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  blog serve --config %s\n", filepath.Join(dir, "blog.yaml"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Set admin_password (or BLOG_ADMIN_PASSWORD) to enable the admin API.")
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// toTitle converts a hyphenated or lowercase name to a title-case string.
// e.g. "my-blog" -> "My Blog", "myblog" -> "Myblog"
func toTitle(s string) string {
	parts := strings.Split(s, "-")
	for i, p := range parts {
		if len(p) > 0 {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

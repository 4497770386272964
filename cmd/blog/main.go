// Command blog serves and manages a file-backed multi-locale blog.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jinukeu/blog"
)

// version is set at build time via ldflags.
var version = "dev"

// cliContext is shared by every subcommand.
type cliContext struct {
	configPath string
	contentDir string
	debug      bool
}

func (c *cliContext) loadConfig() (blog.Config, error) {
	cfg, err := blog.LoadConfig(c.configPath)
	if err != nil {
		return blog.Config{}, err
	}
	// Relative paths in a config file are relative to the file.
	defaultDB := filepath.Join(cfg.ContentDir, "data", "activity.db")
	switch {
	case c.contentDir != "":
		cfg.ContentDir = c.contentDir
	case c.configPath != "" && !filepath.IsAbs(cfg.ContentDir):
		cfg.ContentDir = filepath.Join(filepath.Dir(c.configPath), cfg.ContentDir)
	}
	switch {
	case cfg.ActivityDatabasePath == defaultDB:
		cfg.ActivityDatabasePath = filepath.Join(cfg.ContentDir, "data", "activity.db")
	case c.configPath != "" && !filepath.IsAbs(cfg.ActivityDatabasePath):
		cfg.ActivityDatabasePath = filepath.Join(filepath.Dir(c.configPath), cfg.ActivityDatabasePath)
	}
	if c.debug {
		cfg.LogDevelopment = true
	}
	return cfg, nil
}

func rootCommand() *cobra.Command {
	ctx := &cliContext{}
	root := &cobra.Command{
		Use:           "blog",
		Short:         "File-backed multi-locale blog server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "", "YAML config file (BLOG_* environment variables override it)")
	root.PersistentFlags().StringVar(&ctx.contentDir, "content", "", "content root directory")
	root.PersistentFlags().BoolVarP(&ctx.debug, "debug", "d", false, "development logging")

	root.AddCommand(
		serveCommand(ctx),
		initCommand(),
		postsCommand(ctx),
		draftsCommand(ctx),
		categoriesCommand(ctx),
		activityCommand(ctx),
		versionCommand(),
	)
	return root
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the blog version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blog %s\n", version)
		},
	}
}

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

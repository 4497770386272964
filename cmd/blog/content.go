package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jinukeu/blog"
	"github.com/jinukeu/blog/activity"
	"github.com/jinukeu/blog/content"
)

// openStore opens the content store described by the configuration without
// starting a server.
func (c *cliContext) openStore() (*content.Store, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	locales, err := content.NewLocales(cfg.Locales, cfg.DefaultLocale)
	if err != nil {
		return nil, err
	}
	return content.Open(cfg.ContentDir, locales)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func postsCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect published posts",
	}
	var locale string
	list := &cobra.Command{
		Use:   "list",
		Short: "List published posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			var posts []content.PostMeta
			if locale == "" {
				posts, err = store.ListAllPosts(cmd.Context())
			} else {
				posts, err = store.ListPosts(locale)
			}
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "LOCALE\tSLUG\tDATE\tTITLE")
			for _, p := range posts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Locale, p.Slug, p.Date, p.Title)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVarP(&locale, "locale", "l", "", "only this locale")
	cmd.AddCommand(list)
	return cmd
}

func draftsCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Inspect and publish drafts",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List drafts, most recently edited first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				drafts, err := store.ListDrafts()
				if err != nil {
					return err
				}
				tw := newTable(cmd.OutOrStdout())
				fmt.Fprintln(tw, "SLUG\tLOCALE\tUPDATED\tTITLE")
				for _, d := range drafts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Slug, store.Locales().Resolve(d.Locale), d.UpdatedAt, d.Title)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "publish <slug>",
			Short: "Publish a draft into its locale",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := ctx.openStore()
				if err != nil {
					return err
				}
				res, err := store.PublishDraft(args[0])
				if err != nil {
					return err
				}
				ctx.recordActivity(cmd, activity.Entry{
					Action: activity.DraftPublish,
					Target: res.Slug,
					Locale: res.Locale,
					Detail: fmt.Sprintf("%d image(s) moved", len(res.Images)),
				})
				fmt.Fprintf(cmd.OutOrStdout(), "published %s/%s\n", res.Locale, res.Slug)
				if len(res.Images) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "moved images: %s\n", strings.Join(res.Images, ", "))
				}
				return nil
			},
		},
	)
	return cmd
}

func categoriesCommand(ctx *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Inspect categories",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List main and sub categories with their usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			all, err := store.Categories()
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "KIND\tID\tNAME\tSLUG\tUSED BY")
			for _, kind := range []content.Kind{content.KindMain, content.KindSub} {
				list := all.Main
				if kind == content.KindSub {
					list = all.Sub
				}
				for _, c := range list {
					used, err := store.CategoryUsage(cmd.Context(), kind, c.ID)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", kind, c.ID, c.Name, c.Slug, len(used))
				}
			}
			return tw.Flush()
		},
	})
	return cmd
}

func activityCommand(ctx *cliContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent admin activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.loadConfig()
			if err != nil {
				return err
			}
			act, err := openActivity(cfg)
			if err != nil {
				return err
			}
			defer act.Close()
			entries, err := act.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "TIME\tACTION\tTARGET\tLOCALE\tDETAIL")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					e.Time.Local().Format("2006-01-02 15:04:05"), e.Action, e.Target, e.Locale, e.Detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	return cmd
}

// recordActivity appends to the activity log when one exists. The CLI never
// creates the log, and a failure only prints a warning.
func (c *cliContext) recordActivity(cmd *cobra.Command, e activity.Entry) {
	cfg, err := c.loadConfig()
	if err != nil || !cfg.ActivityEnabled {
		return
	}
	act, err := openActivity(cfg)
	if err != nil {
		return
	}
	defer act.Close()
	if err := act.Record(cmd.Context(), e); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record activity: %v\n", err)
	}
}

// openActivity opens an existing activity log. It does not create one.
func openActivity(cfg blog.Config) (*activity.Store, error) {
	if _, err := os.Stat(cfg.ActivityDatabasePath); err != nil {
		return nil, fmt.Errorf("activity log %s: %w", cfg.ActivityDatabasePath, err)
	}
	return activity.NewStore(cfg.ActivityDatabasePath)
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/congdong-blog/internal/app"
	"github.com/congdong-blog/internal/constants"
	"github.com/congdong-blog/internal/provider"
	"github.com/congdong-blog/internal/service"

	"github.com/spf13/cobra"
)

var seedForce bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and backfill legacy rows",
	Long: `Create or extend the posts, comments and reactions tables, then fix rows left
by older versions: empty or unknown categories become "Khác", blank authors
become the default author, missing statuses become "published" and missing
timestamps are set to now. Safe to run repeatedly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *provider.Container) error {
			result, err := app.Migrate(ctx, c)
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(result)
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "FIELD\tROWS")
			fmt.Fprintf(w, "category\t%d\n", result.Categories)
			fmt.Fprintf(w, "post author\t%d\n", result.PostAuthors)
			fmt.Fprintf(w, "status\t%d\n", result.Statuses)
			fmt.Fprintf(w, "created_at\t%d\n", result.CreatedAt)
			fmt.Fprintf(w, "comment author\t%d\n", result.CommentAuthors)
			return w.Flush()
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample posts, comments and reactions",
	Long: `Insert a handful of sample posts across every category, with a comment and
a reaction on each. Skipped when the database already has posts unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *provider.Container) error {
			if _, err := app.Migrate(ctx, c); err != nil {
				return err
			}
			_, total, err := c.PostService.ListAdmin(ctx, 1, 1)
			if err != nil {
				return err
			}
			if total > 0 && !seedForce {
				fmt.Printf("database already has %d posts, use --force to seed anyway\n", total)
				return nil
			}
			created, err := seedPosts(ctx, c.PostService)
			if err != nil {
				return err
			}
			fmt.Printf("seeded %d posts\n", created)
			return nil
		})
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish a pending post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil || id == 0 {
			return fmt.Errorf("invalid post id %q", args[0])
		}
		return withContainer(cmd, func(ctx context.Context, c *provider.Container) error {
			if err := c.PostService.PublishPost(ctx, uint(id)); err != nil {
				return err
			}
			fmt.Printf("post %d published\n", id)
			return nil
		})
	},
}

var poolCheckCmd = &cobra.Command{
	Use:   "pool-check",
	Short: "Probe the connection pool and print its stats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *provider.Container) error {
			pingErr := c.Pool.Ping(ctx)
			stats := c.Pool.Stats()
			if jsonOutput {
				out := map[string]interface{}{"ok": pingErr == nil, "stats": stats}
				if pingErr != nil {
					out["error"] = pingErr.Error()
				}
				if err := printJSON(out); err != nil {
					return err
				}
				return pingErr
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "driver\t%s\n", stats.Driver)
			fmt.Fprintf(w, "max_open_conns\t%d\n", stats.MaxOpenConns)
			fmt.Fprintf(w, "open_conns\t%d\n", stats.OpenConns)
			fmt.Fprintf(w, "in_use\t%d\n", stats.InUse)
			fmt.Fprintf(w, "idle\t%d\n", stats.Idle)
			fmt.Fprintf(w, "wait_count\t%d\n", stats.WaitCount)
			fmt.Fprintf(w, "discarded\t%d\n", stats.Discarded)
			fmt.Fprintf(w, "probe_failures\t%d\n", stats.ProbeFailures)
			if err := w.Flush(); err != nil {
				return err
			}
			if pingErr != nil {
				return fmt.Errorf("probe failed: %w", pingErr)
			}
			fmt.Println("probe ok")
			return nil
		})
	},
}

func init() {
	seedCmd.Flags().BoolVar(&seedForce, "force", false, "seed even when posts already exist")
}

type samplePost struct {
	input   service.CreatePostInput
	comment string
	emoji   string
}

var samplePosts = []samplePost{
	{
		input: service.CreatePostInput{
			Title:    "Hello World",
			Content:  "Bài viết đầu tiên của cộng đồng.",
			Category: constants.CategoryOther,
		},
		comment: "Chào mừng!",
		emoji:   "👍",
	},
	{
		input: service.CreatePostInput{
			Title:    "Truyền thuyết hồ Thuỷ Dương",
			Content:  "Ngày xưa, bên bờ hồ có một ngôi làng nhỏ...",
			Category: constants.CategoryLegend,
			Author:   "Bà Tư",
		},
		comment: "Hay quá",
		emoji:   "😮",
	},
	{
		input: service.CreatePostInput{
			Title:    "Sống chậm lại",
			Content:  "Đôi khi dừng lại một chút để thấy mình đã đi bao xa.",
			Category: constants.CategoryPhilosophy,
		},
		comment: "Đồng ý",
		emoji:   "❤️",
	},
	{
		input: service.CreatePostInput{
			Title:    "Thứ Hai",
			Content:  "Khi báo thức reo lần thứ năm.",
			Category: constants.CategoryMeme,
		},
		comment: "Chuẩn",
		emoji:   "😂",
	},
	{
		input: service.CreatePostInput{
			Title:    "Mưa chiều",
			Content:  "Mưa rơi trên mái ngói cũ, nhớ một thời xa.",
			Category: constants.CategoryPoetry,
			Author:   "Minh",
		},
		comment: "Buồn ghê",
		emoji:   "😢",
	},
}

func seedPosts(ctx context.Context, posts *service.PostService) (int, error) {
	created := 0
	for _, sample := range samplePosts {
		post, err := posts.CreatePost(ctx, sample.input)
		if err != nil {
			return created, fmt.Errorf("create %q: %w", sample.input.Title, err)
		}
		created++
		if posts.ModerationEnabled() {
			if err := posts.PublishPost(ctx, post.ID); err != nil {
				return created, err
			}
		}
		if _, err := posts.AddComment(ctx, post.ID, "", sample.comment); err != nil {
			return created, err
		}
		if _, err := posts.AddReaction(ctx, post.ID, sample.emoji); err != nil {
			return created, err
		}
	}
	return created, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"fmt"
	"os"
	"time"

	"agenthub/app/agent"
	"agenthub/types"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	blogType     string
	blogTitle    string
	blogAudience string
	blogExtra    string
	blogSave     bool
)

var blogCmd = &cobra.Command{
	Use:   "blog",
	Short: "Create or review blog posts",
}

var blogTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the blog types the backend knows",
	RunE: func(cmd *cobra.Command, args []string) error {
		bt, err := agent.NewBlog(backend()).Types(cmd.Context())
		if err != nil {
			return err
		}
		r := newRenderer(cmd.OutOrStdout())
		for _, t := range bt {
			r.title(fmt.Sprintf("%s (%s)", t.Name, t.ID))
			r.note("%s", t.Description)
		}
		return nil
	},
}

var blogCreateCmd = &cobra.Command{
	Use:   "create [notes-file]",
	Short: "Turn raw notes into a post",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlogCreate,
}

var blogReviewCmd = &cobra.Command{
	Use:   "review [post-file]",
	Short: "Review a post against its blog type",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlogReview,
}

func init() {
	for _, c := range []*cobra.Command{blogCreateCmd, blogReviewCmd} {
		c.Flags().StringVarP(&blogType, "type", "t", "", "blog type id (see hub blog types)")
		c.Flags().BoolVar(&blogSave, "save", false, "write the result as a markdown file")
		_ = c.MarkFlagRequired("type")
	}
	blogCreateCmd.Flags().StringVar(&blogTitle, "title", "", "post title")
	blogCreateCmd.Flags().StringVar(&blogAudience, "audience", "", "target audience")
	blogCreateCmd.Flags().StringVar(&blogExtra, "extra", "", "additional context")

	blogCmd.AddCommand(blogTypesCmd, blogCreateCmd, blogReviewCmd)
}

func runBlogCreate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	raw, err := readArg(cmd, args[0])
	if err != nil {
		return err
	}
	res, err := agent.NewBlog(backend()).Create(ctx, types.BlogCreateParams{
		BlogType:          blogType,
		RawContent:        raw,
		Title:             blogTitle,
		TargetAudience:    blogAudience,
		AdditionalContext: blogExtra,
	})
	if err != nil {
		return err
	}

	r := newRenderer(cmd.OutOrStdout())
	r.markdown(res.BlogContent)
	r.note("%d words, about %d min read", res.Metadata.WordCount, res.Metadata.EstimatedReadTime)
	return saveBlog(agent.BlogCreate, res.BlogContent)
}

func runBlogReview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	post, err := readArg(cmd, args[0])
	if err != nil {
		return err
	}
	res, err := agent.NewBlog(backend()).Review(ctx, types.BlogReviewParams{BlogType: blogType, BlogContent: post})
	if err != nil {
		return err
	}

	r := newRenderer(cmd.OutOrStdout())
	r.markdown(res.Review)
	if fb := res.StructuredFeedback; fb.PublishingReadiness != "" {
		r.title("Readiness: " + fb.PublishingReadiness)
	}
	return saveBlog(agent.BlogReview, res.Review)
}

func saveBlog(mode agent.BlogMode, content string) error {
	if !blogSave {
		return nil
	}
	name, body := agent.BlogMarkdown(mode, content, time.Now())
	if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
		return err
	}
	logger.Info("blog written", zap.String("path", name))
	return nil
}

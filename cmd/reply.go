package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/threads"
)

// ReplyCommand returns the reply command
func ReplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "reply",
		Usage: "Post a direct reply to a single comment without drafting",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "body",
				Aliases:  []string{"b"},
				Usage:    "Reply text",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Override the provider to use",
			},
		},
		ArgsUsage: "PR_NUMBER COMMENT_ID",
		Action:    runReply,
	}
}

func runReply(c *cli.Context) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("missing required argument: comment ID")
	}
	commentID := c.Args().Get(1)
	body := c.String("body")

	env, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// The comment kind decides the delivery route, so look the ID up in
	// the live comment set rather than trusting the caller.
	kind, err := resolveCommentKind(ctx, env, pr, commentID)
	if err != nil {
		return err
	}

	location, err := env.provider.PostReply(ctx, pr, commentID, body, kind)
	if err != nil {
		return fmt.Errorf("failed to post reply to comment %s: %w", commentID, err)
	}

	fmt.Printf("Reply posted to %s comment %s", kind, commentID)
	if location != "" {
		fmt.Printf(" (%s)", location)
	}
	fmt.Println()
	return nil
}

func resolveCommentKind(ctx context.Context, env *appEnv, pr int, commentID string) (threads.Kind, error) {
	general, err := env.provider.GeneralComments(ctx, pr)
	if err != nil {
		return "", fmt.Errorf("failed to fetch general comments: %w", err)
	}
	for _, gc := range general {
		if gc.ID == commentID {
			return threads.KindGeneral, nil
		}
	}
	review, err := env.provider.ReviewComments(ctx, pr)
	if err != nil {
		return "", fmt.Errorf("failed to fetch review comments: %w", err)
	}
	for _, rc := range review {
		if rc.ID == commentID {
			return threads.KindReview, nil
		}
	}
	return "", fmt.Errorf("comment %s not found on PR #%d", commentID, pr)
}

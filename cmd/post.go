package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/logging"
	"github.com/presto/internal/posting"
)

// PostCommand returns the post command
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:  "post",
		Usage: "Post drafted replies from the current review session",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "pr",
				Usage:    "PR number the session belongs to",
				Required: true,
			},
			&cli.IntFlag{
				Name:    "thread",
				Aliases: []string{"t"},
				Usage:   "Post drafts for a single thread number",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Post drafts for every eligible thread",
			},
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"d"},
				Usage:   "Report what would be posted without calling the API",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Override the provider to use",
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Use this session `DIR` instead of the latest one",
			},
		},
		Action: runPost,
	}
}

func runPost(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	pr := c.Int("pr")

	sess, err := resolveSession(c, env, pr)
	if err != nil {
		return err
	}

	opts := posting.Options{
		ThreadNumber: c.Int("thread"),
		All:          c.Bool("all"),
		DryRun:       c.Bool("dry-run"),
	}

	slog, serr := logging.OpenSessionLogger(sess.Dir)
	if serr == nil {
		defer slog.Close()
		slog.LogSection("post")
		slog.Log("options: thread=%d all=%v dry_run=%v", opts.ThreadNumber, opts.All, opts.DryRun)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	poster := posting.NewPoster(env.store, providerGateway{provider: env.provider, pr: pr}, env.log)
	result, err := poster.Run(ctx, sess, opts)
	if result != nil {
		printPostResult(result, opts.DryRun)
		if serr == nil {
			slog.Log("posted=%d would_post=%d already_posted=%d skipped_threads=%d",
				len(result.Posted), len(result.WouldPost), len(result.AlreadyPosted), len(result.SkippedThreads))
		}
	}
	if err != nil {
		var derr *posting.DeliveryError
		if errors.As(err, &derr) {
			if serr == nil {
				slog.LogError("post", err)
			}
			return fmt.Errorf("delivery failed at thread %d draft %d, remaining drafts not attempted: %w",
				derr.ThreadNumber, derr.DraftIndex, derr.Err)
		}
		return err
	}
	return nil
}

func printPostResult(result *posting.Result, dryRun bool) {
	if dryRun {
		if len(result.WouldPost) == 0 {
			fmt.Println("Nothing to post")
		}
		for _, a := range result.WouldPost {
			fmt.Printf("Would post thread %d draft %d\n", a.ThreadNumber, a.DraftIndex)
		}
	} else {
		if len(result.Posted) == 0 {
			fmt.Println("Nothing posted")
		}
		for _, a := range result.Posted {
			fmt.Printf("Posted thread %d draft %d", a.ThreadNumber, a.DraftIndex)
			if a.Location != "" {
				fmt.Printf(" (%s)", a.Location)
			}
			fmt.Println()
		}
	}
	for _, a := range result.AlreadyPosted {
		fmt.Printf("Thread %d draft %d already posted, skipped\n", a.ThreadNumber, a.DraftIndex)
	}
	for _, n := range result.SkippedThreads {
		fmt.Printf("Thread %d is manually skipped, not posted\n", n)
	}
}

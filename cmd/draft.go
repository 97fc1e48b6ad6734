package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/session"
)

// DraftCommand returns the draft command
func DraftCommand() *cli.Command {
	return &cli.Command{
		Name:  "draft",
		Usage: "Manage draft replies in the current review session",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Append a draft reply to a thread",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "pr",
						Usage:    "PR number the session belongs to",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "thread",
						Aliases:  []string{"t"},
						Usage:    "Thread number within the session",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "body",
						Aliases:  []string{"b"},
						Usage:    "Draft text",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "author",
						Aliases: []string{"a"},
						Usage:   "Draft author (defaults to the authenticated user)",
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
				Action: runDraftAdd,
			},
		},
	}
}

func runDraftAdd(c *cli.Context) error {
	env, err := setup(c)
	if err != nil {
		return err
	}

	pr := c.Int("pr")
	number := c.Int("thread")

	sess, err := resolveSession(c, env, pr)
	if err != nil {
		return err
	}

	r := sess.RecordByNumber(number)
	if r == nil {
		return fmt.Errorf("%w: thread %d", session.ErrThreadNotFound, number)
	}

	author := c.String("author")
	if author == "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		user, uerr := env.provider.CurrentUser(ctx)
		cancel()
		if uerr != nil {
			env.log.Warn().Err(uerr).Msg("could not determine current user for draft attribution")
			user = "operator"
		}
		author = user
	}

	draft, index, err := env.store.AppendDraft(sess, r.ThreadID, author, c.String("body"))
	if err != nil {
		return fmt.Errorf("failed to add draft: %w", err)
	}

	fmt.Printf("Draft %d added to thread %d by %s at %s\n",
		index, number, draft.Author, draft.CreatedAt.Format(time.RFC3339))
	fmt.Printf("Post it with: presto post --pr %d --thread %d\n", pr, number)
	return nil
}

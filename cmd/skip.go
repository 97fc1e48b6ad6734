package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/session"
)

// SkipCommand returns the skip command
func SkipCommand() *cli.Command {
	return &cli.Command{
		Name:  "skip",
		Usage: "Manage the per-PR manual skip registry",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Mark a thread as manually skipped",
				ArgsUsage: "PR_NUMBER THREAD_NUMBER",
				Action: func(c *cli.Context) error {
					return runSkipToggle(c, true)
				},
			},
			{
				Name:      "rm",
				Usage:     "Remove a thread from the skip registry",
				ArgsUsage: "PR_NUMBER THREAD_NUMBER",
				Action: func(c *cli.Context) error {
					return runSkipToggle(c, false)
				},
			},
			{
				Name:      "ls",
				Usage:     "List manually skipped thread numbers for a PR",
				ArgsUsage: "PR_NUMBER",
				Action:    runSkipList,
			},
		},
	}
}

func runSkipToggle(c *cli.Context, skip bool) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}
	if c.NArg() < 2 {
		return fmt.Errorf("missing required argument: thread number")
	}
	number, err := strconv.Atoi(c.Args().Get(1))
	if err != nil || number <= 0 {
		return fmt.Errorf("invalid thread number: %s", c.Args().Get(1))
	}

	env, err := setup(c)
	if err != nil {
		return err
	}

	sess, err := env.store.Discover(env.repo, pr)
	switch {
	case err == nil:
		if err := env.store.ToggleManualSkip(sess, number, skip); err != nil {
			return err
		}
	case errors.Is(err, session.ErrSessionNotFound):
		// The registry outlives sessions, so the skip list stays
		// editable between analyze runs.
		reg := env.store.Registry()
		if skip {
			err = reg.Add(env.repo, pr, number)
		} else {
			err = reg.Remove(env.repo, pr, number)
		}
		if err != nil {
			return err
		}
	default:
		return err
	}

	if skip {
		fmt.Printf("Thread %d marked as skipped for PR #%d\n", number, pr)
	} else {
		fmt.Printf("Thread %d unskipped for PR #%d\n", number, pr)
	}
	return nil
}

func runSkipList(c *cli.Context) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}

	env, err := setup(c)
	if err != nil {
		return err
	}

	numbers := env.store.ListManuallySkipped(env.repo, pr)
	if len(numbers) == 0 {
		fmt.Printf("No manually skipped threads for PR #%d\n", pr)
		return nil
	}
	fmt.Printf("Manually skipped threads for PR #%d:\n", pr)
	for _, n := range numbers {
		fmt.Printf("  %d\n", n)
	}
	return nil
}

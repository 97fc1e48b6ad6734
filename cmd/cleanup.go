package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// CleanupCommand returns the cleanup command
func CleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete the review session directory for a PR",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Actually delete, required for removal",
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
		ArgsUsage: "PR_NUMBER",
		Action:    runCleanup,
	}
}

func runCleanup(c *cli.Context) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}

	env, err := setup(c)
	if err != nil {
		return err
	}

	sess, err := resolveSession(c, env, pr)
	if err != nil {
		return err
	}

	if !c.Bool("force") {
		fmt.Printf("Would delete session %s\n", sess.Dir)
		fmt.Println("Re-run with --force to delete it. The skip registry is kept either way.")
		return nil
	}

	if err := env.store.Cleanup(sess, true); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	fmt.Printf("Deleted session %s\n", sess.Dir)
	fmt.Println("Skip registry kept, it applies to future sessions for this PR.")
	return nil
}

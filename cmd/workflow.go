package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// Workflow prints the phase-by-phase usage guide. It runs when the tool is
// invoked with no command at all.
func Workflow(c *cli.Context) error {
	fmt.Print(`presto - PR review comment workflow

Phase 1 - Configure
    presto config init
    Fill in the provider token and repository, or export PRESTO_GITHUB_TOKEN.

Phase 2 - Analyze
    presto analyze <pr>
    Fetches every comment, reconstructs threads, decides which ones still
    need a response, and creates a session directory with one file per thread.

Phase 3 - Review
    Read the thread files (thread_NN_author_topic.md) and session_summary.md.
    Skip threads you will not answer: presto skip add <pr> <thread>

Phase 4 - Draft
    presto draft add --pr <pr> --thread <N> --body "your reply"
    Drafts are appended to the thread file; nothing is sent yet.

Phase 5 - Post
    presto post --pr <pr> --all --dry-run    preview
    presto post --pr <pr> --all              deliver
    Posted drafts are terminal: re-running never posts them twice.

Phase 6 - Clean up
    presto cleanup <pr> --force
    Removes the session directory. Manual skips are kept for the next run.

Run 'presto help' for the full command list.
`)
	return nil
}

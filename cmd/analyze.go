package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/presto/internal/logging"
	"github.com/presto/internal/report"
	"github.com/presto/internal/threads"
	"github.com/presto/internal/triage"
)

// AnalyzeCommand returns the analyze command
func AnalyzeCommand() *cli.Command {
	return &cli.Command{
		Name:  "analyze",
		Usage: "Fetch a PR's comments, reconstruct threads and create a review session",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "save",
				Aliases: []string{"s"},
				Usage:   "Save the formatted comment export to `FILE` instead of creating a session",
			},
			&cli.StringFlag{
				Name:  "search",
				Usage: "Search fetched comments for `QUERY` instead of creating a session",
			},
			&cli.StringFlag{
				Name:    "provider",
				Aliases: []string{"p"},
				Usage:   "Override the provider to use",
			},
		},
		ArgsUsage: "PR_NUMBER",
		Action:    runAnalyze,
	}
}

func runAnalyze(c *cli.Context) error {
	pr, err := prArg(c)
	if err != nil {
		return err
	}

	env, err := setup(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Printf("Fetching PR #%d from %s (%s)...\n", pr, env.repo, env.provider.Name())

	data, err := fetchPR(ctx, env, pr)
	if err != nil {
		return err
	}

	fmt.Printf("Found %d general and %d review comments\n", len(data.General), len(data.Review))

	built, err := threads.Build(data.General, data.Review)
	if err != nil {
		return fmt.Errorf("failed to build threads: %w", err)
	}
	for _, t := range built {
		if t.Orphaned {
			env.log.Warn().Int("thread", t.Number).Str("comment_id", t.Root.ID).
				Msg("reply references a missing parent comment, promoted to thread root")
		}
	}

	if query := c.String("search"); query != "" {
		printSearchResults(data, query)
		return nil
	}

	if path := c.String("save"); path != "" {
		formatted := report.FormatPR(data, built)
		if err := os.WriteFile(path, []byte(formatted), 0644); err != nil {
			return fmt.Errorf("failed to save comments: %w", err)
		}
		fmt.Printf("Comments saved to %s\n", path)
		return nil
	}

	// Operator identity for the last-commenter rule. A failed lookup only
	// disables that rule, it never blocks the analysis.
	operator, err := env.provider.CurrentUser(ctx)
	if err != nil {
		env.log.Warn().Err(err).Msg("could not determine current user, last-commenter skip rule disabled")
		operator = ""
	}
	triage.NewEngine(operator).Apply(built)

	sess, err := env.store.Create(env.repo, pr, env.provider.Name(), built)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog, err := logging.OpenSessionLogger(sess.Dir)
	if err == nil {
		defer slog.Close()
		slog.LogSection("analyze")
		slog.Log("fetched PR #%d from %s: %d general, %d review comments",
			pr, env.repo, len(data.General), len(data.Review))
		slog.Log("built %d threads, operator=%q", len(built), operator)
	}

	summary := report.SessionSummary(env.repo, data.Details, sess.Dir, built)
	if err := env.store.WriteFile(sess, "session_summary.md", []byte(summary)); err != nil {
		return fmt.Errorf("failed to write session summary: %w", err)
	}

	needsResponse, skipped := 0, 0
	for _, t := range built {
		if t.Status == threads.StatusNeedsResponse {
			needsResponse++
		} else {
			skipped++
		}
	}

	fmt.Printf("\nSession created: %s\n", sess.Dir)
	fmt.Printf("  %d threads (%d need a response, %d skipped)\n", len(built), needsResponse, skipped)

	fmt.Println("\nSuggestions:")
	for _, s := range report.Suggestions(data) {
		fmt.Printf("  - %s\n", s)
	}

	fmt.Println("\nNext steps:")
	fmt.Printf("  1. Review the thread files in %s\n", sess.Dir)
	fmt.Printf("  2. presto draft add --pr %d --thread <N> --body <text>\n", pr)
	fmt.Printf("  3. presto post --pr %d --all --dry-run\n", pr)
	fmt.Printf("  4. presto post --pr %d --all\n", pr)

	return nil
}

func fetchPR(ctx context.Context, env *appEnv, pr int) (*report.PRData, error) {
	details, err := env.provider.Details(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch PR #%d: %w", pr, err)
	}
	general, err := env.provider.GeneralComments(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch general comments: %w", err)
	}
	review, err := env.provider.ReviewComments(ctx, pr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch review comments: %w", err)
	}
	return &report.PRData{
		Repo:    env.repo,
		Details: details,
		General: general,
		Review:  review,
	}, nil
}

func printSearchResults(data *report.PRData, query string) {
	matches := report.Search(data, query)
	if len(matches) == 0 {
		fmt.Printf("No comments matching %q\n", query)
		return
	}
	fmt.Printf("Found %d comments matching %q:\n\n", len(matches), query)
	for _, m := range matches {
		fmt.Printf("[%s] %s by %s at %s\n", m.Kind, m.Comment.ID, m.Comment.Author,
			m.Comment.CreatedAt.Format(time.RFC3339))
		if m.Comment.Path != "" {
			fmt.Printf("  File: %s, Line: %d\n", m.Comment.Path, m.Comment.Line)
		}
		body := m.Comment.Body
		if len(body) > 200 {
			body = body[:200] + "..."
		}
		fmt.Printf("  %s\n", body)
		fmt.Printf("  Reply with: presto reply %d %s --body \"...\"\n\n", data.Details.Number, m.Comment.ID)
	}
}

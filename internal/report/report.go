// Package report renders human-readable views of a PR and its analysis:
// the single-file comment export, the per-session summary, comment search
// and the post-analysis suggestions.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/presto/internal/providers"
	"github.com/presto/internal/threads"
)

// PRData bundles everything fetched for one PR.
type PRData struct {
	Repo    string
	Details *providers.PullRequestDetails
	General []threads.Comment
	Review  []threads.Comment
}

// Match is one search hit.
type Match struct {
	Kind    threads.Kind
	Comment threads.Comment
}

// Search returns all comments whose body contains the query,
// case-insensitively, general comments first.
func Search(data *PRData, query string) []Match {
	q := strings.ToLower(query)
	var matches []Match
	for _, c := range data.General {
		if strings.Contains(strings.ToLower(c.Body), q) {
			matches = append(matches, Match{Kind: threads.KindGeneral, Comment: c})
		}
	}
	for _, c := range data.Review {
		if strings.Contains(strings.ToLower(c.Body), q) {
			matches = append(matches, Match{Kind: threads.KindReview, Comment: c})
		}
	}
	return matches
}

// FormatPR renders the whole PR as a single markdown document: header,
// description, general comments, threaded review comments, and the
// comment ID summary.
func FormatPR(data *PRData, built []*threads.Thread) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PR #%d: %s\n", data.Details.Number, data.Details.Title)
	fmt.Fprintf(&b, "**Author**: %s\n", data.Details.Author)
	fmt.Fprintf(&b, "**Created**: %s\n", data.Details.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**State**: %s\n\n", data.Details.State)

	if data.Details.Body != "" {
		b.WriteString("## PR Description\n")
		b.WriteString(data.Details.Body)
		b.WriteString("\n\n")
	}

	b.WriteString("## General Comments\n")
	if len(data.General) == 0 {
		b.WriteString("*No general comments found on this PR.*\n")
	}
	for i, c := range data.General {
		fmt.Fprintf(&b, "### Comment %d - ID: %s\n", i+1, c.ID)
		fmt.Fprintf(&b, "**Author**: %s\n", c.Author)
		fmt.Fprintf(&b, "**Created**: %s\n\n", c.CreatedAt.Format(time.RFC3339))
		b.WriteString(c.Body)
		b.WriteString("\n\n")
	}

	b.WriteString("## Review Comments (Inline) - Threaded\n")
	reviewThreads := 0
	for _, t := range built {
		if t.Kind != threads.KindReview {
			continue
		}
		reviewThreads++
		fmt.Fprintf(&b, "### Thread %d\n", t.Number)
		if t.Orphaned {
			b.WriteString("*(Reply to missing comment)*\n")
		}
		fmt.Fprintf(&b, "\n**%s** - *%s*\n", t.Root.Author, t.Root.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "**File**: `%s`", t.Root.Path)
		if t.Root.Line > 0 {
			fmt.Fprintf(&b, " **Line**: %d", t.Root.Line)
		}
		fmt.Fprintf(&b, "\n**Comment ID**: %s\n\n", t.Root.ID)
		b.WriteString(t.Root.Body)
		b.WriteString("\n\n")
		for _, reply := range t.Replies {
			fmt.Fprintf(&b, "  > **%s** - *%s* (Reply ID: %s)\n", reply.Author, reply.CreatedAt.Format(time.RFC3339), reply.ID)
			for _, line := range strings.Split(reply.Body, "\n") {
				fmt.Fprintf(&b, "  > %s\n", line)
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	if reviewThreads == 0 {
		b.WriteString("*No review comments found on this PR.*\n\n")
	}

	b.WriteString("## Comment ID Summary\n")
	b.WriteString("### General Comment IDs:\n")
	for i, c := range data.General {
		fmt.Fprintf(&b, "- Comment %d: %s by %s\n", i+1, c.ID, c.Author)
	}
	b.WriteString("### Review Comment IDs:\n")
	for i, c := range data.Review {
		fmt.Fprintf(&b, "- Review Comment %d: %s by %s (File: %s, Line: %d)\n", i+1, c.ID, c.Author, c.Path, c.Line)
	}

	return b.String()
}

// SessionSummary renders session_summary.md: statistics, priority
// breakdown, thread list and next steps.
func SessionSummary(repo string, details *providers.PullRequestDetails, sessionDir string, built []*threads.Thread) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# PR %d Review Session\n\n", details.Number)
	fmt.Fprintf(&b, "**Repository**: %s\n", repo)
	fmt.Fprintf(&b, "**PR Title**: %s\n", details.Title)
	fmt.Fprintf(&b, "**PR Author**: %s\n", details.Author)
	fmt.Fprintf(&b, "**Session Directory**: %s\n", sessionDir)
	fmt.Fprintf(&b, "**Created**: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	general, review, replies, needsResponse := 0, 0, 0, 0
	priorities := make(map[string]int)
	for _, t := range built {
		switch t.Kind {
		case threads.KindGeneral:
			general++
		case threads.KindReview:
			review++
		}
		replies += len(t.Replies)
		if t.Status == threads.StatusNeedsResponse {
			needsResponse++
		}
		priorities[t.Priority]++
	}

	b.WriteString("## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Threads**: %d\n", len(built))
	fmt.Fprintf(&b, "- **General Comment Threads**: %d\n", general)
	fmt.Fprintf(&b, "- **Review Comment Threads**: %d\n", review)
	fmt.Fprintf(&b, "- **Total Replies**: %d\n", replies)
	fmt.Fprintf(&b, "- **Needs Response**: %d\n\n", needsResponse)

	b.WriteString("## Priority Breakdown\n\n")
	keys := make([]string, 0, len(priorities))
	for k := range priorities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- **%s**: %d\n", capitalize(k), priorities[k])
	}
	b.WriteString("\n")

	b.WriteString("## Threads\n\n")
	for _, t := range built {
		status := string(t.Status)
		if t.SkipReason != "" {
			status += " (" + t.SkipReason + ")"
		}
		fmt.Fprintf(&b, "%d. **%s** (%s) - %s [%s]\n", t.Number, t.Root.Author, t.Priority, truncate(firstBodyLine(t.Root.Body), 50), status)
	}
	b.WriteString("\n")

	b.WriteString("## Next Steps\n\n")
	b.WriteString("1. Review each thread file for context\n")
	b.WriteString("2. Prioritize responses based on priority levels\n")
	b.WriteString("3. Use `presto draft add --thread <N> --body <text>` to record responses\n")
	b.WriteString("4. Use `presto post --dry-run --all` to preview, then `presto post --all`\n")

	return b.String()
}

// Suggestions scans the fetched comments and points the operator at
// likely response work.
func Suggestions(data *PRData) []string {
	all := append(append([]threads.Comment{}, data.General...), data.Review...)
	if len(all) == 0 {
		return []string{"No comments to respond to yet."}
	}

	out := []string{fmt.Sprintf("Total comments: %d general + %d review = %d total",
		len(data.General), len(data.Review), len(all))}

	questions := 0
	for _, c := range all {
		if strings.Contains(c.Body, "?") {
			questions++
		}
	}
	if questions > 0 {
		out = append(out, fmt.Sprintf("Found %d comments with questions that may need answers.", questions))
	}

	requests := countMatching(all, []string{"review", "feedback", "thoughts", "opinion"})
	if requests > 0 {
		out = append(out, fmt.Sprintf("Found %d comments requesting review or feedback.", requests))
	}

	concerns := countMatching(all, []string{"concern", "issue", "problem", "bug", "error", "missing", "not found"})
	if concerns > 0 {
		out = append(out, fmt.Sprintf("Found %d comments mentioning concerns or issues.", concerns))
	}

	if len(all) > 3 {
		out = append(out, "Multiple comments found - check for ongoing discussions.")
	}
	return out
}

func countMatching(comments []threads.Comment, words []string) int {
	count := 0
	for _, c := range comments {
		lower := strings.ToLower(c.Body)
		for _, w := range words {
			if strings.Contains(lower, w) {
				count++
				break
			}
		}
	}
	return count
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func firstBodyLine(s string) string {
	if idx := strings.IndexRune(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

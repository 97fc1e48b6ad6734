// Package providers defines the host-side collaborators: the comment
// source the analysis reads from and the gateway replies are delivered
// through.
package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/presto/internal/threads"
)

// Provider is a code host holding one pull/merge request: it supplies the
// flat comment collections and delivers replies. Fetch failures are fatal
// to the caller; partial results are never returned.
type Provider interface {
	Name() string

	// Details fetches the PR header used for session metadata and reports.
	Details(ctx context.Context, pr int) (*PullRequestDetails, error)

	// GeneralComments fetches top-level PR comments.
	GeneralComments(ctx context.Context, pr int) ([]threads.Comment, error)

	// ReviewComments fetches inline review comments, following pagination
	// to the end.
	ReviewComments(ctx context.Context, pr int) ([]threads.Comment, error)

	// PostReply delivers one reply. A review kind threads the reply under
	// originalCommentID; a general kind posts a top-level comment and
	// ignores it. Returns the web location of the created comment.
	PostReply(ctx context.Context, pr int, originalCommentID, content string, kind threads.Kind) (string, error)

	// CurrentUser resolves the operator identity for triage. Callers must
	// tolerate an error here: unknown identity only disables the
	// last-commenter rule.
	CurrentUser(ctx context.Context) (string, error)
}

// PullRequestDetails is the header of the request under review.
type PullRequestDetails struct {
	Number    int
	Title     string
	Author    string
	Body      string
	State     string
	CreatedAt time.Time
	WebURL    string
}

// SplitRepo parses "owner/name" into its parts.
func SplitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", "", fmt.Errorf("invalid repo %q (expected owner/repo)", repo)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}

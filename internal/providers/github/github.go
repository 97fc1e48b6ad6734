// Package github implements the provider against the GitHub REST API via
// google/go-github.
package github

import (
	"context"
	"fmt"
	"strconv"

	gh "github.com/google/go-github/v84/github"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/presto/internal/capture"
	"github.com/presto/internal/providers"
	"github.com/presto/internal/retry"
	"github.com/presto/internal/threads"
)

const perPage = 100

// Config holds GitHub provider settings.
type Config struct {
	Token string `koanf:"token"`
	Repo  string `koanf:"repo"` // owner/repo
}

// Provider talks to a single GitHub repository. All API calls share one
// client-side rate limiter so a large PR cannot burn the API quota.
type Provider struct {
	client  *gh.Client
	owner   string
	repo    string
	limiter *rate.Limiter
	retry   retry.Config
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Provider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	owner, repo, err := providers.SplitRepo(cfg.Repo)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:  gh.NewClient(nil).WithAuthToken(cfg.Token),
		owner:   owner,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   retry.DefaultConfig(),
		log:     log,
	}, nil
}

func (p *Provider) Name() string { return "github" }

func (p *Provider) Details(ctx context.Context, pr int) (*providers.PullRequestDetails, error) {
	var pull *gh.PullRequest
	err := retry.Do(ctx, p.retry, p.log, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		pull, _, err = p.client.PullRequests.Get(ctx, p.owner, p.repo, pr)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch PR %d details: %w", pr, err)
	}

	return &providers.PullRequestDetails{
		Number:    pull.GetNumber(),
		Title:     pull.GetTitle(),
		Author:    pull.GetUser().GetLogin(),
		Body:      pull.GetBody(),
		State:     pull.GetState(),
		CreatedAt: pull.GetCreatedAt().Time,
		WebURL:    pull.GetHTMLURL(),
	}, nil
}

func (p *Provider) GeneralComments(ctx context.Context, pr int) ([]threads.Comment, error) {
	var all []threads.Comment
	opts := &gh.IssueListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	for {
		var page []*gh.IssueComment
		var resp *gh.Response
		err := retry.Do(ctx, p.retry, p.log, func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, resp, err = p.client.Issues.ListComments(ctx, p.owner, p.repo, pr, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch PR %d comments: %w", pr, err)
		}

		for _, c := range page {
			all = append(all, threads.Comment{
				ID:        strconv.FormatInt(c.GetID(), 10),
				Author:    c.GetUser().GetLogin(),
				CreatedAt: c.GetCreatedAt().Time,
				Body:      c.GetBody(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	capture.WriteJSON("github-general-comments", all)
	return all, nil
}

func (p *Provider) ReviewComments(ctx context.Context, pr int) ([]threads.Comment, error) {
	var all []threads.Comment
	opts := &gh.PullRequestListCommentsOptions{ListOptions: gh.ListOptions{PerPage: perPage}}

	for {
		var page []*gh.PullRequestComment
		var resp *gh.Response
		err := retry.Do(ctx, p.retry, p.log, func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, resp, err = p.client.PullRequests.ListComments(ctx, p.owner, p.repo, pr, opts)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch PR %d review comments: %w", pr, err)
		}

		for _, c := range page {
			comment := threads.Comment{
				ID:        strconv.FormatInt(c.GetID(), 10),
				Author:    c.GetUser().GetLogin(),
				CreatedAt: c.GetCreatedAt().Time,
				Body:      c.GetBody(),
				Path:      c.GetPath(),
				Line:      c.GetLine(),
			}
			if c.InReplyTo != nil {
				comment.ParentID = strconv.FormatInt(c.GetInReplyTo(), 10)
			}
			all = append(all, comment)
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	capture.WriteJSON("github-review-comments", all)
	return all, nil
}

func (p *Provider) PostReply(ctx context.Context, pr int, originalCommentID, content string, kind threads.Kind) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if kind == threads.KindReview {
		id, err := strconv.ParseInt(originalCommentID, 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid review comment id %q: %w", originalCommentID, err)
		}
		created, _, err := p.client.PullRequests.CreateCommentInReplyTo(ctx, p.owner, p.repo, pr, content, id)
		if err != nil {
			return "", fmt.Errorf("post review reply to %s: %w", originalCommentID, err)
		}
		return created.GetHTMLURL(), nil
	}

	created, _, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, pr, &gh.IssueComment{
		Body: gh.Ptr(content),
	})
	if err != nil {
		return "", fmt.Errorf("post general comment: %w", err)
	}
	return created.GetHTMLURL(), nil
}

func (p *Provider) CurrentUser(ctx context.Context) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	user, _, err := p.client.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("resolve authenticated user: %w", err)
	}
	return user.GetLogin(), nil
}

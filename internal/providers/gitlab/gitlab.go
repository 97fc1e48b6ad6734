// Package gitlab implements the provider against the GitLab API. Merge
// request discussions are flattened onto the shared comment model: the
// first note of a discussion is the thread root and every later note
// carries the root's ID as its reply pointer.
package gitlab

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/presto/internal/capture"
	"github.com/presto/internal/providers"
	"github.com/presto/internal/retry"
	"github.com/presto/internal/threads"
)

const perPage = 100

// Config holds GitLab provider settings.
type Config struct {
	URL     string `koanf:"url"`
	Token   string `koanf:"token"`
	Project string `koanf:"project"` // group/project path
}

// Provider talks to a single GitLab project. The PR number maps to the
// merge request IID.
type Provider struct {
	client  *gitlab.Client
	project string
	limiter *rate.Limiter
	retry   retry.Config
	log     zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) (*Provider, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("gitlab token is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("gitlab project is required")
	}

	var opts []gitlab.ClientOptionFunc
	if cfg.URL != "" {
		opts = append(opts, gitlab.WithBaseURL(cfg.URL+"/api/v4"))
	}
	client, err := gitlab.NewClient(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}

	return &Provider{
		client:  client,
		project: cfg.Project,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		retry:   retry.DefaultConfig(),
		log:     log,
	}, nil
}

func (p *Provider) Name() string { return "gitlab" }

func (p *Provider) Details(ctx context.Context, pr int) (*providers.PullRequestDetails, error) {
	var mr *gitlab.MergeRequest
	err := retry.Do(ctx, p.retry, p.log, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		mr, _, err = p.client.MergeRequests.GetMergeRequest(p.project, pr, nil, gitlab.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fetch MR %d details: %w", pr, err)
	}

	details := &providers.PullRequestDetails{
		Number: mr.IID,
		Title:  mr.Title,
		Body:   mr.Description,
		State:  mr.State,
		WebURL: mr.WebURL,
	}
	if mr.Author != nil {
		details.Author = mr.Author.Username
	}
	if mr.CreatedAt != nil {
		details.CreatedAt = *mr.CreatedAt
	}
	return details, nil
}

func (p *Provider) GeneralComments(ctx context.Context, pr int) ([]threads.Comment, error) {
	discussions, err := p.listDiscussions(ctx, pr)
	if err != nil {
		return nil, err
	}

	var all []threads.Comment
	for _, d := range discussions {
		if !d.IndividualNote {
			continue
		}
		for _, n := range d.Notes {
			if n.System {
				continue
			}
			all = append(all, noteToComment(n, ""))
		}
	}
	return all, nil
}

func (p *Provider) ReviewComments(ctx context.Context, pr int) ([]threads.Comment, error) {
	discussions, err := p.listDiscussions(ctx, pr)
	if err != nil {
		return nil, err
	}

	var all []threads.Comment
	for _, d := range discussions {
		if d.IndividualNote {
			continue
		}
		rootID := ""
		for _, n := range d.Notes {
			if n.System {
				continue
			}
			all = append(all, noteToComment(n, rootID))
			if rootID == "" {
				rootID = strconv.Itoa(n.ID)
			}
		}
	}
	return all, nil
}

func (p *Provider) listDiscussions(ctx context.Context, pr int) ([]*gitlab.Discussion, error) {
	var all []*gitlab.Discussion
	opts := &gitlab.ListMergeRequestDiscussionsOptions{PerPage: perPage}

	for {
		var page []*gitlab.Discussion
		var resp *gitlab.Response
		err := retry.Do(ctx, p.retry, p.log, func() error {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, resp, err = p.client.Discussions.ListMergeRequestDiscussions(p.project, pr, opts, gitlab.WithContext(ctx))
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch MR %d discussions: %w", pr, err)
		}

		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	capture.WriteJSON("gitlab-discussions", all)
	return all, nil
}

func (p *Provider) PostReply(ctx context.Context, pr int, originalCommentID, content string, kind threads.Kind) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}

	if kind == threads.KindReview {
		discussionID, err := p.findDiscussion(ctx, pr, originalCommentID)
		if err != nil {
			return "", err
		}
		note, _, err := p.client.Discussions.AddMergeRequestDiscussionNote(p.project, pr, discussionID,
			&gitlab.AddMergeRequestDiscussionNoteOptions{Body: gitlab.Ptr(content)}, gitlab.WithContext(ctx))
		if err != nil {
			return "", fmt.Errorf("post discussion reply to note %s: %w", originalCommentID, err)
		}
		return fmt.Sprintf("note %d in discussion %s", note.ID, discussionID), nil
	}

	note, _, err := p.client.Notes.CreateMergeRequestNote(p.project, pr,
		&gitlab.CreateMergeRequestNoteOptions{Body: gitlab.Ptr(content)}, gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("post MR note: %w", err)
	}
	return fmt.Sprintf("note %d", note.ID), nil
}

// findDiscussion resolves the discussion holding a note; replies on GitLab
// are addressed per discussion, not per note.
func (p *Provider) findDiscussion(ctx context.Context, pr int, noteID string) (string, error) {
	discussions, err := p.listDiscussions(ctx, pr)
	if err != nil {
		return "", err
	}
	for _, d := range discussions {
		for _, n := range d.Notes {
			if strconv.Itoa(n.ID) == noteID {
				return d.ID, nil
			}
		}
	}
	return "", fmt.Errorf("no discussion contains note %s", noteID)
}

func (p *Provider) CurrentUser(ctx context.Context) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", err
	}
	user, _, err := p.client.Users.CurrentUser(gitlab.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("resolve authenticated user: %w", err)
	}
	return user.Username, nil
}

func noteToComment(n *gitlab.Note, parentID string) threads.Comment {
	c := threads.Comment{
		ID:       strconv.Itoa(n.ID),
		Author:   n.Author.Username,
		Body:     n.Body,
		ParentID: parentID,
	}
	if n.CreatedAt != nil {
		c.CreatedAt = *n.CreatedAt
	}
	if n.Position != nil {
		c.Path = n.Position.NewPath
		c.Line = n.Position.NewLine
	}
	return c
}

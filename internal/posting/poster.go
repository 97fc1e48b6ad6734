// Package posting drives drafts through their delivery lifecycle:
// DRAFTED -> POSTED, at most once per draft.
package posting

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/presto/internal/session"
	"github.com/presto/internal/threads"
)

// Gateway delivers one reply into the review conversation. Kind selects
// between a threaded inline reply (originalCommentID required) and a
// general top-level reply (originalCommentID ignored).
type Gateway interface {
	PostReply(ctx context.Context, originalCommentID, content string, kind threads.Kind) (location string, err error)
}

// DeliveryError reports the draft whose gateway call failed. Delivery is
// fail-fast: nothing after the failing draft is attempted.
type DeliveryError struct {
	ThreadNumber int
	DraftIndex   int
	Err          error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("post draft %d of thread %02d: %v", e.DraftIndex, e.ThreadNumber, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Options selects the posting scope. Zero ThreadNumber with All unset is
// invalid; exactly one must be chosen.
type Options struct {
	ThreadNumber int
	All          bool
	DryRun       bool
}

// Action records what happened (or would happen) to one draft.
type Action struct {
	ThreadNumber int
	ThreadID     string
	DraftIndex   int
	Location     string
}

// Result summarizes one posting run.
type Result struct {
	Posted         []Action // delivered and marked posted
	WouldPost      []Action // dry-run only: eligible drafts
	AlreadyPosted  []Action // skipped, terminal state reached earlier
	SkippedThreads []int    // thread numbers excluded by manual skip
}

// Poster iterates session threads in stable file order and posts eligible
// drafts through the gateway.
type Poster struct {
	store *session.Store
	gw    Gateway
	log   zerolog.Logger
}

func NewPoster(store *session.Store, gw Gateway, log zerolog.Logger) *Poster {
	return &Poster{store: store, gw: gw, log: log}
}

// Run executes the posting loop. Eligibility per draft: the thread must
// not be manually skipped (registry or record marker, checked now rather
// than at analysis time), and the draft must not already be posted. On a
// gateway failure the run halts immediately and returns the partial result
// alongside a DeliveryError; drafts already posted stay posted.
//
// Dry-run mode walks the identical eligibility logic but never invokes the
// gateway and never transitions state, so its output is a reliable preview
// of a real run.
func (p *Poster) Run(ctx context.Context, sess *session.Session, opts Options) (*Result, error) {
	if opts.All == (opts.ThreadNumber != 0) {
		return nil, fmt.Errorf("posting scope: specify a thread number or all, not both")
	}

	res := &Result{}
	for _, r := range sess.Records {
		if !opts.All && r.Number != opts.ThreadNumber {
			continue
		}
		if err := p.postThread(ctx, sess, r, opts, res); err != nil {
			return res, err
		}
	}

	if !opts.All && opts.ThreadNumber != 0 && sess.RecordByNumber(opts.ThreadNumber) == nil {
		return res, fmt.Errorf("%w: thread %d", session.ErrThreadNotFound, opts.ThreadNumber)
	}
	return res, nil
}

func (p *Poster) postThread(ctx context.Context, sess *session.Session, r *session.Record, opts Options, res *Result) error {
	if p.store.IsManuallySkipped(sess, r.ThreadID) {
		p.log.Debug().Int("thread", r.Number).Msg("manually skipped, no posts")
		res.SkippedThreads = append(res.SkippedThreads, r.Number)
		return nil
	}

	for i, d := range r.Drafts {
		action := Action{ThreadNumber: r.Number, ThreadID: r.ThreadID, DraftIndex: i}

		if d.Posted {
			res.AlreadyPosted = append(res.AlreadyPosted, action)
			continue
		}
		if opts.DryRun {
			res.WouldPost = append(res.WouldPost, action)
			continue
		}

		location, err := p.gw.PostReply(ctx, r.Root.ID, d.Content, r.Kind)
		if err != nil {
			return &DeliveryError{ThreadNumber: r.Number, DraftIndex: i, Err: err}
		}
		if err := p.store.MarkPosted(sess, r.ThreadID, i); err != nil {
			// The gateway accepted the reply but the posted flag did not
			// land; surface it so the operator can verify by hand.
			return fmt.Errorf("reply delivered but not marked posted (thread %02d draft %d): %w", r.Number, i, err)
		}

		action.Location = location
		res.Posted = append(res.Posted, action)
		p.log.Info().Int("thread", r.Number).Int("draft", i).Str("location", location).Msg("draft posted")
	}
	return nil
}

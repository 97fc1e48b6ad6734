package threads

import (
	"fmt"
	"time"
)

// Kind distinguishes top-level PR comments from inline review comments.
type Kind string

const (
	KindGeneral Kind = "general"
	KindReview  Kind = "review"
)

// Status is the triage outcome recorded for a thread.
type Status string

const (
	StatusNeedsResponse   Status = "needs_response"
	StatusAutoSkipped     Status = "auto_skipped"
	StatusManuallySkipped Status = "manually_skipped"
)

// Comment is a single comment fetched from the host provider. Identity is
// the host-assigned ID; ParentID is empty for top-level comments.
type Comment struct {
	ID        string    `yaml:"id"`
	Author    string    `yaml:"author"`
	CreatedAt time.Time `yaml:"created_at"`
	Body      string    `yaml:"body"`
	Path      string    `yaml:"path,omitempty"`
	Line      int       `yaml:"line,omitempty"`
	ParentID  string    `yaml:"parent_id,omitempty"`
}

// Validate checks the fields every comment must carry before it can enter
// thread reconstruction.
func (c Comment) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("comment missing id (author=%q)", c.Author)
	}
	if c.Author == "" {
		return fmt.Errorf("comment %s missing author", c.ID)
	}
	return nil
}

// Thread is a root comment plus its ordered replies, the unit of
// needs-a-response decision-making.
type Thread struct {
	ID      string
	Number  int // 1-based display number, assigned after sorting
	Kind    Kind
	Root    Comment
	Replies []Comment

	// Orphaned marks a reply whose declared parent resolved to no known
	// thread root; it is promoted to stand alone rather than dropped.
	Orphaned bool

	Status     Status
	SkipReason string

	Priority   string
	Complexity string
}

// LastComment returns the most recent comment in the thread: the root when
// there are no replies, otherwise the latest reply.
func (t *Thread) LastComment() Comment {
	if len(t.Replies) == 0 {
		return t.Root
	}
	return t.Replies[len(t.Replies)-1]
}

// CommentCount returns the number of comments in the thread, root included.
func (t *Thread) CommentCount() int {
	return 1 + len(t.Replies)
}

// AllComments returns the root followed by the ordered replies.
func (t *Thread) AllComments() []Comment {
	all := make([]Comment, 0, t.CommentCount())
	all = append(all, t.Root)
	all = append(all, t.Replies...)
	return all
}

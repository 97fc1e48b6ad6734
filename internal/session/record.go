package session

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/presto/internal/threads"
)

const frontmatterDelim = "---"

// Record is the on-disk representation of one thread: YAML frontmatter is
// the authoritative structured state, the markdown body below it is a
// regenerated display copy and is never parsed back.
type Record struct {
	ThreadID   string         `yaml:"thread_id"`
	Number     int            `yaml:"number"`
	Kind       threads.Kind   `yaml:"kind"`
	Status     threads.Status `yaml:"status"`
	SkipReason string         `yaml:"skip_reason,omitempty"`
	Orphaned   bool           `yaml:"orphaned,omitempty"`

	// ManuallySkipped mirrors the skip registry for human readers of this
	// file; the registry remains the authoritative source.
	ManuallySkipped bool `yaml:"manually_skipped"`

	Priority   string `yaml:"priority,omitempty"`
	Complexity string `yaml:"complexity,omitempty"`

	Root    threads.Comment   `yaml:"root"`
	Replies []threads.Comment `yaml:"replies,omitempty"`
	Drafts  []Draft           `yaml:"drafts,omitempty"`

	// Filename is the record's basename within the session directory.
	Filename string `yaml:"-"`
}

func newRecord(t *threads.Thread) *Record {
	return &Record{
		ThreadID:   t.ID,
		Number:     t.Number,
		Kind:       t.Kind,
		Status:     t.Status,
		SkipReason: t.SkipReason,
		Orphaned:   t.Orphaned,
		Priority:   t.Priority,
		Complexity: t.Complexity,
		Root:       t.Root,
		Replies:    t.Replies,
		Filename:   recordFilename(t),
	}
}

// recordFilename derives thread_NN_author_topic.md from the root comment,
// with the topic slug taken from the first body line.
func recordFilename(t *threads.Thread) string {
	return fmt.Sprintf("thread_%02d_%s_%s.md", t.Number, slugify(t.Root.Author, 20), slugify(firstLine(t.Root.Body), 30))
}

func firstLine(s string) string {
	if idx := strings.IndexRune(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

func slugify(s string, max int) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '/', r == '\\', r == '.':
			b.WriteRune('_')
		}
		if b.Len() >= max {
			break
		}
	}
	if b.Len() == 0 {
		return "unknown"
	}
	return b.String()
}

// Encode renders the record as frontmatter plus the display body.
func (r *Record) Encode() ([]byte, error) {
	meta, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", r.ThreadID, err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelim + "\n")
	b.Write(meta)
	b.WriteString(frontmatterDelim + "\n\n")
	b.WriteString(r.displayBody())
	return []byte(b.String()), nil
}

// DecodeRecord parses a record file. Only the frontmatter is read back;
// malformed frontmatter is an explicit error, never a best-effort value.
func DecodeRecord(data []byte, filename string) (*Record, error) {
	text := string(data)
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, fmt.Errorf("record %s: missing frontmatter delimiter", filename)
	}
	rest := text[len(frontmatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelim)
	if end < 0 {
		return nil, fmt.Errorf("record %s: unterminated frontmatter", filename)
	}

	var r Record
	if err := yaml.Unmarshal([]byte(rest[:end]), &r); err != nil {
		return nil, fmt.Errorf("record %s: parse frontmatter: %w", filename, err)
	}
	if r.ThreadID == "" {
		return nil, fmt.Errorf("record %s: missing thread_id", filename)
	}
	r.Filename = filename
	return &r, nil
}

func (r *Record) displayBody() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Thread %02d\n\n", r.Number)
	b.WriteString("## Metadata\n")
	fmt.Fprintf(&b, "- **Type**: %s\n", r.Kind)
	fmt.Fprintf(&b, "- **Status**: %s\n", r.Status)
	if r.SkipReason != "" {
		fmt.Fprintf(&b, "- **Skip Reason**: %s\n", r.SkipReason)
	}
	fmt.Fprintf(&b, "- **Priority**: %s\n", r.Priority)
	fmt.Fprintf(&b, "- **Complexity**: %s\n", r.Complexity)
	if r.ManuallySkipped {
		b.WriteString("- **Manually Skipped**: yes\n")
	}
	if r.Orphaned {
		b.WriteString("- **Note**: Reply to missing comment\n")
	}
	b.WriteString("\n## Main Comment\n\n")
	fmt.Fprintf(&b, "**Author**: %s\n", r.Root.Author)
	fmt.Fprintf(&b, "**Created**: %s\n", r.Root.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "**Comment ID**: %s\n", r.Root.ID)
	if r.Kind == threads.KindReview && r.Root.Path != "" {
		fmt.Fprintf(&b, "**File**: `%s`\n", r.Root.Path)
		if r.Root.Line > 0 {
			fmt.Fprintf(&b, "**Line**: %d\n", r.Root.Line)
		}
	}
	b.WriteString("\n")
	b.WriteString(r.Root.Body)
	b.WriteString("\n")

	if len(r.Replies) > 0 {
		b.WriteString("\n## Replies\n")
		for i, reply := range r.Replies {
			fmt.Fprintf(&b, "\n### Reply %d\n\n", i+1)
			fmt.Fprintf(&b, "**Author**: %s\n", reply.Author)
			fmt.Fprintf(&b, "**Created**: %s\n", reply.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(&b, "**Reply ID**: %s\n\n", reply.ID)
			b.WriteString(reply.Body)
			b.WriteString("\n")
		}
	}

	if len(r.Drafts) > 0 {
		b.WriteString("\n## Drafts\n")
		for i, d := range r.Drafts {
			fmt.Fprintf(&b, "\n### Draft %d\n\n", i)
			fmt.Fprintf(&b, "**Author**: %s\n", d.Author)
			fmt.Fprintf(&b, "**Created**: %s\n", d.CreatedAt.Format(time.RFC3339))
			if d.Posted && d.PostedAt != nil {
				fmt.Fprintf(&b, "**Posted**: %s\n", d.PostedAt.Format(time.RFC3339))
			} else {
				b.WriteString("**Posted**: no\n")
			}
			b.WriteString("\n")
			b.WriteString(d.Content)
			b.WriteString("\n")
		}
	}

	return b.String()
}

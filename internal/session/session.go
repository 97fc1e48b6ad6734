// Package session persists one analysis run to disk: one directory per
// run, one record file per thread, plus a cross-run registry of manually
// skipped thread numbers keyed by repository and PR.
//
// The tool is single-operator and single-process. Concurrent invocations
// against the same session directory are unsupported: there is no locking,
// and simultaneous writers degrade to last-writer-wins per file.
package session

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when no session exists for the
	// requested PR; the caller should run analyze first.
	ErrSessionNotFound = errors.New("session not found")

	// ErrThreadNotFound is returned when a thread ID or number does not
	// match any record in the session.
	ErrThreadNotFound = errors.New("thread not found in session")

	// ErrDraftNotFound is returned for an out-of-range draft index.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrAlreadyPosted is returned when a posted draft would be posted or
	// mutated again. Posted is a terminal state.
	ErrAlreadyPosted = errors.New("draft already posted")
)

// Meta identifies a session on disk.
type Meta struct {
	ID        string    `yaml:"id"`
	Repo      string    `yaml:"repo"`
	PR        int       `yaml:"pr"`
	Provider  string    `yaml:"provider"`
	CreatedAt time.Time `yaml:"created_at"`
}

// Draft is one candidate reply recorded against a thread. Drafts are
// append-only; the sequence index is the draft's position in the record.
type Draft struct {
	Author    string     `yaml:"author"`
	Content   string     `yaml:"content"`
	CreatedAt time.Time  `yaml:"created_at"`
	Posted    bool       `yaml:"posted"`
	PostedAt  *time.Time `yaml:"posted_at,omitempty"`
}

// Session is a loaded analysis run: its metadata plus every thread record
// in stable file order.
type Session struct {
	Dir     string
	Meta    Meta
	Records []*Record

	byID map[string]*Record
}

// Record returns the thread record with the given thread ID, or nil.
func (s *Session) Record(threadID string) *Record {
	return s.byID[threadID]
}

// RecordByNumber returns the thread record with the given display number,
// or nil.
func (s *Session) RecordByNumber(n int) *Record {
	for _, r := range s.Records {
		if r.Number == n {
			return r
		}
	}
	return nil
}

func (s *Session) index() {
	s.byID = make(map[string]*Record, len(s.Records))
	for _, r := range s.Records {
		s.byID[r.ThreadID] = r
	}
}

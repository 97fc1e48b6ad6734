package threads

import (
	"fmt"
	"sort"
)

// Build reconstructs conversation threads from the flat comment collections
// returned by the provider. Review comments carry reply pointers and are
// grouped into threads; each general comment becomes its own singleton
// thread.
//
// Construction is two-pass because a reply may appear before its parent in
// the input. Replies are attached to the thread whose root ID matches their
// ParentID; a reply pointing at anything else (an unknown ID, or another
// reply) is promoted to an orphaned root so that no comment is lost.
// Reply-to-reply chains are therefore flattened onto the top-level root;
// the record format stores a flat ordered reply list.
//
// The returned threads are sorted by the root comment's creation time,
// stable on ties, and numbered from 1 in that order.
func Build(general, review []Comment) ([]*Thread, error) {
	for _, c := range general {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("general comment: %w", err)
		}
	}
	for _, c := range review {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("review comment: %w", err)
		}
	}

	byRoot := make(map[string]*Thread, len(review))
	order := make(map[string]int) // thread ID -> input position, for stable ties
	var result []*Thread

	add := func(t *Thread, pos int) {
		byRoot[t.Root.ID] = t
		order[t.ID] = pos
		result = append(result, t)
	}

	// First pass: register every top-level review comment as a thread root.
	for i, c := range review {
		if c.ParentID != "" {
			continue
		}
		add(&Thread{
			ID:     c.ID,
			Kind:   KindReview,
			Root:   c,
			Status: StatusNeedsResponse,
		}, i)
	}

	// Second pass: attach replies to their root, or promote danglers.
	for i, c := range review {
		if c.ParentID == "" {
			continue
		}
		if parent, ok := byRoot[c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
			continue
		}
		add(&Thread{
			ID:       c.ID,
			Kind:     KindReview,
			Root:     c,
			Orphaned: true,
			Status:   StatusNeedsResponse,
		}, i)
	}

	for i, c := range general {
		t := &Thread{
			ID:     "general_" + c.ID,
			Kind:   KindGeneral,
			Root:   c,
			Status: StatusNeedsResponse,
		}
		order[t.ID] = len(review) + i
		result = append(result, t)
	}

	for _, t := range result {
		sortReplies(t.Replies)
	}

	sort.SliceStable(result, func(i, j int) bool {
		ti, tj := result[i], result[j]
		if ti.Root.CreatedAt.Equal(tj.Root.CreatedAt) {
			return order[ti.ID] < order[tj.ID]
		}
		return ti.Root.CreatedAt.Before(tj.Root.CreatedAt)
	})
	for i, t := range result {
		t.Number = i + 1
	}

	return result, nil
}

func sortReplies(replies []Comment) {
	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].CreatedAt.Before(replies[j].CreatedAt)
	})
}

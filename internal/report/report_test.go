package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presto/internal/providers"
	"github.com/presto/internal/threads"
)

func fixtureData() *PRData {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return &PRData{
		Repo: "owner/repo",
		Details: &providers.PullRequestDetails{
			Number:    42,
			Title:     "Add caching layer",
			Author:    "alice",
			Body:      "Caches hot lookups.",
			State:     "open",
			CreatedAt: base,
		},
		General: []threads.Comment{
			{ID: "7", Author: "carol", CreatedAt: base.Add(time.Minute), Body: "Looks good overall"},
		},
		Review: []threads.Comment{
			{ID: "100", Author: "bob", CreatedAt: base.Add(2 * time.Minute), Body: "Why not use a sync.Map here?", Path: "cache.go", Line: 12},
		},
	}
}

func TestSearchMatchesCaseInsensitive(t *testing.T) {
	data := fixtureData()

	matches := Search(data, "SYNC.MAP")
	require.Len(t, matches, 1)
	assert.Equal(t, threads.KindReview, matches[0].Kind)
	assert.Equal(t, "100", matches[0].Comment.ID)

	assert.Empty(t, Search(data, "nonexistent"))

	// General matches come before review matches.
	matches = Search(data, "o")
	require.Len(t, matches, 2)
	assert.Equal(t, threads.KindGeneral, matches[0].Kind)
}

func TestFormatPRIncludesThreadsAndIDs(t *testing.T) {
	data := fixtureData()
	built, err := threads.Build(data.General, data.Review)
	require.NoError(t, err)

	out := FormatPR(data, built)
	assert.Contains(t, out, "# PR #42: Add caching layer")
	assert.Contains(t, out, "## PR Description")
	assert.Contains(t, out, "Looks good overall")
	assert.Contains(t, out, "**File**: `cache.go`")
	assert.Contains(t, out, "**Comment ID**: 100")
	assert.Contains(t, out, "- Review Comment 1: 100 by bob")
}

func TestSessionSummaryCounts(t *testing.T) {
	data := fixtureData()
	built, err := threads.Build(data.General, data.Review)
	require.NoError(t, err)

	out := SessionSummary(data.Repo, data.Details, "/tmp/pr_42_review_x", built)
	assert.Contains(t, out, "**Total Threads**: 2")
	assert.Contains(t, out, "**General Comment Threads**: 1")
	assert.Contains(t, out, "**Review Comment Threads**: 1")
	assert.Contains(t, out, "**Needs Response**: 2")
}

func TestSuggestions(t *testing.T) {
	data := fixtureData()
	out := Suggestions(data)
	require.NotEmpty(t, out)
	assert.Contains(t, out[0], "1 general + 1 review")

	found := false
	for _, s := range out {
		if s == "Found 1 comments with questions that may need answers." {
			found = true
		}
	}
	assert.True(t, found, "the question mark in the review comment should be flagged")

	empty := Suggestions(&PRData{})
	require.Len(t, empty, 1)
	assert.Equal(t, "No comments to respond to yet.", empty[0])
}

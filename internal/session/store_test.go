package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presto/internal/threads"
)

func testThreads() []*threads.Thread {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return []*threads.Thread{
		{
			ID: "100", Number: 1, Kind: threads.KindReview,
			Root:    threads.Comment{ID: "100", Author: "alice", CreatedAt: base, Body: "Rename this function", Path: "main.go", Line: 10},
			Replies: []threads.Comment{{ID: "101", Author: "bob", CreatedAt: base.Add(time.Minute), Body: "Will do", ParentID: "100"}},
			Status:  threads.StatusNeedsResponse, Priority: "low", Complexity: "low",
		},
		{
			ID: "general_7", Number: 2, Kind: threads.KindGeneral,
			Root:   threads.Comment{ID: "7", Author: "carol", CreatedAt: base.Add(2 * time.Minute), Body: "Overall looks good"},
			Status: threads.StatusNeedsResponse, Priority: "low", Complexity: "low",
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zerolog.Nop())
}

func TestCreateAndLoadRoundtrip(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)
	require.Len(t, sess.Records, 2)
	assert.NotEmpty(t, sess.Meta.ID)
	assert.Equal(t, "owner/repo", sess.Meta.Repo)
	assert.Equal(t, 42, sess.Meta.PR)

	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	require.Len(t, loaded.Records, 2)
	assert.Equal(t, sess.Meta.ID, loaded.Meta.ID)

	r := loaded.Record("100")
	require.NotNil(t, r)
	assert.Equal(t, 1, r.Number)
	assert.Equal(t, threads.KindReview, r.Kind)
	assert.Equal(t, "Rename this function", r.Root.Body)
	require.Len(t, r.Replies, 1)
	assert.Equal(t, "bob", r.Replies[0].Author)
}

func TestRecordFilenames(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	assert.Equal(t, "thread_01_alice_Rename_this_function.md", sess.Records[0].Filename)
	assert.Equal(t, "thread_02_carol_Overall_looks_good.md", sess.Records[1].Filename)

	for _, r := range sess.Records {
		_, err := os.Stat(filepath.Join(sess.Dir, r.Filename))
		assert.NoError(t, err, "record file should exist on disk")
	}
}

func TestDiscoverPicksLatestSession(t *testing.T) {
	store := newTestStore(t)

	first, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	// Session directory names embed a second-resolution timestamp; fake a
	// later run by renaming instead of sleeping.
	laterDir := filepath.Join(filepath.Dir(first.Dir), "pr_42_review_20991231_235959")
	require.NoError(t, os.Rename(first.Dir, laterDir))
	_, err = store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	sess, err := store.Discover("owner/repo", 42)
	require.NoError(t, err)
	assert.Equal(t, laterDir, sess.Dir)
}

func TestDiscoverNoSession(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Discover("owner/repo", 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Contains(t, err.Error(), "run analyze first")
}

func TestDiscoverDoesNotMatchOtherPR(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("owner/repo", 421, "github", testThreads())
	require.NoError(t, err)

	_, err = store.Discover("owner/repo", 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestDiscoverRejectsRepoMismatch(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	_, err = store.Discover("other/repo", 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAppendDraftAndMarkPosted(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	d, idx, err := store.AppendDraft(sess, "100", "bob", "Thanks, renamed.")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "bob", d.Author)
	assert.False(t, d.Posted)

	_, idx, err = store.AppendDraft(sess, "100", "bob", "Second thought.")
	require.NoError(t, err)
	assert.Equal(t, 1, idx, "drafts are append-only with sequential indexes")

	require.NoError(t, store.MarkPosted(sess, "100", 0))

	// The posted flag is terminal: a second transition is an error.
	err = store.MarkPosted(sess, "100", 0)
	assert.ErrorIs(t, err, ErrAlreadyPosted)

	// State survives reload.
	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	r := loaded.Record("100")
	require.Len(t, r.Drafts, 2)
	assert.True(t, r.Drafts[0].Posted)
	require.NotNil(t, r.Drafts[0].PostedAt)
	assert.False(t, r.Drafts[1].Posted)
}

func TestAppendDraftUnknownThread(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	_, _, err = store.AppendDraft(sess, "nope", "bob", "x")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestMarkPostedBadIndex(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	err = store.MarkPosted(sess, "100", 0)
	assert.ErrorIs(t, err, ErrDraftNotFound)
}

func TestManualSkipRegistrySurvivesCleanup(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	require.NoError(t, store.ToggleManualSkip(sess, 1, true))
	assert.True(t, store.IsManuallySkipped(sess, "100"))
	assert.Equal(t, []int{1}, store.ListManuallySkipped("owner/repo", 42))

	require.NoError(t, store.Cleanup(sess, true))
	_, err = os.Stat(sess.Dir)
	assert.True(t, os.IsNotExist(err), "session directory should be gone")

	// The registry outlives the session and seeds the next run.
	assert.Equal(t, []int{1}, store.ListManuallySkipped("owner/repo", 42))

	next, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)
	r := next.RecordByNumber(1)
	require.NotNil(t, r)
	assert.True(t, r.ManuallySkipped)
	assert.Equal(t, threads.StatusManuallySkipped, r.Status)
	assert.False(t, next.RecordByNumber(2).ManuallySkipped)
}

func TestToggleManualSkipRestoresStatus(t *testing.T) {
	store := newTestStore(t)
	list := testThreads()
	list[0].Status = threads.StatusAutoSkipped
	list[0].SkipReason = "alice was the last to comment"
	sess, err := store.Create("owner/repo", 42, "github", list)
	require.NoError(t, err)

	require.NoError(t, store.ToggleManualSkip(sess, 1, true))
	assert.Equal(t, threads.StatusManuallySkipped, sess.RecordByNumber(1).Status)

	// Unskipping restores the automatic decision, not needs_response.
	require.NoError(t, store.ToggleManualSkip(sess, 1, false))
	assert.Equal(t, threads.StatusAutoSkipped, sess.RecordByNumber(1).Status)

	require.NoError(t, store.ToggleManualSkip(sess, 2, true))
	require.NoError(t, store.ToggleManualSkip(sess, 2, false))
	assert.Equal(t, threads.StatusNeedsResponse, sess.RecordByNumber(2).Status)
}

func TestCleanupRequiresForce(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	require.Error(t, store.Cleanup(sess, false))
	_, err = os.Stat(sess.Dir)
	assert.NoError(t, err, "session must still exist without force")
}

func TestLoadSkipsCorruptRecord(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	bad := filepath.Join(sess.Dir, "thread_99_mangled_x.md")
	require.NoError(t, os.WriteFile(bad, []byte("no frontmatter here"), 0o644))

	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err, "a corrupt record must not fail the session")
	assert.Len(t, loaded.Records, 2)

	_, statErr := os.Stat(bad)
	assert.NoError(t, statErr, "the corrupt file is left on disk untouched")
}

func TestDecodeRecordErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing delimiter", "thread_id: x\n"},
		{"unterminated frontmatter", "---\nthread_id: x\n"},
		{"invalid yaml", "---\nthread_id: [unclosed\n---\n"},
		{"missing thread_id", "---\nnumber: 1\n---\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRecord([]byte(tc.data), "thread_01_test.md")
			assert.Error(t, err)
		})
	}
}

func TestRecordEncodeDecodeKeepsDisplayBodyOut(t *testing.T) {
	store := newTestStore(t)
	sess, err := store.Create("owner/repo", 42, "github", testThreads())
	require.NoError(t, err)

	// Mutating only the display portion of the file must not change the
	// decoded state: frontmatter is authoritative.
	path := filepath.Join(sess.Dir, sess.Records[0].Filename)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, []byte("\nhand-written note\n")...), 0o644))

	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	r := loaded.Record("100")
	require.NotNil(t, r)
	assert.Equal(t, "Rename this function", r.Root.Body)
}

package posting

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presto/internal/session"
	"github.com/presto/internal/threads"
)

// fakeGateway records every delivery and can be told to fail on a
// specific comment ID.
type fakeGateway struct {
	calls  []string
	failOn string
}

func (g *fakeGateway) PostReply(ctx context.Context, originalCommentID, content string, kind threads.Kind) (string, error) {
	if originalCommentID == g.failOn {
		return "", errors.New("gateway unavailable")
	}
	g.calls = append(g.calls, originalCommentID)
	return fmt.Sprintf("https://example.com/replies/%s", originalCommentID), nil
}

func postingFixture(t *testing.T) (*session.Store, *session.Session) {
	t.Helper()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	list := []*threads.Thread{
		{
			ID: "100", Number: 1, Kind: threads.KindReview,
			Root:   threads.Comment{ID: "100", Author: "alice", CreatedAt: base, Body: "First"},
			Status: threads.StatusNeedsResponse,
		},
		{
			ID: "200", Number: 2, Kind: threads.KindReview,
			Root:   threads.Comment{ID: "200", Author: "bob", CreatedAt: base.Add(time.Minute), Body: "Second"},
			Status: threads.StatusNeedsResponse,
		},
		{
			ID: "general_7", Number: 3, Kind: threads.KindGeneral,
			Root:   threads.Comment{ID: "7", Author: "carol", CreatedAt: base.Add(2 * time.Minute), Body: "Third"},
			Status: threads.StatusNeedsResponse,
		},
	}

	store := session.NewStore(t.TempDir(), zerolog.Nop())
	sess, err := store.Create("owner/repo", 42, "github", list)
	require.NoError(t, err)
	return store, sess
}

func TestRunPostsAllEligibleDrafts(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)
	_, _, err = store.AppendDraft(sess, "general_7", "me", "reply two")
	require.NoError(t, err)

	gw := &fakeGateway{}
	res, err := NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{All: true})
	require.NoError(t, err)

	require.Len(t, res.Posted, 2)
	assert.Equal(t, []string{"100", "7"}, gw.calls, "delivery follows thread order")
	assert.Equal(t, "https://example.com/replies/100", res.Posted[0].Location)

	// Posted state is durable.
	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	assert.True(t, loaded.Record("100").Drafts[0].Posted)
	assert.True(t, loaded.Record("general_7").Drafts[0].Posted)
}

func TestRunSingleThreadScope(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)
	_, _, err = store.AppendDraft(sess, "200", "me", "reply two")
	require.NoError(t, err)

	gw := &fakeGateway{}
	res, err := NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{ThreadNumber: 2})
	require.NoError(t, err)

	require.Len(t, res.Posted, 1)
	assert.Equal(t, []string{"200"}, gw.calls)
}

func TestRunRejectsAmbiguousScope(t *testing.T) {
	store, sess := postingFixture(t)
	poster := NewPoster(store, &fakeGateway{}, zerolog.Nop())

	_, err := poster.Run(context.Background(), sess, Options{})
	assert.Error(t, err, "neither thread nor all")

	_, err = poster.Run(context.Background(), sess, Options{ThreadNumber: 1, All: true})
	assert.Error(t, err, "both thread and all")
}

func TestRunUnknownThreadNumber(t *testing.T) {
	store, sess := postingFixture(t)

	_, err := NewPoster(store, &fakeGateway{}, zerolog.Nop()).Run(context.Background(), sess, Options{ThreadNumber: 9})
	assert.ErrorIs(t, err, session.ErrThreadNotFound)
}

func TestRunNeverRepostsPostedDrafts(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)

	gw := &fakeGateway{}
	poster := NewPoster(store, gw, zerolog.Nop())

	_, err = poster.Run(context.Background(), sess, Options{All: true})
	require.NoError(t, err)
	require.Len(t, gw.calls, 1)

	// A second run over the same session makes zero gateway calls.
	res, err := poster.Run(context.Background(), sess, Options{All: true})
	require.NoError(t, err)
	assert.Len(t, gw.calls, 1, "no repeat delivery for a posted draft")
	require.Len(t, res.AlreadyPosted, 1)
	assert.Empty(t, res.Posted)
}

func TestRunManualSkipBlocksDelivery(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)
	require.NoError(t, store.ToggleManualSkip(sess, 1, true))

	gw := &fakeGateway{}
	res, err := NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{All: true})
	require.NoError(t, err)

	assert.Empty(t, gw.calls, "a skipped thread makes no gateway calls")
	assert.Empty(t, res.Posted)
	assert.Equal(t, []int{1}, res.SkippedThreads)
}

func TestRunDryRunMakesNoCallsAndNoStateChange(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)
	_, _, err = store.AppendDraft(sess, "200", "me", "reply two")
	require.NoError(t, err)
	require.NoError(t, store.MarkPosted(sess, "200", 0))

	gw := &fakeGateway{}
	res, err := NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{All: true, DryRun: true})
	require.NoError(t, err)

	assert.Empty(t, gw.calls)
	require.Len(t, res.WouldPost, 1)
	assert.Equal(t, 1, res.WouldPost[0].ThreadNumber)
	require.Len(t, res.AlreadyPosted, 1, "dry-run reports posted drafts the same way a real run would")

	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	assert.False(t, loaded.Record("100").Drafts[0].Posted, "dry-run never transitions state")
}

func TestRunFailFastHaltsBatch(t *testing.T) {
	store, sess := postingFixture(t)
	_, _, err := store.AppendDraft(sess, "100", "me", "reply one")
	require.NoError(t, err)
	_, _, err = store.AppendDraft(sess, "200", "me", "reply two")
	require.NoError(t, err)
	_, _, err = store.AppendDraft(sess, "general_7", "me", "reply three")
	require.NoError(t, err)

	gw := &fakeGateway{failOn: "200"}
	res, err := NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{All: true})
	require.Error(t, err)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 2, derr.ThreadNumber)
	assert.Equal(t, 0, derr.DraftIndex)

	// The first draft went through and stays posted; the third was never
	// attempted.
	assert.Equal(t, []string{"100"}, gw.calls)
	require.Len(t, res.Posted, 1)

	loaded, err := store.Load(sess.Dir)
	require.NoError(t, err)
	assert.True(t, loaded.Record("100").Drafts[0].Posted)
	assert.False(t, loaded.Record("200").Drafts[0].Posted)
	assert.False(t, loaded.Record("general_7").Drafts[0].Posted)

	// Retrying after the outage completes the remainder without touching
	// the already-posted draft.
	gw.failOn = ""
	res, err = NewPoster(store, gw, zerolog.Nop()).Run(context.Background(), sess, Options{All: true})
	require.NoError(t, err)
	require.Len(t, res.Posted, 2)
	require.Len(t, res.AlreadyPosted, 1)
	assert.Equal(t, []string{"100", "200", "7"}, gw.calls)
}

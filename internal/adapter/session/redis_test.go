package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/session"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

func newStore(t *testing.T) (*session.Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return session.New(rdb, time.Hour), mr
}

func sampleSession() domain.RewriteSession {
	s := domain.RewriteSession{
		ID:            "01J0000000000000000000000",
		JobID:         "job-1",
		Phase:         domain.RewriteAwaitingFeedback,
		DraftMarkdown: "# Draft",
		FeedbackRound: 1,
		MaxRounds:     2,
	}
	s.Normalize()
	return s
}

func TestSessionSaveGetRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, domain.RewriteAwaitingFeedback, got.Phase)
	require.Equal(t, "# Draft", got.DraftMarkdown)
	require.Equal(t, 1, got.FeedbackRound)
}

func TestSessionGetMissing(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionSaveOverwrites(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	first := sampleSession()
	require.NoError(t, store.Save(ctx, first))

	first.DraftMarkdown = "# Revised"
	first.FeedbackRound = 2
	require.NoError(t, store.Save(ctx, first))

	got, err := store.Get(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, "# Revised", got.DraftMarkdown)
	require.Equal(t, 2, got.FeedbackRound)
}

func TestSessionTTLSet(t *testing.T) {
	store, mr := newStore(t)
	require.NoError(t, store.Save(context.Background(), sampleSession()))
	ttl := mr.TTL("rewrite:session:job-1")
	require.Greater(t, ttl, time.Duration(0))
}

func TestSessionDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, sampleSession()))
	require.NoError(t, store.Delete(ctx, "job-1"))
	_, err := store.Get(ctx, "job-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, store.Delete(ctx, "job-1"))
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleSession()))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(ctx, "job-1")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

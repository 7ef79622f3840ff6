package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService() (*Service, *MemoryRepository, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	repo := NewMemoryRepository()
	return NewService(repo, WithClock(clock.now)), repo, clock
}

func TestOpenAndLookup(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	raw, sess, err := svc.Open(ctx, "alice", time.Hour)
	require.NoError(t, err)
	require.Len(t, raw, 64)
	require.Equal(t, "alice", sess.Username)
	require.NotEqual(t, raw, sess.TokenHash)

	// only the digest is stored
	_, err = repo.Get(ctx, raw)
	require.ErrorIs(t, err, ErrSessionNotFound)

	got, err := svc.Lookup(ctx, raw)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	_, err = svc.Lookup(ctx, "nope")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestLookupDropsExpired(t *testing.T) {
	svc, repo, clock := newTestService()
	ctx := context.Background()
	raw, sess, err := svc.Open(ctx, "bob", time.Minute)
	require.NoError(t, err)

	clock.advance(time.Minute)
	_, err = svc.Lookup(ctx, raw)
	require.ErrorIs(t, err, ErrSessionExpired)

	_, err = repo.Get(ctx, sess.TokenHash)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRotateIsSingleUse(t *testing.T) {
	svc, _, clock := newTestService()
	ctx := context.Background()
	first, _, err := svc.Open(ctx, "carol", time.Hour)
	require.NoError(t, err)

	clock.advance(30 * time.Minute)
	second, sess, err := svc.Rotate(ctx, first, time.Hour)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, "carol", sess.Username)
	require.Equal(t, clock.t.Add(time.Hour), sess.ExpiresAt)

	_, _, err = svc.Rotate(ctx, first, time.Hour)
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = svc.Lookup(ctx, second)
	require.NoError(t, err)
}

func TestClose(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	raw, _, err := svc.Open(ctx, "dan", time.Hour)
	require.NoError(t, err)

	require.NoError(t, svc.Close(ctx, raw))
	_, err = svc.Lookup(ctx, raw)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, svc.Close(ctx, raw))
}

package bootstrap

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/wikifun/wikifun/backend/go-services/internal/config"
	"github.com/wikifun/wikifun/backend/go-services/internal/credentials"
	"github.com/wikifun/wikifun/backend/go-services/internal/locks"
	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
)

func init() {
	credentials.Cost = 4
}

func memoryConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: "memory", InfoBucket: "wiki_info", UserBucket: "wiki_login"},
		Wiki:    config.WikiConfig{HistoryLimit: 10, Locks: "memory", RequireRegisteredActor: true},
	}
}

func TestBuildMemoryBackend(t *testing.T) {
	ctx := context.Background()
	e, err := Build(ctx, memoryConfig())
	require.NoError(t, err)
	defer e.Close(ctx)

	require.Equal(t, "wiki_info", e.InfoStore.Bucket())
	require.Equal(t, "wiki_login", e.UserStore.Bucket())

	_, err = e.Pages.CreatePage(ctx, "Alpha", "hello world")
	require.NoError(t, err)

	// unregistered voters are rejected once accounts are required
	_, err = e.Pages.RecordVote(ctx, pages.Upvote, models.Authenticated("alice"), "Alpha")
	require.ErrorIs(t, err, pages.ErrUnknownActor)

	_, err = e.Accounts.CreateAccount(ctx, "alice", "pw")
	require.NoError(t, err)
	doc, err := e.Pages.RecordVote(ctx, pages.Upvote, models.Authenticated("alice"), "Alpha")
	require.NoError(t, err)
	require.Equal(t, 1, doc.Upvotes)

	names, err := e.Query.SearchByTitle(ctx, "alp")
	require.NoError(t, err)
	require.Equal(t, []string{"Alpha"}, names)
}

func TestAssembleWithoutActorValidation(t *testing.T) {
	ctx := context.Background()
	e := Assemble(storage.NewMemoryStorage("i"), storage.NewMemoryStorage("u"), locks.Nop{}, config.WikiConfig{HistoryLimit: 3})
	_, err := e.Pages.CreatePage(ctx, "Alpha", "x")
	require.NoError(t, err)
	_, err = e.Pages.RecordVote(ctx, pages.Downvote, models.Authenticated("ghost"), "Alpha")
	require.NoError(t, err)
	require.Equal(t, 3, e.Accounts.HistoryLimit())
}

func TestBuildWithRedisLocks(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := memoryConfig()
	cfg.Wiki.Locks = "redis"
	cfg.Redis = config.RedisConfig{Host: m.Host(), Port: m.Port()}

	ctx := context.Background()
	e, err := Build(ctx, cfg)
	require.NoError(t, err)
	defer e.Close(ctx)
	require.NotNil(t, e.Redis)

	_, err = e.Accounts.CreateAccount(ctx, "bob", "pw")
	require.NoError(t, err)
	_, err = e.Accounts.RecordView(ctx, "bob", "Alpha")
	require.NoError(t, err)
	// lock released after the update
	require.Empty(t, m.Keys())
}

func TestBuildRedisLocksNeedRedis(t *testing.T) {
	cfg := memoryConfig()
	cfg.Wiki.Locks = "redis"
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: "1"}
	_, err := Build(context.Background(), cfg)
	require.Error(t, err)
}

func TestBuildClosesRedisWhenLockerFails(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := memoryConfig()
	cfg.Wiki.Locks = "zookeeper"
	cfg.Redis = config.RedisConfig{Host: m.Host(), Port: m.Port()}

	_, err = Build(context.Background(), cfg)
	require.ErrorContains(t, err, "zookeeper")
	require.Eventually(t, func() bool {
		return m.CurrentConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestNewLockerRejectsUnknownMode(t *testing.T) {
	_, err := newLocker(config.WikiConfig{Locks: "zookeeper"}, nil)
	require.Error(t, err)
	l, err := newLocker(config.WikiConfig{Locks: "none"}, nil)
	require.NoError(t, err)
	require.IsType(t, locks.Nop{}, l)
}

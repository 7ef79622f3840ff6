package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "wikifun_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("WIKI_HISTORY_LIMIT", "100")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "mongo", cfg.Storage.Backend)
	require.Equal(t, "wikifun_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, 100, cfg.Wiki.HistoryLimit)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "wiki_info", cfg.Storage.InfoBucket)
	require.Equal(t, "wiki_login", cfg.Storage.UserBucket)
	require.Equal(t, 10, cfg.Wiki.HistoryLimit)
	require.Equal(t, "none", cfg.Wiki.Locks)
	require.False(t, cfg.Wiki.StrictWrites)
	require.True(t, cfg.Wiki.RequireRegisteredActor)
	require.Equal(t, 15*time.Minute, cfg.JWT.AccessTokenTTL)
	require.Equal(t, int64(5<<20), cfg.Server.MaxUpload)
}

func TestLoadConfigRejectsBadCombinations(t *testing.T) {
	cases := map[string]map[string]string{
		"mongo without uri": {"STORAGE_BACKEND": "mongo", "MONGODB_URI": ""},
		"unknown backend":   {"STORAGE_BACKEND": "s3"},
		"redis locks":       {"STORAGE_BACKEND": "memory", "WIKI_LOCKS": "redis", "REDIS_HOST": ""},
		"same buckets":      {"STORAGE_BACKEND": "memory", "WIKI_INFO_BUCKET": "x", "WIKI_USER_BUCKET": "x"},
		"zero history":      {"STORAGE_BACKEND": "memory", "WIKI_HISTORY_LIMIT": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

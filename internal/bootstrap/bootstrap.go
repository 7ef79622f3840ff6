// Package bootstrap builds the object stores, lockers and engines described
// by a config.Config. Both wikid and wikictl start here.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wikifun/wikifun/backend/go-services/internal/accounts"
	"github.com/wikifun/wikifun/backend/go-services/internal/config"
	"github.com/wikifun/wikifun/backend/go-services/internal/docstore"
	"github.com/wikifun/wikifun/backend/go-services/internal/locks"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/internal/query"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

// Engines is the assembled core plus the clients it owns.
type Engines struct {
	Pages     *pages.Service
	Query     *query.Engine
	Accounts  *accounts.Service
	InfoStore storage.Store
	UserStore storage.Store

	Redis *redis.Client
	Mongo *mongo.Client
}

// Assemble wires engines over the given stores.
func Assemble(info, user storage.Store, locker locks.Locker, wiki config.WikiConfig) *Engines {
	opts := []docstore.Option{docstore.WithLocker(locker), docstore.WithStrictWrites(wiki.StrictWrites)}
	acc := accounts.NewService(docstore.New(user, opts...), accounts.WithHistoryLimit(wiki.HistoryLimit))

	var pageOpts []pages.Option
	if wiki.RequireRegisteredActor {
		pageOpts = append(pageOpts, pages.WithActorValidator(acc))
	}
	pg := pages.NewService(docstore.New(info, opts...), pageOpts...)

	return &Engines{
		Pages:     pg,
		Query:     query.NewEngine(pg),
		Accounts:  acc,
		InfoStore: info,
		UserStore: user,
	}
}

// Build connects to the configured backends and assembles the engines.
func Build(ctx context.Context, cfg *config.Config) (*Engines, error) {
	var rc *redis.Client
	if addr := cfg.Redis.Addr(); addr != "" {
		rc = NewRedis(cfg.Redis)
		if err := rc.Ping(ctx).Err(); err != nil {
			if cfg.Wiki.Locks == "redis" {
				return nil, fmt.Errorf("redis %s: %w", addr, err)
			}
			logger.Warnf("redis %s unavailable, continuing without it: %v", addr, err)
			_ = rc.Close()
			rc = nil
		} else {
			logger.Infof("connected to redis %s", addr)
		}
	}

	info, user, mc, err := openStores(ctx, cfg)
	if err != nil {
		if rc != nil {
			_ = rc.Close()
		}
		return nil, err
	}

	// Mongo also backs sessions when configured next to another object store.
	if mc == nil && cfg.MongoDB.URI != "" {
		if mc, err = connectMongoWithRetry(ctx, cfg.MongoDB, 3); err != nil {
			logger.Warnf("mongo unavailable, continuing without it: %v", err)
			mc = nil
		}
	}

	locker, err := newLocker(cfg.Wiki, rc)
	if err != nil {
		if cerr := (&Engines{Redis: rc, Mongo: mc}).Close(ctx); cerr != nil {
			logger.Warnf("closing backends after failed start: %v", cerr)
		}
		return nil, err
	}

	e := Assemble(info, user, locker, cfg.Wiki)
	e.Redis = rc
	e.Mongo = mc
	logger.Infof("engines ready: backend=%s info=%s user=%s locks=%s strict=%v history=%d",
		cfg.Storage.Backend, info.Bucket(), user.Bucket(), cfg.Wiki.Locks, cfg.Wiki.StrictWrites, e.Accounts.HistoryLimit())
	return e, nil
}

// Close releases the Redis and Mongo clients.
func (e *Engines) Close(ctx context.Context) error {
	var errs []error
	if e.Redis != nil {
		errs = append(errs, e.Redis.Close())
	}
	if e.Mongo != nil {
		errs = append(errs, e.Mongo.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func NewRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
}

func openStores(ctx context.Context, cfg *config.Config) (info, user storage.Store, mc *mongo.Client, err error) {
	sc := cfg.Storage
	switch sc.Backend {
	case "memory":
		logger.Warn("using in-memory object store; data is lost on exit")
		return storage.NewMemoryStorage(sc.InfoBucket), storage.NewMemoryStorage(sc.UserBucket), nil, nil

	case "minio":
		base := storage.MinIOConfig{Endpoint: sc.Endpoint, AccessKey: sc.AccessKey, SecretKey: sc.SecretKey, UseSSL: sc.UseSSL}
		i, err := storage.NewMinIOStorage(base.ForBucket(sc.InfoBucket))
		if err != nil {
			return nil, nil, nil, err
		}
		u, err := storage.NewMinIOStorage(base.ForBucket(sc.UserBucket))
		if err != nil {
			return nil, nil, nil, err
		}
		return i, u, nil, nil

	case "mongo":
		client, err := connectMongoWithRetry(ctx, cfg.MongoDB, 5)
		if err != nil {
			return nil, nil, nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		return storage.NewMongoStorage(db.Collection(sc.InfoBucket)), storage.NewMongoStorage(db.Collection(sc.UserBucket)), client, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
}

// connectMongoWithRetry tolerates start-up races with the database container.
func connectMongoWithRetry(ctx context.Context, cfg config.MongoDBConfig, maxAttempts int) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		client, err := storage.ConnectMongo(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("could not connect to MongoDB after %d attempts: %w", maxAttempts, lastErr)
}

func newLocker(wiki config.WikiConfig, rc *redis.Client) (locks.Locker, error) {
	switch wiki.Locks {
	case "", "none":
		return locks.Nop{}, nil
	case "memory":
		return locks.NewMemory(), nil
	case "redis":
		if rc == nil {
			return nil, errors.New("WIKI_LOCKS=redis but no redis client")
		}
		return locks.NewRedis(rc, "wikifun:lock:", wiki.LockLease), nil
	}
	return nil, fmt.Errorf("unknown lock mode %q", wiki.Locks)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wikifun/wikifun/backend/go-services/handlers"
	"github.com/wikifun/wikifun/backend/go-services/internal/bootstrap"
	"github.com/wikifun/wikifun/backend/go-services/internal/config"
	"github.com/wikifun/wikifun/backend/go-services/internal/oidc"
	"github.com/wikifun/wikifun/backend/go-services/internal/sessions"
	"github.com/wikifun/wikifun/backend/go-services/internal/tokens"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/metrics"
	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// LOG_LEVEL: debug|info|warn|error|fatal, LOG_FORMAT: text|json
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.SetJSON(strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: storage=%s keycloak=%v mongo=%v redis=%v", cfg.Storage.Backend, cfg.Keycloak.URL != "", cfg.MongoDB.URI != "", cfg.Redis.Host != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, time.Minute)
	engines, err := bootstrap.Build(startCtx, cfg)
	cancel()
	if err != nil {
		logger.Fatalf("failed to build engines: %v", err)
	}

	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	issuer := tokens.NewIssuer(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	verifier := middleware.ChainVerifiers(issuer)
	oidcReady := true
	if ext := externalVerifier(ctx, cfg); ext != nil {
		verifier = middleware.ChainVerifiers(issuer, ext)
	} else if cfg.Keycloak.URL != "" {
		oidcReady = false
	}

	var revoked middleware.RevocationChecker
	revocations := sessions.NewRevocations(engines.Redis)
	if engines.Redis != nil {
		revoked = revocations
	}
	r.Use(middleware.Identity(verifier, revoked))

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && engines.Redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(engines.Redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	sessionsSvc := sessions.NewService(sessionRepository(ctx, engines, cfg))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// ready only when both buckets answer and a configured OIDC provider was reached
	r.GET("/ready", func(c *gin.Context) {
		rctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Storage.RequestTimeout)
		defer cancel()
		deps := map[string]bool{"oidc": oidcReady}
		_, infoErr := engines.InfoStore.Exists(rctx, ".ready")
		_, userErr := engines.UserStore.Exists(rctx, ".ready")
		deps["info_bucket"] = infoErr == nil
		deps["user_bucket"] = userErr == nil
		if cfg.Redis.Host != "" {
			deps["redis"] = engines.Redis != nil && engines.Redis.Ping(rctx).Err() == nil
		}

		status, code := "ready", http.StatusOK
		for _, ok := range deps {
			if !ok {
				status, code = "not_ready", http.StatusServiceUnavailable
			}
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})

	handlers.NewAuthHandler(engines.Accounts, sessionsSvc, issuer, revocations, cfg.JWT.RefreshTokenTTL).Register(r.Group("/"))
	handlers.RegisterSwagger(r)
	api := r.Group("/api")
	handlers.NewPagesHandler(engines.Pages, engines.Query, engines.Accounts).Register(api)
	handlers.NewAccountsHandler(engines.Accounts, cfg.Server.MaxUpload).Register(api)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting wiki service on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
	if err := engines.Close(shutdownCtx); err != nil {
		logger.Warnf("closing backends: %v", err)
	}
}

// cors is permissive; the front end is served from another origin in development.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// externalVerifier returns the Keycloak verifier, the insecure integration
// verifier when ALLOW_INSECURE_TOKEN=true, or nil.
func externalVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.Keycloak.URL != "" && cfg.Keycloak.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.IssuerURL(cfg.Keycloak.URL, cfg.Keycloak.Realm), cfg.Keycloak.ClientID)
		if err == nil {
			logger.Infof("accepting OIDC tokens from %s", cfg.Keycloak.URL)
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true") {
		logger.Warn("enabling insecure OIDC verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	return nil
}

// sessionRepository prefers Redis, then Mongo, then process memory.
func sessionRepository(ctx context.Context, e *bootstrap.Engines, cfg *config.Config) sessions.Repository {
	if e.Redis != nil {
		logger.Info("using Redis for session storage")
		return sessions.NewRedisRepository(e.Redis, "session:")
	}
	if e.Mongo != nil {
		repo := sessions.NewMongoRepository(e.Mongo.Database(cfg.MongoDB.Database).Collection("sessions"))
		if err := repo.EnsureIndexes(ctx); err != nil {
			logger.Warnf("session indexes: %v", err)
		}
		logger.Info("using MongoDB for session storage")
		return repo
	}
	logger.Warn("using in-memory session storage; refresh tokens are lost on restart")
	return sessions.NewMemoryRepository()
}

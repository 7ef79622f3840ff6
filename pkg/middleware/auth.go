package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

const (
	claimsKey = "claims"
	actorKey  = "actor"
	tokenKey  = "access_token"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// RevocationChecker reports access tokens revoked at logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// ChainVerifiers tries each verifier in order and returns the first success.
func ChainVerifiers(vs ...Verifier) Verifier {
	out := chain{}
	for _, v := range vs {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

type chain []Verifier

func (c chain) Verify(ctx context.Context, raw string) (Token, error) {
	errs := make([]error, 0, len(c))
	for _, v := range c {
		tok, err := v.Verify(ctx, raw)
		if err == nil {
			return tok, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, errors.New("no token verifier configured")
	}
	return nil, errors.Join(errs...)
}

// Identity resolves the acting user for every request. Requests without an
// Authorization header run as the anonymous actor; a present but invalid or
// revoked token is rejected with 401.
func Identity(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Set(actorKey, models.Anonymous())
			c.Next()
			return
		}
		if !authenticate(c, auth, ver, revoked) {
			return
		}
		c.Next()
	}
}

// AuthMiddleware is Identity followed by RequireAuth.
func AuthMiddleware(ver Verifier, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		if !authenticate(c, auth, ver, revoked) {
			return
		}
		c.Next()
	}
}

// RequireAuth rejects anonymous actors.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).IsAuthenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// ActorFrom returns the actor Identity stored on the context; anonymous if none.
func ActorFrom(c *gin.Context) models.Actor {
	if v, ok := c.Get(actorKey); ok {
		if a, ok := v.(models.Actor); ok {
			return a
		}
	}
	return models.Anonymous()
}

// BearerToken returns the raw access token of an authenticated request.
func BearerToken(c *gin.Context) string { return c.GetString(tokenKey) }

// UsernameFromClaims prefers preferred_username (Keycloak) over sub.
func UsernameFromClaims(claims map[string]interface{}) string {
	if u, ok := claims["preferred_username"].(string); ok && u != "" {
		return u
	}
	u, _ := claims["sub"].(string)
	return u
}

func authenticate(c *gin.Context, auth string, ver Verifier, revoked RevocationChecker) bool {
	token, ok := strings.CutPrefix(auth, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
		return false
	}
	if revoked != nil {
		isRevoked, err := revoked.IsRevoked(c.Request.Context(), token)
		if err != nil {
			logger.Errorf("revocation check failed: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "token check unavailable"})
			return false
		}
		if isRevoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token revoked"})
			return false
		}
	}

	tok, err := ver.Verify(c.Request.Context(), token)
	if err != nil {
		logger.Debugf("token rejected: %v", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return false
	}
	var claims map[string]interface{}
	if err := tok.Claims(&claims); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
		return false
	}
	username := UsernameFromClaims(claims)
	if username == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no username"})
		return false
	}

	c.Set(claimsKey, claims)
	c.Set(tokenKey, token)
	c.Set(actorKey, models.Authenticated(username))
	return true
}

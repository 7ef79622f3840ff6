package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wikifun/wikifun/backend/go-services/internal/accounts"
	"github.com/wikifun/wikifun/backend/go-services/internal/models"
	"github.com/wikifun/wikifun/backend/go-services/internal/sessions"
	"github.com/wikifun/wikifun/backend/go-services/internal/tokens"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

// Credentials is the signup and login body.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler holds dependencies
type AuthHandler struct {
	accounts    *accounts.Service
	sessions    *sessions.Service
	issuer      *tokens.Issuer
	revocations *sessions.Revocations
	refreshTTL  time.Duration
}

func NewAuthHandler(a *accounts.Service, s *sessions.Service, issuer *tokens.Issuer, rv *sessions.Revocations, refreshTTL time.Duration) *AuthHandler {
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &AuthHandler{accounts: a, sessions: s, issuer: issuer, revocations: rv, refreshTTL: refreshTTL}
}

// Register routes under /auth
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/auth")
	a.POST("/signup", h.Signup)
	a.POST("/login", h.Login)
	a.POST("/refresh", h.Refresh)
	a.POST("/logout", h.Logout)
}

// Signup creates the account and logs the new user in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.accounts.CreateAccount(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issue(c, http.StatusCreated, req.Username, doc)
}

// Login answers the same 401 for unknown users and wrong passwords so the
// response does not reveal which usernames exist.
func (h *AuthHandler) Login(c *gin.Context) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, accounts.ErrAccountNotFound) || errors.Is(err, accounts.ErrInvalidCredential) {
		logger.Debugf("login failed for %q: %v", req.Username, err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	h.issue(c, http.StatusOK, req.Username, doc)
}

func (h *AuthHandler) issue(c *gin.Context, status int, username string, doc *models.AccountDocument) {
	rft, _, err := h.sessions.Open(c.Request.Context(), username, h.refreshTTL)
	if err != nil {
		logger.Errorf("failed to create session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	access, _, err := h.issuer.Generate(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(status, gin.H{
		"accessToken":  access,
		"refreshToken": rft,
		"expiresIn":    int(h.issuer.TTL().Seconds()),
		"user":         doc.Public(username),
	})
}

// Refresh trades a refresh token for a new access token and a new refresh
// token; the presented one cannot be used again.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	sess, err := h.sessions.Lookup(ctx, req.RefreshToken)
	if errors.Is(err, sessions.ErrSessionNotFound) || errors.Is(err, sessions.ErrSessionExpired) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		logger.Errorf("refresh lookup: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	ok, err := h.accounts.Exists(ctx, sess.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	if !ok {
		_ = h.sessions.Close(ctx, req.RefreshToken)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	rft, _, err := h.sessions.Rotate(ctx, req.RefreshToken, h.refreshTTL)
	if errors.Is(err, sessions.ErrSessionNotFound) {
		// lost a race with a concurrent refresh of the same token
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	if err != nil {
		logger.Errorf("refresh rotate: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rotate session"})
		return
	}
	access, _, err := h.issuer.Generate(sess.Username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": rft,
		"expires_in":    int(h.issuer.TTL().Seconds()),
	})
}

// Logout invalidates the refresh token and revokes the presented access token
// for the rest of its lifetime.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if at := middleware.BearerToken(c); at != "" {
		if exp, err := tokens.ExpiresAt(at); err == nil {
			if err := h.revocations.Revoke(c.Request.Context(), at, time.Until(exp)); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access token"})
				return
			}
		}
	}
	if err := h.sessions.Close(c.Request.Context(), req.RefreshToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

package handlers

import (
	"net/http"
	"testing"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikifun/wikifun/backend/go-services/internal/sessions"
)

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "dave", "password": "secret"})
	require.Equal(t, http.StatusCreated, w.Code)
	got := decode(t, w)
	assert.NotEmpty(t, got["accessToken"])
	assert.NotEmpty(t, got["refreshToken"])
	user := got["user"].(map[string]interface{})
	assert.Equal(t, "dave", user["username"])
	assert.NotContains(t, user, "hashed_password")

	w = s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "dave", "password": "other"})
	require.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "dave", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	// the first password still works; the conflicting signup wrote nothing
	w = s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "dave", "password": "other"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginDoesNotRevealUsernames(t *testing.T) {
	s := newTestServer(t, nil)
	s.signup(t, "erin")

	wrongPw := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "erin", "password": "nope"})
	noUser := s.do(t, http.MethodPost, "/auth/login", "", gin.H{"username": "nobody", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, wrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, noUser.Code)
	require.Equal(t, wrongPw.Body.String(), noUser.Body.String())
}

func TestSignupValidation(t *testing.T) {
	s := newTestServer(t, nil)
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "x"}).Code)
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "me.jpg", "password": "pw"}).Code)
	require.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "a/b", "password": "pw"}).Code)
}

func TestRefresh(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "fay", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	rft := decode(t, w)["refreshToken"].(string)

	w = s.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": rft})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	access := resp["access_token"].(string)
	c, err := s.issuer.Parse(access)
	require.NoError(t, err)
	require.Equal(t, "fay", c.Subject)

	// refresh tokens are single use
	next := resp["refresh_token"].(string)
	require.NotEqual(t, rft, next)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": rft}).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": next}).Code)

	w = s.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": "bogus"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesTokens(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	rv := sessions.NewRevocations(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	s := newTestServer(t, rv)

	w := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": "gus", "password": "pw"})
	require.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	access, rft := resp["accessToken"].(string), resp["refreshToken"].(string)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/me", access, nil).Code)

	w = s.do(t, http.MethodPost, "/auth/logout", access, gin.H{"refresh_token": rft})
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/me", access, nil).Code)
	require.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/auth/refresh", "", gin.H{"refresh_token": rft}).Code)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/wikifun/wikifun/backend/go-services/internal/bootstrap"
	"github.com/wikifun/wikifun/backend/go-services/internal/config"
	"github.com/wikifun/wikifun/backend/go-services/internal/credentials"
	"github.com/wikifun/wikifun/backend/go-services/internal/locks"
	"github.com/wikifun/wikifun/backend/go-services/internal/sessions"
	"github.com/wikifun/wikifun/backend/go-services/internal/storage"
	"github.com/wikifun/wikifun/backend/go-services/internal/tokens"
	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	credentials.Cost = 4
}

type testServer struct {
	router  *gin.Engine
	engines *bootstrap.Engines
	info    *storage.MemoryStorage
	issuer  *tokens.Issuer
}

func newTestServer(t *testing.T, rv *sessions.Revocations) *testServer {
	t.Helper()
	info := storage.NewMemoryStorage("wiki_info")
	user := storage.NewMemoryStorage("wiki_login")
	e := bootstrap.Assemble(info, user, locks.NewMemory(), config.WikiConfig{HistoryLimit: 10, RequireRegisteredActor: true})
	issuer := tokens.NewIssuer("handler-test-secret-0123456789abcdef", 15*time.Minute)

	r := gin.New()
	var revoked middleware.RevocationChecker
	if rv != nil {
		revoked = rv
	}
	r.Use(middleware.Identity(issuer, revoked))
	NewAuthHandler(e.Accounts, sessions.NewService(sessions.NewMemoryRepository()), issuer, rv, time.Hour).Register(r.Group("/"))
	api := r.Group("/api")
	NewPagesHandler(e.Pages, e.Query, e.Accounts).Register(api)
	NewAccountsHandler(e.Accounts, 1<<20).Register(api)

	return &testServer{router: r, engines: e, info: info, issuer: issuer}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// signup registers username and returns its access token.
func (s *testServer) signup(t *testing.T, username string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/auth/signup", "", gin.H{"username": username, "password": "pw-" + username})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp["accessToken"].(string)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

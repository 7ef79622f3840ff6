package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var ginParam = regexp.MustCompile(`:([a-z]+)`)

// Every route the server mounts must be described, with the matching method.
func TestSwaggerDocumentsEveryRoute(t *testing.T) {
	s := newTestServer(t, nil)
	RegisterSwagger(s.router)

	w := s.do(t, http.MethodGet, "/swagger/index.html", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "swagger-ui")

	w = s.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var doc struct {
		OpenAPI string                                `json:"openapi"`
		Paths   map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	require.Equal(t, "3.0.0", doc.OpenAPI)

	for _, rt := range s.router.Routes() {
		if strings.HasPrefix(rt.Path, "/swagger/") {
			continue
		}
		path := ginParam.ReplaceAllString(rt.Path, "{$1}")
		ops, ok := doc.Paths[path]
		require.True(t, ok, "undocumented route %s", path)
		require.Contains(t, ops, strings.ToLower(rt.Method), "undocumented %s %s", rt.Method, path)
	}
}

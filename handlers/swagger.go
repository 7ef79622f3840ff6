package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the wiki API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>wikifun API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

// OpenAPI document for the wiki API.
const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "wikifun", "version": "v1.0.0" },
  "paths": {
    "/auth/signup": { "post": { "summary": "Create an account and log in", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}}} } } }, "responses": { "201": { "description": "tokens and profile" }, "409": { "description": "username taken" } } } },
    "/auth/login": { "post": { "summary": "Log in with username and password", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"username":{"type":"string"},"password":{"type":"string"}}} } } }, "responses": { "200": { "description": "tokens and profile" }, "401": { "description": "invalid username or password" } } } },
    "/auth/refresh": { "post": { "summary": "Refresh access token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}} } } }, "responses": { "200": { "description": "new access token and a rotated refresh token; the presented refresh token is consumed" }, "401": { "description": "unknown, expired or already used refresh token" } } } },
    "/auth/logout": { "post": { "summary": "Logout and revoke tokens", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refresh_token":{"type":"string"}}} } } }, "responses": { "200": { "description": "logged out" } } } },
    "/api/pages": {
      "get": { "summary": "List pages with vote counts", "responses": { "200": { "description": "pages" } } },
      "post": { "summary": "Upload a page (replaces an existing page of the same name)", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"name":{"type":"string"},"content":{"type":"string"}}} } } }, "responses": { "201": { "description": "page document" }, "401": { "description": "not logged in" }, "403": { "description": "no account for this user" } } }
    },
    "/api/pages/{name}": { "get": { "summary": "Fetch a page; records a view for logged-in users", "responses": { "200": { "description": "page document" }, "404": { "description": "page not found" } } } },
    "/api/pages/{name}/vote": { "post": { "summary": "Toggle an upvote or downvote", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"direction":{"type":"string","enum":["upvote","downvote"]}}} } } }, "responses": { "200": { "description": "updated page" }, "403": { "description": "no account for this user" } } } },
    "/api/pages/{name}/comments": { "post": { "summary": "Append a comment", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"text":{"type":"string"}}} } } }, "responses": { "204": { "description": "comment stored (or page missing)" } } } },
    "/api/search": { "get": { "summary": "Search page titles or contents (?by=title|content&q=)", "responses": { "200": { "description": "matching page names" } } } },
    "/api/sort": { "get": { "summary": "Sort pages (?order=ascending_alpha|descending_alpha|most_recent_first)", "responses": { "200": { "description": "page names" } } } },
    "/api/years/{year}": { "get": { "summary": "Pages created in a year", "responses": { "200": { "description": "page names" } } } },
    "/api/images": { "get": { "summary": "List images", "responses": { "200": { "description": "image names" } } } },
    "/api/images/{name}": { "get": { "summary": "Fetch an image", "responses": { "200": { "description": "image bytes" }, "404": { "description": "image not found" } } } },
    "/api/accounts/{username}": { "get": { "summary": "Public profile", "responses": { "200": { "description": "profile" }, "404": { "description": "account not found" } } } },
    "/api/accounts/{username}/avatar": { "get": { "summary": "Avatar image", "responses": { "200": { "description": "jpeg bytes" }, "404": { "description": "image not found" } } } },
    "/api/me": { "get": { "summary": "Current user's profile", "responses": { "200": { "description": "profile" } } } },
    "/api/me/bio": { "put": { "summary": "Replace about_me", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"about_me":{"type":"string"}}} } } }, "responses": { "200": { "description": "profile" } } } },
    "/api/me/avatar": { "put": { "summary": "Upload avatar (multipart field file, .jpg/.jpeg)", "responses": { "200": { "description": "profile" }, "409": { "description": "concurrent upload" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`

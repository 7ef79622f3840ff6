package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wikifun/wikifun/backend/go-services/internal/accounts"
	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

// AccountsHandler serves public profiles and the current user's profile.
type AccountsHandler struct {
	accounts  *accounts.Service
	maxUpload int64
}

func NewAccountsHandler(a *accounts.Service, maxUpload int64) *AccountsHandler {
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	return &AccountsHandler{accounts: a, maxUpload: maxUpload}
}

// Register mounts the routes; rg must already run middleware.Identity.
func (h *AccountsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/accounts/:username", h.Profile)
	rg.GET("/accounts/:username/avatar", h.Avatar)

	me := rg.Group("/me", middleware.RequireAuth())
	me.GET("", h.Me)
	me.PUT("/bio", h.UpdateBio)
	me.PUT("/avatar", h.UpdateAvatar)
}

func (h *AccountsHandler) Profile(c *gin.Context) {
	username := c.Param("username")
	doc, err := h.accounts.GetAccount(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Public(username))
}

func (h *AccountsHandler) Avatar(c *gin.Context) {
	obj, err := h.accounts.GetAvatar(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeOr(obj.ContentType, obj.Data), obj.Data)
}

func (h *AccountsHandler) Me(c *gin.Context) {
	username := middleware.ActorFrom(c).Username()
	doc, err := h.accounts.GetAccount(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Public(username))
}

func (h *AccountsHandler) UpdateBio(c *gin.Context) {
	var req struct {
		AboutMe string `json:"about_me"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	username := middleware.ActorFrom(c).Username()
	doc, err := h.accounts.UpdateBio(c.Request.Context(), username, req.AboutMe)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Public(username))
}

// UpdateAvatar takes a multipart "file" field holding a JPEG.
func (h *AccountsHandler) UpdateAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".jpg", ".jpeg":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be a .jpg or .jpeg file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	username := middleware.ActorFrom(c).Username()
	doc, err := h.accounts.UpdateAvatar(c.Request.Context(), username, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc.Public(username))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikifun/wikifun/backend/go-services/internal/accounts"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/internal/query"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
	"github.com/wikifun/wikifun/backend/go-services/pkg/middleware"
)

// PagesHandler serves the page, query and image routes.
type PagesHandler struct {
	pages    *pages.Service
	query    *query.Engine
	accounts *accounts.Service
}

func NewPagesHandler(p *pages.Service, q *query.Engine, a *accounts.Service) *PagesHandler {
	return &PagesHandler{pages: p, query: q, accounts: a}
}

// Register mounts the routes; rg must already run middleware.Identity.
func (h *PagesHandler) Register(rg *gin.RouterGroup) {
	auth := middleware.RequireAuth()

	rg.GET("/pages", h.List)
	rg.POST("/pages", auth, h.Create)
	rg.GET("/pages/:name", h.Get)
	rg.POST("/pages/:name/vote", auth, h.Vote)
	rg.POST("/pages/:name/comments", auth, h.Comment)

	rg.GET("/search", h.Search)
	rg.GET("/sort", h.Sort)
	rg.GET("/years/:year", h.Year)

	rg.GET("/images", h.Images)
	rg.GET("/images/:name", h.Image)
}

func (h *PagesHandler) List(c *gin.Context) {
	list, err := h.pages.ListPageNames(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pages": list})
}

// Create uploads a page (replacing any page of the same name) and records it
// on the author's profile.
func (h *PagesHandler) Create(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	actor := middleware.ActorFrom(c)
	doc, err := h.pages.UploadPage(ctx, actor, req.Name, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	if _, err := h.accounts.RecordUpload(ctx, actor.Username(), pages.DisplayName(doc.WikiPage)); err != nil {
		logger.Warnf("record upload of %s for %s: %v", doc.WikiPage, actor, err)
	}
	c.JSON(http.StatusCreated, doc)
}

// Get returns the page; authenticated viewers get it added to their history.
func (h *PagesHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.pages.FetchPage(ctx, c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	if actor := middleware.ActorFrom(c); actor.IsAuthenticated() {
		if _, err := h.accounts.RecordView(ctx, actor.Username(), pages.DisplayName(doc.WikiPage)); err != nil {
			logger.Warnf("record view of %s for %s: %v", doc.WikiPage, actor, err)
		}
	}
	c.JSON(http.StatusOK, doc)
}

func (h *PagesHandler) Vote(c *gin.Context) {
	var req struct {
		Direction string `json:"direction" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc, err := h.pages.RecordVote(c.Request.Context(), pages.Direction(req.Direction), middleware.ActorFrom(c), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *PagesHandler) Comment(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.pages.AppendComment(c.Request.Context(), c.Param("name"), middleware.ActorFrom(c), req.Text); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Search handles ?by=title|content&q=...
func (h *PagesHandler) Search(c *gin.Context) {
	q := c.Query("q")
	var (
		res []string
		err error
	)
	switch c.DefaultQuery("by", "title") {
	case "title":
		res, err = h.query.SearchByTitle(c.Request.Context(), q)
	case "content":
		res, err = h.query.SearchByContent(c.Request.Context(), q)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "by must be title or content"})
		return
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func (h *PagesHandler) Sort(c *gin.Context) {
	res, err := h.query.SortPages(c.Request.Context(), query.Order(c.Query("order")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func (h *PagesHandler) Year(c *gin.Context) {
	res, err := h.query.FilterByYear(c.Request.Context(), c.Param("year"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": res})
}

func (h *PagesHandler) Images(c *gin.Context) {
	imgs, err := h.pages.ListImages(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": imgs})
}

func (h *PagesHandler) Image(c *gin.Context) {
	obj, err := h.pages.GetImage(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeOr(obj.ContentType, obj.Data), obj.Data)
}

func contentTypeOr(ct string, data []byte) string {
	if ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

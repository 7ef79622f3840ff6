package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wikifun/wikifun/backend/go-services/internal/accounts"
	"github.com/wikifun/wikifun/backend/go-services/internal/docstore"
	"github.com/wikifun/wikifun/backend/go-services/internal/pages"
	"github.com/wikifun/wikifun/backend/go-services/pkg/logger"
)

// writeError maps engine errors onto HTTP responses. Anything unexpected is
// logged and answered with a generic 500.
func writeError(c *gin.Context, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, pages.ErrImageNotFound), errors.Is(err, accounts.ErrImageNotFound):
		status, msg = http.StatusNotFound, "image not found"
	case errors.Is(err, pages.ErrPageNotFound):
		status, msg = http.StatusNotFound, "page not found"
	case errors.Is(err, accounts.ErrAccountNotFound):
		status, msg = http.StatusNotFound, "account not found"
	case errors.Is(err, pages.ErrInvalidName), errors.Is(err, accounts.ErrInvalidUsername), errors.Is(err, pages.ErrInvalidDirection):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, pages.ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "authentication required"
	case errors.Is(err, pages.ErrUnknownActor):
		status, msg = http.StatusForbidden, "no account for this user"
	case errors.Is(err, accounts.ErrAccountExists):
		status, msg = http.StatusConflict, "username already taken"
	case errors.Is(err, accounts.ErrAvatarConflict):
		status, msg = http.StatusConflict, "avatar upload raced with another upload; retry"
	case errors.Is(err, docstore.ErrConflict):
		status, msg = http.StatusConflict, "document changed concurrently; retry"
	case errors.Is(err, pages.ErrMalformedPage), errors.Is(err, accounts.ErrMalformedAccount):
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		msg = "stored document is malformed"
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

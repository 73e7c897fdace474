package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"product-catalog/internal/domain"
)

// envelope is the body of every catalog response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payload any    `json:"payload"`
}

func ok(c *gin.Context, message string, payload any) {
	c.JSON(http.StatusOK, envelope{Success: true, Message: message, Payload: payload})
}

func fail(c *gin.Context, status int, message string, payload any) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message, Payload: payload})
}

// failErr maps service errors onto statuses. notFound is the message used
// for domain.ErrNotFound.
func failErr(c *gin.Context, logger *zap.Logger, err error, notFound string) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		fail(c, http.StatusNotFound, notFound, nil)
	case errors.As(err, &verr):
		fail(c, http.StatusUnprocessableEntity, verr.Error(), verr.Fields)
	case errors.Is(err, domain.ErrAlreadyExists):
		fail(c, http.StatusUnprocessableEntity, "The name is already taken.", nil)
	default:
		_ = c.Error(err)
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		fail(c, http.StatusInternalServerError, "Server error occurred.", nil)
	}
}

// idParam parses a positive integer path parameter. It writes a 404 and
// returns false when the value is not an id.
func idParam(c *gin.Context, name, notFound string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusNotFound, notFound, nil)
		return 0, false
	}
	return id, true
}

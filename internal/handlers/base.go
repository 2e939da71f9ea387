package handlers

import (
	"errors"
	"log"
	"net/http"

	"commentease/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RenderError maps engine errors onto HTTP responses. Validation errors
// surface to the caller; consistency errors indicate a defect and are
// logged before a 500.
func RenderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrVotePayload),
		errors.Is(err, services.ErrVoteOutOfRange),
		errors.Is(err, services.ErrWrongCommentSet):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotAuthorized),
		errors.Is(err, services.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrInvalidPattern),
		errors.Is(err, services.ErrUnknownAction):
		log.Printf("consistency error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	default:
		log.Printf("request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

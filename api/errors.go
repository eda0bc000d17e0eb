package api

import (
	"errors"
	"net/http"

	"github.com/Desarso/datarex/models"
	"github.com/Desarso/datarex/sessions"
	"github.com/Desarso/datarex/vision"
	"github.com/gin-gonic/gin"
)

// errorStatus maps orchestrator errors onto HTTP status codes.
func errorStatus(err error) int {
	var failed *models.ProviderRequestFailedError
	switch {
	case errors.Is(err, sessions.ErrAccessDenied), errors.Is(err, vision.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnsupportedProvider):
		return http.StatusBadRequest
	case errors.As(err, &failed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Printf("Error handling %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message})
}

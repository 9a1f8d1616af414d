package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abdulachik/novelquiz/internal/epub"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func respondError(c *gin.Context, status int, msg string, err error) {
	body := ErrorBody{Error: msg}
	if err != nil {
		body.Message = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

// respondAPIError picks the status from err.
func respondAPIError(c *gin.Context, msg string, err error) {
	respondError(c, apiError(err), msg, err)
}

// apiError maps domain errors to HTTP status codes.
func apiError(err error) int {
	switch {
	case errors.Is(err, epub.ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, epub.ErrInvalidChapterIndex):
		return http.StatusBadRequest
	case errors.Is(err, errInvalidQuery):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

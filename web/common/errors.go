package common

import (
	"errors"
	"net/http"

	"careloop.com/careloop/evv"
	"github.com/gin-gonic/gin"
)

// StatusFor maps the EVV error taxonomy onto HTTP statuses. Anything outside the
// taxonomy is an internal error.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, evv.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, evv.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, evv.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, evv.ErrConflict), errors.Is(err, evv.ErrDuplicateMutation):
		return http.StatusConflict
	case errors.Is(err, evv.ErrQuotaExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func RenderError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), NewErrorResponse(err.Error()))
}

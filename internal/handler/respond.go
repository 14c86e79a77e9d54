package handler

import (
	"net/http"

	"taxengine/internal/apperror"
	"taxengine/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error to its HTTP status and writes the
// envelope with the error kind verbatim.
func respondError(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	status := http.StatusInternalServerError
	if kind != "" {
		status = apperror.HTTPStatus(kind)
	}
	c.JSON(status, response.ErrorWithKind(status, string(kind), err.Error()))
}

// respondBindError reports a malformed request payload as a validation error.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response.ErrorWithKind(
		http.StatusBadRequest,
		string(apperror.KindValidation),
		"Invalid request payload: "+err.Error(),
	))
}

// actorID returns the authenticated caller's id set by the auth middleware.
func actorID(c *gin.Context) string {
	return c.GetString("userID")
}

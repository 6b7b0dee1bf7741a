package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithForbidden sends a 403 response and aborts the request.
// Used for chat ownership violations; the body never names the owner.
func AbortWithForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, NewAPIError("Forbidden"))
}

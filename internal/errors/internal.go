package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AbortWithInternal sends a generic 500 response and aborts the request.
// Root causes are logged server-side only.
func AbortWithInternal(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, NewAPIError("Internal server error"))
}

// AbortWithConfiguration sends a 500 response that names the missing
// setting so operators can fix the deployment.
func AbortWithConfiguration(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, &APIError{
		Error:   "Configuration error",
		Message: message,
	})
}

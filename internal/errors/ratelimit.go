package errors

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimitError represents a standardized 429 Too Many Requests response
// for unauthenticated callers that exhausted the free daily quota.
// ResetAt is machine-readable so clients can schedule backoff or show a
// countdown; Action tells the client UI what to offer.
type RateLimitError struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	ResetAt time.Time `json:"resetAt"`
	Action  string    `json:"action"`
}

// DailyLimitExceeded creates a RateLimitError for daily quota exhaustion.
func DailyLimitExceeded(resetAt time.Time) *RateLimitError {
	return &RateLimitError{
		Error:   "Daily limit reached",
		Message: "You’ve used all free requests for today. Sign in to continue without limits.",
		ResetAt: resetAt,
		Action:  "sign-in",
	}
}

// AbortWithRateLimit sends a 429 response with the RateLimitError and aborts the request.
func AbortWithRateLimit(c *gin.Context, err *RateLimitError) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, err)
}

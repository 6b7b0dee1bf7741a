package errors

// APIError represents a simple standardized error response.
// Used for 400, 403 and 500 errors that don't need specialized shapes.
type APIError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewAPIError creates a new APIError with the given message.
func NewAPIError(message string) *APIError {
	return &APIError{Error: message}
}

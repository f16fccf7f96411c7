package types

// ErrorResponse represents an error response
// swagger:model
// Example: {"error":"job request not found","details":{"job_id":"7f1c..."}}
type ErrorResponse struct {
	// Error message describing what went wrong
	Error string `json:"error"`

	// Optional additional details about the error, may include field-specific validation errors
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
// swagger:model
// Example: {"data":{"conversation_id":"5b8e..."}}
type SuccessResponse struct {
	// Optional data returned by the operation
	Data interface{} `json:"data,omitempty"`
}

// ErrInvalidInput returns an ErrorResponse for a rejected request
func ErrInvalidInput(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// ErrServer returns an ErrorResponse for an internal failure
func ErrServer(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// Success returns a SuccessResponse wrapping data
func Success(data interface{}) SuccessResponse {
	return SuccessResponse{Data: data}
}

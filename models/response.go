package models

// ErrorResponse is a generic error response structure for API
type ErrorResponse struct {
	Message string `json:"message" example:"Error message describing the issue"`
}

// MessageResponse is a generic success response structure for API
type MessageResponse struct {
	Message string `json:"message"`
}

// RulesResponse wraps the stored custom rules text.
type RulesResponse struct {
	Rules string `json:"rules"`
}

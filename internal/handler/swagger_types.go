package handler

// Swagger type definitions for API documentation.
// These types are used by swag to generate OpenAPI documentation.

// InterpretRequest represents the interpret and export request body.
type InterpretRequest struct {
	Prompt         string `json:"prompt" example:"add a freight line of 50 and apply 10% discount"`
	InvoiceID      string `json:"invoice_id,omitempty" example:"550e8400-e29b-41d4-a716-446655440000"`
	InvoiceContext string `json:"invoice_context,omitempty" example:"{\"lines\":[{\"lineNumber\":1,\"description\":\"Consulting\",\"quantity\":2,\"unitPrice\":100}]}"`
}

// Response wraps a successful response.
type Response struct {
	Success bool        `json:"success" example:"true"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponseBody wraps an error response.
type ErrorResponseBody struct {
	Success bool      `json:"success" example:"false"`
	Error   *APIError `json:"error"`
}

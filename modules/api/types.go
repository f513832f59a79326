package api

import (
	domain "github.com/example/civic-platform/domain/user"
)

// UserResponse wraps a single user record.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// AdminResponse is returned by the admin check endpoint.
type AdminResponse struct {
	IsAdmin bool `json:"isAdmin"`
}

// MessageResponse carries a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

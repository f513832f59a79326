package auth

import (
	domain "github.com/example/civic-platform/domain/user"
)

// Failures are carried in the Error field of each response rather than as
// service errors, so the caller can recover the error kind.

// SessionResponse is the reply of the register and login services.
type SessionResponse struct {
	Session *domain.Session `json:"session,omitempty"`
	Error   *ServiceError   `json:"error,omitempty"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Claims *domain.Claims `json:"claims,omitempty"`
	Error  *ServiceError  `json:"error,omitempty"`
}

// UserIDRequest addresses a single user.
type UserIDRequest struct {
	UserID uint `json:"user_id"`
}

// UserResponse is the reply of the get-user and promote-user services.
type UserResponse struct {
	User  *domain.User  `json:"user,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

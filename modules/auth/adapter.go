package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/civic-platform/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Session, error)
	Login(ctx context.Context, in LoginInput) (*domain.Session, error)
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID uint) (*domain.User, error)
	PromoteUser(ctx context.Context, userID uint) (*domain.User, error)
}

// The service satisfies the port directly for in-process callers.
var _ AuthPort = (*AuthService)(nil)
var _ AuthPort = (*AuthAdapter)(nil)

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
}

// Register creates an account through the register service.
func (a *AuthAdapter) Register(ctx context.Context, in RegisterInput) (*domain.Session, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"register",
		json.Marshal,
		json.Unmarshal,
		&in,
		&resp,
	); err != nil {
		return nil, transportError("register", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Session, nil
}

// Login opens a session through the login service.
func (a *AuthAdapter) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	var resp SessionResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"login",
		json.Marshal,
		json.Unmarshal,
		&in,
		&resp,
	); err != nil {
		return nil, transportError("login", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Session, nil
}

// ValidateToken validates a session token and returns its claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"validate-token",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError("validate-token", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Claims, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID uint) (*domain.User, error) {
	req := UserIDRequest{UserID: userID}
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError("get-user", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.User, nil
}

// PromoteUser grants the administrative flag through the promote-user service.
func (a *AuthAdapter) PromoteUser(ctx context.Context, userID uint) (*domain.User, error) {
	req := UserIDRequest{UserID: userID}
	var resp UserResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"promote-user",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, transportError("promote-user", err)
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.User, nil
}

// transportError reports a failed request-reply round trip as an
// unexpected error.
func transportError(service string, err error) error {
	return NewUnexpectedError(fmt.Errorf("%s request failed: %w", service, err))
}

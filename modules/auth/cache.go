package auth

import (
	"context"

	domain "github.com/example/civic-platform/domain/user"
)

// UserCache is an optional read-through cache in front of the credential
// store. Implementations report a miss as (nil, false, nil).
type UserCache interface {
	GetUser(ctx context.Context, id uint) (*domain.User, bool, error)
	SetUser(ctx context.Context, user *domain.User) error
	InvalidateUser(ctx context.Context, id uint) error
}

// noopCache is used when no cache is configured.
type noopCache struct{}

func (noopCache) GetUser(context.Context, uint) (*domain.User, bool, error) { return nil, false, nil }
func (noopCache) SetUser(context.Context, *domain.User) error               { return nil }
func (noopCache) InvalidateUser(context.Context, uint) error                { return nil }

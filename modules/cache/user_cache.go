package cache

import (
	"context"
	"strconv"

	domain "github.com/example/civic-platform/domain/user"
)

// UserCache caches user records by ID. The password hash is never written
// to Redis because it is excluded from the JSON form of a user.
type UserCache struct {
	cache *Cache
}

// NewUserCache wraps c for user lookups.
func NewUserCache(c *Cache) *UserCache {
	return &UserCache{cache: c}
}

func userKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// GetUser returns the cached user, reporting false on a miss.
func (u *UserCache) GetUser(ctx context.Context, id uint) (*domain.User, bool, error) {
	var user domain.User
	found, err := u.cache.Get(ctx, userKey(id), &user)
	if err != nil || !found {
		return nil, false, err
	}
	return &user, true, nil
}

// SetUser caches user under its ID.
func (u *UserCache) SetUser(ctx context.Context, user *domain.User) error {
	return u.cache.Set(ctx, userKey(user.ID), user)
}

// InvalidateUser drops the cached entry for id.
func (u *UserCache) InvalidateUser(ctx context.Context, id uint) error {
	return u.cache.Delete(ctx, userKey(id))
}

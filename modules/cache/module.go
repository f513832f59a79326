package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/civic-platform/config"
	domain "github.com/example/civic-platform/domain/user"
	"github.com/example/civic-platform/logging"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Module provides the user cache as a mono module. With no Redis address
// configured it stays disabled and every operation is a no-op, so it can be
// handed to consumers before it has started.
type Module struct {
	cfg    config.CacheConfig
	logger *zap.Logger
	users  atomic.Pointer[UserCache]
	cache  *Cache
}

var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a cache module.
func NewModule(cfg config.CacheConfig, logger *zap.Logger) *Module {
	return &Module{
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("cache"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "cache"
}

// Start connects to Redis when the cache is enabled.
func (m *Module) Start(ctx context.Context) error {
	if !m.cfg.Enabled() {
		m.logger.Info("module started, cache disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         m.cfg.RedisAddr,
		Password:     m.cfg.RedisPassword,
		PoolSize:     50,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.cache = New(client, m.cfg.Prefix, m.cfg.TTL)
	m.users.Store(NewUserCache(m.cache))

	m.logger.Info("module started",
		zap.String("redis_addr", m.cfg.RedisAddr),
		zap.String("prefix", m.cfg.Prefix),
		zap.Duration("ttl", m.cfg.TTL))
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	m.users.Store(nil)
	if m.cache != nil {
		if err := m.cache.Close(); err != nil {
			return fmt.Errorf("failed to close Redis connection: %w", err)
		}
	}
	m.logger.Info("module stopped")
	return nil
}

// Health reports Redis reachability and cache counters.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if !m.cfg.Enabled() {
		return mono.HealthStatus{Healthy: true, Message: "disabled"}
	}
	if m.cache == nil {
		return mono.HealthStatus{Healthy: false, Message: "cache not initialized"}
	}
	if err := m.cache.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}

	s := m.cache.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"hits":     s.Hits,
			"misses":   s.Misses,
			"hit_rate": s.HitRate,
			"errors":   s.Errors,
		},
	}
}

// GetUser implements the auth user cache contract.
func (m *Module) GetUser(ctx context.Context, id uint) (*domain.User, bool, error) {
	if u := m.users.Load(); u != nil {
		return u.GetUser(ctx, id)
	}
	return nil, false, nil
}

// SetUser implements the auth user cache contract.
func (m *Module) SetUser(ctx context.Context, user *domain.User) error {
	if u := m.users.Load(); u != nil {
		return u.SetUser(ctx, user)
	}
	return nil
}

// InvalidateUser implements the auth user cache contract.
func (m *Module) InvalidateUser(ctx context.Context, id uint) error {
	if u := m.users.Load(); u != nil {
		return u.InvalidateUser(ctx, id)
	}
	return nil
}

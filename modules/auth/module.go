package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/civic-platform/config"
	"github.com/example/civic-platform/events"
	"github.com/example/civic-platform/logging"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthModule provides authentication services.
type AuthModule struct {
	cfg      config.Config
	logger   *zap.Logger
	cache    UserCache
	db       *gorm.DB
	service  *AuthService
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule. cache may be nil.
func NewModule(cfg config.Config, logger *zap.Logger, cache UserCache) *AuthModule {
	return &AuthModule{
		cfg:    cfg,
		logger: logging.OrNop(logger).Named("auth"),
		cache:  cache,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetEventBus receives the event bus used to publish user events.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
	if m.service != nil {
		m.service.SetEventBus(bus)
	}
}

// EmitEvents declares the events this module publishes.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserRegisteredV1.ToBase(),
		events.UserPromotedV1.ToBase(),
	}
}

// Start opens the credential store and builds the auth service.
func (m *AuthModule) Start(_ context.Context) error {
	db, err := OpenDatabase(m.cfg.DB)
	if err != nil {
		return err
	}
	m.db = db

	if m.cfg.JWT.UsingFallback {
		m.logger.Warn("JWT_SECRET is not set; using the insecure development fallback secret")
	}

	m.service = NewAuthService(
		NewUserRepository(db),
		NewPasswordHasher(m.cfg.Hash.Cost, m.cfg.Hash.Concurrency),
		NewTokenManager(TokenConfig{
			Secret: m.cfg.JWT.Secret,
			Issuer: m.cfg.JWT.Issuer,
			TTL:    m.cfg.JWT.TTL,
		}),
		m.cache,
		m.logger,
	)
	if m.eventBus != nil {
		m.service.SetEventBus(m.eventBus)
	} else {
		m.logger.Warn("event bus not set, user events will not be published")
	}

	m.logger.Info("module started",
		zap.String("driver", m.cfg.DB.Driver),
		zap.Int("bcrypt_cost", m.cfg.Hash.Cost))
	return nil
}

// Stop closes the database connection.
func (m *AuthModule) Stop(_ context.Context) error {
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				m.logger.Warn("failed to close database", zap.Error(err))
			}
		}
	}
	m.logger.Info("module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.cfg.DB.Driver,
		},
	}
}

// Service returns the auth service. It is nil until the module has started.
func (m *AuthModule) Service() *AuthService {
	return m.service
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.handleRegister,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "promote-user", json.Unmarshal, json.Marshal, m.handlePromoteUser,
	); err != nil {
		return fmt.Errorf("failed to register promote-user service: %w", err)
	}

	m.logger.Info("registered services: register, login, validate-token, get-user, promote-user")
	return nil
}

func (m *AuthModule) handleRegister(ctx context.Context, req RegisterInput, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Register(ctx, req)
	return SessionResponse{Session: session, Error: toServiceError(err)}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req LoginInput, _ *mono.Msg) (SessionResponse, error) {
	session, err := m.service.Login(ctx, req)
	return SessionResponse{Session: session, Error: toServiceError(err)}, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	return ValidateTokenResponse{Claims: claims, Error: toServiceError(err)}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req UserIDRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	return UserResponse{User: user, Error: toServiceError(err)}, nil
}

func (m *AuthModule) handlePromoteUser(ctx context.Context, req UserIDRequest, _ *mono.Msg) (UserResponse, error) {
	user, err := m.service.PromoteUser(ctx, req.UserID)
	return UserResponse{User: user, Error: toServiceError(err)}, nil
}

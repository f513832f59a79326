package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	domain "github.com/example/civic-platform/domain/user"
	"github.com/example/civic-platform/events"
	"github.com/example/civic-platform/logging"
	"github.com/go-monolith/mono"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// AuthService handles authentication business logic.
type AuthService struct {
	repo     *UserRepository
	hasher   *PasswordHasher
	tokens   *TokenManager
	cache    UserCache
	eventBus mono.EventBus
	logger   *zap.Logger
	lookups  singleflight.Group
}

// NewAuthService creates a new AuthService. cache may be nil.
func NewAuthService(repo *UserRepository, hasher *PasswordHasher, tokens *TokenManager, cache UserCache, logger *zap.Logger) *AuthService {
	if cache == nil {
		cache = noopCache{}
	}
	return &AuthService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		cache:  cache,
		logger: logging.OrNop(logger),
	}
}

// SetEventBus enables publishing of user events. Without a bus, events are
// not published.
func (s *AuthService) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Register creates a new account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Session, error) {
	in = in.normalize()
	if err := ValidateRegister(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, s.unexpected("check email", err)
	}
	if exists {
		return nil, NewConflictError(MsgEmailInUse)
	}

	exists, err = s.repo.PhoneExists(ctx, in.Phone)
	if err != nil {
		return nil, s.unexpected("check phone", err)
	}
	if exists {
		return nil, NewConflictError(MsgPhoneInUse)
	}

	passwordHash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, s.unexpected("hash password", err)
	}

	user := &domain.User{
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: passwordHash,
		IsAdmin:      false,
	}

	// A concurrent registration may win the race past the existence checks;
	// the unique index rejects ours and it surfaces as a server error.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, s.unexpected("create user", err)
	}

	session, err := s.openSession(user)
	if err != nil {
		return nil, err
	}

	s.publishRegistered(user)
	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return session, nil
}

// Login authenticates a user by email and password. Unknown emails and wrong
// passwords fail with the same error after the same amount of hashing work.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	in = in.normalize()
	if err := ValidateLogin(in); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.hasher.DummyVerify(ctx, in.Password)
			return nil, NewAuthenticationError(MsgInvalidCredentials)
		}
		return nil, s.unexpected("find user", err)
	}

	if !s.hasher.Verify(ctx, in.Password, user.PasswordHash) {
		return nil, NewAuthenticationError(MsgInvalidCredentials)
	}

	return s.openSession(user)
}

// ValidateToken verifies a session token and returns the identity it asserts.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*domain.Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, NewAuthenticationError(MsgNotAuthenticated)
	}
	return claims, nil
}

// GetUser resolves a user by ID, consulting the cache first.
func (s *AuthService) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	cached, found, err := s.cache.GetUser(ctx, id)
	if err != nil {
		s.logger.Warn("user cache read failed", zap.Uint("user_id", id), zap.Error(err))
	}
	if found {
		return cached, nil
	}

	// Concurrent lookups share one query, which must not be cut short by
	// whichever caller started it. Each caller still honours its own context.
	lookupCtx := context.WithoutCancel(ctx)
	results := s.lookups.DoChan(strconv.FormatUint(uint64(id), 10), func() (any, error) {
		return s.repo.FindByID(lookupCtx, id)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, s.unexpected("find user", ctx.Err())
	case res = <-results:
	}

	val, err := res.Val, res.Err
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, NewAuthenticationError(MsgUserNotFound)
		}
		return nil, s.unexpected("find user", err)
	}

	user := val.(*domain.User)
	if err := s.cache.SetUser(ctx, user); err != nil {
		s.logger.Warn("user cache write failed", zap.Uint("user_id", id), zap.Error(err))
	}
	return user, nil
}

// PromoteUser grants the administrative flag to the user with the given ID.
func (s *AuthService) PromoteUser(ctx context.Context, id uint) (*domain.User, error) {
	if err := s.repo.SetAdmin(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, NewNotFoundError(MsgUserNotFound)
		}
		return nil, s.unexpected("promote user", err)
	}
	s.invalidate(ctx, id)

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, s.unexpected("reload user", err)
	}

	s.publishPromoted(user)
	s.logger.Info("user promoted to admin", zap.Uint("user_id", user.ID))
	return user, nil
}

// PromoteUserByEmail grants the administrative flag to the user with the
// given email.
func (s *AuthService) PromoteUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.repo.FindByEmail(ctx, LoginInput{Email: email}.normalize().Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, NewNotFoundError(MsgUserNotFound)
		}
		return nil, s.unexpected("find user", err)
	}
	return s.PromoteUser(ctx, user.ID)
}

// DeleteUser removes an account. Tokens already issued for it stop
// resolving on their next use.
func (s *AuthService) DeleteUser(ctx context.Context, id uint) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return NewNotFoundError(MsgUserNotFound)
		}
		return s.unexpected("delete user", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *AuthService) openSession(user *domain.User) (*domain.Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, s.unexpected("issue token", err)
	}
	return &domain.Session{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) invalidate(ctx context.Context, id uint) {
	if err := s.cache.InvalidateUser(ctx, id); err != nil {
		s.logger.Warn("user cache invalidation failed", zap.Uint("user_id", id), zap.Error(err))
	}
}

func (s *AuthService) unexpected(op string, err error) error {
	s.logger.Error("auth operation failed", zap.String("op", op), zap.Error(err))
	return NewUnexpectedError(err)
}

func (s *AuthService) publishRegistered(user *domain.User) {
	if s.eventBus == nil {
		return
	}
	event := events.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		RegisteredAt: time.Now(),
	}
	if err := events.UserRegisteredV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("failed to publish UserRegistered event", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthService) publishPromoted(user *domain.User) {
	if s.eventBus == nil {
		return
	}
	event := events.UserPromotedEvent{
		UserID:     user.ID,
		Email:      user.Email,
		PromotedAt: time.Now(),
	}
	if err := events.UserPromotedV1.Publish(s.eventBus, event, nil); err != nil {
		s.logger.Warn("failed to publish UserPromoted event", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}

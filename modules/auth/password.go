package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultBcryptCost is the default cost for bcrypt hashing.
	DefaultBcryptCost = 10

	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)

// ErrPasswordTooLong is returned when a password exceeds bcrypt's 72-byte limit.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// PasswordHasher provides password hashing and verification functionality.
// At most concurrency bcrypt computations run at the same time.
type PasswordHasher struct {
	cost  int
	slots *semaphore.Weighted
	dummy []byte
}

// NewPasswordHasher creates a PasswordHasher. Non-positive arguments select
// DefaultBcryptCost and runtime.NumCPU() respectively.
func NewPasswordHasher(cost, concurrency int) *PasswordHasher {
	if cost <= 0 {
		cost = DefaultBcryptCost
	}
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}

	// Compared against when the account does not exist.
	dummy, err := bcrypt.GenerateFromPassword([]byte("civic-platform/dummy-password"), cost)
	if err != nil {
		dummy = nil
	}

	return &PasswordHasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(concurrency)),
		dummy: dummy,
	}
}

// Cost returns the bcrypt cost used for new hashes.
func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash generates a salted bcrypt hash of the given password.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("waiting for hash slot: %w", err)
	}
	defer h.slots.Release(1)

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify checks if the provided password matches the hash. Malformed hashes
// and cancelled contexts yield false.
func (h *PasswordHasher) Verify(ctx context.Context, password, hash string) bool {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.slots.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// DummyVerify performs one bcrypt comparison whose result is discarded, so a
// login for an unknown email costs the same as a wrong password.
func (h *PasswordHasher) DummyVerify(ctx context.Context, password string) {
	if h.dummy == nil {
		return
	}
	_ = h.Verify(ctx, password, string(h.dummy))
}

package auth

import (
	"testing"
	"time"

	domain "github.com/example/civic-platform/domain/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Every pooled connection would get its own in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// newTestService builds an AuthService over an in-memory store using the
// minimum bcrypt cost to keep tests fast.
func newTestService(t *testing.T, cache UserCache) (*AuthService, *UserRepository) {
	t.Helper()

	repo := NewUserRepository(setupTestDB(t))
	service := NewAuthService(
		repo,
		NewPasswordHasher(4, 4),
		NewTokenManager(TokenConfig{
			Secret: "test-secret-key",
			Issuer: "test-issuer",
			TTL:    7 * 24 * time.Hour,
		}),
		cache,
		nil,
	)
	return service, repo
}

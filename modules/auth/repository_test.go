package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/example/civic-platform/domain/user"
)

func newTestUser(n int) *domain.User {
	return &domain.User{
		FullName:     fmt.Sprintf("User %d", n),
		Email:        fmt.Sprintf("user%d@example.com", n),
		Phone:        fmt.Sprintf("555000%04d", n),
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newTestUser(1)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == 0 {
		t.Fatal("Create() did not assign an ID")
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if byID.Email != user.Email {
		t.Errorf("FindByID().Email = %q, want %q", byID.Email, user.Email)
	}
	if byID.IsAdmin {
		t.Error("new user should not be admin")
	}

	byEmail, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if byEmail.ID != user.ID {
		t.Errorf("FindByEmail().ID = %d, want %d", byEmail.ID, user.ID)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	if _, err := repo.FindByID(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindByID() error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindByEmail() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.SetAdmin(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("SetAdmin() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.Delete(ctx, 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_UniqueConstraints(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newTestUser(1)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sameEmail := newTestUser(2)
	sameEmail.Email = "user1@example.com"
	if err := repo.Create(ctx, sameEmail); !errors.Is(err, ErrUserExists) {
		t.Errorf("Create() duplicate email error = %v, want ErrUserExists", err)
	}

	samePhone := newTestUser(3)
	samePhone.Phone = newTestUser(1).Phone
	if err := repo.Create(ctx, samePhone); !errors.Is(err, ErrUserExists) {
		t.Errorf("Create() duplicate phone error = %v, want ErrUserExists", err)
	}
}

func TestUserRepository_Exists(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newTestUser(1)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name  string
		check func() (bool, error)
		want  bool
	}{
		{name: "email present", check: func() (bool, error) { return repo.EmailExists(ctx, user.Email) }, want: true},
		{name: "email absent", check: func() (bool, error) { return repo.EmailExists(ctx, "x@example.com") }, want: false},
		{name: "phone present", check: func() (bool, error) { return repo.PhoneExists(ctx, user.Phone) }, want: true},
		{name: "phone absent", check: func() (bool, error) { return repo.PhoneExists(ctx, "0000000000") }, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.check()
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserRepository_SetAdminAndDelete(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()

	user := newTestUser(1)
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.SetAdmin(ctx, user.ID); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	found, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if !found.IsAdmin {
		t.Error("IsAdmin = false after SetAdmin")
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.FindByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("FindByID() after delete error = %v, want ErrUserNotFound", err)
	}
}

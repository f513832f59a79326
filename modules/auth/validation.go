package auth

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 6
	// MaxFullNameLength is the maximum accepted full name length.
	MaxFullNameLength = 100
	// PhoneDigits is the exact number of digits in a phone number.
	PhoneDigits = 10
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// normalize trims surrounding whitespace and lower-cases the email.
// Passwords are left untouched.
func (in RegisterInput) normalize() RegisterInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	return in
}

func (in LoginInput) normalize() LoginInput {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	return in
}

// ValidateRegister checks the registration payload and returns a
// validation error listing every violated field, or nil.
func ValidateRegister(in RegisterInput) error {
	fields := make(map[string]string)

	switch {
	case in.FullName == "":
		fields["fullName"] = "Full name is required"
	case utf8.RuneCountInString(in.FullName) > MaxFullNameLength:
		fields["fullName"] = "Full name must be at most 100 characters"
	}

	if msg := validateEmail(in.Email); msg != "" {
		fields["email"] = msg
	}

	switch {
	case in.Phone == "":
		fields["phone"] = "Phone number is required"
	case !isDigits(in.Phone, PhoneDigits):
		fields["phone"] = "Phone number must be exactly 10 digits"
	}

	switch {
	case in.Password == "":
		fields["password"] = "Password is required"
	case utf8.RuneCountInString(in.Password) < MinPasswordLength:
		fields["password"] = "Password must be at least 6 characters"
	case len(in.Password) > MaxPasswordBytes:
		fields["password"] = "Password must be at most 72 bytes"
	}

	switch {
	case in.ConfirmPassword == "":
		fields["confirmPassword"] = "Password confirmation is required"
	case in.ConfirmPassword != in.Password:
		fields["confirmPassword"] = "Passwords do not match"
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

// ValidateLogin checks the shape of a login payload.
func ValidateLogin(in LoginInput) error {
	fields := make(map[string]string)

	if msg := validateEmail(in.Email); msg != "" {
		fields["email"] = msg
	}
	if in.Password == "" {
		fields["password"] = "Password is required"
	}

	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func validateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	addr, err := mail.ParseAddress(email)
	// Reject display-name forms such as "John <john@example.com>".
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "Invalid email address"
	}
	return ""
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

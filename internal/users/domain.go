package users

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrDuplicateLogin is returned when the login is already taken.
	ErrDuplicateLogin = errors.New("users: login already taken")
	// ErrWrongPassword is returned when the current password does not match.
	ErrWrongPassword = errors.New("users: current password is wrong")
	// ErrPasswordMismatch is returned when the confirmation differs from the new password.
	ErrPasswordMismatch = errors.New("users: passwords do not match")
)

// User represents a user account for management.
type User struct {
	ID         int64
	Login      string
	LastName   string
	FirstName  string
	MiddleName *string
	RoleID     int64
	RoleName   string
	CreatedAt  time.Time
}

// FullName joins last, first and middle names.
func (u User) FullName() string {
	parts := []string{u.LastName, u.FirstName}
	if u.MiddleName != nil && *u.MiddleName != "" {
		parts = append(parts, *u.MiddleName)
	}
	return strings.Join(parts, " ")
}

// CreateInput carries the fields of a new account.
type CreateInput struct {
	Login      string `validate:"required,alphanum,min=5,max=50"`
	Password   string `validate:"required,min=8,max=128"`
	LastName   string `validate:"required,max=100"`
	FirstName  string `validate:"required,max=100"`
	MiddleName string `validate:"omitempty,max=100"`
	RoleID     int64  `validate:"required,gt=0"`
}

// UpdateInput carries editable profile fields. RoleID is ignored unless the
// caller is allowed to change roles.
type UpdateInput struct {
	LastName   string `validate:"required,max=100"`
	FirstName  string `validate:"required,max=100"`
	MiddleName string `validate:"omitempty,max=100"`
	RoleID     int64  `validate:"omitempty,gt=0"`
}

// ChangePasswordInput carries a password change request.
type ChangePasswordInput struct {
	OldPassword     string `validate:"required"`
	NewPassword     string `validate:"required,min=8,max=128"`
	ConfirmPassword string `validate:"required"`
}

// ValidationError maps form fields to user-facing messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "users: invalid input"
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/campus-labs/campus/internal/auth"
	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// RoleChecker verifies role ids submitted with user forms.
type RoleChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service handles user business logic.
type Service struct {
	repo     Repository
	roles    RoleChecker
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository, roles RoleChecker) *Service {
	return &Service{repo: repo, roles: roles, validate: validator.New()}
}

// List returns all users with their role names.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	return users, nil
}

// Get returns a single user or shared.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("users: get: %w", err)
	}
	return user, nil
}

// LoadRecord adapts Get to rbac.RecordLoader.
func (s *Service) LoadRecord(ctx context.Context, id int64) (*rbac.Record, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rbac.Record{ID: user.ID}, nil
}

// Create validates input, hashes the password and stores a new account.
func (s *Service) Create(ctx context.Context, in CreateInput) (int64, error) {
	in.Login = strings.TrimSpace(in.Login)
	in.LastName = strings.TrimSpace(in.LastName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	if err := s.check(in); err != nil {
		return 0, err
	}
	if err := s.checkRole(ctx, in.RoleID); err != nil {
		return 0, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return 0, fmt.Errorf("users: hash password: %w", err)
	}
	id, err := s.repo.Create(ctx, in, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateLogin) {
			return 0, err
		}
		return 0, fmt.Errorf("users: create: %w", err)
	}
	return id, nil
}

// Update stores profile changes. The role is only written when canChangeRole
// is true; otherwise the submitted role id is discarded.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput, canChangeRole bool) error {
	in.LastName = strings.TrimSpace(in.LastName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.MiddleName = strings.TrimSpace(in.MiddleName)
	if !canChangeRole {
		in.RoleID = 0
	}
	if err := s.check(in); err != nil {
		return err
	}
	withRole := canChangeRole && in.RoleID > 0
	if withRole {
		if err := s.checkRole(ctx, in.RoleID); err != nil {
			return err
		}
	}
	if err := s.repo.Update(ctx, id, in, withRole); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("users: update: %w", err)
	}
	return nil
}

// Delete removes a user. Action log rows survive with a NULL user id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return fmt.Errorf("users: delete: %w", err)
	}
	return nil
}

// ChangePassword replaces the password after checking the current one. The
// read and the write share a transaction.
func (s *Service) ChangePassword(ctx context.Context, id int64, in ChangePasswordInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.PasswordHash(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return err
			}
			return fmt.Errorf("users: load password: %w", err)
		}
		if !auth.CheckPassword(current, in.OldPassword) {
			return ErrWrongPassword
		}
		hash, err := auth.HashPassword(in.NewPassword)
		if err != nil {
			return fmt.Errorf("users: hash password: %w", err)
		}
		if err := repo.SetPasswordHash(ctx, id, hash); err != nil {
			return fmt.Errorf("users: store password: %w", err)
		}
		return nil
	})
}

func (s *Service) checkRole(ctx context.Context, roleID int64) error {
	if s.roles == nil {
		return nil
	}
	ok, err := s.roles.Exists(ctx, roleID)
	if err != nil {
		return fmt.Errorf("users: check role: %w", err)
	}
	if !ok {
		return &ValidationError{Fields: map[string]string{"RoleID": "Unknown role."}}
	}
	return nil
}

func (s *Service) check(input any) error {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "alphanum":
		return "Only latin letters and digits are allowed."
	case "min":
		return fmt.Sprintf("Must be at least %s characters long.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters long.", fe.Param())
	case "gt":
		return "Choose a value."
	default:
		return "Invalid value."
	}
}

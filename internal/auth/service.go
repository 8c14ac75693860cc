package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo          Repository
	adminRoleID   int64
	checkPassword func(hash, password string) bool
}

// NewService constructs a new Service. adminRoleID is the role that grants
// administrative rights.
func NewService(repo Repository, adminRoleID int64) *Service {
	return &Service{repo: repo, adminRoleID: adminRoleID, checkPassword: CheckPassword}
}

// Authenticate validates login/password credentials. An unknown login and a
// wrong password both yield shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*User, error) {
	user, err := s.repo.FindByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.checkPassword(dummyHash(), password)
			return nil, shared.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if !s.checkPassword(user.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Resolve turns the user id kept in a session into a principal. The user row
// is read on every call so role changes apply on the next request. A missing
// user resolves to the anonymous principal without error.
func (s *Service) Resolve(ctx context.Context, rawUserID string) (rbac.Principal, error) {
	raw := strings.TrimSpace(rawUserID)
	if raw == "" {
		return rbac.Anonymous(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return rbac.Anonymous(), nil
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return rbac.Anonymous(), nil
		}
		return rbac.Anonymous(), err
	}
	return s.PrincipalFor(user), nil
}

// PrincipalFor builds the principal for a stored user.
func (s *Service) PrincipalFor(user *User) rbac.Principal {
	if user == nil {
		return rbac.Anonymous()
	}
	return rbac.Principal{
		ID:      user.ID,
		Login:   user.Login,
		RoleID:  user.RoleID,
		IsAdmin: user.RoleID == s.adminRoleID,
	}
}

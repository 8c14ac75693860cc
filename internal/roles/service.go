package roles

import (
	"context"
	"fmt"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles ordered by id.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	return roles, nil
}

// Exists reports whether id names a known role.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	roles, err := s.ListRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.ID == id {
			return true, nil
		}
	}
	return false, nil
}

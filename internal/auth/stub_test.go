package auth_test

import (
	"context"
	"sync"

	"github.com/campus-labs/campus/internal/auth"
	"github.com/campus-labs/campus/internal/shared"
)

type stubRepo struct {
	mu    sync.Mutex
	users map[int64]*auth.User
	err   error
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: make(map[int64]*auth.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) FindByLogin(ctx context.Context, login string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Login == login {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

type countingObserver struct {
	outcomes map[string]int
}

func (o *countingObserver) ObserveLogin(outcome string) {
	if o.outcomes == nil {
		o.outcomes = make(map[string]int)
	}
	o.outcomes[outcome]++
}

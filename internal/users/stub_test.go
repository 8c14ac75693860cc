package users_test

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-labs/campus/internal/roles"
	"github.com/campus-labs/campus/internal/shared"
	"github.com/campus-labs/campus/internal/users"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]users.User
	hashes map[int64]string
	err    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, users: make(map[int64]users.User), hashes: make(map[int64]string)}
}

func (m *memoryRepo) seed(u users.User, hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.hashes[u.ID] = hash
	if u.ID >= m.nextID {
		m.nextID = u.ID + 1
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) List(ctx context.Context) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]users.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &u, nil
}

func (m *memoryRepo) Create(ctx context.Context, in users.CreateInput, hash string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == in.Login {
			return 0, users.ErrDuplicateLogin
		}
	}
	id := m.nextID
	m.nextID++
	u := users.User{ID: id, Login: in.Login, LastName: in.LastName, FirstName: in.FirstName, RoleID: in.RoleID}
	if in.MiddleName != "" {
		middle := in.MiddleName
		u.MiddleName = &middle
	}
	m.users[id] = u
	m.hashes[id] = hash
	return id, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, in users.UpdateInput, withRole bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.LastName, u.FirstName = in.LastName, in.FirstName
	u.MiddleName = nil
	if in.MiddleName != "" {
		middle := in.MiddleName
		u.MiddleName = &middle
	}
	if withRole {
		u.RoleID = in.RoleID
	}
	m.users[id] = u
	return nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	delete(m.hashes, id)
	return nil
}

func (m *memoryRepo) PasswordHash(ctx context.Context, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[id]
	if !ok {
		return "", shared.ErrNotFound
	}
	return hash, nil
}

func (m *memoryRepo) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hashes[id]; !ok {
		return shared.ErrNotFound
	}
	m.hashes[id] = hash
	return nil
}

func (m *memoryRepo) user(id int64) (users.User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	return u, ok
}

type stubRoles struct{}

func (stubRoles) ListRoles(ctx context.Context) ([]roles.Role, error) {
	return []roles.Role{{ID: 1, Name: "admin"}, {ID: 2, Name: "user"}}, nil
}

func (stubRoles) Exists(ctx context.Context, id int64) (bool, error) {
	return id == 1 || id == 2, nil
}

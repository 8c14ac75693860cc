package visits_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campus-labs/campus/internal/visits"
)

type person struct {
	login               string
	last, first, middle string
}

// memoryStore is an in-memory Repository mirroring the SQL ordering rules.
type memoryStore struct {
	mu      sync.Mutex
	entries []visits.Entry
	people  map[int64]person
	now     time.Time
	failErr error
	offsets []int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		people: map[int64]person{
			1: {login: "admin", last: "Root", first: "Admin"},
			2: {login: "student", last: "Ivanova", first: "Anna", middle: "Petrovna"},
			3: {login: "lecturer", last: "Smirnov", first: "Oleg"},
		},
		now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memoryStore) InsertEntry(ctx context.Context, userID *int64, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return fmt.Errorf("%w: insert entry: %w", visits.ErrStore, m.failErr)
	}
	m.now = m.now.Add(time.Second)
	entry := visits.Entry{ID: int64(len(m.entries) + 1), Path: path, CreatedAt: m.now}
	if userID != nil {
		id := *userID
		entry.UserID = &id
		entry.Login = m.people[id].login
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryStore) scoped(userID *int64) []visits.Entry {
	var out []visits.Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if userID != nil && (e.UserID == nil || *e.UserID != *userID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func window[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

func (m *memoryStore) ListEntries(ctx context.Context, userID *int64, limit, offset int) ([]visits.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offsets = append(m.offsets, offset)
	return window(m.scoped(userID), limit, offset), nil
}

func (m *memoryStore) CountEntries(ctx context.Context, userID *int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.scoped(userID)), nil
}

func (m *memoryStore) pageStats() []visits.PageStat {
	counts := map[string]int64{}
	for _, e := range m.entries {
		counts[e.Path]++
	}
	stats := make([]visits.PageStat, 0, len(counts))
	for path, n := range counts {
		stats = append(stats, visits.PageStat{Path: path, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Path < stats[j].Path
	})
	return stats
}

func (m *memoryStore) ListPageStats(ctx context.Context, limit, offset int) ([]visits.PageStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return window(m.pageStats(), limit, offset), nil
}

func (m *memoryStore) CountPages(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pageStats()), nil
}

func (m *memoryStore) userStats() []visits.UserStat {
	counts := map[person]int64{}
	for _, e := range m.entries {
		var p person
		if e.UserID != nil {
			p = m.people[*e.UserID]
			p.login = ""
		}
		counts[p]++
	}
	stats := make([]visits.UserStat, 0, len(counts))
	for p, n := range counts {
		stats = append(stats, visits.UserStat{LastName: p.last, FirstName: p.first, MiddleName: p.middle, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].LastName < stats[j].LastName
	})
	return stats
}

func (m *memoryStore) ListUserStats(ctx context.Context, limit, offset int) ([]visits.UserStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return window(m.userStats(), limit, offset), nil
}

func (m *memoryStore) CountUserGroups(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.userStats()), nil
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

var _ visits.Repository = (*memoryStore)(nil)

package courses_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campus-labs/campus/internal/courses"
	"github.com/campus-labs/campus/internal/shared"
)

type memoryRepo struct {
	mu         sync.Mutex
	categories []courses.Category
	courses    map[int64]courses.Course
	reviews    []courses.Review
	nextReview int64
	err        error
	offsets    []int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{courses: make(map[int64]courses.Course), nextReview: 1}
}

func seededRepo() *memoryRepo {
	repo := newMemoryRepo()
	repo.categories = []courses.Category{{ID: 1, Name: "Math"}, {ID: 2, Name: "Physics"}}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range []courses.Course{
		{ID: 1, Name: "Algebra", CategoryID: 1},
		{ID: 2, Name: "Geometry", CategoryID: 1},
		{ID: 3, Name: "Mechanics", CategoryID: 2},
		{ID: 4, Name: "Linear algebra", CategoryID: 1},
	} {
		c.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		repo.courses[c.ID] = c
	}
	return repo
}

func (m *memoryRepo) addReview(r courses.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.nextReview
	m.nextReview++
	m.reviews = append(m.reviews, r)
	c := m.courses[r.CourseID]
	c.RatingSum += r.Rating
	c.RatingNum++
	m.courses[r.CourseID] = c
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, courses.Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) ListCategories(ctx context.Context) ([]courses.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]courses.Category(nil), m.categories...), nil
}

func (m *memoryRepo) matching(filter courses.Filter) []courses.Course {
	var out []courses.Course
	for _, c := range m.courses {
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		if len(filter.CategoryIDs) > 0 && !filter.Selected(c.CategoryID) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memoryRepo) ListCourses(ctx context.Context, filter courses.Filter, limit, offset int) ([]courses.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.offsets = append(m.offsets, offset)
	return window(m.matching(filter), limit, offset), nil
}

func (m *memoryRepo) CountCourses(ctx context.Context, filter courses.Filter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.matching(filter)), nil
}

func (m *memoryRepo) GetCourse(ctx context.Context, id int64) (*courses.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.courses[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (m *memoryRepo) ListReviews(ctx context.Context, courseID int64, order courses.ReviewSort, limit, offset int) ([]courses.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []courses.Review
	for _, r := range m.reviews {
		if r.CourseID == courseID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		switch order {
		case courses.SortPositive:
			if out[i].Rating != out[j].Rating {
				return out[i].Rating > out[j].Rating
			}
		case courses.SortNegative:
			if out[i].Rating != out[j].Rating {
				return out[i].Rating < out[j].Rating
			}
		}
		return out[i].ID > out[j].ID
	})
	m.offsets = append(m.offsets, offset)
	return window(out, limit, offset), nil
}

func (m *memoryRepo) CountReviews(ctx context.Context, courseID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, r := range m.reviews {
		if r.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *memoryRepo) HasReviewed(ctx context.Context, courseID, userID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, r := range m.reviews {
		if r.CourseID == courseID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) InsertReview(ctx context.Context, review courses.Review) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, r := range m.reviews {
		if r.CourseID == review.CourseID && r.UserID == review.UserID {
			return 0, courses.ErrAlreadyReviewed
		}
	}
	review.ID = m.nextReview
	m.nextReview++
	m.reviews = append(m.reviews, review)
	return review.ID, nil
}

func (m *memoryRepo) AddRating(ctx context.Context, courseID int64, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.courses[courseID]
	if !ok {
		return shared.ErrNotFound
	}
	c.RatingSum += rating
	c.RatingNum++
	m.courses[courseID] = c
	return nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

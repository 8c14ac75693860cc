package visits

import (
	"errors"
	"strings"
	"time"

	"github.com/campus-labs/campus/internal/shared"
)

var (
	// ErrStore marks failures of the action log store.
	ErrStore = errors.New("visits: store failure")
	// ErrNotAllowed is returned when the principal may not read a report.
	ErrNotAllowed = errors.New("visits: report not allowed")
)

// Entry is one recorded request. UserID is nil for anonymous visits or
// deleted users; Login is empty in that case.
type Entry struct {
	ID        int64
	UserID    *int64
	Login     string
	Path      string
	CreatedAt time.Time
}

// PageStat counts visits of a single path.
type PageStat struct {
	Path  string
	Count int64
}

// UserStat counts visits per user name. All names are empty for visits
// without a user.
type UserStat struct {
	LastName   string
	FirstName  string
	MiddleName string
	Count      int64
}

// FullName joins the non-empty name parts.
func (s UserStat) FullName() string {
	var parts []string
	for _, part := range []string{s.LastName, s.FirstName, s.MiddleName} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, " ")
}

// Report is one page of a visit report.
type Report[T any] struct {
	Rows       []T
	Pagination shared.Pagination
}

// LastPage is ceil(total / page size).
func (r Report[T]) LastPage() int {
	return r.Pagination.TotalPages
}

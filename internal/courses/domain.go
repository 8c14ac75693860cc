package courses

import (
	"errors"
	"time"

	"github.com/campus-labs/campus/internal/shared"
)

var (
	// ErrAlreadyReviewed is returned when the user has already reviewed the course.
	ErrAlreadyReviewed = errors.New("courses: course already reviewed")
	// ErrInvalidRating is returned for ratings outside 0..5.
	ErrInvalidRating = errors.New("courses: rating must be between 0 and 5")
	// ErrLoginRequired is returned when an anonymous principal tries to review.
	ErrLoginRequired = errors.New("courses: login required")
)

// Page sizes of the course catalogue and the review listing.
const (
	CoursesPerPage = 3
	ReviewsPerPage = 5
	LatestReviews  = 5
)

// Category groups courses.
type Category struct {
	ID   int64
	Name string
}

// Course is a catalogue entry with its aggregated rating counters.
type Course struct {
	ID           int64
	Name         string
	ShortDesc    string
	FullDesc     string
	CategoryID   int64
	CategoryName string
	AuthorID     *int64
	AuthorName   string
	RatingSum    int
	RatingNum    int
	CreatedAt    time.Time
}

// Rating is the mean review score, or 0 without reviews.
func (c Course) Rating() float64 {
	if c.RatingNum == 0 {
		return 0
	}
	return float64(c.RatingSum) / float64(c.RatingNum)
}

// Review is one user's opinion of a course.
type Review struct {
	ID        int64
	Rating    int
	Text      string
	CreatedAt time.Time
	CourseID  int64
	UserID    int64
	Login     string
}

// Filter narrows the course catalogue.
type Filter struct {
	Name        string
	CategoryIDs []int64
}

// Selected reports whether a category is part of the filter.
func (f Filter) Selected(id int64) bool {
	for _, c := range f.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// ReviewSort orders the review listing.
type ReviewSort string

// Review orderings.
const (
	SortNewest   ReviewSort = "new"
	SortPositive ReviewSort = "positive"
	SortNegative ReviewSort = "negative"
)

// ParseReviewSort falls back to SortNewest for unknown values.
func ParseReviewSort(raw string) ReviewSort {
	switch ReviewSort(raw) {
	case SortPositive, SortNegative:
		return ReviewSort(raw)
	default:
		return SortNewest
	}
}

// ReviewInput is a submitted review.
type ReviewInput struct {
	Rating int    `validate:"min=0,max=5"`
	Text   string `validate:"required,max=4000"`
}

// CoursePage is one page of the catalogue.
type CoursePage struct {
	Courses    []Course
	Categories []Category
	Filter     Filter
	Pagination shared.Pagination
}

// CourseDetail is the course page: the course, its latest reviews and
// whether the viewer already reviewed it.
type CourseDetail struct {
	Course   Course
	Reviews  []Review
	Reviewed bool
}

// ReviewPage is one page of a course's reviews.
type ReviewPage struct {
	Course     Course
	Reviews    []Review
	Sort       ReviewSort
	Reviewed   bool
	Pagination shared.Pagination
}

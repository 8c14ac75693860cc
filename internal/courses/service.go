package courses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// Service implements the course catalogue and reviews.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Catalogue returns one page of courses matching filter together with the
// category list for the search form.
func (s *Service) Catalogue(ctx context.Context, filter Filter, page int) (CoursePage, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	page = shared.ClampPage(page, CoursesPerPage)
	offset := (page - 1) * CoursesPerPage

	var result CoursePage
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Courses, err = s.repo.ListCourses(gctx, filter, CoursesPerPage, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountCourses(gctx, filter)
		return err
	})
	g.Go(func() error {
		var err error
		result.Categories, err = s.repo.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return CoursePage{}, fmt.Errorf("courses: catalogue: %w", err)
	}
	result.Filter = filter
	result.Pagination = shared.NewPagination(page, CoursesPerPage, total)
	return result, nil
}

// Detail returns a course with its latest reviews.
func (s *Service) Detail(ctx context.Context, id int64, p rbac.Principal) (CourseDetail, error) {
	course, err := s.course(ctx, id)
	if err != nil {
		return CourseDetail{}, err
	}
	reviews, err := s.repo.ListReviews(ctx, id, SortNewest, LatestReviews, 0)
	if err != nil {
		return CourseDetail{}, fmt.Errorf("courses: latest reviews: %w", err)
	}
	reviewed, err := s.reviewed(ctx, id, p)
	if err != nil {
		return CourseDetail{}, err
	}
	return CourseDetail{Course: *course, Reviews: reviews, Reviewed: reviewed}, nil
}

// Reviews returns one page of a course's reviews in the requested order.
func (s *Service) Reviews(ctx context.Context, id int64, sort ReviewSort, page int, p rbac.Principal) (ReviewPage, error) {
	course, err := s.course(ctx, id)
	if err != nil {
		return ReviewPage{}, err
	}
	page = shared.ClampPage(page, ReviewsPerPage)
	result := ReviewPage{Course: *course, Sort: sort}
	var total int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		result.Reviews, err = s.repo.ListReviews(gctx, id, sort, ReviewsPerPage, (page-1)*ReviewsPerPage)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountReviews(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		result.Reviewed, err = s.reviewed(gctx, id, p)
		return err
	})
	if err := g.Wait(); err != nil {
		return ReviewPage{}, fmt.Errorf("courses: reviews: %w", err)
	}
	result.Pagination = shared.NewPagination(page, ReviewsPerPage, total)
	return result, nil
}

// AddReview stores a review by p and updates the course rating counters in
// the same transaction.
func (s *Service) AddReview(ctx context.Context, courseID int64, p rbac.Principal, in ReviewInput) error {
	if !p.Authenticated() {
		return ErrLoginRequired
	}
	if in.Rating < 0 || in.Rating > 5 {
		return ErrInvalidRating
	}
	in.Text = strings.TrimSpace(in.Text)
	if err := s.validate.Struct(in); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetCourse(ctx, courseID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return err
			}
			return fmt.Errorf("courses: get: %w", err)
		}
		reviewed, err := repo.HasReviewed(ctx, courseID, p.ID)
		if err != nil {
			return fmt.Errorf("courses: check review: %w", err)
		}
		if reviewed {
			return ErrAlreadyReviewed
		}
		review := Review{Rating: in.Rating, Text: in.Text, CourseID: courseID, UserID: p.ID}
		if _, err := repo.InsertReview(ctx, review); err != nil {
			if errors.Is(err, ErrAlreadyReviewed) {
				return err
			}
			return fmt.Errorf("courses: insert review: %w", err)
		}
		if err := repo.AddRating(ctx, courseID, in.Rating); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return err
			}
			return fmt.Errorf("courses: update rating: %w", err)
		}
		return nil
	})
}

func (s *Service) course(ctx context.Context, id int64) (*Course, error) {
	course, err := s.repo.GetCourse(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("courses: get: %w", err)
	}
	return course, nil
}

func (s *Service) reviewed(ctx context.Context, courseID int64, p rbac.Principal) (bool, error) {
	if !p.Authenticated() {
		return false, nil
	}
	reviewed, err := s.repo.HasReviewed(ctx, courseID, p.ID)
	if err != nil {
		return false, fmt.Errorf("courses: check review: %w", err)
	}
	return reviewed, nil
}

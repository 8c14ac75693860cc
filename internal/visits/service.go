package visits

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/campus-labs/campus/internal/rbac"
	"github.com/campus-labs/campus/internal/shared"
)

// Service builds visit reports. Every call reads fresh data.
type Service struct {
	repo     Repository
	pageSize int
}

// NewService creates a reporting service. pageSize defaults to
// shared.DefaultPerPage when not positive.
func NewService(repo Repository, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = shared.DefaultPerPage
	}
	return &Service{repo: repo, pageSize: pageSize}
}

// PageSize returns the configured page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// Visits returns one page of the visit log. Principals allowed to see
// statistics get every entry; everyone else only their own.
func (s *Service) Visits(ctx context.Context, p rbac.Principal, page int) (Report[Entry], error) {
	scope := visitScope(p)
	return paginate(ctx, page, s.pageSize,
		func(ctx context.Context, limit, offset int) ([]Entry, error) {
			return s.repo.ListEntries(ctx, scope, limit, offset)
		},
		func(ctx context.Context) (int, error) {
			return s.repo.CountEntries(ctx, scope)
		})
}

// ExportVisits returns the full visit log under the same scope as Visits.
func (s *Service) ExportVisits(ctx context.Context, p rbac.Principal) ([]Entry, error) {
	return s.repo.ListEntries(ctx, visitScope(p), 0, 0)
}

// PageStats returns one page of per-path visit counts.
func (s *Service) PageStats(ctx context.Context, p rbac.Principal, page int) (Report[PageStat], error) {
	if !canSeeStatistics(p) {
		return Report[PageStat]{}, ErrNotAllowed
	}
	return paginate(ctx, page, s.pageSize, s.repo.ListPageStats, s.repo.CountPages)
}

// ExportPageStats returns every per-path visit count.
func (s *Service) ExportPageStats(ctx context.Context, p rbac.Principal) ([]PageStat, error) {
	if !canSeeStatistics(p) {
		return nil, ErrNotAllowed
	}
	return s.repo.ListPageStats(ctx, 0, 0)
}

// UserStats returns one page of per-user visit counts.
func (s *Service) UserStats(ctx context.Context, p rbac.Principal, page int) (Report[UserStat], error) {
	if !canSeeStatistics(p) {
		return Report[UserStat]{}, ErrNotAllowed
	}
	return paginate(ctx, page, s.pageSize, s.repo.ListUserStats, s.repo.CountUserGroups)
}

// ExportUserStats returns every per-user visit count.
func (s *Service) ExportUserStats(ctx context.Context, p rbac.Principal) ([]UserStat, error) {
	if !canSeeStatistics(p) {
		return nil, ErrNotAllowed
	}
	return s.repo.ListUserStats(ctx, 0, 0)
}

func canSeeStatistics(p rbac.Principal) bool {
	return rbac.Allows(p, rbac.ActionShowStatistics, nil)
}

// visitScope returns nil for an unrestricted view, otherwise the user id the
// log is restricted to. Anonymous principals get id 0, which matches nothing.
func visitScope(p rbac.Principal) *int64 {
	if canSeeStatistics(p) {
		return nil
	}
	id := p.ID
	return &id
}

// paginate runs the rows and count queries concurrently. Pages past the end
// yield no rows.
func paginate[T any](ctx context.Context, page, pageSize int,
	list func(ctx context.Context, limit, offset int) ([]T, error),
	count func(ctx context.Context) (int, error),
) (Report[T], error) {
	page = shared.ClampPage(page, pageSize)
	offset := (page - 1) * pageSize

	var (
		rows  []T
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = list(gctx, pageSize, offset)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report[T]{}, err
	}
	return Report[T]{Rows: rows, Pagination: shared.NewPagination(page, pageSize, total)}, nil
}

package shared

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPerPage is used when a listing does not configure its own page size.
const DefaultPerPage = 10

// ClampPage normalises a 1-based page number so that (page-1)*perPage fits
// comfortably inside a SQL OFFSET. Pages past the limit still land beyond any
// real listing and come back empty.
func ClampPage(page, perPage int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		return 1
	}
	if limit := math.MaxInt32/perPage + 1; page > limit {
		return limit
	}
	return page
}

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata. TotalPages is ceil(total/perPage)
// and is zero for an empty listing.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	page = ClampPage(page, perPage)
	if total < 0 {
		total = 0
	}
	totalPages := (total + perPage - 1) / perPage
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the number of rows to skip for the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a following page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// PrevPage returns the previous page number.
func (p Pagination) PrevPage() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// NextPage returns the next page number.
func (p Pagination) NextPage() int {
	return p.Page + 1
}

// PageFromQuery reads the 1-based "page" parameter, falling back to 1 when it
// is missing or not a positive integer.
func PageFromQuery(values url.Values) int {
	raw := strings.TrimSpace(values.Get("page"))
	if raw == "" {
		return 1
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page <= 0 {
		return 1
	}
	return page
}

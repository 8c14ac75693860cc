package courses

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-labs/campus/internal/platform/db"
	"github.com/campus-labs/campus/internal/shared"
)

// Repository defines persistence operations for courses and reviews.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	ListCategories(ctx context.Context) ([]Category, error)
	ListCourses(ctx context.Context, filter Filter, limit, offset int) ([]Course, error)
	CountCourses(ctx context.Context, filter Filter) (int, error)
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListReviews(ctx context.Context, courseID int64, sort ReviewSort, limit, offset int) ([]Review, error)
	CountReviews(ctx context.Context, courseID int64) (int, error)
	HasReviewed(ctx context.Context, courseID, userID int64) (bool, error)
	InsertReview(ctx context.Context, review Review) (int64, error)
	AddRating(ctx context.Context, courseID int64, rating int) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Category, error) {
		var c Category
		err := row.Scan(&c.ID, &c.Name)
		return c, err
	})
}

const courseColumns = `c.id, c.name, c.short_desc, c.full_desc, c.category_id, cat.name, c.author_id,
COALESCE(u.last_name || ' ' || u.first_name, ''), c.rating_sum, c.rating_num, c.created_at
FROM courses c
JOIN categories cat ON cat.id = c.category_id
LEFT JOIN users u ON u.id = c.author_id`

const courseFilter = `($1::text = '' OR c.name ILIKE '%' || $1 || '%')
AND (COALESCE(cardinality($2::bigint[]), 0) = 0 OR c.category_id = ANY($2::bigint[]))`

func (r *repository) ListCourses(ctx context.Context, filter Filter, limit, offset int) ([]Course, error) {
	rows, err := r.db.Query(ctx, `SELECT `+courseColumns+`
WHERE `+courseFilter+`
ORDER BY c.created_at DESC, c.id DESC
LIMIT $3 OFFSET $4`, filter.Name, categoryParam(filter), limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Course, error) {
		return scanCourse(row)
	})
}

func (r *repository) CountCourses(ctx context.Context, filter Filter) (int, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM courses c WHERE `+courseFilter, filter.Name, categoryParam(filter)).Scan(&total)
	return int(total), err
}

func (r *repository) GetCourse(ctx context.Context, id int64) (*Course, error) {
	course, err := scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &course, nil
}

// reviewOrder maps sort modes to fixed ORDER BY clauses.
var reviewOrder = map[ReviewSort]string{
	SortNewest:   `r.created_at DESC, r.id DESC`,
	SortPositive: `r.rating DESC, r.created_at DESC, r.id DESC`,
	SortNegative: `r.rating ASC, r.created_at DESC, r.id DESC`,
}

func (r *repository) ListReviews(ctx context.Context, courseID int64, sort ReviewSort, limit, offset int) ([]Review, error) {
	order, ok := reviewOrder[sort]
	if !ok {
		order = reviewOrder[SortNewest]
	}
	rows, err := r.db.Query(ctx, `SELECT r.id, r.rating, r.text, r.created_at, r.course_id, r.user_id, u.login
FROM reviews r
JOIN users u ON u.id = r.user_id
WHERE r.course_id = $1
ORDER BY `+order+`
LIMIT $2 OFFSET $3`, courseID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Review, error) {
		var rv Review
		var rating int16
		err := row.Scan(&rv.ID, &rating, &rv.Text, &rv.CreatedAt, &rv.CourseID, &rv.UserID, &rv.Login)
		rv.Rating = int(rating)
		return rv, err
	})
}

func (r *repository) CountReviews(ctx context.Context, courseID int64) (int, error) {
	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM reviews WHERE course_id = $1`, courseID).Scan(&total)
	return int(total), err
}

func (r *repository) HasReviewed(ctx context.Context, courseID, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reviews WHERE course_id = $1 AND user_id = $2)`, courseID, userID).Scan(&exists)
	return exists, err
}

func (r *repository) InsertReview(ctx context.Context, review Review) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO reviews (rating, text, course_id, user_id) VALUES ($1, $2, $3, $4) RETURNING id`,
		int16(review.Rating), review.Text, review.CourseID, review.UserID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrAlreadyReviewed
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) AddRating(ctx context.Context, courseID int64, rating int) error {
	tag, err := r.db.Exec(ctx, `UPDATE courses SET rating_sum = rating_sum + $2, rating_num = rating_num + 1 WHERE id = $1`, courseID, rating)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCourse(row pgx.Row) (Course, error) {
	var (
		c        Course
		authorID pgtype.Int8
		sum, num int32
	)
	if err := row.Scan(&c.ID, &c.Name, &c.ShortDesc, &c.FullDesc, &c.CategoryID, &c.CategoryName, &authorID,
		&c.AuthorName, &sum, &num, &c.CreatedAt); err != nil {
		return Course{}, err
	}
	if authorID.Valid {
		id := authorID.Int64
		c.AuthorID = &id
	}
	c.RatingSum, c.RatingNum = int(sum), int(num)
	return c, nil
}

func categoryParam(filter Filter) []int64 {
	if filter.CategoryIDs == nil {
		return []int64{}
	}
	return filter.CategoryIDs
}

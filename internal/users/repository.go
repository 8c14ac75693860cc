package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-labs/campus/internal/platform/db"
	"github.com/campus-labs/campus/internal/shared"
)

// Repository defines persistence operations for user management.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context) ([]User, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, in CreateInput, passwordHash string) (int64, error)
	Update(ctx context.Context, id int64, in UpdateInput, withRole bool) error
	Delete(ctx context.Context, id int64) error
	PasswordHash(ctx context.Context, id int64) (string, error)
	SetPasswordHash(ctx context.Context, id int64, hash string) error
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

const selectUser = `SELECT u.id, u.login, u.last_name, u.first_name, u.middle_name, u.role_id, r.name, u.created_at
FROM users u
JOIN roles r ON r.id = u.role_id`

func (r *repository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE u.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *repository) Create(ctx context.Context, in CreateInput, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO users (login, password_hash, last_name, first_name, middle_name, role_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		in.Login, passwordHash, in.LastName, in.FirstName, textParam(in.MiddleName), in.RoleID).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, ErrDuplicateLogin
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, in UpdateInput, withRole bool) error {
	query := `UPDATE users SET last_name = $2, first_name = $3, middle_name = $4 WHERE id = $1`
	args := []any{id, in.LastName, in.FirstName, textParam(in.MiddleName)}
	if withRole {
		query = `UPDATE users SET last_name = $2, first_name = $3, middle_name = $4, role_id = $5 WHERE id = $1`
		args = append(args, in.RoleID)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) PasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.db.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return hash, nil
}

func (r *repository) SetPasswordHash(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user   User
		middle pgtype.Text
		joined pgtype.Timestamptz
	)
	if err := row.Scan(&user.ID, &user.Login, &user.LastName, &user.FirstName, &middle, &user.RoleID, &user.RoleName, &joined); err != nil {
		return User{}, err
	}
	if middle.Valid {
		user.MiddleName = &middle.String
	}
	user.CreatedAt = joined.Time
	return user, nil
}

func textParam(value string) pgtype.Text {
	if value == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: value, Valid: true}
}

package visits

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campus-labs/campus/internal/platform/db"
)

// Repository defines persistence operations for the action log. A limit of
// zero returns every row.
type Repository interface {
	InsertEntry(ctx context.Context, userID *int64, path string) error
	ListEntries(ctx context.Context, userID *int64, limit, offset int) ([]Entry, error)
	CountEntries(ctx context.Context, userID *int64) (int, error)
	ListPageStats(ctx context.Context, limit, offset int) ([]PageStat, error)
	CountPages(ctx context.Context) (int, error)
	ListUserStats(ctx context.Context, limit, offset int) ([]UserStat, error)
	CountUserGroups(ctx context.Context) (int, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// InsertEntry appends a row in its own read committed transaction. Errors are
// wrapped with ErrStore.
func (r *PGRepository) InsertEntry(ctx context.Context, userID *int64, path string) error {
	err := db.WithTxOptions(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO action_logs (user_id, path) VALUES ($1, $2)`, int8Param(userID), path)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: insert entry: %w", ErrStore, err)
	}
	return nil
}

const listEntriesQuery = `SELECT a.id, a.user_id, COALESCE(u.login, ''), a.path, a.created_at
FROM action_logs a
LEFT JOIN users u ON u.id = a.user_id
WHERE ($1::bigint IS NULL OR a.user_id = $1)
ORDER BY a.created_at DESC, a.id DESC
LIMIT $2 OFFSET $3`

// ListEntries returns entries newest first. A nil userID returns entries of
// every user.
func (r *PGRepository) ListEntries(ctx context.Context, userID *int64, limit, offset int) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, listEntriesQuery, int8Param(userID), limitParam(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", ErrStore, err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			userID pgtype.Int8
		)
		if err := rows.Scan(&entry.ID, &userID, &entry.Login, &entry.Path, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan entry: %w", ErrStore, err)
		}
		if userID.Valid {
			id := userID.Int64
			entry.UserID = &id
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list entries: %w", ErrStore, err)
	}
	return entries, nil
}

// CountEntries counts entries, optionally restricted to one user.
func (r *PGRepository) CountEntries(ctx context.Context, userID *int64) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM action_logs WHERE ($1::bigint IS NULL OR user_id = $1)`, int8Param(userID))
}

// ListPageStats groups entries by path, most visited first.
func (r *PGRepository) ListPageStats(ctx context.Context, limit, offset int) ([]PageStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT path, COUNT(*) AS visits
FROM action_logs
GROUP BY path
ORDER BY visits DESC, path
LIMIT $1 OFFSET $2`, limitParam(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%w: page stats: %w", ErrStore, err)
	}
	defer rows.Close()
	var stats []PageStat
	for rows.Next() {
		var stat PageStat
		if err := rows.Scan(&stat.Path, &stat.Count); err != nil {
			return nil, fmt.Errorf("%w: scan page stat: %w", ErrStore, err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: page stats: %w", ErrStore, err)
	}
	return stats, nil
}

// CountPages counts distinct paths.
func (r *PGRepository) CountPages(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(DISTINCT path) FROM action_logs`)
}

const userStatsGroup = `FROM action_logs a
LEFT JOIN users u ON u.id = a.user_id
GROUP BY u.last_name, u.first_name, u.middle_name`

// ListUserStats groups entries by user name, most active first.
func (r *PGRepository) ListUserStats(ctx context.Context, limit, offset int) ([]UserStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT COALESCE(u.last_name, ''), COALESCE(u.first_name, ''), COALESCE(u.middle_name, ''), COUNT(*) AS visits
`+userStatsGroup+`
ORDER BY visits DESC, 1, 2, 3
LIMIT $1 OFFSET $2`, limitParam(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("%w: user stats: %w", ErrStore, err)
	}
	defer rows.Close()
	var stats []UserStat
	for rows.Next() {
		var stat UserStat
		if err := rows.Scan(&stat.LastName, &stat.FirstName, &stat.MiddleName, &stat.Count); err != nil {
			return nil, fmt.Errorf("%w: scan user stat: %w", ErrStore, err)
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: user stats: %w", ErrStore, err)
	}
	return stats, nil
}

// CountUserGroups counts the groups ListUserStats returns.
func (r *PGRepository) CountUserGroups(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM (SELECT 1 `+userStatsGroup+`) AS g`)
}

func (r *PGRepository) count(ctx context.Context, query string, args ...any) (int, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStore, err)
	}
	return int(total), nil
}

func int8Param(id *int64) pgtype.Int8 {
	if id == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *id, Valid: true}
}

// limitParam maps 0 to NULL, which PostgreSQL treats as LIMIT ALL.
func limitParam(limit int) pgtype.Int8 {
	if limit <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(limit), Valid: true}
}

var _ Repository = (*PGRepository)(nil)

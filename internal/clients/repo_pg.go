package clients

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"docharvest-backend/internal/shared/pagination"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, c Client) (Client, error) {
	const query = `
INSERT INTO clients (name, email, created_at, updated_at)
VALUES ($1, $2, now(), now())
RETURNING id, created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, c.Name, c.Email).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Client{}, translate(err)
	}
	return c, nil
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Client, error) {
	const query = `
SELECT id, name, email, created_at, updated_at
FROM clients
WHERE id = $1`
	var c Client
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

func (r *PGRepo) List(ctx context.Context, page pagination.Page) ([]Client, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
SELECT id, name, email, created_at, updated_at
FROM clients
ORDER BY id DESC
LIMIT $1 OFFSET $2`
	rows, err := r.DB.QueryContext(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, c Client) (Client, error) {
	const query = `
UPDATE clients
SET name = $1, email = $2, updated_at = now()
WHERE id = $3
RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query, c.Name, c.Email, c.ID).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Client{}, ErrNotFound
		}
		return Client{}, translate(err)
	}
	return c, nil
}

func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrEmailTaken
		case pgForeignKeyViolation:
			return ErrHasDocuments
		}
	}
	return err
}

var _ Repo = (*PGRepo)(nil)

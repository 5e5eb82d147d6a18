package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"docharvest-backend/internal/shared/pagination"
)

const pgForeignKeyViolation = "23503"

const documentColumns = `id, client_id, title, content, content_hash, document_type, source_url, file_path, processed_at, created_at`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRow(s rowScanner) (documentRow, error) {
	var row documentRow
	err := s.Scan(
		&row.ID,
		&row.ClientID,
		&row.Title,
		&row.Content,
		&row.ContentHash,
		&row.DocumentType,
		&row.SourceURL,
		&row.FilePath,
		&row.ProcessedAt,
		&row.CreatedAt,
	)
	return row, err
}

// Create inserts a new document. A missing client yields ErrClientMissing.
func (r *PGRepo) Create(ctx context.Context, doc NewDocument) (Document, error) {
	if doc.Source == nil {
		return Document{}, ErrNoSource
	}
	row := rowFromNew(doc)

	const query = `
INSERT INTO documents (
    client_id,
    title,
    content,
    content_hash,
    document_type,
    source_url,
    file_path,
    processed_at,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), now())
RETURNING id, processed_at, created_at`

	var processedAt sql.NullTime
	if !row.ProcessedAt.IsZero() {
		processedAt = sql.NullTime{Time: row.ProcessedAt, Valid: true}
	}
	err := r.DB.QueryRowContext(
		ctx,
		query,
		row.ClientID,
		row.Title,
		row.Content,
		row.ContentHash,
		row.DocumentType,
		row.SourceURL,
		row.FilePath,
		processedAt,
	).Scan(&row.ID, &row.ProcessedAt, &row.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return Document{}, fmt.Errorf("%w: %s", ErrClientMissing, pgErr.Message)
		}
		return Document{}, err
	}
	return row.toDocument()
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	row, err := scanRow(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return row.toDocument()
}

func (r *PGRepo) List(ctx context.Context, page pagination.Page) ([]Document, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + documentColumns + `
FROM documents
ORDER BY created_at DESC, id DESC
LIMIT $1 OFFSET $2`
	docs, err := r.query(ctx, query, page.Limit, page.Offset())
	return docs, total, err
}

func (r *PGRepo) ListByClient(ctx context.Context, clientID int64, page pagination.Page) ([]Document, int, error) {
	total, err := r.CountByClient(ctx, clientID)
	if err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + documentColumns + `
FROM documents
WHERE client_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`
	docs, err := r.query(ctx, query, clientID, page.Limit, page.Offset())
	return docs, total, err
}

func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
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

func (r *PGRepo) CountByClient(ctx context.Context, clientID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE client_id = $1`, clientID).Scan(&n)
	return n, err
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Document, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		doc, err := row.toDocument()
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/bookwise/internal/model"
)

const bookColumns = `id, title, author, genre, rating, total_copies, available_copies,
	description, cover_url, cover_color, video_url, summary, created_at`

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

func scanBook(row rowScanner) (*model.Book, error) {
	b := &model.Book{}
	err := row.Scan(
		&b.ID, &b.Title, &b.Author, &b.Genre, &b.Rating, &b.TotalCopies, &b.AvailableCopies,
		&b.Description, &b.CoverURL, &b.CoverColor, &b.VideoURL, &b.Summary, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	b, err := scanBook(r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`,
		id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	return b, nil
}

// ListLatest は登録日の新しい順に最大limit件の蔵書を返す。
func (r *PostgresBookRepo) ListLatest(ctx context.Context, limit int) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}
	return books, nil
}

// Create は蔵書を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, b *model.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, genre, rating, total_copies, available_copies,
		                    description, cover_url, cover_color, video_url, summary, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.Title, b.Author, b.Genre, b.Rating, b.TotalCopies, b.AvailableCopies,
		b.Description, b.CoverURL, b.CoverColor, b.VideoURL, b.Summary, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// Count は蔵書数を返す。
func (r *PostgresBookRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM books`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)

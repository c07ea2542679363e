package postgres

import (
	"context"
	"errors"
	"libraloan/internal/catalog"
	"libraloan/internal/errs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bookColumns = `id, title, category, url, description, authors, genres, pages, copies, available, created_at, updated_at`

// BookRepo implements catalog.BookRepository using PostgreSQL.
type BookRepo struct{ db *DB }

// NewBookRepo constructs a book repository.
func NewBookRepo(db *DB) *BookRepo { return &BookRepo{db: db} }

// Create inserts a new book row.
func (r *BookRepo) Create(ctx context.Context, b *catalog.Book) error {
	const q = `
INSERT INTO books (` + bookColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.Pool.Exec(ctx, q, b.ID, b.Title, b.Category, b.URL, b.Description, b.Authors, b.Genres,
		b.Pages, b.Copies, b.Available, b.CreatedAt, b.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *BookRepo) Get(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE id=$1`
	return scanBook(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *BookRepo) GetByTitle(ctx context.Context, title string) (*catalog.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE title=$1`
	return scanBook(r.db.Pool.QueryRow(ctx, q, title))
}

// List returns books of one category, or all when category is empty.
func (r *BookRepo) List(ctx context.Context, category string) ([]*catalog.Book, error) {
	const q = `SELECT ` + bookColumns + ` FROM books WHERE ($1 = '' OR category = $1) ORDER BY title ASC`
	rows, err := r.db.Pool.Query(ctx, q, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*catalog.Book, 0)
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *BookRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateCounters locks the row, applies fn and writes the new available count
// in one transaction, so concurrent borrows of the last copy serialise.
func (r *BookRepo) UpdateCounters(ctx context.Context, id uuid.UUID, fn func(*catalog.Book) error) (*catalog.Book, error) {
	const sel = `SELECT ` + bookColumns + ` FROM books WHERE id=$1 FOR UPDATE`
	const upd = `UPDATE books SET available=$2, updated_at=$3 WHERE id=$1`

	var book *catalog.Book
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBook(tx.QueryRow(ctx, sel, id))
		if err != nil {
			return err
		}
		if err := fn(b); err != nil {
			return err
		}
		b.UpdatedAt = time.Now().UTC()
		if _, err := tx.Exec(ctx, upd, b.ID, b.Available, b.UpdatedAt); err != nil {
			return err
		}
		book = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

func scanBook(row pgx.Row) (*catalog.Book, error) {
	var b catalog.Book
	err := row.Scan(&b.ID, &b.Title, &b.Category, &b.URL, &b.Description, &b.Authors, &b.Genres,
		&b.Pages, &b.Copies, &b.Available, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// PackageRepo implements catalog.PackageRepository using PostgreSQL.
type PackageRepo struct{ db *DB }

// NewPackageRepo constructs a package repository.
func NewPackageRepo(db *DB) *PackageRepo { return &PackageRepo{db: db} }

func (r *PackageRepo) Create(ctx context.Context, p *catalog.Package) error {
	const q = `
INSERT INTO packages (id, hotel_name, duration, unit_cost, image_url, description)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Pool.Exec(ctx, q, p.ID, p.HotelName, p.Duration, p.UnitCost, p.ImageURL, p.Description)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *PackageRepo) GetByHotel(ctx context.Context, hotelName string) (*catalog.Package, error) {
	const q = `SELECT id, hotel_name, duration, unit_cost, image_url, description FROM packages WHERE hotel_name=$1`
	var p catalog.Package
	err := r.db.Pool.QueryRow(ctx, q, hotelName).
		Scan(&p.ID, &p.HotelName, &p.Duration, &p.UnitCost, &p.ImageURL, &p.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PackageRepo) List(ctx context.Context) ([]*catalog.Package, error) {
	const q = `SELECT id, hotel_name, duration, unit_cost, image_url, description FROM packages ORDER BY hotel_name ASC`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*catalog.Package, 0)
	for rows.Next() {
		var p catalog.Package
		if err := rows.Scan(&p.ID, &p.HotelName, &p.Duration, &p.UnitCost, &p.ImageURL, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

package postgres

import (
	"context"
	"errors"
	"libraloan/internal/circulation"
	"libraloan/internal/errs"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const loanColumns = `id, borrower_id, book_id, borrow_date, return_date, renew_count, created_at`

// LoanRepo implements circulation.Repository using PostgreSQL.
// The partial unique index loans_one_open_per_pair backs the one-open-loan rule.
type LoanRepo struct{ db *DB }

// NewLoanRepo constructs a loan repository.
func NewLoanRepo(db *DB) *LoanRepo { return &LoanRepo{db: db} }

func (r *LoanRepo) Create(ctx context.Context, l *circulation.Loan) error {
	const q = `
INSERT INTO loans (` + loanColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, l.ID, l.BorrowerID, l.BookID, l.BorrowDate, l.ReturnDate, l.RenewCount, l.CreatedAt)
	if isUniqueViolation(err) {
		return errs.ErrDuplicateOpenLoan
	}
	return err
}

func (r *LoanRepo) Get(ctx context.Context, id uuid.UUID) (*circulation.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE id=$1`
	return scanLoan(r.db.Pool.QueryRow(ctx, q, id))
}

func (r *LoanRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM loans WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Renew only touches open loans; a miss is resolved into not-found or already-returned.
func (r *LoanRepo) Renew(ctx context.Context, id uuid.UUID, borrowDate time.Time) (*circulation.Loan, error) {
	const q = `
UPDATE loans SET borrow_date=$2, renew_count=renew_count+1
WHERE id=$1 AND return_date IS NULL
RETURNING ` + loanColumns
	return r.updateOpen(ctx, id, r.db.Pool.QueryRow(ctx, q, id, borrowDate))
}

func (r *LoanRepo) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) (*circulation.Loan, error) {
	const q = `
UPDATE loans SET return_date=$2
WHERE id=$1 AND return_date IS NULL
RETURNING ` + loanColumns
	return r.updateOpen(ctx, id, r.db.Pool.QueryRow(ctx, q, id, returnDate))
}

func (r *LoanRepo) updateOpen(ctx context.Context, id uuid.UUID, row pgx.Row) (*circulation.Loan, error) {
	l, err := scanLoan(row)
	if !errors.Is(err, errs.ErrNotFound) {
		return l, err
	}
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, errs.ErrAlreadyReturned
}

func (r *LoanRepo) ListByBorrower(ctx context.Context, borrowerID uuid.UUID, openOnly bool) ([]*circulation.Loan, error) {
	const q = `
SELECT ` + loanColumns + `
FROM loans
WHERE borrower_id=$1 AND (NOT $2 OR return_date IS NULL)
ORDER BY borrow_date DESC`
	return r.list(ctx, q, borrowerID, openOnly)
}

func (r *LoanRepo) FindOpen(ctx context.Context, borrowerID, bookID uuid.UUID) (*circulation.Loan, error) {
	const q = `SELECT ` + loanColumns + ` FROM loans WHERE borrower_id=$1 AND book_id=$2 AND return_date IS NULL`
	return scanLoan(r.db.Pool.QueryRow(ctx, q, borrowerID, bookID))
}

func (r *LoanRepo) FindLatest(ctx context.Context, borrowerID, bookID uuid.UUID) (*circulation.Loan, error) {
	const q = `
SELECT ` + loanColumns + `
FROM loans WHERE borrower_id=$1 AND book_id=$2
ORDER BY borrow_date DESC LIMIT 1`
	return scanLoan(r.db.Pool.QueryRow(ctx, q, borrowerID, bookID))
}

func (r *LoanRepo) ListOverdue(ctx context.Context, cutoff time.Time) ([]*circulation.Loan, error) {
	const q = `
SELECT ` + loanColumns + `
FROM loans
WHERE return_date IS NULL AND borrow_date < $1
ORDER BY borrow_date ASC`
	return r.list(ctx, q, cutoff)
}

// CountOpenByBook reports how many open loans each book has.
func (r *LoanRepo) CountOpenByBook(ctx context.Context) (map[uuid.UUID]int, error) {
	const q = `SELECT book_id, count(*) FROM loans WHERE return_date IS NULL GROUP BY book_id`
	rows, err := r.db.Pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			book uuid.UUID
			n    int
		)
		if err := rows.Scan(&book, &n); err != nil {
			return nil, err
		}
		out[book] = n
	}
	return out, rows.Err()
}

func (r *LoanRepo) list(ctx context.Context, q string, args ...any) ([]*circulation.Loan, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*circulation.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanLoan(row pgx.Row) (*circulation.Loan, error) {
	var l circulation.Loan
	err := row.Scan(&l.ID, &l.BorrowerID, &l.BookID, &l.BorrowDate, &l.ReturnDate, &l.RenewCount, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

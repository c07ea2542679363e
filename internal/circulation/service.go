// internal/circulation/service.go
package circulation

import (
	"context"
	"libraloan/internal/catalog"
	"time"

	"github.com/google/uuid"
)

// Service defines the interface for the circulation service.
type Service interface {
	CreateLoan(ctx context.Context, borrowerID, bookID uuid.UUID, borrowDate time.Time) (Result, error)
	RenewLoan(ctx context.Context, actorID, loanID uuid.UUID, at time.Time) (Result, error)
	ReturnLoan(ctx context.Context, actorID, loanID uuid.UUID, at time.Time) (Result, error)
	DeleteLoan(ctx context.Context, actorID, loanID uuid.UUID) (Result, error)

	LoansFor(ctx context.Context, borrowerID uuid.UUID, openOnly bool) ([]*Loan, error)
	GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error)
	OpenLoan(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error)
	LatestLoan(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error)
	Overdue(ctx context.Context, dueDays int) ([]*Loan, error)
}

// Books is the slice of the catalog the lifecycle manager depends on.
type Books interface {
	GetBook(ctx context.Context, id uuid.UUID) (*catalog.Book, error)
	BorrowOne(ctx context.Context, id uuid.UUID) (int, error)
	ReturnOne(ctx context.Context, id uuid.UUID) (int, error)
}

// Repository persists loans.
type Repository interface {
	// Create inserts an open loan. A second open loan for the same
	// (borrower, book) yields errs.ErrDuplicateOpenLoan.
	Create(ctx context.Context, l *Loan) error
	Get(ctx context.Context, id uuid.UUID) (*Loan, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// Renew updates an open loan; a closed one yields errs.ErrAlreadyReturned.
	Renew(ctx context.Context, id uuid.UUID, borrowDate time.Time) (*Loan, error)
	// MarkReturned closes an open loan; a closed one yields errs.ErrAlreadyReturned.
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) (*Loan, error)
	// ListByBorrower orders by borrow date, newest first.
	ListByBorrower(ctx context.Context, borrowerID uuid.UUID, openOnly bool) ([]*Loan, error)
	FindOpen(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error)
	FindLatest(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error)
	// ListOverdue returns open loans borrowed strictly before cutoff.
	ListOverdue(ctx context.Context, cutoff time.Time) ([]*Loan, error)
}

// Journal records loan events.
type Journal interface {
	Append(ctx context.Context, e Event) error
}

// internal/circulation/implementation.go
package circulation

import (
	"context"
	"errors"
	"fmt"
	"libraloan/internal/errs"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const dateLayout = "02/01/2006"

// service implements the Service interface.
type service struct {
	loans   Repository
	books   Books
	journal Journal
	log     *zap.Logger
	tracer  trace.Tracer
	metrics counters
	now     func() time.Time
}

type counters struct {
	created       metric.Int64Counter
	returned      metric.Int64Counter
	compensations metric.Int64Counter
}

// Option configures the circulation service.
type Option func(*service)

// WithLogger sets the logger used for compensations and journal failures.
func WithLogger(log *zap.Logger) Option {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithJournal records every successful state change.
func WithJournal(j Journal) Option {
	return func(s *service) { s.journal = j }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// NewService creates a new circulation service instance.
func NewService(loans Repository, books Books, opts ...Option) Service {
	s := &service{
		loans:   loans,
		books:   books,
		log:     zap.NewNop(),
		tracer:  otel.Tracer("libraloan/circulation"),
		metrics: newCounters(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newCounters() counters {
	meter := otel.Meter("libraloan/circulation")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			return noop.Int64Counter{}
		}
		return c
	}
	return counters{
		created:       counter("libraloan.loans.created", "Loans opened"),
		returned:      counter("libraloan.loans.returned", "Loans closed by a return"),
		compensations: counter("libraloan.loans.compensations", "Compensating actions run after a partial failure"),
	}
}

// CreateLoan orchestrates the borrow saga.
func (s *service) CreateLoan(ctx context.Context, borrowerID, bookID uuid.UUID, borrowDate time.Time) (res Result, err error) {
	ctx, span := s.startSpan(ctx, "circulation.create_loan",
		attribute.String("borrower.id", borrowerID.String()),
		attribute.String("book.id", bookID.String()),
	)
	defer func() { endSpan(span, err) }()

	// Step 1: Check the book has a free copy
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		return Result{}, err
	}
	if !book.IsAvailable() {
		return Result{}, errs.Rule(errs.ErrNoCopiesAvailable, "Cannot create loan. '%s' has no available copies.", book.Title)
	}

	// Step 2: One open loan per borrower and book
	duplicate := errs.Rule(errs.ErrDuplicateOpenLoan, "You already have an unreturned loan for '%s'.", book.Title)
	existing, err := s.loans.FindOpen(ctx, borrowerID, bookID)
	switch {
	case err == nil && existing != nil:
		return Result{}, duplicate
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return Result{}, fmt.Errorf("failed to look up open loan: %w", err)
	}

	// Step 3: Persist the open loan
	now := s.now().UTC()
	if borrowDate.IsZero() {
		borrowDate = now
	}
	loan := &Loan{
		ID:         uuid.New(),
		BorrowerID: borrowerID,
		BookID:     bookID,
		BorrowDate: borrowDate.UTC(),
		CreatedAt:  now,
	}
	if err := s.loans.Create(ctx, loan); err != nil {
		if errors.Is(err, errs.ErrDuplicateOpenLoan) {
			return Result{}, duplicate
		}
		return Result{}, fmt.Errorf("failed to create loan: %w", err)
	}

	// Step 4: Take the copy; the loan record is rolled back if that fails
	if _, err := s.books.BorrowOne(ctx, bookID); err != nil {
		s.compensate(ctx, "delete loan after failed borrow", loan, func(ctx context.Context) error {
			return s.loans.Delete(ctx, loan.ID)
		})
		if errs.IsRule(err) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("failed to update book availability: %w", err)
	}

	s.record(ctx, newEvent(EventLoanCreated, loan, now))
	s.metrics.created.Add(ctx, 1)

	return Result{Loan: loan, Message: fmt.Sprintf("Successfully borrowed '%s'.", book.Title)}, nil
}

// RenewLoan moves the borrow date forward on an open loan.
func (s *service) RenewLoan(ctx context.Context, actorID, loanID uuid.UUID, at time.Time) (res Result, err error) {
	ctx, span := s.startSpan(ctx, "circulation.renew_loan", attribute.String("loan.id", loanID.String()))
	defer func() { endSpan(span, err) }()

	loan, err := s.ownedLoan(ctx, actorID, loanID, "renew")
	if err != nil {
		return Result{}, err
	}
	if loan.IsReturned() {
		return Result{}, errs.Rule(errs.ErrAlreadyReturned,
			"Cannot renew. This loan has already been returned on %s.", loan.ReturnDate.Format(dateLayout))
	}

	if at.IsZero() {
		at = s.now()
	}
	renewed, err := s.loans.Renew(ctx, loanID, at.UTC())
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyReturned) {
			return Result{}, errs.Rule(errs.ErrAlreadyReturned, "Cannot renew. This loan has already been returned.")
		}
		return Result{}, fmt.Errorf("failed to renew loan: %w", err)
	}

	s.record(ctx, newEvent(EventLoanRenewed, renewed, s.now().UTC()))

	return Result{
		Loan:    renewed,
		Message: fmt.Sprintf("Successfully renewed '%s'. Renewal count: %d.", s.bookTitle(ctx, loan.BookID), renewed.RenewCount),
	}, nil
}

// ReturnLoan puts the copy back on the shelf and closes the loan.
func (s *service) ReturnLoan(ctx context.Context, actorID, loanID uuid.UUID, at time.Time) (res Result, err error) {
	ctx, span := s.startSpan(ctx, "circulation.return_loan", attribute.String("loan.id", loanID.String()))
	defer func() { endSpan(span, err) }()

	loan, err := s.ownedLoan(ctx, actorID, loanID, "return")
	if err != nil {
		return Result{}, err
	}
	if loan.IsReturned() {
		return Result{}, errs.Rule(errs.ErrAlreadyReturned,
			"This loan has already been returned on %s.", loan.ReturnDate.Format(dateLayout))
	}
	if at.IsZero() {
		at = s.now()
	}

	// Step 1: Put the copy back; the loan stays open if that fails
	if _, err := s.books.ReturnOne(ctx, loan.BookID); err != nil {
		var re *errs.RuleError
		if errors.As(err, &re) {
			return Result{}, errs.Rule(re.Kind, "Failed to update book availability: %s", re.Message)
		}
		return Result{}, fmt.Errorf("failed to update book availability: %w", err)
	}

	// Step 2: Close the loan, taking the copy back off the shelf on failure
	returned, err := s.loans.MarkReturned(ctx, loanID, at.UTC())
	if err != nil {
		s.compensate(ctx, "re-borrow copy after failed return", loan, func(ctx context.Context) error {
			_, err := s.books.BorrowOne(ctx, loan.BookID)
			return err
		})
		if errors.Is(err, errs.ErrAlreadyReturned) {
			return Result{}, errs.Rule(errs.ErrAlreadyReturned, "This loan has already been returned.")
		}
		return Result{}, fmt.Errorf("failed to mark loan returned: %w", err)
	}

	s.record(ctx, newEvent(EventLoanReturned, returned, s.now().UTC()))
	s.metrics.returned.Add(ctx, 1)

	return Result{
		Loan:    returned,
		Message: fmt.Sprintf("Successfully returned '%s'.", s.bookTitle(ctx, loan.BookID)),
	}, nil
}

// DeleteLoan removes a closed loan record.
func (s *service) DeleteLoan(ctx context.Context, actorID, loanID uuid.UUID) (res Result, err error) {
	ctx, span := s.startSpan(ctx, "circulation.delete_loan", attribute.String("loan.id", loanID.String()))
	defer func() { endSpan(span, err) }()

	loan, err := s.ownedLoan(ctx, actorID, loanID, "delete")
	if err != nil {
		return Result{}, err
	}
	title := s.bookTitle(ctx, loan.BookID)
	if loan.IsOpen() {
		return Result{}, errs.Rule(errs.ErrLoanStillOpen,
			"Cannot delete an unreturned loan. Please return '%s' first.", title)
	}

	if err := s.loans.Delete(ctx, loanID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Result{}, errs.Rule(errs.ErrNotFound, "Loan not found.")
		}
		return Result{}, fmt.Errorf("failed to delete loan: %w", err)
	}

	s.record(ctx, newEvent(EventLoanDeleted, loan, s.now().UTC()))

	return Result{Message: fmt.Sprintf("Successfully deleted loan record for '%s'.", title)}, nil
}

// LoansFor lists a borrower's loans, newest borrow date first.
func (s *service) LoansFor(ctx context.Context, borrowerID uuid.UUID, openOnly bool) ([]*Loan, error) {
	loans, err := s.loans.ListByBorrower(ctx, borrowerID, openOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// GetLoan retrieves a loan by its ID.
func (s *service) GetLoan(ctx context.Context, id uuid.UUID) (*Loan, error) {
	loan, err := s.loans.Get(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Loan not found.")
		}
		return nil, fmt.Errorf("failed to get loan: %w", err)
	}
	return loan, nil
}

// OpenLoan returns the borrower's unreturned loan for the book.
func (s *service) OpenLoan(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error) {
	return s.findOne(s.loans.FindOpen(ctx, borrowerID, bookID))
}

// LatestLoan returns the borrower's most recent loan for the book, open or not.
func (s *service) LatestLoan(ctx context.Context, borrowerID, bookID uuid.UUID) (*Loan, error) {
	return s.findOne(s.loans.FindLatest(ctx, borrowerID, bookID))
}

func (s *service) findOne(loan *Loan, err error) (*Loan, error) {
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, errs.Rule(errs.ErrNotFound, "Loan not found.")
		}
		return nil, fmt.Errorf("failed to find loan: %w", err)
	}
	return loan, nil
}

// Overdue lists every open loan borrowed more than dueDays ago.
func (s *service) Overdue(ctx context.Context, dueDays int) ([]*Loan, error) {
	if dueDays <= 0 {
		return nil, errs.Rule(errs.ErrValidation, "Due days must be positive.")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -dueDays)
	loans, err := s.loans.ListOverdue(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue loans: %w", err)
	}
	return loans, nil
}

func (s *service) ownedLoan(ctx context.Context, actorID, loanID uuid.UUID, verb string) (*Loan, error) {
	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.BorrowerID != actorID {
		return nil, errs.Rule(errs.ErrForbidden, "You can only %s your own loans.", verb)
	}
	return loan, nil
}

func (s *service) bookTitle(ctx context.Context, bookID uuid.UUID) string {
	book, err := s.books.GetBook(ctx, bookID)
	if err != nil {
		s.log.Warn("book lookup for message failed", zap.String("book_id", bookID.String()), zap.Error(err))
		return "this book"
	}
	return book.Title
}

// compensate runs an undo step on a context that outlives request cancellation.
func (s *service) compensate(ctx context.Context, what string, loan *Loan, undo func(context.Context) error) {
	s.metrics.compensations.Add(ctx, 1)
	s.log.Warn("compensating",
		zap.String("action", what),
		zap.String("loan_id", loan.ID.String()),
		zap.String("book_id", loan.BookID.String()),
	)
	if err := undo(context.WithoutCancel(ctx)); err != nil {
		s.log.Error("compensation failed",
			zap.String("action", what),
			zap.String("loan_id", loan.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *service) record(ctx context.Context, e Event) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, e); err != nil {
		s.log.Warn("journal append failed", zap.String("type", e.Type), zap.String("loan_id", e.LoanID.String()), zap.Error(err))
	}
}

func (s *service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if !errs.IsRule(err) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

package memory

import (
	"context"
	"libraloan/internal/circulation"
	"libraloan/internal/errs"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pair struct{ borrower, book uuid.UUID }

// LoanRepo implements circulation.Repository.
type LoanRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*circulation.Loan
	open map[pair]uuid.UUID
}

// NewLoanRepo constructs an empty loan repository.
func NewLoanRepo() *LoanRepo {
	return &LoanRepo{
		byID: make(map[uuid.UUID]*circulation.Loan),
		open: make(map[pair]uuid.UUID),
	}
}

func (r *LoanRepo) Create(_ context.Context, l *circulation.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := pair{l.BorrowerID, l.BookID}
	if l.IsOpen() {
		if _, ok := r.open[k]; ok {
			return errs.ErrDuplicateOpenLoan
		}
		r.open[k] = l.ID
	}
	r.byID[l.ID] = cloneLoan(l)
	return nil
}

func (r *LoanRepo) Get(_ context.Context, id uuid.UUID) (*circulation.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneLoan(l), nil
}

func (r *LoanRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	if k := (pair{l.BorrowerID, l.BookID}); r.open[k] == id {
		delete(r.open, k)
	}
	delete(r.byID, id)
	return nil
}

func (r *LoanRepo) Renew(_ context.Context, id uuid.UUID, borrowDate time.Time) (*circulation.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if l.IsReturned() {
		return nil, errs.ErrAlreadyReturned
	}
	l.BorrowDate = borrowDate
	l.RenewCount++
	return cloneLoan(l), nil
}

func (r *LoanRepo) MarkReturned(_ context.Context, id uuid.UUID, returnDate time.Time) (*circulation.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if l.IsReturned() {
		return nil, errs.ErrAlreadyReturned
	}
	rd := returnDate
	l.ReturnDate = &rd
	delete(r.open, pair{l.BorrowerID, l.BookID})
	return cloneLoan(l), nil
}

func (r *LoanRepo) ListByBorrower(_ context.Context, borrowerID uuid.UUID, openOnly bool) ([]*circulation.Loan, error) {
	return r.filter(func(l *circulation.Loan) bool {
		return l.BorrowerID == borrowerID && (!openOnly || l.IsOpen())
	}), nil
}

func (r *LoanRepo) FindOpen(_ context.Context, borrowerID, bookID uuid.UUID) (*circulation.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.open[pair{borrowerID, bookID}]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return cloneLoan(r.byID[id]), nil
}

func (r *LoanRepo) FindLatest(_ context.Context, borrowerID, bookID uuid.UUID) (*circulation.Loan, error) {
	found := r.filter(func(l *circulation.Loan) bool {
		return l.BorrowerID == borrowerID && l.BookID == bookID
	})
	if len(found) == 0 {
		return nil, errs.ErrNotFound
	}
	return found[0], nil
}

func (r *LoanRepo) ListOverdue(_ context.Context, cutoff time.Time) ([]*circulation.Loan, error) {
	out := r.filter(func(l *circulation.Loan) bool {
		return l.IsOpen() && l.BorrowDate.Before(cutoff)
	})
	slices.Reverse(out)
	return out, nil
}

// CountOpenByBook reports how many open loans each book has.
func (r *LoanRepo) CountOpenByBook(_ context.Context) (map[uuid.UUID]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uuid.UUID]int)
	for k := range r.open {
		out[k.book]++
	}
	return out, nil
}

// filter returns matching loans, newest borrow date first.
func (r *LoanRepo) filter(match func(*circulation.Loan) bool) []*circulation.Loan {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*circulation.Loan, 0)
	for _, l := range r.byID {
		if match(l) {
			out = append(out, cloneLoan(l))
		}
	}
	slices.SortFunc(out, func(a, b *circulation.Loan) int { return b.BorrowDate.Compare(a.BorrowDate) })
	return out
}

func cloneLoan(l *circulation.Loan) *circulation.Loan {
	c := *l
	if l.ReturnDate != nil {
		rd := *l.ReturnDate
		c.ReturnDate = &rd
	}
	return &c
}

// Journal implements circulation.Journal.
type Journal struct {
	mu     sync.Mutex
	events []circulation.Event
}

// NewJournal constructs an empty journal.
func NewJournal() *Journal { return &Journal{} }

func (j *Journal) Append(_ context.Context, e circulation.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (j *Journal) Events() []circulation.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.events)
}
